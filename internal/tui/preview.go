package tui

import (
	"strings"
	"sync"
	"sync/atomic"
)

// shades runs from low to high ground.
const shades = " .:-=+*#%@"

// Preview keeps a coarse character map of the terrain. It is a mesh
// consumer: Regenerate samples the fields and the view takes the result.
type Preview struct {
	src     Source
	cols    int
	rows    int
	pending atomic.Bool

	mu    sync.Mutex
	lines []string
	water bool
}

// Source is the field data a Preview samples.
type Source interface {
	Width() int
	Heights() []float32
	Water() []float32
}

func NewPreview(src Source, cols, rows int) *Preview {
	return &Preview{src: src, cols: cols, rows: rows}
}

func (p *Preview) NeedsUpload() bool { return p.pending.Load() }

// Regenerate resamples the terrain. Water deeper than a tenth of a unit
// is drawn as '~' when includeWater is set.
func (p *Preview) Regenerate(includeWater bool) {
	if !p.pending.CompareAndSwap(false, true) {
		return
	}
	width := p.src.Width()
	heights, water := p.src.Heights(), p.src.Water()

	lo, hi := heights[0], heights[0]
	for _, h := range heights {
		lo = min(lo, h)
		hi = max(hi, h)
	}
	span := hi - lo

	lines := make([]string, p.rows)
	var b strings.Builder
	for r := 0; r < p.rows; r++ {
		b.Reset()
		z := r * width / p.rows
		for c := 0; c < p.cols; c++ {
			i := z*width + c*width/p.cols
			if includeWater && water[i] > 0.1 {
				b.WriteByte('~')
				continue
			}
			level := 0
			if span > 0 {
				level = int((heights[i] - lo) / span * float32(len(shades)-1))
			}
			b.WriteByte(shades[level])
		}
		lines[r] = b.String()
	}

	p.mu.Lock()
	p.lines, p.water = lines, includeWater
	p.mu.Unlock()
}

// Take returns the latest map and clears the pending flag.
func (p *Preview) Take() ([]string, bool) {
	p.mu.Lock()
	lines, water := p.lines, p.water
	p.mu.Unlock()
	p.pending.Store(false)
	return lines, water
}
