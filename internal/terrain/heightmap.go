package terrain

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
)

var (
	ErrTooSmall     = errors.New("terrain: width must be at least 3")
	ErrSizeMismatch = errors.New("terrain: height count does not match width*width")
)

// Domain warp fields are fixed low-frequency noise offset from each other.
const (
	warpOctaves   = 6
	warpFrequency = 0.001
	baseOctaves   = 4
)

// Params shape a generated heightmap.
type Params struct {
	Width       int
	Seed        int64
	Scale       float64
	Octaves     int
	Frequency   float64
	Amplitude   float64
	Persistence float64
	Lacunarity  float64
	DomainWarp  float64
	MinHeight   float64
}

func DefaultParams() Params {
	return Params{
		Width:       512,
		Seed:        1,
		Scale:       0.25,
		Octaves:     12,
		Frequency:   0.005,
		Amplitude:   300,
		Persistence: 0.5,
		Lacunarity:  2,
		DomainWarp:  400,
		MinHeight:   30,
	}
}

// Heightmap is a square height field with a water layer. The outer ring
// of cells is left at zero.
type Heightmap struct {
	width  int
	maxH   float32
	height []float32
	water  []float32
}

func (h *Heightmap) Width() int         { return h.width }
func (h *Heightmap) MaxHeight() float32 { return h.maxH }
func (h *Heightmap) Heights() []float32 { return h.height }
func (h *Heightmap) Water() []float32   { return h.water }

// Generate builds a heightmap from layered noise: a gentle base layer
// multiplied by the square of a domain-warped mountain layer.
func Generate(p Params) (*Heightmap, error) {
	w := p.Width
	if w < 3 {
		return nil, fmt.Errorf("%w: got %d", ErrTooSmall, w)
	}
	base := NewNoise(p.Seed)
	mountain := NewNoise(p.Seed + 1)
	warp := NewNoise(p.Seed + 2)

	h := &Heightmap{
		width:  w,
		height: make([]float32, w*w),
		water:  make([]float32, w*w),
	}

	rowMax := make([]float32, w)
	forRows(w, func(z int) {
		var top float32
		for x := 1; x < w-1; x++ {
			fx, fz := float64(x), float64(z)
			var dx, dz float64
			if p.DomainWarp > 0 {
				dx = p.DomainWarp * warp.Fractal(warpOctaves, warpFrequency, 0.5, 2, fx-1.4, fz-4.7)
				dz = p.DomainWarp * warp.Fractal(warpOctaves, warpFrequency, 0.5, 2, fx+5.2, fz+1.3)
			}
			b := base.Fractal(baseOctaves, p.Frequency, 0.5, 2, fx*p.Scale, fz*p.Scale)
			m := mountain.Fractal(p.Octaves, p.Frequency, p.Persistence, p.Lacunarity,
				(fx+dx)*p.Scale, (fz+dz)*p.Scale)

			v := float32(p.MinHeight + b*m*m*p.Amplitude)
			h.height[z*w+x] = v
			top = max(top, v)
		}
		rowMax[z] = top
	})
	for _, v := range rowMax {
		h.maxH = max(h.maxH, v)
	}
	return h, nil
}

// FromHeights wraps existing height data. The slice is used in place.
func FromHeights(width int, heights []float32) (*Heightmap, error) {
	if width < 3 {
		return nil, fmt.Errorf("%w: got %d", ErrTooSmall, width)
	}
	if len(heights) != width*width {
		return nil, fmt.Errorf("%w: %d cells for width %d", ErrSizeMismatch, len(heights), width)
	}
	h := &Heightmap{width: width, height: heights, water: make([]float32, len(heights))}
	h.maxH = float32(math.Inf(-1))
	for _, v := range heights {
		h.maxH = max(h.maxH, v)
	}
	return h, nil
}

// forRows calls fn for every interior row, spread over all CPUs.
func forRows(width int, fn func(z int)) {
	rows := make(chan int, width)
	for z := 1; z < width-1; z++ {
		rows <- z
	}
	close(rows)

	var wg sync.WaitGroup
	for i := 0; i < runtime.NumCPU(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for z := range rows {
				fn(z)
			}
		}()
	}
	wg.Wait()
}
