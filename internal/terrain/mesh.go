package terrain

import (
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// Source is the field data a Mesh reads.
type Source interface {
	Width() int
	Heights() []float32
	Water() []float32
}

// Frame is one rebuilt surface, ready to hand to a renderer.
type Frame struct {
	Width     int
	Heights   []float32
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	// WaterSurface is height plus water, box filtered. Nil when the
	// frame was regenerated without water.
	WaterSurface []float32
}

// Mesh rebuilds vertex data from a Source off the caller's goroutine.
// It satisfies erosion.MeshConsumer.
type Mesh struct {
	src      Source
	cellSize float32
	indices  []uint32

	pending  atomic.Bool
	mu       sync.Mutex
	ready    *Frame
	notify   chan struct{}
	building sync.WaitGroup
}

func NewMesh(src Source, cellSize float32) *Mesh {
	return &Mesh{
		src:      src,
		cellSize: cellSize,
		indices:  gridIndices(src.Width()),
		notify:   make(chan struct{}, 1),
	}
}

// Indices returns the triangle list shared by every frame, two triangles
// per grid cell.
func (m *Mesh) Indices() []uint32 { return m.indices }

// NeedsUpload reports whether a requested frame has not been taken by
// Upload yet.
func (m *Mesh) NeedsUpload() bool { return m.pending.Load() }

// Regenerate starts building a frame from the current fields. It returns
// immediately and is ignored while a previous frame is still pending.
func (m *Mesh) Regenerate(includeWater bool) {
	if !m.pending.CompareAndSwap(false, true) {
		return
	}
	width := m.src.Width()
	heights := append([]float32(nil), m.src.Heights()...)
	var water []float32
	if includeWater {
		water = append([]float32(nil), m.src.Water()...)
	}

	m.building.Add(1)
	go func() {
		defer m.building.Done()
		f := buildFrame(width, m.cellSize, heights, water)
		m.mu.Lock()
		m.ready = f
		m.mu.Unlock()
		select {
		case m.notify <- struct{}{}:
		default:
		}
	}()
}

// Ready signals each time a frame finishes building.
func (m *Mesh) Ready() <-chan struct{} { return m.notify }

// Upload takes the finished frame, clearing the pending flag. It returns
// false while nothing is ready.
func (m *Mesh) Upload() (*Frame, bool) {
	m.mu.Lock()
	f := m.ready
	m.ready = nil
	m.mu.Unlock()
	if f == nil {
		return nil, false
	}
	m.pending.Store(false)
	return f, true
}

// Wait blocks until every started build has finished.
func (m *Mesh) Wait() { m.building.Wait() }

func buildFrame(width int, cellSize float32, heights, water []float32) *Frame {
	n := width * width
	f := &Frame{
		Width:     width,
		Heights:   heights,
		Positions: make([]mgl32.Vec3, n),
		Normals:   make([]mgl32.Vec3, n),
	}
	for z := 0; z < width; z++ {
		for x := 0; x < width; x++ {
			i := z*width + x
			f.Positions[i] = mgl32.Vec3{float32(x) * cellSize, heights[i], float32(z) * cellSize}
			f.Normals[i] = normalAt(heights, width, x, z, cellSize)
		}
	}
	if water != nil {
		f.WaterSurface = smoothWater(heights, water, width)
	}
	return f
}

// normalAt uses central differences, clamped at the edges.
func normalAt(h []float32, width, x, z int, cellSize float32) mgl32.Vec3 {
	l, r := max(x-1, 0), min(x+1, width-1)
	d, u := max(z-1, 0), min(z+1, width-1)
	dx := (h[z*width+l] - h[z*width+r]) / (float32(r-l) * cellSize)
	dz := (h[d*width+x] - h[u*width+x]) / (float32(u-d) * cellSize)
	return mgl32.Vec3{dx, 1, dz}.Normalize()
}

// smoothWater averages height+water over each interior cell's 3x3 block.
// Edge cells keep their raw level.
func smoothWater(heights, water []float32, width int) []float32 {
	level := make([]float32, len(heights))
	for i := range level {
		level[i] = heights[i] + water[i]
	}
	out := append([]float32(nil), level...)
	for z := 1; z < width-1; z++ {
		for x := 1; x < width-1; x++ {
			var sum float32
			for dz := -1; dz <= 1; dz++ {
				row := (z + dz) * width
				sum += level[row+x-1] + level[row+x] + level[row+x+1]
			}
			out[z*width+x] = sum / 9
		}
	}
	return out
}

func gridIndices(width int) []uint32 {
	if width < 2 {
		return nil
	}
	w := uint32(width)
	idx := make([]uint32, 0, (width-1)*(width-1)*6)
	for z := uint32(0); z < w-1; z++ {
		for x := uint32(0); x < w-1; x++ {
			a := z*w + x
			b := (z+1)*w + x
			idx = append(idx, a, b, b+1, a, b+1, a+1)
		}
	}
	return idx
}
