package grid

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// DryThreshold is the water depth below which a cell counts as dry.
const DryThreshold = 1e-6

// Field names a per-cell quantity.
type Field int

const (
	Height Field = iota
	Water
	Sediment
)

func (f Field) String() string {
	switch f {
	case Height:
		return "height"
	case Water:
		return "water"
	case Sediment:
		return "sediment"
	default:
		return "unknown"
	}
}

// Grid holds the double-buffered fields of a width x width terrain.
//
// HeightIn and WaterIn alias the slices handed to New, so the caller's
// height/water fields are updated in place as the simulation rotates
// buffers. Every other slice is owned by the Grid.
type Grid struct {
	Width int
	Size  int

	HeightIn    []float32
	HeightOut   []float32
	WaterIn     []float32
	WaterOut    []float32
	SedimentIn  []float32
	SedimentOut []float32
}

// New binds a grid to the given height and water slices. Both must hold
// width*width cells.
func New(width int, height, water []float32) *Grid {
	size := width * width
	return &Grid{
		Width:       width,
		Size:        size,
		HeightIn:    height,
		HeightOut:   make([]float32, size),
		WaterIn:     water,
		WaterOut:    make([]float32, size),
		SedimentIn:  make([]float32, size),
		SedimentOut: make([]float32, size),
	}
}

func (g *Grid) Index(x, z int) int { return z*g.Width + x }

// Interior reports whether (x, z) lies at least ring cells away from the edge.
func (g *Grid) Interior(x, z, ring int) bool {
	return x >= ring && z >= ring && x < g.Width-ring && z < g.Width-ring
}

// Released reports whether Release has been called.
func (g *Grid) Released() bool { return g.HeightOut == nil }

// Seed prepares rows [z0, z1) for a new run: water proportional to
// elevation, no sediment, out buffers mirroring in buffers. Boundary
// cells are left alone.
func (g *Grid) Seed(z0, z1 int, rain, maxHeight float32) {
	w := g.Width
	for z := max(z0, 1); z < min(z1, w-1); z++ {
		for x := 1; x < w-1; x++ {
			i := z*w + x
			g.WaterIn[i] = rain * (g.HeightIn[i] / maxHeight)
			g.SedimentIn[i] = 0
			g.WaterOut[i] = g.WaterIn[i]
			g.SedimentOut[i] = 0
			g.HeightOut[i] = g.HeightIn[i]
		}
	}
}

// Mirror copies boundary cells of every in buffer to the matching out
// buffer so the out generation never holds stale frame values.
func (g *Grid) Mirror() {
	copy(g.HeightOut, g.HeightIn)
	copy(g.WaterOut, g.WaterIn)
	copy(g.SedimentOut, g.SedimentIn)
}

// Rotate copies the out generation into the in generation for interior
// rows [z0, z1).
func (g *Grid) Rotate(z0, z1 int) {
	w := g.Width
	for z := max(z0, 1); z < min(z1, w-1); z++ {
		lo, hi := z*w+1, z*w+w-1
		copy(g.HeightIn[lo:hi], g.HeightOut[lo:hi])
		copy(g.WaterIn[lo:hi], g.WaterOut[lo:hi])
		copy(g.SedimentIn[lo:hi], g.SedimentOut[lo:hi])
	}
}

// In returns the live buffer for f.
func (g *Grid) In(f Field) []float32 {
	switch f {
	case Height:
		return g.HeightIn
	case Water:
		return g.WaterIn
	default:
		return g.SedimentIn
	}
}

// Sum totals f over cells at least ring cells from the edge.
func (g *Grid) Sum(f Field, ring int) float64 {
	buf := g.In(f)
	w := g.Width
	total := 0.0
	for z := ring; z < w-ring; z++ {
		for x := ring; x < w-ring; x++ {
			total += float64(buf[z*w+x])
		}
	}
	return total
}

// Release drops the owned buffers. The aliased height/water slices stay
// with their owner.
func (g *Grid) Release() {
	g.HeightIn, g.WaterIn = nil, nil
	g.HeightOut, g.WaterOut = nil, nil
	g.SedimentIn, g.SedimentOut = nil, nil
}

// AtomicAdd adds delta to buf[i] with compare-and-swap, so concurrent
// scatter-adds from different source cells are never lost.
func AtomicAdd(buf []float32, i int, delta float32) {
	addr := (*uint32)(unsafe.Pointer(&buf[i]))
	for {
		old := atomic.LoadUint32(addr)
		next := math.Float32bits(math.Float32frombits(old) + delta)
		if atomic.CompareAndSwapUint32(addr, old, next) {
			return
		}
	}
}
