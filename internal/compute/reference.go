package compute

import (
	"fmt"
	"runtime"
	"sync"
)

// ReferenceDevice executes the kernels on the host. It is the fallback
// when no OpenGL context exists and the baseline the shaders are tested
// against.
type ReferenceDevice struct {
	workers int
	width   int
	bufs    fields
}

func NewReferenceDevice() *ReferenceDevice {
	return &ReferenceDevice{workers: runtime.NumCPU()}
}

func (d *ReferenceDevice) Name() string { return "reference" }

func (d *ReferenceDevice) Allocate(width int) error {
	d.width = width
	for b := range d.bufs {
		d.bufs[b] = make([]float32, width*width)
	}
	logger().Debug("reference buffers allocated", "width", width, "buffers", int(bufferCount))
	return nil
}

func (d *ReferenceDevice) Upload(b Buffer, data []float32) error {
	if d.bufs[b] == nil {
		return ErrNotAllocated
	}
	if len(data) != len(d.bufs[b]) {
		return fmt.Errorf("%w: upload %d cells into %d", ErrBufferSize, len(data), len(d.bufs[b]))
	}
	copy(d.bufs[b], data)
	return nil
}

func (d *ReferenceDevice) Download(b Buffer, dst []float32) error {
	if d.bufs[b] == nil {
		return ErrNotAllocated
	}
	if len(dst) != len(d.bufs[b]) {
		return fmt.Errorf("%w: download %d cells into %d", ErrBufferSize, len(d.bufs[b]), len(dst))
	}
	copy(dst, d.bufs[b])
	return nil
}

func (d *ReferenceDevice) Dispatch(s Stage, u Uniforms) error {
	if d.bufs[HeightIn] == nil {
		return ErrNotAllocated
	}
	if int(u.Width) != d.width {
		return fmt.Errorf("%w: width %d, allocated %d", ErrBufferSize, u.Width, d.width)
	}

	var kernel func(*fields, Uniforms, int, int)
	switch s {
	case StageUpdate:
		kernel = updateKernel
	case StageDeltaH:
		kernel = deltaHKernel
	case StageErode:
		kernel = erodeKernel
	default:
		return fmt.Errorf("compute: unknown stage %v", s)
	}

	rows := d.width
	workers := d.workers
	if rows < workers*4 {
		kernel(&d.bufs, u, 0, rows)
		return nil
	}

	var wg sync.WaitGroup
	chunk := (rows + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := min(start+chunk, rows)
		if start >= end {
			break
		}
		wg.Add(1)
		go func(z0, z1 int) {
			defer wg.Done()
			kernel(&d.bufs, u, z0, z1)
		}(start, end)
	}
	wg.Wait()
	return nil
}

// Barrier is a no-op: Dispatch returns only after every row is done.
func (d *ReferenceDevice) Barrier() {}

func (d *ReferenceDevice) Release() {
	for b := range d.bufs {
		d.bufs[b] = nil
	}
	d.width = 0
}
