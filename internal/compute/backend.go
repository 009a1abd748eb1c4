package compute

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable   = errors.New("compute: gpu device not available")
	ErrShaderCompile = errors.New("compute: failed to compile compute shader")
	ErrShaderLink    = errors.New("compute: failed to link compute program")
	ErrDeviceLost    = errors.New("compute: device reported an error")
	ErrBufferSize    = errors.New("compute: buffer size mismatch")
	ErrNotAllocated  = errors.New("compute: buffers not allocated")
)

// WorkgroupSize is the local size of every erosion kernel in x and y.
const WorkgroupSize = 32

// Stage identifies one of the three kernels run per erosion step.
type Stage int

const (
	// StageUpdate applies evaporation, rotates out buffers into in
	// buffers and injects rain when the step calls for it.
	StageUpdate Stage = iota
	// StageDeltaH precomputes per-cell sums of downhill differentials.
	StageDeltaH
	// StageErode applies hydraulic and thermal transport.
	StageErode
	stageCount
)

func (s Stage) String() string {
	switch s {
	case StageUpdate:
		return "update"
	case StageDeltaH:
		return "delta_h"
	case StageErode:
		return "erode"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Buffer identifies a device-resident field. The values double as the
// shader storage binding points.
type Buffer int

const (
	HeightIn Buffer = iota
	HeightOut
	WaterIn
	WaterOut
	SedimentIn
	SedimentOut
	TotalDeltaHW
	TotalDeltaH
	bufferCount
)

// Uniforms carries the scalar inputs shared by all kernels.
type Uniforms struct {
	Width         int32
	MaxHeight     float32
	Step          int32
	Rain          float32
	RainFrequency int32
	KC, KD, KS    float32
	KE            float32
	KT, CT        float32
	Hydraulic     bool
	Thermal       bool
	// Finalize makes StageUpdate evaporate and rotate without raining.
	Finalize bool
}

// Device runs the erosion kernels over device-resident buffers.
type Device interface {
	Name() string
	Allocate(width int) error
	Upload(b Buffer, data []float32) error
	Download(b Buffer, dst []float32) error
	Dispatch(s Stage, u Uniforms) error
	// Barrier makes all writes of previous dispatches visible to later ones.
	Barrier()
	Release()
}

// AutoSelect returns the OpenGL device when a context can be created and
// the reference device otherwise. The release func tears down whatever
// AutoSelect set up.
func AutoSelect() (Device, func()) {
	release, err := NewHeadlessContext()
	if err == nil {
		dev, err := NewGLDevice()
		if err == nil {
			return dev, func() { dev.Release(); release() }
		}
		release()
		logger().Warn("gl device unavailable, using reference device", "err", err)
	}
	dev := NewReferenceDevice()
	return dev, dev.Release
}
