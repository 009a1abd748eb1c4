package erosion

import (
	"fmt"
	"strings"
)

// Terrain supplies the height grid a run erodes. Heights and Water must
// return width*width slices; the engine reads and writes them in place.
type Terrain interface {
	Width() int
	MaxHeight() float32
	Heights() []float32
	Water() []float32
}

// MeshConsumer rebuilds a renderable surface from the terrain fields.
// Regenerate must not block; NeedsUpload reports whether a previous
// result is still waiting to be uploaded.
type MeshConsumer interface {
	NeedsUpload() bool
	Regenerate(includeWater bool)
}

// Backend selects the pipeline a run executes on.
type Backend int

const (
	CPU Backend = iota
	GPU
)

func (b Backend) String() string {
	switch b {
	case CPU:
		return "cpu"
	case GPU:
		return "gpu"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(s) {
	case "cpu":
		return CPU, nil
	case "gpu":
		return GPU, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBackend, s)
}
