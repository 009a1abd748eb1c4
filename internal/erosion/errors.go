package erosion

import (
	"errors"
	"fmt"
)

var (
	ErrNotBound       = errors.New("erosion: engine not bound to a terrain")
	ErrAlreadyBound   = errors.New("erosion: engine already bound, release it first")
	ErrRunning        = errors.New("erosion: a run is already active")
	ErrFlatTerrain    = errors.New("erosion: roughness undefined on flat terrain")
	ErrGridTooSmall   = errors.New("erosion: grid too small")
	ErrSizeMismatch   = errors.New("erosion: field length does not match width*width")
	ErrMaxHeight      = errors.New("erosion: max height must be positive")
	ErrInvalidParams  = errors.New("erosion: parameter out of range")
	ErrUnknownBackend = errors.New("erosion: unknown backend")
)

// RunError reports a run that stopped because its backend failed.
type RunError struct {
	Backend Backend
	Step    int
	Err     error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("erosion: %s run failed at step %d: %v", e.Backend, e.Step, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
