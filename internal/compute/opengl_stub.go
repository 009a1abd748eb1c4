//go:build !gl

package compute

// NewGLDevice always fails without the gl build tag.
func NewGLDevice() (Device, error) {
	return nil, ErrUnavailable
}
