//go:build !gl

package compute

// NewHeadlessContext always fails without the gl build tag.
func NewHeadlessContext() (func(), error) {
	return nil, ErrUnavailable
}
