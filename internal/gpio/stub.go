//go:build !linux

package gpio

import (
	"errors"
	"fmt"
)

// RealController is not available on non-Linux platforms.
type RealController struct{}

// NewRealController returns a controller whose Acquire always fails.
func NewRealController(chip string) *RealController {
	return &RealController{}
}

// Acquire is not implemented on non-Linux platforms.
func (c *RealController) Acquire(lineID string) (Line, error) {
	return nil, fmt.Errorf("%w: %v", ErrLineUnavailable, errors.New("not supported on this platform (requires Linux)"))
}
