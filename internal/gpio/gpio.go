// Package gpio provides GPIO output line control with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"errors"

	"github.com/sweeney/gpio-blinker/internal/logic"
)

var (
	// ErrLineUnavailable is returned when a line cannot be acquired.
	ErrLineUnavailable = errors.New("gpio: line unavailable")

	// ErrDirectionFailed is returned when a line cannot be switched to output.
	ErrDirectionFailed = errors.New("gpio: set direction failed")
)

// Controller hands out exclusive ownership of output lines.
type Controller interface {
	// Acquire requests exclusive ownership of the named line.
	// Returns an error wrapping ErrLineUnavailable on failure.
	Acquire(lineID string) (Line, error)
}

// Line is an owned output line.
type Line interface {
	// SetDirectionOutput configures the line as an output driving initial.
	// Returns an error wrapping ErrDirectionFailed on failure.
	SetDirectionOutput(initial logic.Level) error

	// SetLevel drives the line to the given level.
	SetLevel(level logic.Level) error

	// Release returns the line to the controller. Must be called once.
	Release() error
}

// Default line definitions (BCM numbering)
const (
	DefaultChip = "gpiochip0"
	DefaultLine = "GPIO20"
)

// Consumer is the label the line is requested under.
const Consumer = "blinker"
