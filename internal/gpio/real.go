//go:build linux

package gpio

import (
	"fmt"
	"strconv"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/gpio-blinker/internal/logic"
)

// RealController acquires lines from a Linux GPIO character device.
type RealController struct {
	chip string
}

// NewRealController creates a controller for the named chip (e.g. "gpiochip0").
func NewRealController(chip string) *RealController {
	if chip == "" {
		chip = DefaultChip
	}
	return &RealController{chip: chip}
}

// Acquire requests the line as an input until its direction is set.
// lineID is either a numeric offset ("20") or a line name ("GPIO20").
func (c *RealController) Acquire(lineID string) (Line, error) {
	chip, err := gpiocdev.NewChip(c.chip, gpiocdev.WithConsumer(Consumer))
	if err != nil {
		return nil, fmt.Errorf("%w: open chip %s: %v", ErrLineUnavailable, c.chip, err)
	}

	offset, err := strconv.Atoi(lineID)
	if err != nil {
		// On Pi, line names are commonly "GPIO20", etc.
		offset, err = chip.FindLine(lineID)
		if err != nil {
			chip.Close()
			return nil, fmt.Errorf("%w: find line %q on %s: %v", ErrLineUnavailable, lineID, c.chip, err)
		}
	}

	line, err := chip.RequestLine(offset, gpiocdev.AsInput)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("%w: request line %q: %v", ErrLineUnavailable, lineID, err)
	}

	return &RealLine{chip: chip, line: line}, nil
}

// RealLine drives an output line through the GPIO character device.
type RealLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// SetDirectionOutput reconfigures the line as an output driving initial.
func (l *RealLine) SetDirectionOutput(initial logic.Level) error {
	if err := l.line.Reconfigure(gpiocdev.AsOutput(initial.Value())); err != nil {
		return fmt.Errorf("%w: %v", ErrDirectionFailed, err)
	}
	return nil
}

// SetLevel drives the line to the given level.
func (l *RealLine) SetLevel(level logic.Level) error {
	if err := l.line.SetValue(level.Value()); err != nil {
		return fmt.Errorf("set line value: %w", err)
	}
	return nil
}

// Release returns the line to the kernel.
// Reconfigures the line to input before closing so the pin is not left
// driven once the daemon has exited.
func (l *RealLine) Release() error {
	var errs []error

	if l.line != nil {
		if err := l.line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line: %w", err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
		l.line = nil
	}
	if l.chip != nil {
		if err := l.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		l.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("release errors: %v", errs)
	}
	return nil
}
