package gpio

import (
	"fmt"
	"sync"
	"time"

	"github.com/sweeney/gpio-blinker/internal/logic"
)

// FakeController is a test double that hands out FakeLines.
// Safe for concurrent use.
type FakeController struct {
	mu    sync.Mutex
	owned map[string]bool
	lines map[string]*FakeLine

	// Unavailable lists line IDs that fail to acquire.
	Unavailable map[string]bool

	// DirectionError, if set, is returned by SetDirectionOutput on new lines.
	DirectionError error

	// LevelError, if set, is returned by SetLevel on new lines.
	LevelError error
}

// NewFakeController creates a FakeController with no lines owned.
func NewFakeController() *FakeController {
	return &FakeController{
		owned:       make(map[string]bool),
		lines:       make(map[string]*FakeLine),
		Unavailable: make(map[string]bool),
	}
}

// Acquire returns a new FakeLine, failing if the line is already owned.
func (c *FakeController) Acquire(lineID string) (Line, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Unavailable[lineID] {
		return nil, fmt.Errorf("%w: %s", ErrLineUnavailable, lineID)
	}
	if c.owned[lineID] {
		return nil, fmt.Errorf("%w: %s busy", ErrLineUnavailable, lineID)
	}

	c.owned[lineID] = true
	l := &FakeLine{
		id:             lineID,
		ctrl:           c,
		directionError: c.DirectionError,
		levelError:     c.LevelError,
	}
	c.lines[lineID] = l
	return l, nil
}

// Owned reports whether the line is currently acquired.
func (c *FakeController) Owned(lineID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owned[lineID]
}

// Line returns the most recently acquired FakeLine for lineID.
func (c *FakeController) Line(lineID string) *FakeLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines[lineID]
}

func (c *FakeController) release(lineID string) {
	c.mu.Lock()
	delete(c.owned, lineID)
	c.mu.Unlock()
}

// LevelWrite records a single SetLevel call.
type LevelWrite struct {
	Level logic.Level
	Err   error
}

// FakeLine records direction and level writes for test assertions.
// Safe for concurrent use.
type FakeLine struct {
	id   string
	ctrl *FakeController

	mu             sync.Mutex
	output         bool
	level          logic.Level
	writes         []LevelWrite
	released       bool
	directionError error
	levelError     error
}

// SetDirectionOutput switches the fake line to output.
func (l *FakeLine) SetDirectionOutput(initial logic.Level) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.directionError != nil {
		return fmt.Errorf("%w: %v", ErrDirectionFailed, l.directionError)
	}
	l.output = true
	l.level = initial
	return nil
}

// SetLevel records the level write.
func (l *FakeLine) SetLevel(level logic.Level) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.levelError != nil {
		l.writes = append(l.writes, LevelWrite{Level: level, Err: l.levelError})
		return l.levelError
	}
	if l.released {
		return fmt.Errorf("gpio: write to released line %s", l.id)
	}
	l.level = level
	l.writes = append(l.writes, LevelWrite{Level: level})
	return nil
}

// Release marks the line released and returns it to the controller.
func (l *FakeLine) Release() error {
	l.mu.Lock()
	if l.released {
		l.mu.Unlock()
		return fmt.Errorf("gpio: line %s already released", l.id)
	}
	l.released = true
	l.mu.Unlock()

	l.ctrl.release(l.id)
	return nil
}

// SetLevelError changes the error returned by subsequent SetLevel calls.
func (l *FakeLine) SetLevelError(err error) {
	l.mu.Lock()
	l.levelError = err
	l.mu.Unlock()
}

// Level returns the last successfully driven level.
func (l *FakeLine) Level() logic.Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// IsOutput reports whether SetDirectionOutput succeeded.
func (l *FakeLine) IsOutput() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.output
}

// Released reports whether Release was called.
func (l *FakeLine) Released() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.released
}

// Writes returns a copy of all recorded level writes.
func (l *FakeLine) Writes() []LevelWrite {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LevelWrite, len(l.writes))
	copy(out, l.writes)
	return out
}

// WaitForWrites blocks until at least n writes are recorded or timeout elapses.
// Returns false on timeout.
func (l *FakeLine) WaitForWrites(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		l.mu.Lock()
		got := len(l.writes)
		l.mu.Unlock()
		if got >= n {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}
