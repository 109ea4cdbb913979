// Package timer implements the self-rearming periodic toggle engine.
//
// An armed Engine owns one goroutine. On every firing it flips the output
// level, drives it onto the line, reads the current interval and schedules
// the next firing relative to the scheduled time of this one. Firings are
// strictly serial; Cancel is the only way to stop them.
package timer

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/gpio-blinker/internal/logic"
)

var (
	// ErrNotIdle is returned by Arm on an engine that was already armed.
	ErrNotIdle = errors.New("timer: engine is not idle")

	// ErrNotArmed is returned by Cancel on an engine that is not armed.
	ErrNotArmed = errors.New("timer: engine is not armed")

	// ErrInvalidInterval is returned by Arm for a non-positive interval.
	ErrInvalidInterval = errors.New("timer: interval must be positive")
)

// State is the lifecycle state of an Engine.
type State int

const (
	Idle State = iota
	Armed
	Canceled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Armed:
		return "ARMED"
	case Canceled:
		return "CANCELED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// LevelSetter drives the output line.
type LevelSetter interface {
	SetLevel(level logic.Level) error
}

// IntervalSource supplies the interval for the next deadline.
// It is read once per firing.
type IntervalSource interface {
	Interval() time.Duration
}

// Observer is notified after every firing, on the engine goroutine.
// Implementations must return quickly.
type Observer interface {
	Fired(f logic.Firing)
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithObserver registers an observer for completed firings.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithInitialLevel sets the level the line is assumed to hold when armed.
func WithInitialLevel(l logic.Level) Option {
	return func(e *Engine) {
		e.level = l
	}
}

// Engine toggles a line at the interval supplied by an IntervalSource.
type Engine struct {
	line     LevelSetter
	src      IntervalSource
	clock    Clock
	observer Observer

	mu    sync.Mutex
	state State
	stop  chan struct{}
	done  chan struct{}

	// stats guards level and counts, which the engine goroutine writes
	// and accessors read.
	stats  sync.Mutex
	level  logic.Level
	counts logic.Counts

	// failing is only touched by the engine goroutine.
	failing bool
}

// New creates an idle Engine.
func New(line LevelSetter, src IntervalSource, opts ...Option) *Engine {
	e := &Engine{
		line:  line,
		src:   src,
		clock: SystemClock(),
		level: logic.Inactive,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Arm schedules the first firing at now + initial and starts the engine.
func (e *Engine) Arm(initial time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Idle {
		return fmt.Errorf("%w (state %s)", ErrNotIdle, e.state)
	}
	if initial <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInterval, initial)
	}

	e.state = Armed
	e.stop = make(chan struct{})
	e.done = make(chan struct{})

	go e.run(e.clock.Now().Add(initial))
	return nil
}

// Cancel stops the engine. When it returns no firing is running and none
// will run again. The engine cannot be rearmed.
func (e *Engine) Cancel() error {
	e.mu.Lock()
	if e.state != Armed {
		state := e.state
		e.mu.Unlock()
		return fmt.Errorf("%w (state %s)", ErrNotArmed, state)
	}
	e.state = Canceled
	close(e.stop)
	done := e.done
	e.mu.Unlock()

	<-done
	return nil
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Level returns the level most recently driven by a firing.
func (e *Engine) Level() logic.Level {
	e.stats.Lock()
	defer e.stats.Unlock()
	return e.level
}

// Counts returns firing statistics.
func (e *Engine) Counts() logic.Counts {
	e.stats.Lock()
	defer e.stats.Unlock()
	return e.counts
}

func (e *Engine) run(deadline time.Time) {
	defer close(e.done)

	for {
		select {
		case <-e.stop:
			return
		case <-e.clock.After(deadline.Sub(e.clock.Now())):
		}

		// Cancel may have raced with the deadline
		select {
		case <-e.stop:
			return
		default:
		}

		deadline = e.fire(deadline)
	}
}

// fire performs one firing scheduled for at and returns the next deadline.
func (e *Engine) fire(at time.Time) time.Time {
	e.stats.Lock()
	level := e.level.Flip()
	e.level = level
	e.stats.Unlock()

	err := e.line.SetLevel(level)

	iv := e.src.Interval()
	next, missed := logic.NextDeadline(at, iv, e.clock.Now())

	e.stats.Lock()
	e.counts.Firings++
	e.counts.Overruns += missed
	if err != nil {
		e.counts.WriteErrors++
	}
	e.stats.Unlock()

	// Best effort: a failed write never stops the engine. Log once per streak.
	if err != nil && !e.failing {
		log.Printf("timer: set level %s: %v (continuing)", level, err)
		e.failing = true
	} else if err == nil && e.failing {
		log.Printf("timer: level writes recovered")
		e.failing = false
	}
	if missed > 0 {
		log.Printf("timer: overrun, skipped %d period(s)", missed)
	}

	if e.observer != nil {
		e.observer.Fired(logic.Firing{
			At:       at,
			Level:    level,
			Interval: logic.EffectiveInterval(iv),
			Next:     next,
			Missed:   missed,
			Err:      err,
		})
	}
	return next
}
