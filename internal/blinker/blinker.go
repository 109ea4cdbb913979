// Package blinker owns the lifecycle of one toggled output line: the line
// itself, the live interval and the timer engine driving it.
package blinker

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/sweeney/gpio-blinker/internal/gpio"
	"github.com/sweeney/gpio-blinker/internal/interval"
	"github.com/sweeney/gpio-blinker/internal/logic"
	"github.com/sweeney/gpio-blinker/internal/timer"
)

// ErrShutdown is returned by Shutdown when called more than once.
var ErrShutdown = errors.New("blinker: already shut down")

// Default interval used when none is configured (seconds).
const DefaultInterval = 5

// Options configures Initialize.
type Options struct {
	LineID          string
	DefaultInterval uint32 // seconds
	MaxInterval     uint32 // seconds, 0 = interval.MaxSeconds

	// Optional collaborators
	Clock    timer.Clock
	Observer timer.Observer
	Notify   chan<- interval.Change
}

// Blinker is the state aggregate built by Initialize and torn down by Shutdown.
type Blinker struct {
	lineID string
	line   gpio.Line
	store  *interval.Store
	config *interval.Config
	engine *timer.Engine

	mu   sync.Mutex
	shut bool
}

// Initialize acquires the line, drives it inactive, creates the interval
// store and arms the timer, in that order. Any failure undoes the steps
// already taken, so on error no line is owned and no timer is running.
func Initialize(ctrl gpio.Controller, opts Options) (*Blinker, error) {
	line, err := ctrl.Acquire(opts.LineID)
	if err != nil {
		return nil, fmt.Errorf("acquire line %s: %w", opts.LineID, err)
	}

	if err := line.SetDirectionOutput(logic.Inactive); err != nil {
		releaseOnError(line, opts.LineID)
		return nil, fmt.Errorf("configure line %s: %w", opts.LineID, err)
	}

	store, err := interval.NewStore(opts.DefaultInterval)
	if err != nil {
		releaseOnError(line, opts.LineID)
		return nil, fmt.Errorf("default interval: %w", err)
	}

	var cfgOpts []interval.ConfigOption
	if opts.MaxInterval > 0 {
		cfgOpts = append(cfgOpts, interval.WithMax(opts.MaxInterval))
	}
	if opts.Notify != nil {
		cfgOpts = append(cfgOpts, interval.WithNotify(opts.Notify))
	}

	engOpts := []timer.Option{timer.WithInitialLevel(logic.Inactive)}
	if opts.Clock != nil {
		engOpts = append(engOpts, timer.WithClock(opts.Clock))
	}
	if opts.Observer != nil {
		engOpts = append(engOpts, timer.WithObserver(opts.Observer))
	}
	engine := timer.New(line, store, engOpts...)

	if err := engine.Arm(store.Interval()); err != nil {
		releaseOnError(line, opts.LineID)
		return nil, fmt.Errorf("arm timer: %w", err)
	}

	log.Printf("blinker: line %s armed, interval=%ds", opts.LineID, opts.DefaultInterval)

	return &Blinker{
		lineID: opts.LineID,
		line:   line,
		store:  store,
		config: interval.NewConfig(store, cfgOpts...),
		engine: engine,
	}, nil
}

func releaseOnError(line gpio.Line, lineID string) {
	if err := line.Release(); err != nil {
		log.Printf("blinker: release line %s after failed init: %v", lineID, err)
	}
}

// Shutdown stops the timer, drives the line inactive and releases it.
// The line is only released once no firing can touch it again.
func (b *Blinker) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.shut {
		return ErrShutdown
	}
	b.shut = true

	var errs []error
	if err := b.engine.Cancel(); err != nil {
		errs = append(errs, fmt.Errorf("cancel timer: %w", err))
	}
	if err := b.line.SetLevel(logic.Inactive); err != nil {
		errs = append(errs, fmt.Errorf("set inactive: %w", err))
	}
	if err := b.line.Release(); err != nil {
		errs = append(errs, fmt.Errorf("release line: %w", err))
	}

	counts := b.engine.Counts()
	log.Printf("blinker: line %s released after %d firing(s)", b.lineID, counts.Firings)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// Get returns the current interval as a decimal string of seconds.
func (b *Blinker) Get() string {
	return b.config.Get()
}

// Set validates text and applies it as the new interval. The change takes
// effect when the pending firing computes the following deadline.
func (b *Blinker) Set(text string) error {
	return b.config.Set(text)
}

// Config returns the configuration surface.
func (b *Blinker) Config() *interval.Config {
	return b.config
}

// Store returns the interval store.
func (b *Blinker) Store() *interval.Store {
	return b.store
}

// LineID returns the line the blinker owns.
func (b *Blinker) LineID() string {
	return b.lineID
}

// Level returns the level driven by the most recent firing.
func (b *Blinker) Level() logic.Level {
	return b.engine.Level()
}

// Counts returns firing statistics.
func (b *Blinker) Counts() logic.Counts {
	return b.engine.Counts()
}

// State returns the timer state.
func (b *Blinker) State() timer.State {
	return b.engine.State()
}
