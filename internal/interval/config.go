package interval

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxSeconds is the largest interval accepted from an operator (one day).
const MaxSeconds = 24 * 60 * 60

var (
	// ErrInvalidFormat is returned when the input is not a decimal integer.
	ErrInvalidFormat = errors.New("interval: invalid format")

	// ErrOutOfRange is returned when the input is zero or above MaxSeconds.
	ErrOutOfRange = errors.New("interval: out of range")
)

// Change describes an accepted interval update.
type Change struct {
	Old uint32
	New uint32
}

// Config is the operator-facing get/set surface over a Store.
// Input is validated here; the store itself only rejects zero.
type Config struct {
	store  *Store
	max    uint32
	notify chan<- Change
}

// ConfigOption configures a Config.
type ConfigOption func(*Config)

// WithMax overrides MaxSeconds.
func WithMax(max uint32) ConfigOption {
	return func(c *Config) {
		if max > 0 {
			c.max = max
		}
	}
}

// WithNotify delivers accepted changes to ch. Sends never block; if ch is
// full the notification is dropped.
func WithNotify(ch chan<- Change) ConfigOption {
	return func(c *Config) {
		c.notify = ch
	}
}

// NewConfig creates a Config over store.
func NewConfig(store *Store, opts ...ConfigOption) *Config {
	c := &Config{store: store, max: MaxSeconds}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get renders the current interval as a decimal string of seconds.
func (c *Config) Get() string {
	return strconv.FormatUint(uint64(c.store.Read()), 10)
}

// Max returns the largest accepted interval.
func (c *Config) Max() uint32 {
	return c.max
}

// Set parses text as a whole number of seconds and stores it.
// Surrounding whitespace (such as a trailing newline) is ignored.
// On error the stored interval is left unchanged.
func (c *Config) Set(text string) error {
	v, err := c.Parse(text)
	if err != nil {
		return err
	}

	old, err := c.store.swap(v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutOfRange, err)
	}

	if c.notify != nil {
		select {
		case c.notify <- Change{Old: old, New: v}:
		default:
		}
	}
	return nil
}

// Parse validates text without storing it.
func (c *Config) Parse(text string) (uint32, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidFormat)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
		}
	}

	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		// Only digits remain, so the sole failure is overflow
		return 0, fmt.Errorf("%w: %s exceeds %d", ErrOutOfRange, s, c.max)
	}
	if v == 0 || v > uint64(c.max) {
		return 0, fmt.Errorf("%w: %d not in 1..%d", ErrOutOfRange, v, c.max)
	}
	return uint32(v), nil
}
