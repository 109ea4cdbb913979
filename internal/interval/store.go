// Package interval holds the live toggle interval and the operator-facing
// get/set surface over it.
package interval

import (
	"errors"
	"sync"
	"time"

	"github.com/sweeney/gpio-blinker/internal/logic"
)

// ErrZero is returned when a zero interval is written to the store.
var ErrZero = errors.New("interval: must be greater than zero")

// Store holds the current interval in whole seconds. It is shared between
// the timer goroutine (reader) and the configuration surface (writer).
// Both sides hold the lock only for a single load or store.
type Store struct {
	mu      sync.RWMutex
	seconds uint32
}

// NewStore creates a Store holding initial.
func NewStore(initial uint32) (*Store, error) {
	if initial == 0 {
		return nil, ErrZero
	}
	return &Store{seconds: initial}, nil
}

// Read returns the most recently written interval in seconds.
func (s *Store) Read() uint32 {
	s.mu.RLock()
	v := s.seconds
	s.mu.RUnlock()
	return v
}

// Write replaces the stored interval. It does not rearm the timer; the new
// value is picked up when the next firing computes its deadline.
func (s *Store) Write(seconds uint32) error {
	if seconds == 0 {
		return ErrZero
	}
	s.mu.Lock()
	s.seconds = seconds
	s.mu.Unlock()
	return nil
}

// swap writes seconds and returns the previous value under one critical section.
func (s *Store) swap(seconds uint32) (uint32, error) {
	if seconds == 0 {
		return 0, ErrZero
	}
	s.mu.Lock()
	old := s.seconds
	s.seconds = seconds
	s.mu.Unlock()
	return old, nil
}

// Interval returns the stored interval as a duration. Used by the timer.
func (s *Store) Interval() time.Duration {
	return logic.SecondsToInterval(s.Read())
}
