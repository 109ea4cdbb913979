package logic

import (
	"testing"
	"time"
)

func TestLevelFlip(t *testing.T) {
	if Inactive.Flip() != Active {
		t.Errorf("Inactive.Flip: got %s, want ACTIVE", Inactive.Flip())
	}
	if Active.Flip() != Inactive {
		t.Errorf("Active.Flip: got %s, want INACTIVE", Active.Flip())
	}

	var zero Level
	if zero.Flip() != Active {
		t.Errorf("zero.Flip: got %s, want ACTIVE", zero.Flip())
	}
}

func TestToggleParity(t *testing.T) {
	for _, start := range []Level{Inactive, Active} {
		l := start
		for n := 0; n <= 20; n++ {
			want := start
			if n%2 == 1 {
				want = start.Flip()
			}
			if l != want {
				t.Fatalf("start=%s n=%d: got %s, want %s", start, n, l, want)
			}
			l = l.Flip()
		}
	}
}

func TestLevelValue(t *testing.T) {
	if Active.Value() != 1 {
		t.Errorf("Active.Value: got %d, want 1", Active.Value())
	}
	if Inactive.Value() != 0 {
		t.Errorf("Inactive.Value: got %d, want 0", Inactive.Value())
	}
	if LevelFromValue(1) != Active {
		t.Errorf("LevelFromValue(1): got %s", LevelFromValue(1))
	}
	if LevelFromValue(0) != Inactive {
		t.Errorf("LevelFromValue(0): got %s", LevelFromValue(0))
	}
}

func TestEffectiveInterval(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{0, time.Second},
		{-5 * time.Second, time.Second},
		{time.Second, time.Second},
		{5 * time.Second, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := EffectiveInterval(tt.in); got != tt.want {
			t.Errorf("EffectiveInterval(%v): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSecondsToInterval(t *testing.T) {
	if got := SecondsToInterval(0); got != time.Second {
		t.Errorf("SecondsToInterval(0): got %v, want 1s", got)
	}
	if got := SecondsToInterval(7); got != 7*time.Second {
		t.Errorf("SecondsToInterval(7): got %v, want 7s", got)
	}
}

func TestNextDeadlineRelativeToFiring(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fired := start.Add(5 * time.Second)

	// Callback ran 300ms late; next deadline still counts from the scheduled time
	now := fired.Add(300 * time.Millisecond)
	next, missed := NextDeadline(fired, 5*time.Second, now)

	if !next.Equal(start.Add(10 * time.Second)) {
		t.Errorf("next: got %v, want t+10s", next.Sub(start))
	}
	if missed != 0 {
		t.Errorf("missed: got %d, want 0", missed)
	}
}

func TestNextDeadlineZeroInterval(t *testing.T) {
	fired := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next, missed := NextDeadline(fired, 0, fired)

	if next.Sub(fired) != time.Second {
		t.Errorf("zero interval: got %v, want 1s", next.Sub(fired))
	}
	if missed != 0 {
		t.Errorf("missed: got %d, want 0", missed)
	}
}

func TestNextDeadlineEqualToNow(t *testing.T) {
	fired := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := fired.Add(2 * time.Second)
	next, missed := NextDeadline(fired, 2*time.Second, now)

	if !next.Equal(now) {
		t.Errorf("next: got %v, want %v", next, now)
	}
	if missed != 0 {
		t.Errorf("missed: got %d, want 0", missed)
	}
}

func TestNextDeadlineOverrun(t *testing.T) {
	fired := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		lag        time.Duration
		wantNext   time.Duration
		wantMissed uint64
	}{
		{"half period late", 1500 * time.Millisecond, 2 * time.Second, 1},
		{"exactly one period late", 2 * time.Second, 2 * time.Second, 1},
		{"several periods late", 5500 * time.Millisecond, 6 * time.Second, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, missed := NextDeadline(fired, time.Second, fired.Add(tt.lag))
			if next.Sub(fired) != tt.wantNext {
				t.Errorf("next: got %v, want %v", next.Sub(fired), tt.wantNext)
			}
			if missed != tt.wantMissed {
				t.Errorf("missed: got %d, want %d", missed, tt.wantMissed)
			}
			if next.Before(fired.Add(tt.lag)) {
				t.Errorf("next %v is before now", next.Sub(fired))
			}
		})
	}
}
