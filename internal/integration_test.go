package internal

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/gpio-blinker/internal/blinker"
	"github.com/sweeney/gpio-blinker/internal/gpio"
	"github.com/sweeney/gpio-blinker/internal/interval"
	"github.com/sweeney/gpio-blinker/internal/logic"
	"github.com/sweeney/gpio-blinker/internal/mqtt"
	"github.com/sweeney/gpio-blinker/internal/status"
	"github.com/sweeney/gpio-blinker/internal/timer"
	"github.com/sweeney/gpio-blinker/internal/web"
)

const waitTimeout = 2 * time.Second

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type system struct {
	ctrl    *gpio.FakeController
	clk     *timer.FakeClock
	tracker *status.Tracker
	b       *blinker.Blinker
	changes chan interval.Change
	control *httptest.Server
	public  *httptest.Server
}

func newSystem(t *testing.T) *system {
	t.Helper()
	s := &system{
		ctrl:    gpio.NewFakeController(),
		clk:     timer.NewFakeClock(t0),
		changes: make(chan interval.Change, 4),
	}
	s.tracker = status.NewTracker(t0, status.Config{Chip: gpio.DefaultChip, Line: gpio.DefaultLine})
	s.tracker.SetClock(s.clk.Now)

	b, err := blinker.Initialize(s.ctrl, blinker.Options{
		LineID:          gpio.DefaultLine,
		DefaultInterval: 5,
		Clock:           s.clk,
		Observer:        s.tracker,
		Notify:          s.changes,
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	s.b = b
	s.tracker.SetIntervalReader(b.Store())
	s.tracker.SetArmed(true, t0.Add(5*time.Second))

	s.control = httptest.NewServer(web.New("", s.tracker, web.WithInterval(b.Config(), true)).Handler())
	s.public = httptest.NewServer(web.New("", s.tracker, web.WithInterval(b.Config(), false)).Handler())
	t.Cleanup(func() {
		s.control.Close()
		s.public.Close()
	})
	return s
}

// step advances the clock by d and waits until the n-th level write has
// happened and the timer is parked again.
func (s *system) step(t *testing.T, d time.Duration, n int) {
	t.Helper()
	if !s.clk.BlockUntil(1, waitTimeout) {
		t.Fatal("timer never waited on the clock")
	}
	s.clk.Advance(d)
	fl := s.ctrl.Line(gpio.DefaultLine)
	if !fl.WaitForWrites(n, waitTimeout) {
		t.Fatalf("expected %d writes, got %d", n, len(fl.Writes()))
	}
	if !s.clk.BlockUntil(1, waitTimeout) {
		t.Fatal("timer did not rearm")
	}
}

func put(t *testing.T, url, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, url+"/interval", strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, strings.TrimSpace(string(b))
}

func statusJSON(t *testing.T, url string) status.StatusInner {
	t.Helper()
	resp, err := http.Get(url + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()
	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return sj.Status
}

// TestIntegrationReconfigureOverControl drives the whole stack: the line
// toggles every 5s, the interval is changed to 2s at t=7 through the
// control listener, and firings land at 5, 10, 12, 14.
func TestIntegrationReconfigureOverControl(t *testing.T) {
	s := newSystem(t)
	defer s.b.Shutdown()

	s.step(t, 5*time.Second, 1) // t=5
	st := statusJSON(t, s.public.URL)
	if st.Level != "ACTIVE" {
		t.Errorf("t=5 level: got %s, want ACTIVE", st.Level)
	}
	if st.LastFiring != "2026-01-01T00:00:05Z" {
		t.Errorf("t=5 last_firing: got %s", st.LastFiring)
	}

	s.clk.Advance(2 * time.Second) // t=7

	// The public listener is read-only.
	if code, _ := put(t, s.public.URL, "2"); code != http.StatusMethodNotAllowed {
		t.Errorf("public PUT: got %d, want 405", code)
	}
	code, body := put(t, s.control.URL, "2\n")
	if code != http.StatusOK || body != "2" {
		t.Fatalf("control PUT: got %d %q", code, body)
	}

	select {
	case c := <-s.changes:
		if c.Old != 5 || c.New != 2 {
			t.Errorf("change: got %d -> %d, want 5 -> 2", c.Old, c.New)
		}
	default:
		t.Error("expected an interval change notification")
	}

	// Already scheduled for t=10 with the old interval.
	s.step(t, 3*time.Second, 2) // t=10
	if got := s.tracker.Snapshot().NextFiring; !got.Equal(t0.Add(12 * time.Second)) {
		t.Errorf("after t=10, next firing: got %v, want t=12", got.Sub(t0))
	}
	s.step(t, 2*time.Second, 3) // t=12
	s.step(t, 2*time.Second, 4) // t=14

	st = statusJSON(t, s.public.URL)
	if st.IntervalSeconds != 2 {
		t.Errorf("interval_seconds: got %d, want 2", st.IntervalSeconds)
	}
	if st.Counts.Firings != 4 {
		t.Errorf("firings: got %d, want 4", st.Counts.Firings)
	}
	if st.Level != "INACTIVE" {
		t.Errorf("t=14 level: got %s, want INACTIVE", st.Level)
	}
	if st.LastFiring != "2026-01-01T00:00:14Z" {
		t.Errorf("t=14 last_firing: got %s", st.LastFiring)
	}

	// Every write alternated, starting from ACTIVE.
	want := logic.Active
	for i, w := range s.ctrl.Line(gpio.DefaultLine).Writes() {
		if w.Level != want {
			t.Errorf("write %d: got %s, want %s", i, w.Level, want)
		}
		want = want.Flip()
	}
}

func TestIntegrationRejectedWritesKeepCadence(t *testing.T) {
	s := newSystem(t)
	defer s.b.Shutdown()

	s.step(t, 5*time.Second, 1)

	if code, _ := put(t, s.control.URL, "abc"); code != http.StatusBadRequest {
		t.Errorf("PUT abc: got %d, want 400", code)
	}
	if code, _ := put(t, s.control.URL, "0"); code != http.StatusUnprocessableEntity {
		t.Errorf("PUT 0: got %d, want 422", code)
	}
	select {
	case c := <-s.changes:
		t.Errorf("unexpected change %+v", c)
	default:
	}

	s.step(t, 5*time.Second, 2)
	if got := s.tracker.Snapshot().LastFiring; !got.Equal(t0.Add(10 * time.Second)) {
		t.Errorf("second firing at %v, want t=10", got.Sub(t0))
	}
}

func TestIntegrationWriteFailuresReported(t *testing.T) {
	s := newSystem(t)
	defer s.b.Shutdown()

	fl := s.ctrl.Line(gpio.DefaultLine)
	fl.SetLevelError(errors.New("bus error"))
	s.step(t, 5*time.Second, 1)
	s.step(t, 5*time.Second, 2)
	fl.SetLevelError(nil)
	s.step(t, 5*time.Second, 3)

	st := statusJSON(t, s.public.URL)
	if st.Counts.Firings != 3 {
		t.Errorf("firings: got %d, want 3", st.Counts.Firings)
	}
	if st.Counts.WriteErrors != 2 {
		t.Errorf("write_errors: got %d, want 2", st.Counts.WriteErrors)
	}
	if !strings.Contains(st.LastError, "bus error") {
		t.Errorf("last_error: got %q", st.LastError)
	}
	if s.b.State() != timer.Armed {
		t.Errorf("state: got %s, want ARMED", s.b.State())
	}
}

func TestIntegrationShutdownPublishesEvents(t *testing.T) {
	s := newSystem(t)
	pub := mqtt.NewFakePublisher()

	if code, _ := put(t, s.control.URL, "9"); code != http.StatusOK {
		t.Fatalf("PUT 9: got %d", code)
	}
	c := <-s.changes
	if err := pub.PublishInterval(mqtt.IntervalEvent{Timestamp: s.clk.Now(), Line: s.b.LineID(), Old: c.Old, New: c.New}); err != nil {
		t.Fatalf("PublishInterval: %v", err)
	}

	if err := s.b.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	s.tracker.SetArmed(false, time.Time{})
	snap := s.tracker.Snapshot()
	if err := pub.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "SHUTDOWN",
		Reason:     "SIGTERM",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM"),
	}); err != nil {
		t.Fatalf("PublishSystem: %v", err)
	}

	var ip mqtt.IntervalPayload
	if err := json.Unmarshal(pub.IntervalPayloads[0], &ip); err != nil {
		t.Fatalf("unmarshal interval payload: %v", err)
	}
	if ip.Interval.OldSeconds != 5 || ip.Interval.NewSeconds != 9 {
		t.Errorf("interval payload: %+v", ip.Interval)
	}
	if ip.Interval.Line != gpio.DefaultLine {
		t.Errorf("line: got %q", ip.Interval.Line)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal(pub.SystemPayloads[0], &sj); err != nil {
		t.Fatalf("unmarshal system payload: %v", err)
	}
	if sj.Status.Armed || sj.Status.IntervalSeconds != 9 {
		t.Errorf("shutdown payload: armed=%v interval=%d", sj.Status.Armed, sj.Status.IntervalSeconds)
	}

	fl := s.ctrl.Line(gpio.DefaultLine)
	if !fl.Released() || fl.Level() != logic.Inactive {
		t.Errorf("line after shutdown: released=%v level=%s", fl.Released(), fl.Level())
	}
	if s.ctrl.Owned(gpio.DefaultLine) {
		t.Error("line still owned")
	}
}
