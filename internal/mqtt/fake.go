package mqtt

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// IntervalEvents contains all interval changes that were published.
	IntervalEvents []IntervalEvent

	// IntervalPayloads contains the JSON payloads for interval changes.
	IntervalPayloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishIntervalError, if set, will be returned by PublishInterval.
	PublishIntervalError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishInterval records the interval change.
func (f *FakePublisher) PublishInterval(event IntervalEvent) error {
	if f.PublishIntervalError != nil {
		return f.PublishIntervalError
	}

	f.IntervalEvents = append(f.IntervalEvents, event)

	payload, err := FormatIntervalPayload(event)
	if err != nil {
		return err
	}
	f.IntervalPayloads = append(f.IntervalPayloads, payload)

	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.IntervalEvents = nil
	f.IntervalPayloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishIntervalError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
