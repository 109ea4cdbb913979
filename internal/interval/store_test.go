package interval

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNewStore(t *testing.T) {
	s, err := NewStore(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Read() != 5 {
		t.Errorf("Read: got %d, want 5", s.Read())
	}
	if s.Interval() != 5*time.Second {
		t.Errorf("Interval: got %v, want 5s", s.Interval())
	}
}

func TestNewStoreZero(t *testing.T) {
	_, err := NewStore(0)
	if !errors.Is(err, ErrZero) {
		t.Errorf("got %v, want ErrZero", err)
	}
}

func TestStoreWrite(t *testing.T) {
	s, _ := NewStore(5)

	if err := s.Write(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Read() != 2 {
		t.Errorf("Read after Write: got %d, want 2", s.Read())
	}
}

func TestStoreWriteZeroLeavesValue(t *testing.T) {
	s, _ := NewStore(5)

	if err := s.Write(0); !errors.Is(err, ErrZero) {
		t.Errorf("got %v, want ErrZero", err)
	}
	if s.Read() != 5 {
		t.Errorf("value changed after rejected write: got %d", s.Read())
	}
}

func TestStoreConcurrentReadWrite(t *testing.T) {
	s, _ := NewStore(1)
	valid := map[uint32]bool{1: true, 0xFFFF: true, 0xFFFF0000: true, 0xFFFFFFFF: true}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		vals := []uint32{0xFFFF, 0xFFFF0000, 0xFFFFFFFF, 1}
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			s.Write(vals[i%len(vals)])
		}
	}()

	for i := 0; i < 10000; i++ {
		if v := s.Read(); !valid[v] {
			close(stop)
			wg.Wait()
			t.Fatalf("read torn value %#x", v)
		}
	}
	close(stop)
	wg.Wait()
}
