package availability

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

type recordingSender struct {
	mu    sync.Mutex
	sends []string
}

func (s *recordingSender) SendCommand(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, name)
	return nil
}

func (s *recordingSender) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sends)
}

func TestAvailabilityRetriesUntilPoweredOn(t *testing.T) {
	mock := clock.NewMock()
	sender := &recordingSender{}
	ctl := New(sender, WithClock(mock))
	if err := ctl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ctl.Stop()

	var gotPoweredOn int32
	done := make(chan struct{})
	go func() {
		if ctl.WaitUntilPoweredOn(time.Minute) {
			atomic.StoreInt32(&gotPoweredOn, 1)
		}
		close(done)
	}()

	ctl.OnPowerOff()

	mock.Add(PowerOffDelay)
	waitForCount(t, sender, 1)

	mock.Add(PowerOnRetry)
	waitForCount(t, sender, 2)

	ctl.OnPowerOn()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitUntilPoweredOn did not return")
	}
	if atomic.LoadInt32(&gotPoweredOn) != 1 {
		t.Fatal("WaitUntilPoweredOn returned false")
	}
	if sender.Count() != 2 {
		t.Fatalf("IR sends = %d, want 2", sender.Count())
	}
}

func TestAvailabilityNoRetryAfterStop(t *testing.T) {
	mock := clock.NewMock()
	sender := &recordingSender{}
	ctl := New(sender, WithClock(mock))
	if err := ctl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctl.OnPowerOff()
	if err := ctl.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	mock.Add(PowerOffDelay + PowerOnRetry)
	time.Sleep(10 * time.Millisecond)

	if sender.Count() != 0 {
		t.Fatalf("IR sends after stop = %d, want 0", sender.Count())
	}
}

func waitForCount(t *testing.T, s *recordingSender, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s.Count() >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("send count never reached %d: %d", n, s.Count())
}
