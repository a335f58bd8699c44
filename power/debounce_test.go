package power

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"smartmirror.dev/gpioline"
	"smartmirror.dev/gpioline/gpiolinetest"
)

func TestDebouncerCommitsAfterStabilityWindow(t *testing.T) {
	pin := gpiolinetest.NewPin(gpioline.High)
	mock := clock.NewMock()
	d := New(pin, WithClock(mock))

	var onCount int32
	var offCount int32
	d.RegisterOnPowerOn(func() { atomic.AddInt32(&onCount, 1) })
	d.RegisterOnPowerOff(func() { atomic.AddInt32(&offCount, 1) })

	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	// Primed HIGH at t=0, then bouncing edges LOW at t=0, HIGH at 0.3s
	// and LOW at 0.6s, settling LOW (on); the clock ends at 0.9s.
	pin.Edge(gpioline.Low)
	mock.Add(300 * time.Millisecond)
	pin.Edge(gpioline.High)
	mock.Add(300 * time.Millisecond)
	pin.Edge(gpioline.Low)
	mock.Add(300 * time.Millisecond)

	if got := atomic.LoadInt32(&onCount); got != 0 {
		t.Fatalf("on callback fired early: %d", got)
	}

	// Advance past the full stability window from the last edge.
	mock.Add(StabilityWindow)
	settle(t)

	if got := atomic.LoadInt32(&onCount); got != 1 {
		t.Fatalf("on callback count = %d, want 1", got)
	}
	if got := atomic.LoadInt32(&offCount); got != 0 {
		t.Fatalf("off callback count = %d, want 0", got)
	}
	if got := d.State(); got != On {
		t.Fatalf("State() = %v, want On", got)
	}
}

func TestDebouncerIgnoresRepeatedSameState(t *testing.T) {
	pin := gpiolinetest.NewPin(gpioline.Low)
	mock := clock.NewMock()
	d := New(pin, WithClock(mock))

	var onCount int32
	d.RegisterOnPowerOn(func() { atomic.AddInt32(&onCount, 1) })

	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	mock.Add(StabilityWindow)
	settle(t)
	if got := atomic.LoadInt32(&onCount); got != 1 {
		t.Fatalf("on callback count after priming = %d, want 1", got)
	}

	// Another edge that settles to the same level must not refire.
	pin.Edge(gpioline.Low)
	mock.Add(StabilityWindow)
	settle(t)
	if got := atomic.LoadInt32(&onCount); got != 1 {
		t.Fatalf("on callback refired on repeated state: %d", got)
	}
}

func TestDebouncerStopIsIdempotentAndJoinsGoroutine(t *testing.T) {
	pin := gpiolinetest.NewPin(gpioline.High)
	d := New(pin, WithClock(clock.NewMock()))

	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := d.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

// settle gives the mock-clock-fired goroutine a moment to run before
// assertions; benbjohnson/clock invokes AfterFunc callbacks on their
// own goroutine.
func settle(t *testing.T) {
	t.Helper()
	time.Sleep(10 * time.Millisecond)
}
