// Package availability ensures the TV panel stays powered on by
// retrying an IR power pulse until the power debouncer reports on.
package availability

import (
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// PowerOffDelay absorbs the TV's own power-on pulse sequence before
// the first IR retry is sent.
const PowerOffDelay = 2 * time.Second

// PowerOnRetry is how often the IR power command is re-sent while the
// panel has not reported on.
const PowerOnRetry = 20 * time.Second

// Sender transmits the IR "power" command.
type Sender interface {
	SendCommand(name string) error
}

// Controller subscribes to power-on/power-off events and drives the
// panel back on with IR retries when it goes off unexpectedly.
type Controller struct {
	sender Sender
	clk    clock.Clock
	log    *log.Logger

	mu          sync.Mutex
	running     bool
	waiting     bool
	timer       *clock.Timer
	poweredOnC  chan struct{}
}

// Option configures a Controller at construction.
type Option func(*Controller)

// WithClock overrides the clock backing retry timers.
func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) { ctl.clk = c }
}

// WithLogger overrides the destination logger.
func WithLogger(l *log.Logger) Option {
	return func(ctl *Controller) { ctl.log = l }
}

// New returns a Controller sending IR commands through sender.
func New(sender Sender, opts ...Option) *Controller {
	ctl := &Controller{
		sender:     sender,
		clk:        clock.New(),
		log:        log.New(log.Writer(), "availability: ", log.Flags()),
		poweredOnC: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ctl)
	}
	return ctl
}

// Start marks the controller running. Idempotent.
func (ctl *Controller) Start() error {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	ctl.running = true
	return nil
}

// Stop cancels any pending retry timer. Idempotent.
func (ctl *Controller) Stop() error {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	if !ctl.running {
		return nil
	}
	ctl.running = false
	ctl.cancelTimerLocked()
	ctl.waiting = false
	return nil
}

// OnPowerOff starts the power-off delay, after which an IR "power"
// command is sent and the retry loop begins.
func (ctl *Controller) OnPowerOff() {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	if !ctl.running {
		return
	}
	ctl.waiting = true
	ctl.cancelTimerLocked()
	ctl.timer = ctl.clk.AfterFunc(PowerOffDelay, ctl.sendAndRetry)
}

// OnPowerOn clears the waiting flag and cancels any retry.
func (ctl *Controller) OnPowerOn() {
	ctl.mu.Lock()
	if !ctl.running {
		ctl.mu.Unlock()
		return
	}
	ctl.waiting = false
	ctl.cancelTimerLocked()
	ch := ctl.poweredOnC
	ctl.poweredOnC = make(chan struct{})
	ctl.mu.Unlock()
	close(ch)
}

func (ctl *Controller) sendAndRetry() {
	ctl.mu.Lock()
	if !ctl.running || !ctl.waiting {
		ctl.mu.Unlock()
		return
	}
	ctl.mu.Unlock()

	if err := ctl.sender.SendCommand("power"); err != nil {
		ctl.log.Printf("send IR power failed: %v", err)
	}

	ctl.mu.Lock()
	if !ctl.running || !ctl.waiting {
		ctl.mu.Unlock()
		return
	}
	ctl.timer = ctl.clk.AfterFunc(PowerOnRetry, ctl.sendAndRetry)
	ctl.mu.Unlock()
}

func (ctl *Controller) cancelTimerLocked() {
	if ctl.timer != nil {
		ctl.timer.Stop()
		ctl.timer = nil
	}
}

// WaitUntilPoweredOn blocks until on_power_on is observed or timeout
// elapses, returning whether it was observed.
func (ctl *Controller) WaitUntilPoweredOn(timeout time.Duration) bool {
	ctl.mu.Lock()
	if !ctl.waiting {
		ctl.mu.Unlock()
		return true
	}
	ch := ctl.poweredOnC
	ctl.mu.Unlock()

	t := ctl.clk.Timer(timeout)
	defer t.Stop()
	select {
	case <-ch:
		return true
	case <-t.C:
		return false
	}
}
