// Package videomute drives the TV panel's video-mute state via UART
// and tracks convergence against telemetry lines the panel reports
// back.
package videomute

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"smartmirror.dev/smarterr"
)

// TransitionTimeout bounds how long a mute/unmute transition waits
// for telemetry to confirm convergence before giving up.
const TransitionTimeout = 8 * time.Second

// tri is a three-valued boolean: unknown, true, or false. The zero
// value is unknown, so a fresh FSM starts with no assumption about
// panel state.
type tri int

const (
	unknown tri = iota
	yes
	no
)

// Writer is the outbound half of the UART transport.
type Writer interface {
	Write(command string) error
}

// FSM is the video-mute convergence state machine. Mute/Unmute set a
// desired value and drive the panel toward it; observation comes
// exclusively from inbound UART telemetry via OnTelemetryLine.
type FSM struct {
	writer Writer
	clk    clock.Clock
	log    logger

	mu             sync.Mutex
	running        bool
	panelMuted     tri
	backlightOn    tri
	desiredMuted   tri
	powerOn        bool
	transitioning  bool
	timer          *clock.Timer
	convergedC     chan struct{}
}

type logger interface {
	Printf(format string, args ...interface{})
}

// Option configures an FSM at construction.
type Option func(*FSM)

// WithClock overrides the clock backing the transition timeout.
func WithClock(c clock.Clock) Option {
	return func(f *FSM) { f.clk = c }
}

// WithLogger overrides the destination logger.
func WithLogger(l logger) Option {
	return func(f *FSM) { f.log = l }
}

// New returns an FSM writing mute/unmute sequences through writer.
func New(writer Writer, opts ...Option) *FSM {
	f := &FSM{
		writer:     writer,
		clk:        clock.New(),
		log:        nopLogger{},
		convergedC: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...interface{}) {}

// Start marks the FSM running. Idempotent.
func (f *FSM) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
	return nil
}

// Stop cancels any pending transition timer and marks the FSM
// stopped. Idempotent.
func (f *FSM) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return nil
	}
	f.running = false
	f.cancelTimerLocked()
	return nil
}

// Mute requests the panel be muted (panel black, backlight off).
func (f *FSM) Mute() error {
	return f.request(yes, []string{"videomute 0 1", "videomute 1 1"})
}

// Unmute requests the panel be unmuted.
func (f *FSM) Unmute() error {
	return f.request(no, []string{"videomute 1 0", "videomute 0 0"})
}

func (f *FSM) request(desired tri, sequence []string) error {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return smarterr.ErrNotRunning
	}
	f.desiredMuted = desired

	if !f.powerOn {
		f.mu.Unlock()
		return nil
	}
	if f.converged() {
		f.signalConvergedLocked()
		f.mu.Unlock()
		return nil
	}

	f.cancelTimerLocked()
	f.transitioning = true
	f.timer = f.clk.AfterFunc(TransitionTimeout, f.onTimeout)
	f.mu.Unlock()

	for _, cmd := range sequence {
		if err := f.writer.Write(cmd); err != nil {
			return err
		}
	}
	return nil
}

// converged reports whether the observed pair matches desiredMuted.
// Callers must hold f.mu.
func (f *FSM) converged() bool {
	switch f.desiredMuted {
	case yes:
		return f.panelMuted == yes && f.backlightOn == no
	case no:
		return f.panelMuted == no && f.backlightOn == yes
	default:
		return false
	}
}

// OnTelemetryLine updates observed state from an inbound UART line.
// Unrecognized lines are ignored.
func (f *FSM) OnTelemetryLine(line string) {
	f.mu.Lock()
	switch line {
	case "Video Mute on":
		f.panelMuted = yes
	case "Video Mute off":
		f.panelMuted = no
	case "PORT_SW_INVERTER on":
		f.backlightOn = yes
	case "PORT_SW_INVERTER off":
		f.backlightOn = no
	default:
		f.mu.Unlock()
		return
	}
	if f.transitioning && f.converged() {
		f.cancelTimerLocked()
		f.transitioning = false
		f.signalConvergedLocked()
	}
	f.mu.Unlock()
}

func (f *FSM) onTimeout() {
	f.mu.Lock()
	if !f.running || !f.transitioning {
		f.mu.Unlock()
		return
	}
	f.transitioning = false
	f.desiredMuted = unknown
	f.timer = nil
	f.signalConvergedLocked()
	f.mu.Unlock()
	f.log.Printf("videomute: transition timed out, abandoning desired state")
}

func (f *FSM) cancelTimerLocked() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

// signalConvergedLocked replaces the converged channel so any
// existing waiters on the old channel unblock. Callers must hold f.mu.
func (f *FSM) signalConvergedLocked() {
	close(f.convergedC)
	f.convergedC = make(chan struct{})
}

// WaitForConvergence blocks until the observed pair matches desired,
// a pending transition times out, or timeout elapses, returning
// whether it converged. A transition timeout abandons the desired
// state, so it returns false.
func (f *FSM) WaitForConvergence(timeout time.Duration) bool {
	f.mu.Lock()
	if f.converged() {
		f.mu.Unlock()
		return true
	}
	ch := f.convergedC
	f.mu.Unlock()

	t := f.clk.Timer(timeout)
	defer t.Stop()
	select {
	case <-ch:
		f.mu.Lock()
		ok := f.converged()
		f.mu.Unlock()
		return ok
	case <-t.C:
		return false
	}
}

// OnPowerOn marks the panel powered; the policy layer is responsible
// for re-issuing Mute/Unmute to re-drive the panel to policy.
func (f *FSM) OnPowerOn() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.powerOn = true
}

// OnPowerOff invalidates observed state and abandons any in-flight
// transition.
func (f *FSM) OnPowerOff() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.powerOn = false
	f.panelMuted = unknown
	f.backlightOn = unknown
	f.desiredMuted = unknown
	f.transitioning = false
	f.cancelTimerLocked()
}
