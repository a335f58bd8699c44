// Package power turns a bouncing GPIO edge stream from the TV's power
// LED into a stable on/off signal.
package power

import (
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"smartmirror.dev/gpioline"
	"smartmirror.dev/pubsub"
	"smartmirror.dev/smarterr"
)

// StabilityWindow is how long a raw GPIO level must persist,
// uninterrupted by a newer edge, before it is committed.
//
// The TV's status LED pulses at ~1Hz for 5-6s during a power
// transition; this must be longer than that pulse period so
// transients never commit.
const StabilityWindow = 1200 * time.Millisecond

// State is the tri-valued power observation.
type State int

const (
	Unknown State = iota
	On
	Off
)

func (s State) String() string {
	switch s {
	case On:
		return "on"
	case Off:
		return "off"
	default:
		return "unknown"
	}
}

// Debouncer watches a GPIO input line with both-edge detection and
// reports a stable power state. Hardware convention: LED LOW means
// the TV is on.
type Debouncer struct {
	pin             gpioline.InputLine
	clk             clock.Clock
	stabilityWindow time.Duration
	log             *log.Logger

	mu        sync.Mutex
	running   bool
	committed State
	timer     *clock.Timer
	done      chan struct{}

	onPowerOn  pubsub.Hooks
	onPowerOff pubsub.Hooks
}

// Option configures a Debouncer at construction.
type Option func(*Debouncer)

// WithClock overrides the clock used for the stability timer, for
// deterministic tests.
func WithClock(c clock.Clock) Option {
	return func(d *Debouncer) { d.clk = c }
}

// WithStabilityWindow overrides StabilityWindow, for tests.
func WithStabilityWindow(w time.Duration) Option {
	return func(d *Debouncer) { d.stabilityWindow = w }
}

// WithLogger overrides the destination logger.
func WithLogger(l *log.Logger) Option {
	return func(d *Debouncer) { d.log = l }
}

// New returns a Debouncer watching pin. Call Start to begin.
func New(pin gpioline.InputLine, opts ...Option) *Debouncer {
	d := &Debouncer{
		pin:             pin,
		clk:             clock.New(),
		stabilityWindow: StabilityWindow,
		log:             log.New(log.Writer(), "power: ", log.Flags()),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RegisterOnPowerOn registers fn to run, on the debouncer's timer
// goroutine, whenever the committed state transitions to on. fn must
// not block long.
func (d *Debouncer) RegisterOnPowerOn(fn func()) {
	d.onPowerOn.Register(fn)
}

// RegisterOnPowerOff registers fn to run whenever the committed state
// transitions to off.
func (d *Debouncer) RegisterOnPowerOff(fn func()) {
	d.onPowerOff.Register(fn)
}

// Start begins watching for edges. It primes the committed value from
// a single synthetic edge taken from the pin's current level.
func (d *Debouncer) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = true
	d.done = make(chan struct{})
	d.mu.Unlock()

	go d.pollEdges()
	d.armStability(d.pin.Read())
	return nil
}

// Stop cancels the stability timer and releases the GPIO line. It is
// idempotent.
func (d *Debouncer) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	done := d.done
	d.mu.Unlock()

	err := d.pin.Close()
	<-done
	if err != nil {
		return smarterr.ErrIO
	}
	return nil
}

// State returns the last committed power state.
func (d *Debouncer) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.committed
}

func (d *Debouncer) pollEdges() {
	defer close(d.done)
	for {
		if !d.pin.WaitForEdge(-1) {
			return
		}
		d.armStability(d.pin.Read())
	}
}

func (d *Debouncer) armStability(level gpioline.Level) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clk.AfterFunc(d.stabilityWindow, func() { d.onStable(level) })
}

func (d *Debouncer) onStable(level gpioline.Level) {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	newState := Off
	if level == gpioline.Low {
		newState = On
	}
	prev := d.committed
	d.committed = newState
	d.mu.Unlock()

	if prev == newState {
		return
	}
	d.log.Printf("power state stabilized: %s", newState)
	switch newState {
	case On:
		d.onPowerOn.Fire()
	case Off:
		d.onPowerOff.Fire()
	}
}
