// Package ir bit-bangs a Samsung-family NEC-style infrared frame on a
// GPIO output line and gates named commands behind it.
package ir

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"smartmirror.dev/gpioline"
	"smartmirror.dev/smarterr"
)

// Spin busy-waits for d with microsecond precision. The default is
// periph.io's cpu.Nanospin; tests substitute a cheap fake so a
// five-frame transmission doesn't cost real wall-clock milliseconds.
type Spin func(d time.Duration)

// Emitter owns an output GPIO line for its start..stop lifetime and
// transmits 16-bit command values as 32-bit frames; Service maps
// command names to those values.
type Emitter struct {
	pin     gpioline.OutputLine
	timing  Timing
	prefix  uint16
	spin    Spin
	sleep   func(time.Duration)

	mu       sync.Mutex
	running  bool
}

// Option configures an Emitter at construction.
type Option func(*Emitter)

// WithSpin overrides the busy-wait primitive, for tests.
func WithSpin(s Spin) Option {
	return func(e *Emitter) { e.spin = s }
}

// WithInterFrameSleep overrides the between-frame sleep, for tests.
func WithInterFrameSleep(fn func(time.Duration)) Option {
	return func(e *Emitter) { e.sleep = fn }
}

// WithTiming overrides DefaultTiming.
func WithTiming(t Timing) Option {
	return func(e *Emitter) { e.timing = t }
}

// WithPrefix overrides Prefix.
func WithPrefix(p uint16) Option {
	return func(e *Emitter) { e.prefix = p }
}

// New returns an Emitter driving pin, idle HIGH. Call Start before
// Send.
func New(pin gpioline.OutputLine, opts ...Option) *Emitter {
	e := &Emitter{
		pin:    pin,
		timing: DefaultTiming,
		prefix: Prefix,
		spin:   defaultSpin,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start marks the emitter ready to transmit. It is idempotent.
func (e *Emitter) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = true
	return nil
}

// Stop releases the line to idle HIGH and marks the emitter stopped.
// It is idempotent.
func (e *Emitter) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return nil
	}
	e.running = false
	if err := e.pin.Out(gpioline.High); err != nil {
		return fmt.Errorf("ir: release line: %w", smarterr.ErrIO)
	}
	return nil
}

// SendCommand transmits the frame for a 16-bit command value, five
// times with an inter-frame gap, and releases the line to HIGH.
func (e *Emitter) SendCommand(command uint16) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return smarterr.ErrNotRunning
	}
	e.mu.Unlock()

	frame := Frame(e.prefix, command)
	for i := 0; i < e.timing.FrameRepeat; i++ {
		if err := e.transmitFrame(frame); err != nil {
			return err
		}
		if i < e.timing.FrameRepeat-1 {
			e.sleep(e.timing.InterFrame)
		}
	}
	return e.out(gpioline.High)
}

func (e *Emitter) transmitFrame(frame uint32) error {
	if err := e.pulse(gpioline.Low, e.timing.LeaderLow); err != nil {
		return err
	}
	if err := e.pulse(gpioline.High, e.timing.LeaderHigh); err != nil {
		return err
	}
	for bit := 31; bit >= 0; bit-- {
		one := frame&(1<<uint(bit)) != 0
		if err := e.pulse(gpioline.Low, e.timing.BitLow); err != nil {
			return err
		}
		high := e.timing.BitHigh0
		if one {
			high = e.timing.BitHigh1
		}
		if err := e.pulse(gpioline.High, high); err != nil {
			return err
		}
	}
	return e.pulse(gpioline.Low, e.timing.StopLow)
}

func (e *Emitter) pulse(level gpioline.Level, d time.Duration) error {
	if err := e.out(level); err != nil {
		return err
	}
	e.spin(d)
	return nil
}

func (e *Emitter) out(level gpioline.Level) error {
	if err := e.pin.Out(level); err != nil {
		return fmt.Errorf("ir: drive line: %w", smarterr.ErrIO)
	}
	return nil
}

func defaultSpin(d time.Duration) {
	nanospin(d)
}

// NormalizeName lower-cases and trims a command name the same way the
// Command Service does, exported so callers building a table can
// match lookups consistently.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
