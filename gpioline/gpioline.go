// Package gpioline adapts github.com/warthog618/go-gpiocdev line
// requests, addressed by chip device path + line offset as spec'd for
// the power-status and IR-output lines, to the periph.io gpio.Level
// type the rest of this daemon shares with the wider periph.io-based
// driver code it was grown alongside.
package gpioline

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"periph.io/x/conn/v3/gpio"
)

// Level and the Low/High constants are periph's, re-exported so
// callers never need to import periph.io/x/conn/v3/gpio directly just
// to compare a pin reading.
type Level = gpio.Level

const (
	Low  = gpio.Low
	High = gpio.High
)

// InputLine is a GPIO line configured for both-edge detection,
// addressed by chip path + offset. It mirrors periph's
// gpio.PinIn.WaitForEdge contract: WaitForEdge blocks for the next
// edge (or the timeout) and Read returns the line's current level.
type InputLine interface {
	Read() Level
	// WaitForEdge blocks until an edge is observed or timeout elapses.
	// A negative timeout waits forever. It returns false if timeout
	// elapsed or the line was closed while waiting.
	WaitForEdge(timeout time.Duration) bool
	Close() error
}

// OutputLine is a GPIO output line, idle at the level it was opened
// with until driven otherwise.
type OutputLine interface {
	Out(l Level) error
	Close() error
}

// OpenInput requests chip:offset as an input with both-edge
// detection.
func OpenInput(chipPath string, offset int) (InputLine, error) {
	l := &inputLine{
		edges: make(chan gpio.Level, 16),
	}
	line, err := gpiocdev.RequestLine(chipPath, offset,
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(l.onEvent),
	)
	if err != nil {
		return nil, fmt.Errorf("gpioline: request input %s:%d: %w", chipPath, offset, err)
	}
	l.line = line
	return l, nil
}

// OpenOutput requests chip:offset as an output, idle at initial.
func OpenOutput(chipPath string, offset int, initial Level) (OutputLine, error) {
	v := 0
	if initial {
		v = 1
	}
	line, err := gpiocdev.RequestLine(chipPath, offset, gpiocdev.AsOutput(v))
	if err != nil {
		return nil, fmt.Errorf("gpioline: request output %s:%d: %w", chipPath, offset, err)
	}
	return &outputLine{line: line}, nil
}

type inputLine struct {
	line *gpiocdev.Line

	mu      sync.Mutex
	current Level
	edges   chan gpio.Level
	closed  bool
}

func (l *inputLine) onEvent(evt gpiocdev.LineEvent) {
	lvl := Low
	if evt.Type == gpiocdev.LineEventRisingEdge {
		lvl = High
	}
	l.mu.Lock()
	l.current = lvl
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return
	}
	select {
	case l.edges <- lvl:
	default:
		// A slow consumer only needs to know an edge happened; the
		// debouncer re-reads Read() for the level, so a full channel
		// is not data loss for our purposes.
	}
}

// Read returns the line's current level, queried from the kernel
// rather than the last edge callback — callers that prime state on
// start (before any edge has fired) need the real value, not a
// zero-value guess.
func (l *inputLine) Read() Level {
	if v, err := l.line.Value(); err == nil {
		lvl := Low
		if v != 0 {
			lvl = High
		}
		l.mu.Lock()
		l.current = lvl
		l.mu.Unlock()
		return lvl
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

func (l *inputLine) WaitForEdge(timeout time.Duration) bool {
	if timeout < 0 {
		_, ok := <-l.edges
		return ok
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case _, ok := <-l.edges:
		return ok
	case <-t.C:
		return false
	}
}

func (l *inputLine) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()
	close(l.edges)
	return l.line.Close()
}

type outputLine struct {
	mu   sync.Mutex
	line *gpiocdev.Line
}

func (l *outputLine) Out(lvl Level) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	v := 0
	if lvl {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		return fmt.Errorf("gpioline: set value: %w", err)
	}
	return nil
}

func (l *outputLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.line.Close()
}
