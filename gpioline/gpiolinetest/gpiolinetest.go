// Package gpiolinetest provides fake gpioline.InputLine/OutputLine
// implementations for exercising power and ir against synthetic
// hardware events, the same role google-periph's gpiotest package
// plays for periph.io's own gpio.PinIO.
package gpiolinetest

import (
	"sync"
	"time"

	"smartmirror.dev/gpioline"
)

// Pin is a fake gpioline.InputLine/OutputLine. Call Edge to set the
// level and simulate a hardware event; use Written to inspect Out
// calls.
type Pin struct {
	mu      sync.Mutex
	l       gpioline.Level
	edges   chan gpioline.Level
	closed  bool
	written []gpioline.Level
}

// NewPin returns a fake pin with the given initial level.
func NewPin(initial gpioline.Level) *Pin {
	return &Pin{
		l:     initial,
		edges: make(chan gpioline.Level, 64),
	}
}

// Edge simulates a hardware edge to the given level.
func (p *Pin) Edge(l gpioline.Level) {
	p.mu.Lock()
	p.l = l
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}
	p.edges <- l
}

func (p *Pin) Read() gpioline.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.l
}

func (p *Pin) WaitForEdge(timeout time.Duration) bool {
	if timeout < 0 {
		_, ok := <-p.edges
		return ok
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case _, ok := <-p.edges:
		return ok
	case <-t.C:
		return false
	}
}

// Out implements gpioline.OutputLine.
func (p *Pin) Out(l gpioline.Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.l = l
	p.written = append(p.written, l)
	return nil
}

// Written returns every level passed to Out, in order.
func (p *Pin) Written() []gpioline.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]gpioline.Level, len(p.written))
	copy(out, p.written)
	return out
}

func (p *Pin) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	close(p.edges)
	return nil
}

var (
	_ gpioline.InputLine  = (*Pin)(nil)
	_ gpioline.OutputLine = (*Pin)(nil)
)
