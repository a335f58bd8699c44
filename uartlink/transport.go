// Package uartlink is the UART transport to the TV panel's control
// board: a line-oriented reader broadcasting to registered listeners,
// and a write path serialized against concurrent callers.
package uartlink

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/tarm/serial"
	"smartmirror.dev/pubsub"
	"smartmirror.dev/smarterr"
)

// Config names the serial device and framing. Defaults match the
// panel's control board: 115200 8N1, no flow control.
type Config struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
	EOL         string
}

// DefaultConfig is the panel's wire configuration.
var DefaultConfig = Config{
	Port:        "/dev/serial0",
	BaudRate:    115200,
	ReadTimeout: 100 * time.Millisecond,
	EOL:         "\n",
}

// Transport owns the serial device between Start and Stop: one
// background reader splits the byte stream on "\n" and broadcasts
// each non-empty trimmed line to every registered listener, in wire
// order; Write serializes callers with a mutex so a single command's
// bytes never interleave with another's.
type Transport struct {
	cfg    Config
	opener func(Config) (io.ReadWriteCloser, error)

	listeners pubsub.LineHooks

	writeMu sync.Mutex
	port    io.ReadWriteCloser

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// Option configures a Transport at construction.
type Option func(*Transport)

// WithOpener overrides how the serial device is opened, for tests.
func WithOpener(fn func(Config) (io.ReadWriteCloser, error)) Option {
	return func(t *Transport) { t.opener = fn }
}

// New returns a Transport for cfg. Call Start to open the device.
func New(cfg Config, opts ...Option) *Transport {
	t := &Transport{
		cfg:    cfg,
		opener: openSerial,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func openSerial(cfg Config) (io.ReadWriteCloser, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.BaudRate,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("uartlink: open %s: %w", cfg.Port, err)
	}
	return port, nil
}

// RegisterListener registers fn to receive every inbound line, in the
// order lines arrive on the wire. A panicking listener is recovered
// and logged; it does not stop other listeners or the reader.
func (t *Transport) RegisterListener(fn func(line string)) {
	t.listeners.Register(fn)
}

// Start opens the serial device and launches the reader goroutine.
// Idempotent.
func (t *Transport) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil
	}
	port, err := t.opener(t.cfg)
	if err != nil {
		return err
	}
	t.writeMu.Lock()
	t.port = port
	t.writeMu.Unlock()
	t.running = true
	t.done = make(chan struct{})
	go t.readLoop(port, t.done)
	return nil
}

// Stop terminates the reader and closes the device. Idempotent. It
// returns once the reader goroutine has exited, bounded by the
// underlying device's read timeout.
func (t *Transport) Stop() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = false
	done := t.done
	t.mu.Unlock()

	t.writeMu.Lock()
	port := t.port
	t.port = nil
	t.writeMu.Unlock()

	var err error
	if port != nil {
		err = port.Close()
	}
	<-done
	if err != nil {
		return fmt.Errorf("uartlink: close: %w", smarterr.ErrIO)
	}
	return nil
}

// Write appends the configured end-of-line and writes atomically with
// respect to other writers.
func (t *Transport) Write(command string) error {
	t.writeMu.Lock()
	port := t.port
	t.writeMu.Unlock()
	if port == nil {
		return smarterr.ErrNotRunning
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if t.port == nil {
		return smarterr.ErrNotRunning
	}
	if _, err := io.WriteString(t.port, command+t.cfg.EOL); err != nil {
		return fmt.Errorf("uartlink: write: %w", smarterr.ErrIO)
	}
	return nil
}

func (t *Transport) readLoop(port io.ReadWriteCloser, done chan struct{}) {
	defer close(done)
	var buf strings.Builder
	chunk := make([]byte, 1024)
	for {
		n, err := port.Read(chunk)
		if n > 0 {
			buf.Write(toValidUTF8(chunk[:n]))
			t.drainLines(&buf)
		}
		if err != nil {
			if err == io.EOF {
				return
			}
			// A read timeout on a non-blocking-ish device surfaces as an
			// error too; keep polling until the port is closed.
			if t.isRunning() {
				continue
			}
			return
		}
	}
}

func (t *Transport) drainLines(buf *strings.Builder) {
	s := buf.String()
	for {
		idx := strings.IndexByte(s, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimSpace(s[:idx])
		s = s[idx+1:]
		if line != "" {
			t.listeners.Fire(line)
		}
	}
	buf.Reset()
	buf.WriteString(s)
}

func (t *Transport) isRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// toValidUTF8 decodes b rune by rune, dropping invalid byte sequences
// rather than failing the whole chunk on one bad byte.
func toValidUTF8(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			b = b[1:]
			continue
		}
		out = append(out, b[:size]...)
		b = b[size:]
	}
	return out
}
