package ir

import (
	"fmt"
	"sync"

	"smartmirror.dev/smarterr"
)

// Service is the named-command gate over an Emitter: ListCommands
// returns the configured name set, SendCommand normalizes and
// delegates. It owns the Emitter's start/stop lifecycle.
type Service struct {
	emitter  *Emitter
	commands map[string]uint16

	mu      sync.Mutex
	running bool
}

// NewService returns a Service over emitter with the given name to
// command-value table. The table is not copied; do not mutate it
// after construction.
func NewService(emitter *Emitter, commands map[string]uint16) *Service {
	return &Service{emitter: emitter, commands: commands}
}

// Start starts the underlying emitter and opens the gate. Idempotent.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	if err := s.emitter.Start(); err != nil {
		return err
	}
	s.running = true
	return nil
}

// Stop closes the gate and stops the underlying emitter. Idempotent.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	return s.emitter.Stop()
}

// ListCommands returns the recognized command names.
func (s *Service) ListCommands() ([]string, error) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return nil, smarterr.ErrNotRunning
	}
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	return names, nil
}

// SendCommand normalizes name to lower-case and transmits its frame.
func (s *Service) SendCommand(name string) error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return smarterr.ErrNotRunning
	}

	normalized := NormalizeName(name)
	command, ok := s.commands[normalized]
	if !ok {
		return fmt.Errorf("ir: command %q: %w", name, smarterr.ErrUnknownCommand)
	}
	return s.emitter.SendCommand(command)
}
