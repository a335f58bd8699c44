package ir

import (
	"errors"
	"testing"
	"time"

	"smartmirror.dev/gpioline"
	"smartmirror.dev/gpioline/gpiolinetest"
	"smartmirror.dev/smarterr"
)

func newTestService() *Service {
	pin := gpiolinetest.NewPin(gpioline.High)
	e := New(pin, WithSpin(func(time.Duration) {}), WithInterFrameSleep(func(time.Duration) {}))
	return NewService(e, map[string]uint16{"power": 0x02FD})
}

func TestServiceGatesBeforeStart(t *testing.T) {
	s := newTestService()
	if _, err := s.ListCommands(); err != smarterr.ErrNotRunning {
		t.Fatalf("ListCommands before start = %v, want ErrNotRunning", err)
	}
	if err := s.SendCommand("power"); err != smarterr.ErrNotRunning {
		t.Fatalf("SendCommand before start = %v, want ErrNotRunning", err)
	}
}

func TestServiceNormalizesNameAndRejectsUnknown(t *testing.T) {
	s := newTestService()
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if err := s.SendCommand("POWER"); err != nil {
		t.Fatalf("SendCommand(POWER): %v", err)
	}
	if err := s.SendCommand("nonexistent"); !errors.Is(err, smarterr.ErrUnknownCommand) {
		t.Fatalf("SendCommand(nonexistent) = %v, want ErrUnknownCommand", err)
	}
}

func TestServiceStopThenOperationsFail(t *testing.T) {
	s := newTestService()
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.SendCommand("power"); err != smarterr.ErrNotRunning {
		t.Fatalf("SendCommand after stop = %v, want ErrNotRunning", err)
	}
}
