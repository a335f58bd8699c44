// Package smarterr defines the error taxonomy shared by every
// SmartMirror service: unknown commands, operations on a stopped
// service, hardware I/O failures, FSM convergence timeouts, and
// configuration errors.
package smarterr

import "errors"

var (
	// ErrUnknownCommand is returned when a requested IR/UART command
	// name is not in the configured table.
	ErrUnknownCommand = errors.New("smartmirror: unknown command")
	// ErrNotRunning is returned when an operation is invoked on a
	// service before start or after stop.
	ErrNotRunning = errors.New("smartmirror: not running")
	// ErrIO wraps underlying GPIO/UART/camera failures.
	ErrIO = errors.New("smartmirror: io error")
	// ErrTimeout marks an FSM transition that failed to converge.
	ErrTimeout = errors.New("smartmirror: timeout")
	// ErrConfig marks a malformed configuration entry at startup.
	ErrConfig = errors.New("smartmirror: config error")
)
