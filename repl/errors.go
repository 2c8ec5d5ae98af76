package repl

import (
	"errors"
	"fmt"
)

// DesyncMessage is the ResultText of a desync notification.
const DesyncMessage = "Incoming command was not last one sent! Desync!"

var (
	ErrPortNotFound  = errors.New("no serial device matches port")
	ErrOpen          = errors.New("failed to open serial device")
	ErrDesync        = errors.New("device output out of sync with sent commands")
	ErrDuplicatePort = errors.New("port already registered")
	ErrUnknownPort   = errors.New("port not registered")
	ErrNotConnected  = errors.New("session not connected")
)

// OpenError reports a device that was discovered but could not be opened.
type OpenError struct {
	Port int
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open port %d (%s): %v", e.Port, e.Path, e.Err)
}

// Unwrap exposes both ErrOpen and the transport failure to errors.Is.
func (e *OpenError) Unwrap() []error {
	return []error{ErrOpen, e.Err}
}

// DesyncError reports a reply that did not echo the pending command.
type DesyncError struct {
	Port     int
	Expected string
	Got      string
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("port %d: expected echo of %q, got %q", e.Port, e.Expected, e.Got)
}

func (e *DesyncError) Unwrap() error {
	return ErrDesync
}
