package nm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when nmcli reports that a named connection or
// device does not exist. Teardown paths treat it as success.
var ErrNotFound = errors.New("not found")

// nmcli exit code for "connection, device, or access point does not exist".
const exitNotFound = 10

// CommandError represents a failed external command.
type CommandError struct {
	// Command is the binary that was run
	Command string
	// Args are the redacted arguments
	Args []string
	// ExitCode is the process exit status (-1 if it never started)
	ExitCode int
	Stdout   string
	Stderr   string
	// Underlying error if any
	Err error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s failed (exit code %d): %s",
		e.Command, strings.Join(e.Args, " "), e.ExitCode, e.Diagnostic())
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrNotFound) match nmcli's "does not exist" exit.
func (e *CommandError) Is(target error) bool {
	return target == ErrNotFound && e.ExitCode == exitNotFound
}

// Diagnostic returns the most useful human-readable text nmcli produced.
func (e *CommandError) Diagnostic() string {
	msg := e.Stderr
	if msg == "" {
		msg = e.Stdout
	}
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return strings.TrimPrefix(msg, "Error: ")
}

// TimeoutError represents a command killed by its deadline.
type TimeoutError struct {
	Command string
	Args    []string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s timed out", e.Command, strings.Join(e.Args, " "))
}

// Diagnostic returns operator-facing text for the timeout.
func (e *TimeoutError) Diagnostic() string {
	return "timed out waiting for NetworkManager"
}

// Diagnostic extracts operator-facing text from an error returned by this
// package, falling back to err.Error().
func Diagnostic(err error) string {
	if err == nil {
		return ""
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Diagnostic()
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return timeoutErr.Diagnostic()
	}
	return err.Error()
}
