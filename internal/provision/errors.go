package provision

import (
	"errors"
	"fmt"
)

// Kind classifies a provisioning failure by how it must be handled.
type Kind int

const (
	// KindConfiguration is bad operator input. Nothing was changed.
	KindConfiguration Kind = iota + 1
	// KindTransient is a scan or join failure. The access point was
	// restored so the operator can retry.
	KindTransient
	// KindFatal means the access point could not be (re)created. The run
	// ends in Aborted with a nonzero exit.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Operator-facing messages.
const (
	MsgCredentialsRequired = "SSID and password are required."
	MsgNotAccepting        = "Setup is not accepting requests right now."
)

// ErrNotAccepting is returned by Connect and Rescan outside
// awaiting_credentials, e.g. after a join already succeeded.
var ErrNotAccepting = errors.New("not awaiting credentials")

// Error is a classified provisioning failure. Message is safe to show to
// the operator.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Op, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s (%s): %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return 0
}

func IsConfiguration(err error) bool { return KindOf(err) == KindConfiguration }
func IsTransient(err error) bool     { return KindOf(err) == KindTransient }
func IsFatal(err error) bool         { return KindOf(err) == KindFatal }

// Message returns the operator-facing text for err.
func Message(err error) string {
	var perr *Error
	if errors.As(err, &perr) && perr.Message != "" {
		return perr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
