package apperr

import (
	"errors"
	"fmt"
	"time"
)

// Error is a classified failure. Only the fields relevant to Kind are set.
type Error struct {
	Kind Kind

	Subject  string // device id, session id, feature, permission, resource, path or file
	Reason   string
	Expected string
	Actual   string
	Limit    string
	Command  string
	Duration time.Duration
	Progress float64

	Err error
}

func (e *Error) Error() string { return e.Description() }

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, &apperr.Error{Kind: apperr.KindTimeout}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func (e *Error) Description() string {
	switch e.Kind {
	case KindConnectionFailed:
		return fmt.Sprintf("Connection failed: %s", e.Reason)
	case KindDeviceDisconnected:
		return fmt.Sprintf("Device disconnected: %s", e.Subject)
	case KindCommandFailed:
		return fmt.Sprintf("Command failed - %s: %s", e.Command, e.Reason)
	case KindDataCorrupted:
		return fmt.Sprintf("Data corrupted: %s", e.Reason)
	case KindTimeout:
		return fmt.Sprintf("Operation timed out after %s: %s", e.Duration, e.Subject)
	case KindHardwareAccessDenied:
		return fmt.Sprintf("Hardware access denied: %s", e.Subject)
	case KindPermissionRequired:
		return fmt.Sprintf("Permission required: %s", e.Subject)
	case KindResourceConstraint:
		return fmt.Sprintf("Resource limit reached - %s: %s", e.Subject, e.Limit)
	case KindInvalidDeviceState:
		return fmt.Sprintf("Invalid device state - Expected: %s, Actual: %s", e.Expected, e.Actual)
	case KindSessionCreationFailed:
		return fmt.Sprintf("Failed to create session: %s", e.Reason)
	case KindInvalidSession:
		return fmt.Sprintf("Invalid session: %s", e.Subject)
	case KindSessionStateMismatch:
		return fmt.Sprintf("Session state mismatch - Expected: %s, Actual: %s", e.Expected, e.Actual)
	case KindDeviceNotReady:
		return fmt.Sprintf("Device not ready - %s: %s", e.Subject, e.Reason)
	case KindStorageFailed:
		return fmt.Sprintf("Storage failed at %s: %s", e.Subject, e.Reason)
	case KindFileCorrupted:
		return fmt.Sprintf("File corrupted: %s", e.Subject)
	case KindTransferInterrupted:
		return fmt.Sprintf("Transfer interrupted at %d%%: %s", int(e.Progress*100), e.Subject)
	case KindSynchronizationMismatch:
		return fmt.Sprintf("Synchronization mismatch: %s", e.Reason)
	default:
		return fmt.Sprintf("unknown failure kind %d", int(e.Kind))
	}
}

func (e *Error) Suggestion() string {
	if !e.Kind.Valid() {
		return ""
	}
	return classes[e.Kind].suggestion
}

func (e *Error) Recoverable() bool { return e.Kind.Valid() && classes[e.Kind].recoverable }

func (e *Error) NotifyUser() bool { return e.Kind.Valid() && classes[e.Kind].notify }

func (e *Error) Severity() Severity {
	if !e.Kind.Valid() {
		return SeverityError
	}
	return classes[e.Kind].severity
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func IsKind(err error, k Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == k
}
