package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated      = errors.New("protocol: truncated data")
	ErrMalformed      = errors.New("protocol: malformed message")
	ErrUnknownType    = errors.New("protocol: unknown command type")
	ErrMissingPayload = errors.New("protocol: missing payload")
	ErrInvalidPayload = errors.New("protocol: invalid payload")
	ErrNilCommand     = errors.New("protocol: nil command")
	ErrInvalidText    = errors.New("protocol: text is not valid UTF-8")
)

// DecodeError reports bytes that could not be turned into a Command. It is
// never a Command value, so a failed decode cannot be confused with a
// received ErrorNotice.
type DecodeError struct {
	Type Type // empty when the envelope itself was unreadable
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("decode: %v", e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
