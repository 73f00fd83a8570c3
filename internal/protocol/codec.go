package protocol

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"github.com/dkeye/Logbot/internal/domain"
)

// envelope is the wire form: {"type": "...", "payload": {...}}.
// There is no version field; unknown fields are ignored on decode.
type envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func Encode(c Command) ([]byte, error) {
	if c == nil {
		return nil, ErrNilCommand
	}
	var payload any
	switch v := c.(type) {
	case ErrorNotice:
		// JSON would swap invalid bytes for U+FFFD and break the round trip
		if !utf8.ValidString(v.Text) {
			return nil, fmt.Errorf("encode %s: %w", c.Type(), ErrInvalidText)
		}
		payload = v
	case StartSession, StopSession, Identify:
		payload = v
	case StartCapture, StopCapture:
	default:
		return nil, fmt.Errorf("encode %T: %w", c, ErrUnknownType)
	}

	env := envelope{Type: c.Type()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", c.Type(), err)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

func Decode(data []byte) (Command, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &DecodeError{Err: ErrTruncated}
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}

	switch env.Type {
	case TypeStartCapture:
		return StartCapture{}, nil
	case TypeStopCapture:
		return StopCapture{}, nil
	case TypeStartSession:
		var c StartSession
		if err := unmarshalPayload(env, &c); err != nil {
			return nil, err
		}
		if c.Session.ID == "" {
			return nil, &DecodeError{Type: env.Type, Err: ErrMissingPayload}
		}
		return c, nil
	case TypeStopSession:
		var c StopSession
		if err := unmarshalPayload(env, &c); err != nil {
			return nil, err
		}
		if c.SessionID == "" {
			return nil, &DecodeError{Type: env.Type, Err: ErrMissingPayload}
		}
		return c, nil
	case TypeDeviceIdentity:
		var c Identify
		if err := unmarshalPayload(env, &c); err != nil {
			return nil, err
		}
		if err := validIdentity(c.Identity); err != nil {
			return nil, &DecodeError{Type: env.Type, Err: err}
		}
		return c, nil
	case TypeError:
		var c ErrorNotice
		if err := unmarshalPayload(env, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "":
		return nil, &DecodeError{Err: fmt.Errorf("%w: no type tag", ErrMalformed)}
	default:
		return nil, &DecodeError{Type: env.Type, Err: ErrUnknownType}
	}
}

func unmarshalPayload(env envelope, dst any) error {
	if len(env.Payload) == 0 || bytes.Equal(env.Payload, []byte("null")) {
		return &DecodeError{Type: env.Type, Err: ErrMissingPayload}
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return &DecodeError{Type: env.Type, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	return nil
}

func validIdentity(id domain.DeviceIdentity) error {
	if id.ID == "" {
		return fmt.Errorf("%w: identity without id", ErrMissingPayload)
	}
	if !id.Kind.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, domain.ErrUnknownKind)
	}
	for _, c := range id.Capabilities {
		if !c.Valid() {
			return fmt.Errorf("%w: %w", ErrInvalidPayload, domain.ErrUnknownCapability)
		}
	}
	return nil
}
