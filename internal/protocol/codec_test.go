package protocol

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Logbot/internal/domain"
)

func sampleCommands(t *testing.T) []Command {
	t.Helper()
	id, err := domain.NewDeviceIdentity("D1", "Front phone", domain.KindPhone,
		domain.CapabilityVideo, domain.CapabilityMotion)
	require.NoError(t, err)
	s := domain.NewSessionAt("S1", time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.FixedZone("X", 3600)),
		[]domain.DeviceKey{"D2", "D1"})
	return []Command{
		StartSession{Session: s},
		StartSession{Session: domain.NewSessionAt("S0", time.Unix(0, 0), nil)},
		StopSession{SessionID: "S1"},
		StartCapture{},
		StopCapture{},
		Identify{Identity: id},
		ErrorNotice{Text: "camera busy"},
		ErrorNotice{Text: ""},
	}
}

func TestRoundTrip(t *testing.T) {
	for _, c := range sampleCommands(t) {
		t.Run(string(c.Type()), func(t *testing.T) {
			data, err := Encode(c)
			require.NoError(t, err)

			got, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, c, got)
		})
	}
}

func TestEncodeIsSelfDescribing(t *testing.T) {
	data, err := Encode(StopSession{SessionID: "abc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"stop_session","payload":{"session_id":"abc"}}`, string(data))

	data, err = Encode(StartCapture{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"start_capture"}`, string(data))
}

func TestEncodeRejectsInvalidText(t *testing.T) {
	_, err := Encode(ErrorNotice{Text: "sensor \xff\xfe fault"})
	assert.ErrorIs(t, err, ErrInvalidText)
	assert.False(t, IsDecodeError(err))

	c := ErrorNotice{Text: "sensor \u00e9\u6e29 fault"}
	data, err := Encode(c)
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestRoundTrip_SessionLiteral(t *testing.T) {
	c := StartSession{Session: domain.Session{ID: "S1", CreatedAt: time.Now(), Devices: []domain.DeviceKey{"D1"}}}

	data, err := Encode(c)
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)

	require.IsType(t, StartSession{}, got)
	assert.True(t, got.(StartSession).Session.Equal(c.Session))
}

func TestEncodeNil(t *testing.T) {
	_, err := Encode(nil)
	assert.ErrorIs(t, err, ErrNilCommand)
}

func TestDecodeFailures(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"empty", "", ErrTruncated},
		{"blank", "  \n", ErrTruncated},
		{"truncated", `{"type":"stop_sess`, ErrMalformed},
		{"garbage", `not json`, ErrMalformed},
		{"no tag", `{"payload":{}}`, ErrMalformed},
		{"unknown tag", `{"type":"reboot"}`, ErrUnknownType},
		{"missing payload", `{"type":"start_session"}`, ErrMissingPayload},
		{"null payload", `{"type":"error","payload":null}`, ErrMissingPayload},
		{"empty session id", `{"type":"stop_session","payload":{"session_id":""}}`, ErrMissingPayload},
		{"wrong payload shape", `{"type":"stop_session","payload":{"session_id":42}}`, ErrMalformed},
		{"bad kind", `{"type":"device_identity","payload":{"identity":{"id":"x","name":"n","kind":"toaster","capabilities":[]}}}`, ErrInvalidPayload},
		{"bad capability", `{"type":"device_identity","payload":{"identity":{"id":"x","name":"n","kind":"phone","capabilities":["smell"]}}}`, ErrInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Decode([]byte(tt.data))
			require.Error(t, err)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsDecodeError(err))
		})
	}
}

// A decode failure and a decoded error command must never look alike.
func TestDecodeErrorDistinctFromErrorNotice(t *testing.T) {
	data, err := Encode(ErrorNotice{Text: "protocol: malformed message"})
	require.NoError(t, err)

	c, err := Decode(data)
	require.NoError(t, err)
	assert.IsType(t, ErrorNotice{}, c)

	c, err = Decode(data[:len(data)/2])
	assert.Nil(t, c)
	var de *DecodeError
	assert.True(t, errors.As(err, &de))
}

// No schema version is carried: extra fields from a newer peer are silently
// accepted and a renamed tag is simply unknown.
func TestNoVersioning(t *testing.T) {
	c, err := Decode([]byte(`{"type":"stop_session","version":2,"payload":{"session_id":"S","reason":"x"}}`))
	require.NoError(t, err)
	assert.Equal(t, StopSession{SessionID: "S"}, c)

	_, err = Decode([]byte(`{"type":"stopSession","payload":{"session_id":"S"}}`))
	assert.ErrorIs(t, err, ErrUnknownType)
}
