package domain

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession_SnapshotIsCopied(t *testing.T) {
	devices := []DeviceKey{"b", "a"}
	s := NewSession(devices)

	devices[0] = "z"

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, []DeviceKey{"a", "b"}, s.Devices)
	assert.True(t, s.Includes("a"))
	assert.False(t, s.Includes("z"))
}

func TestNewSession_DevicesAreASet(t *testing.T) {
	s := NewSession([]DeviceKey{"b", "a", "b", "a"})
	assert.Equal(t, []DeviceKey{"a", "b"}, s.Devices)
}

func TestNewSessionAt_NormalisesTime(t *testing.T) {
	loc := time.FixedZone("X", 3*3600)
	at := time.Date(2026, 1, 2, 3, 4, 5, 6, loc)

	s := NewSessionAt("S1", at, nil)

	assert.Equal(t, time.UTC, s.CreatedAt.Location())
	assert.True(t, s.CreatedAt.Equal(at))
	assert.NotNil(t, s.Devices)
	assert.Empty(t, s.Devices)
}

func TestSession_LiteralSurvivesJSON(t *testing.T) {
	at := time.Now().In(time.FixedZone("X", -5*3600))
	s := Session{ID: "S1", CreatedAt: at, Devices: []DeviceKey{"a"}}

	data, err := json.Marshal(s)
	require.NoError(t, err)
	var got Session
	require.NoError(t, json.Unmarshal(data, &got))

	assert.True(t, got.Equal(s))
	assert.Equal(t, NewSessionAt("S1", at, []DeviceKey{"a"}), got)
}

func TestSession_Equal(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewSessionAt("S1", at, []DeviceKey{"a", "b"})

	assert.True(t, s.Equal(NewSessionAt("S1", at.In(time.FixedZone("X", 3600)), []DeviceKey{"b", "a"})))
	assert.False(t, s.Equal(NewSessionAt("S2", at, []DeviceKey{"a", "b"})))
	assert.False(t, s.Equal(NewSessionAt("S1", at.Add(time.Nanosecond), []DeviceKey{"a", "b"})))
	assert.False(t, s.Equal(NewSessionAt("S1", at, []DeviceKey{"a"})))
}

func TestConnectionState_String(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "unknown", ConnectionState(42).String())
}
