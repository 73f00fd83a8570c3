package rtc

import (
	"context"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Logbot/internal/core"
)

func TestDefaultWebRTCConfig(t *testing.T) {
	def := DefaultWebRTCConfig()
	require.Len(t, def.ICEServers, 1)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, def.ICEServers[0].URLs)

	custom := DefaultWebRTCConfig("stun:a", "turn:b")
	assert.Equal(t, []string{"stun:a", "turn:b"}, custom.ICEServers[0].URLs)
}

// No candidates are gathered here, so nothing touches the network.
func TestLink_SendBeforeOpenAndClose(t *testing.T) {
	l, err := NewLink(webrtc.Configuration{}, "dev")
	require.NoError(t, err)

	closed := 0
	l.OnClosed(func() { closed++ })
	require.NoError(t, l.Start(context.Background()))

	assert.ErrorIs(t, l.Send(core.Frame("x")), ErrNotOpen)

	l.Close()
	l.Close()
	assert.Equal(t, 1, closed)
}
