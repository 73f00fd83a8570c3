package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), "")
	require.NoError(t, err)

	assert.Equal(t, RoleControl, cfg.Role)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, TransportRTC, cfg.Transport)
	assert.Equal(t, 256, cfg.QueueSize)
	assert.Equal(t, 30*time.Second, cfg.InviteTimeout)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.Equal(t, int64(32768), cfg.ReadLimit)
	assert.Equal(t, RecoveryConfig{MaxAttempts: 5, BaseDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second}, cfg.Recovery)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
}

func TestLoadFile_FileAndEnv(t *testing.T) {
	path := writeFile(t, "config.test.yaml", `
mode: debug
port: 9090
transport: loopback
log_level: debug
ice_servers: ["stun:a", "stun:b"]
recovery:
  max_attempts: 2
  base_delay: 100ms
  max_delay: 1s
`)
	t.Setenv("LOGBOT_QUEUE_SIZE", "16")
	t.Setenv("LOGBOT_RECOVERY_MAX_DELAY", "2s")

	cfg, err := LoadFile(path, RoleControl)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, RoleControl, cfg.Role)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, TransportLoopback, cfg.Transport)
	assert.Equal(t, 16, cfg.QueueSize)
	assert.Equal(t, []string{"stun:a", "stun:b"}, cfg.ICEServers)
	assert.Equal(t, uint64(2), cfg.Recovery.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Recovery.MaxDelay)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
}

func TestLoadFile_Invalid(t *testing.T) {
	path := writeFile(t, "config.bad.yaml", "port: 0\ntransport: carrier-pigeon\n")
	_, err := LoadFile(path, "")
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "port 0 out of range")
	assert.Contains(t, err.Error(), `unknown transport "carrier-pigeon"`)
}

func TestLoadFile_Malformed(t *testing.T) {
	path := writeFile(t, "config.broken.yaml", "port: [\n")
	_, err := LoadFile(path, "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Role: RoleCapture, Port: 8080, Transport: TransportRTC, SignalURL: "ws://x",
			LogLevel: "info", QueueSize: 1, InviteTimeout: time.Second, PingPeriod: time.Second,
			Recovery: RecoveryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Second},
		}
	}
	base := valid()
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown role", func(c *Config) { c.Role = "observer" }},
		{"capture without signal url", func(c *Config) { c.SignalURL = "" }},
		{"capture over loopback", func(c *Config) { c.Transport = TransportLoopback }},
		{"queue size", func(c *Config) { c.QueueSize = 0 }},
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"invite timeout", func(c *Config) { c.InviteTimeout = 0 }},
		{"recovery attempts", func(c *Config) { c.Recovery.MaxAttempts = 0 }},
		{"recovery delays", func(c *Config) { c.Recovery.MaxDelay = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalid)
		})
	}
}
