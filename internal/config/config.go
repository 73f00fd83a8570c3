package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	RoleControl = "control"
	RoleCapture = "capture"

	TransportRTC      = "rtc"
	TransportLoopback = "loopback"
)

type Config struct {
	Mode          string         `mapstructure:"mode"`
	Role          string         `mapstructure:"role"`
	Port          int            `mapstructure:"port"`
	SignalURL     string         `mapstructure:"signal_url"`
	Secret        string         `mapstructure:"secret"`
	LogLevel      string         `mapstructure:"log_level"`
	Transport     string         `mapstructure:"transport"`
	QueueSize     int            `mapstructure:"queue_size"`
	InviteTimeout time.Duration  `mapstructure:"invite_timeout"`
	PingPeriod    time.Duration  `mapstructure:"ping_period"`
	ReadLimit     int64          `mapstructure:"read_limit"`
	ICEServers    []string       `mapstructure:"ice_servers"`
	DeviceProfile string         `mapstructure:"device_profile"`
	Recovery      RecoveryConfig `mapstructure:"recovery"`
}

type RecoveryConfig struct {
	MaxAttempts uint64        `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// Load reads config/config.<CONFIG_ENV>.yaml (env "dev" by default) for the
// given role. A missing file leaves the defaults.
func Load(role string) (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env), role)
}

// LoadFile reads fileName, applies LOGBOT_* environment overrides and
// validates the result. A non-empty role overrides the file.
func LoadFile(fileName, role string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	setDefaults(v)
	v.SetEnvPrefix("LOGBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if role != "" {
		cfg.Role = role
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Str("role", cfg.Role).
		Str("transport", cfg.Transport).Int("port", cfg.Port).Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("role", RoleControl)
	v.SetDefault("port", 8080)
	v.SetDefault("signal_url", "ws://localhost:8080/api/ws/signal")
	v.SetDefault("secret", "logbot-dev-secret")
	v.SetDefault("log_level", "info")
	v.SetDefault("transport", TransportRTC)
	v.SetDefault("queue_size", 256)
	v.SetDefault("invite_timeout", "30s")
	v.SetDefault("ping_period", "54s")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ice_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("device_profile", "device.toml")
	v.SetDefault("recovery.max_attempts", 5)
	v.SetDefault("recovery.base_delay", "500ms")
	v.SetDefault("recovery.max_delay", "10s")
}

var ErrInvalid = errors.New("config: invalid")

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Role != RoleControl && c.Role != RoleCapture {
		errs = append(errs, fmt.Errorf("unknown role %q", c.Role))
	}
	if c.Transport != TransportRTC && c.Transport != TransportLoopback {
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}
	if c.Role == RoleCapture && c.Transport == TransportRTC && c.SignalURL == "" {
		errs = append(errs, errors.New("signal_url is required for a capture device"))
	}
	if c.Role == RoleCapture && c.Transport == TransportLoopback {
		errs = append(errs, errors.New("loopback transport runs inside the control station only"))
	}
	if c.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("queue_size must be positive, got %d", c.QueueSize))
	}
	if c.InviteTimeout <= 0 {
		errs = append(errs, errors.New("invite_timeout must be positive"))
	}
	if c.PingPeriod <= 0 {
		errs = append(errs, errors.New("ping_period must be positive"))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.Recovery.MaxAttempts == 0 {
		errs = append(errs, errors.New("recovery.max_attempts must be positive"))
	}
	if c.Recovery.BaseDelay <= 0 || c.Recovery.MaxDelay < c.Recovery.BaseDelay {
		errs = append(errs, errors.New("recovery delays must satisfy 0 < base_delay <= max_delay"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Level is the parsed log level; Validate guarantees it parses.
func (c *Config) Level() zerolog.Level {
	l, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}
