package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Logbot/internal/domain"
)

// profileFile is the on-disk device identity.
type profileFile struct {
	ID           string   `toml:"id"`
	Name         string   `toml:"name"`
	Kind         string   `toml:"kind"`
	Capabilities []string `toml:"capabilities"`
}

// LoadProfile reads the device identity from a TOML file. A missing file
// yields DefaultProfile. When the file has no id a fresh one is generated and
// written back so the device keeps it across restarts.
func LoadProfile(path string) (domain.DeviceIdentity, error) {
	def, err := DefaultProfile()
	if err != nil {
		return domain.DeviceIdentity{}, err
	}
	if path == "" {
		return def, nil
	}

	var raw profileFile
	meta, err := toml.DecodeFile(path, &raw)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("module", "config").Str("profile", path).Msg("device profile not found, using defaults")
		return def, nil
	}
	if err != nil {
		return domain.DeviceIdentity{}, fmt.Errorf("load device profile: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		log.Warn().Str("module", "config").Str("profile", path).Interface("keys", undecoded).Msg("unknown profile keys")
	}

	id, name, kind, caps := def.ID, def.Name, def.Kind, def.Capabilities
	generated := true
	if meta.IsDefined("id") {
		if v := strings.TrimSpace(raw.ID); v != "" {
			id = domain.DeviceID(v)
			generated = false
		}
	}
	if meta.IsDefined("name") {
		name = strings.TrimSpace(raw.Name)
	}
	if meta.IsDefined("kind") {
		kind, err = domain.ParseDeviceKind(raw.Kind)
		if err != nil {
			return domain.DeviceIdentity{}, fmt.Errorf("parse kind: %w", err)
		}
	}
	if meta.IsDefined("capabilities") {
		caps = make([]domain.Capability, 0, len(raw.Capabilities))
		for _, s := range raw.Capabilities {
			c, err := domain.ParseCapability(s)
			if err != nil {
				return domain.DeviceIdentity{}, fmt.Errorf("parse capabilities: %w", err)
			}
			caps = append(caps, c)
		}
	}

	identity, err := domain.NewDeviceIdentity(id, name, kind, caps...)
	if err != nil {
		return domain.DeviceIdentity{}, fmt.Errorf("device profile %s: %w", path, err)
	}
	if generated {
		if err := WriteProfile(path, identity); err != nil {
			return domain.DeviceIdentity{}, err
		}
		log.Info().Str("module", "config").Str("profile", path).Str("device", string(identity.ID)).Msg("generated device id")
	}
	return identity, nil
}

// DefaultProfile describes this host as a desktop with video capture.
func DefaultProfile() (domain.DeviceIdentity, error) {
	name, err := os.Hostname()
	if err != nil || name == "" {
		name = "logbot-device"
	}
	if len(name) > domain.MaxDeviceNameLen {
		name = name[:domain.MaxDeviceNameLen]
	}
	return domain.NewDeviceIdentity("", name, domain.KindDesktop, domain.CapabilityVideo)
}

func WriteProfile(path string, id domain.DeviceIdentity) error {
	raw := profileFile{
		ID:   string(id.ID),
		Name: id.Name,
		Kind: string(id.Kind),
	}
	for _, c := range id.Capabilities {
		raw.Capabilities = append(raw.Capabilities, string(c))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write device profile: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(raw); err != nil {
		return fmt.Errorf("encode device profile: %w", err)
	}
	return nil
}
