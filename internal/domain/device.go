// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

const MaxDeviceNameLen = 64

var (
	ErrDeviceNameTooLong = errors.New("device name too long")
	ErrDeviceNameEmpty   = errors.New("device name empty")
	ErrUnknownKind       = errors.New("unknown device kind")
	ErrUnknownCapability = errors.New("unknown capability")
)

type DeviceID string

// NewDeviceID returns a fresh random identifier.
func NewDeviceID() DeviceID { return DeviceID(uuid.NewString()) }

// DeviceKind is the closed set of device classes. It doubles as the
// discovery role attribute.
type DeviceKind string

const (
	KindPhone    DeviceKind = "phone"
	KindTablet   DeviceKind = "tablet"
	KindWearable DeviceKind = "wearable"
	KindDesktop  DeviceKind = "desktop"
)

func (k DeviceKind) Valid() bool {
	switch k {
	case KindPhone, KindTablet, KindWearable, KindDesktop:
		return true
	}
	return false
}

func ParseDeviceKind(s string) (DeviceKind, error) {
	k := DeviceKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

type Capability string

const (
	CapabilityVideo   Capability = "video"
	CapabilityDepth   Capability = "depth"
	CapabilityMotion  Capability = "motion"
	CapabilityControl Capability = "control"
)

func (c Capability) Valid() bool {
	switch c {
	case CapabilityVideo, CapabilityDepth, CapabilityMotion, CapabilityControl:
		return true
	}
	return false
}

func ParseCapability(s string) (Capability, error) {
	c := Capability(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCapability, s)
	}
	return c, nil
}

// DeviceIdentity is what a peer declares about itself during the handshake.
// Treat it as immutable: construct with NewDeviceIdentity and never mutate
// Capabilities in place.
type DeviceIdentity struct {
	ID           DeviceID     `json:"id"`
	Name         string       `json:"name"`
	Kind         DeviceKind   `json:"kind"`
	Capabilities []Capability `json:"capabilities"`
}

// NewDeviceIdentity validates input and returns an identity with a
// deduplicated, sorted capability set.
func NewDeviceIdentity(id DeviceID, name string, kind DeviceKind, caps ...Capability) (DeviceIdentity, error) {
	if len(name) == 0 {
		return DeviceIdentity{}, ErrDeviceNameEmpty
	}
	if len(name) > MaxDeviceNameLen {
		return DeviceIdentity{}, ErrDeviceNameTooLong
	}
	if !kind.Valid() {
		return DeviceIdentity{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if id == "" {
		id = NewDeviceID()
	}
	set := make([]Capability, 0, len(caps))
	for _, c := range caps {
		if !c.Valid() {
			return DeviceIdentity{}, fmt.Errorf("%w: %q", ErrUnknownCapability, c)
		}
		if !slices.Contains(set, c) {
			set = append(set, c)
		}
	}
	slices.Sort(set)
	return DeviceIdentity{ID: id, Name: name, Kind: kind, Capabilities: set}, nil
}

func (d DeviceIdentity) HasCapability(c Capability) bool {
	return slices.Contains(d.Capabilities, c)
}

// Key is the value recorded in a Session's device snapshot.
func (d DeviceIdentity) Key() DeviceKey { return DeviceKey(d.ID) }
