package domain

import (
	"slices"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type (
	SessionID string
	DeviceKey string
)

func NewSessionID() SessionID { return SessionID(uuid.NewString()) }

// Session is a coordinated recording activity. Devices is a snapshot taken at
// creation and is never updated when membership changes afterwards.
//
// CreatedAt goes on the wire in UTC without a monotonic reading. A literal
// built from time.Now() therefore comes back Equal but not deep-equal; build
// sessions with NewSession or NewSessionAt to get the wire form up front.
type Session struct {
	ID        SessionID   `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	Devices   []DeviceKey `json:"devices"`
}

// NewSession builds a session with a fresh id, the current time and a sorted,
// duplicate-free copy of devices.
func NewSession(devices []DeviceKey) Session {
	return NewSessionAt(NewSessionID(), time.Now(), devices)
}

// NewSessionAt is NewSession with explicit id and time. The timestamp is
// normalised to UTC without a monotonic reading so it survives the wire.
func NewSessionAt(id SessionID, at time.Time, devices []DeviceKey) Session {
	snap := make([]DeviceKey, len(devices))
	copy(snap, devices)
	slices.Sort(snap)
	// two peers may present the same device id while an old link is reaped
	snap = slices.Compact(snap)
	return Session{
		ID:        id,
		CreatedAt: at.UTC().Round(0),
		Devices:   snap,
	}
}

func (s Session) Includes(key DeviceKey) bool {
	return slices.Contains(s.Devices, key)
}

// Equal compares sessions by id, instant and device set.
func (s Session) Equal(o Session) bool {
	return s.ID == o.ID && s.CreatedAt.Equal(o.CreatedAt) && slices.Equal(s.Devices, o.Devices)
}

// MarshalJSON writes CreatedAt in UTC so every encoding of an instant is the
// same.
func (s Session) MarshalJSON() ([]byte, error) {
	type wire Session
	w := wire(s)
	w.CreatedAt = s.CreatedAt.UTC().Round(0)
	return json.Marshal(w)
}
