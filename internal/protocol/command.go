// Package protocol defines the commands exchanged between the control station
// and capture devices and their self-describing wire encoding.
package protocol

import "github.com/dkeye/Logbot/internal/domain"

// Type is the wire tag of a Command variant.
type Type string

const (
	TypeStartSession   Type = "start_session"
	TypeStopSession    Type = "stop_session"
	TypeStartCapture   Type = "start_capture"
	TypeStopCapture    Type = "stop_capture"
	TypeDeviceIdentity Type = "device_identity"
	TypeError          Type = "error"
)

// Command is a closed tagged union; only the variants in this file
// implement it.
type Command interface {
	Type() Type
	command()
}

type StartSession struct {
	Session domain.Session `json:"session"`
}

type StopSession struct {
	SessionID domain.SessionID `json:"session_id"`
}

type StartCapture struct{}

type StopCapture struct{}

// Identify carries the sender's DeviceIdentity.
type Identify struct {
	Identity domain.DeviceIdentity `json:"identity"`
}

// ErrorNotice carries a human-readable failure from a peer.
type ErrorNotice struct {
	Text string `json:"text"`
}

func (StartSession) Type() Type { return TypeStartSession }
func (StopSession) Type() Type  { return TypeStopSession }
func (StartCapture) Type() Type { return TypeStartCapture }
func (StopCapture) Type() Type  { return TypeStopCapture }
func (Identify) Type() Type     { return TypeDeviceIdentity }
func (ErrorNotice) Type() Type  { return TypeError }

func (StartSession) command() {}
func (StopSession) command()  {}
func (StartCapture) command() {}
func (StopCapture) command()  {}
func (Identify) command()     {}
func (ErrorNotice) command()  {}
