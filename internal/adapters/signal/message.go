package signal

import (
	"github.com/goccy/go-json"

	"github.com/dkeye/Logbot/internal/domain"
)

// Message types on the signaling link.
const (
	TypeAdvertise = "advertise"
	TypeOffer     = "offer"
	TypeAnswer    = "answer"
	TypePing      = "ping"
	TypePong      = "pong"
	TypeError     = "error"
)

// Message is the single envelope used in both directions. Offers carry the
// inviting peer so the advertiser knows who it is answering.
type Message struct {
	Type  string            `json:"type"`
	Role  domain.DeviceKind `json:"role,omitempty"`
	Peer  domain.PeerID     `json:"peer,omitempty"`
	SDP   string            `json:"sdp,omitempty"`
	Error string            `json:"error,omitempty"`
}

func decodeMessage(data []byte) (Message, error) {
	var m Message
	err := json.Unmarshal(data, &m)
	return m, err
}

func errorMessage(reason string) Message {
	return Message{Type: TypeError, Error: reason}
}
