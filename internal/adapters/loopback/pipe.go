package loopback

import (
	"github.com/dkeye/Logbot/internal/adapters/serial"
	"github.com/dkeye/Logbot/internal/core"
	"github.com/dkeye/Logbot/internal/domain"
)

type eventKind int

const (
	evConnected eventKind = iota
	evData
	evDisconnected
)

type event struct {
	kind  eventKind
	frame core.Frame
}

// pipe delivers events about from to the endpoint to, in push order. A slow
// receiver never stalls the sender.
type pipe struct {
	from domain.PeerID
	to   *Endpoint
	exec *serial.Executor
}

func newPipe(from domain.PeerID, to *Endpoint) *pipe {
	return &pipe{from: from, to: to, exec: serial.New()}
}

func (p *pipe) push(ev event) bool {
	return p.exec.Submit(func() { p.deliver(ev) })
}

// close stops accepting events; queued ones are still delivered.
func (p *pipe) close() { p.exec.Close() }

func (p *pipe) deliver(ev event) {
	cb := p.to.callbacks()
	switch ev.kind {
	case evConnected:
		if cb.onConnected != nil {
			cb.onConnected(p.from)
		}
	case evData:
		if cb.onData != nil {
			cb.onData(ev.frame, p.from)
		}
	case evDisconnected:
		if cb.onDisconnected != nil {
			cb.onDisconnected(p.from)
		}
	}
}
