package core

// Frame is a raw binary payload: one encoded command.
type Frame []byte

// SignalConnection abstracts the rendezvous messaging link.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
