package rtc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Logbot/internal/apperr"
	"github.com/dkeye/Logbot/internal/core"
	"github.com/dkeye/Logbot/internal/domain"
)

type fakeRendezvous struct {
	mu         sync.Mutex
	advertised []domain.DeviceKind
	browsed    int
	closed     int
	err        error
}

func (f *fakeRendezvous) Advertise(_ context.Context, role domain.DeviceKind, _ Negotiator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advertised = append(f.advertised, role)
	return f.err
}

func (f *fakeRendezvous) Browse(context.Context, Negotiator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.browsed++
	return f.err
}

func (f *fakeRendezvous) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

type events struct {
	mu  sync.Mutex
	got []string
}

func (e *events) add(s string) {
	e.mu.Lock()
	e.got = append(e.got, s)
	e.mu.Unlock()
}

func (e *events) snapshot() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.got...)
}

func watch(t *Transport) *events {
	e := &events{}
	t.OnPeerConnected(func(p domain.PeerID) { e.add("connected:" + string(p)) })
	t.OnPeerDisconnected(func(p domain.PeerID) { e.add("disconnected:" + string(p)) })
	t.OnDataReceived(func(f core.Frame, p domain.PeerID) { e.add(string(p) + ":" + string(f)) })
	return e
}

type fakeLink struct {
	mu        sync.Mutex
	onOpen    func()
	onMessage func(core.Frame)
	onClosed  func()
	offer     string
	answer    string
	sent      []core.Frame
	closed    bool
	closeOnce sync.Once
}

func (l *fakeLink) Start(context.Context) error { return nil }

func (l *fakeLink) Close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		fn := l.onClosed
		l.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
}

func (l *fakeLink) CreateOffer(context.Context) (*webrtc.SessionDescription, error) {
	return &webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "offer-sdp"}, nil
}

func (l *fakeLink) ApplyOfferAndCreateAnswer(o webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	l.mu.Lock()
	l.offer = o.SDP
	l.mu.Unlock()
	return &webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "answer-sdp"}, nil
}

func (l *fakeLink) ApplyAnswer(a webrtc.SessionDescription) error {
	l.mu.Lock()
	l.answer = a.SDP
	l.mu.Unlock()
	return nil
}

func (l *fakeLink) Send(f core.Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrNotOpen
	}
	l.sent = append(l.sent, f)
	return nil
}

func (l *fakeLink) OnOpen(fn func()) { l.onOpen = fn }

func (l *fakeLink) OnMessage(fn func(core.Frame)) { l.onMessage = fn }

func (l *fakeLink) OnClosed(fn func()) { l.onClosed = fn }

func (l *fakeLink) open() { l.onOpen() }

func (l *fakeLink) deliver(f core.Frame) { l.onMessage(f) }

func (l *fakeLink) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *fakeLink) state() (offer, answer string, sent int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.offer, l.answer, len(l.sent)
}

type linkFactory struct {
	mu    sync.Mutex
	links map[domain.PeerID][]*fakeLink
}

// fakeLinks makes tr create fake links and returns them per peer, newest
// last.
func fakeLinks(tr *Transport) *linkFactory {
	f := &linkFactory{links: make(map[domain.PeerID][]*fakeLink)}
	tr.newLink = func(_ webrtc.Configuration, peer domain.PeerID) (core.DataLink, error) {
		l := &fakeLink{}
		f.mu.Lock()
		f.links[peer] = append(f.links[peer], l)
		f.mu.Unlock()
		return l, nil
	}
	return f
}

func (f *linkFactory) last(peer domain.PeerID) *fakeLink {
	f.mu.Lock()
	defer f.mu.Unlock()
	ls := f.links[peer]
	return ls[len(ls)-1]
}

func waitEvents(t *testing.T, ev *events, want ...string) {
	t.Helper()
	require.Eventually(t, func() bool { return len(ev.snapshot()) >= len(want) }, time.Second, time.Millisecond)
	assert.Equal(t, want, ev.snapshot())
}

func TestTransport_DelegatesToRendezvous(t *testing.T) {
	rv := &fakeRendezvous{}
	tr := NewTransport(Config{}, rv)
	ctx := context.Background()

	require.NoError(t, tr.StartAdvertising(ctx, domain.KindWearable))
	require.NoError(t, tr.StartBrowsing(ctx))
	require.NoError(t, tr.Stop())

	assert.Equal(t, []domain.DeviceKind{domain.KindWearable}, rv.advertised)
	assert.Equal(t, 1, rv.browsed)
	assert.Equal(t, 1, rv.closed)
	assert.Equal(t, DefaultInviteTimeout, tr.cfg.InviteTimeout)
}

func TestTransport_RendezvousErrorReturned(t *testing.T) {
	boom := errors.New("boom")
	tr := NewTransport(Config{}, &fakeRendezvous{err: boom})
	assert.ErrorIs(t, tr.StartBrowsing(context.Background()), boom)
}

func TestTransport_SendToUnknownPeer(t *testing.T) {
	tr := NewTransport(Config{}, &fakeRendezvous{})
	err := tr.Send(core.Frame("x"), []domain.PeerID{"ghost"})
	assert.ErrorIs(t, err, ErrUnknownPeer)
	assert.NoError(t, tr.Broadcast(core.Frame("x")), "no peers, nothing to fail")
}

func TestTransport_CompleteWithoutInvite(t *testing.T) {
	tr := NewTransport(Config{}, &fakeRendezvous{})
	assert.ErrorIs(t, tr.Complete("ghost", "v=0"), ErrNoLink)
}

func TestTransport_EventOrder(t *testing.T) {
	tr := NewTransport(Config{}, &fakeRendezvous{})
	ev := watch(tr)
	links := fakeLinks(tr)
	_, err := tr.Accept(context.Background(), "dev", "offer")
	require.NoError(t, err)
	l := links.last("dev")

	// data racing ahead of the open notification still reports connected first
	l.deliver(core.Frame("a"))
	l.open()
	l.deliver(core.Frame("b"))
	assert.Equal(t, []domain.PeerID{"dev"}, tr.Peers())

	l.Close()
	require.Eventually(t, func() bool { return !tr.Linked("dev") }, time.Second, time.Millisecond)
	l.deliver(core.Frame("late"))
	l.open()

	waitEvents(t, ev, "connected:dev", "dev:a", "dev:b", "disconnected:dev")
	assert.Empty(t, tr.Peers())
}

func TestTransport_DropUnopenedIsSilent(t *testing.T) {
	tr := NewTransport(Config{}, &fakeRendezvous{})
	ev := watch(tr)
	links := fakeLinks(tr)
	_, err := tr.Accept(context.Background(), "dev", "offer")
	require.NoError(t, err)

	links.last("dev").Close()
	require.Eventually(t, func() bool { return !tr.Linked("dev") }, time.Second, time.Millisecond)

	require.NoError(t, tr.Stop())
	assert.Empty(t, ev.snapshot())
	assert.Empty(t, tr.Peers())
}

func TestTransport_FailReachesCallback(t *testing.T) {
	tr := NewTransport(Config{}, &fakeRendezvous{})
	var got *apperr.Error
	tr.OnFailure(func(err *apperr.Error) { got = err })

	tr.Fail(apperr.ConnectionFailed("signal lost", nil))

	require.NotNil(t, got)
	assert.Equal(t, apperr.KindConnectionFailed, got.Kind)
}

func TestTransport_Linked(t *testing.T) {
	tr := NewTransport(Config{}, &fakeRendezvous{})
	assert.False(t, tr.Linked("dev"))

	links := fakeLinks(tr)
	_, err := tr.Invite(context.Background(), "dev")
	require.NoError(t, err)
	assert.True(t, tr.Linked("dev"), "pending links count")

	require.NoError(t, tr.Stop())
	assert.False(t, tr.Linked("dev"))
	assert.True(t, links.last("dev").isClosed())
}

func TestTransport_InviteOpenSend(t *testing.T) {
	tr := NewTransport(Config{InviteTimeout: time.Hour}, &fakeRendezvous{})
	ev := watch(tr)
	links := fakeLinks(tr)

	sdp, err := tr.Invite(context.Background(), "dev")
	require.NoError(t, err)
	assert.Equal(t, "offer-sdp", sdp)
	require.NoError(t, tr.Complete("dev", "answer-sdp"))

	l := links.last("dev")
	_, answer, _ := l.state()
	assert.Equal(t, "answer-sdp", answer)

	// not open yet
	assert.ErrorIs(t, tr.Send(core.Frame("x"), []domain.PeerID{"dev"}), ErrUnknownPeer)

	l.open()
	waitEvents(t, ev, "connected:dev")
	require.NoError(t, tr.Send(core.Frame("x"), []domain.PeerID{"dev"}))
	require.NoError(t, tr.Broadcast(core.Frame("y")))
	_, _, sent := l.state()
	assert.Equal(t, 2, sent)
}

func TestTransport_AcceptAnswersOffer(t *testing.T) {
	tr := NewTransport(Config{}, &fakeRendezvous{})
	links := fakeLinks(tr)

	sdp, err := tr.Accept(context.Background(), "station", "their-offer")
	require.NoError(t, err)
	assert.Equal(t, "answer-sdp", sdp)
	offer, _, _ := links.last("station").state()
	assert.Equal(t, "their-offer", offer)
}

func TestTransport_InviteTimeout(t *testing.T) {
	tr := NewTransport(Config{InviteTimeout: 20 * time.Millisecond}, &fakeRendezvous{})
	links := fakeLinks(tr)
	failures := make(chan *apperr.Error, 1)
	tr.OnFailure(func(err *apperr.Error) { failures <- err })

	_, err := tr.Invite(context.Background(), "dev")
	require.NoError(t, err)

	select {
	case f := <-failures:
		assert.Equal(t, apperr.KindTimeout, f.Kind)
	case <-time.After(time.Second):
		t.Fatal("no timeout failure")
	}
	assert.False(t, tr.Linked("dev"))
	assert.True(t, links.last("dev").isClosed())
}

func TestTransport_OpenedInviteDoesNotTimeOut(t *testing.T) {
	tr := NewTransport(Config{InviteTimeout: 20 * time.Millisecond}, &fakeRendezvous{})
	links := fakeLinks(tr)
	var failed bool
	var mu sync.Mutex
	tr.OnFailure(func(*apperr.Error) {
		mu.Lock()
		failed = true
		mu.Unlock()
	})

	_, err := tr.Invite(context.Background(), "dev")
	require.NoError(t, err)
	links.last("dev").open()

	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, failed)
	assert.True(t, tr.Linked("dev"))
}

func TestTransport_ReinviteReplacesLink(t *testing.T) {
	tr := NewTransport(Config{InviteTimeout: time.Hour}, &fakeRendezvous{})
	ev := watch(tr)
	links := fakeLinks(tr)
	ctx := context.Background()

	_, err := tr.Invite(ctx, "dev")
	require.NoError(t, err)
	first := links.last("dev")
	first.open()

	_, err = tr.Invite(ctx, "dev")
	require.NoError(t, err)
	assert.True(t, first.isClosed())
	links.last("dev").open()

	waitEvents(t, ev, "connected:dev", "disconnected:dev", "connected:dev")
	assert.Equal(t, []domain.PeerID{"dev"}, tr.Peers())
}

// A slow disconnect handler from before Stop must still run before the next
// link to the same peer reports connected.
func TestTransport_RestartKeepsPeerOrder(t *testing.T) {
	tr := NewTransport(Config{InviteTimeout: time.Hour}, &fakeRendezvous{})
	ev := &events{}
	gate := make(chan struct{})
	tr.OnPeerConnected(func(p domain.PeerID) { ev.add("connected:" + string(p)) })
	tr.OnPeerDisconnected(func(p domain.PeerID) {
		<-gate
		ev.add("disconnected:" + string(p))
	})
	links := fakeLinks(tr)
	ctx := context.Background()

	_, err := tr.Invite(ctx, "dev")
	require.NoError(t, err)
	links.last("dev").open()
	waitEvents(t, ev, "connected:dev")

	require.NoError(t, tr.Stop())
	require.NoError(t, tr.StartBrowsing(ctx))
	_, err = tr.Invite(ctx, "dev")
	require.NoError(t, err)
	links.last("dev").open()

	// the new connected is queued behind the held disconnect
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{"connected:dev"}, ev.snapshot())

	close(gate)
	waitEvents(t, ev, "connected:dev", "disconnected:dev", "connected:dev")
	assert.Equal(t, []domain.PeerID{"dev"}, tr.Peers())
}
