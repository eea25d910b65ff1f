package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sharecast/internal/relay"
	"sharecast/internal/wire"
)

// fakeChannel is an in-memory relay.Channel for driving the hub from tests.
type fakeChannel struct {
	mu   sync.Mutex
	sent [][]byte

	inbound   chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		inbound: make(chan []byte, 64),
		done:    make(chan struct{}),
	}
}

func (c *fakeChannel) Send(_ context.Context, frame []byte) error {
	select {
	case <-c.done:
		return relay.ErrChannelClosed
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, frame)
	return nil
}

func (c *fakeChannel) Next(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-c.inbound:
		return frame, nil
	default:
	}
	select {
	case frame := <-c.inbound:
		return frame, nil
	case <-c.done:
		return nil, relay.ErrChannelClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeChannel) Done() <-chan struct{} { return c.done }

func (c *fakeChannel) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *fakeChannel) push(t *testing.T, m wire.Message) {
	t.Helper()
	raw, err := wire.Encode(m)
	require.NoError(t, err)
	c.inbound <- raw
}

func (c *fakeChannel) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *fakeChannel) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// startPresenter drives the presenter handshake and returns the assigned
// session id.
func startPresenter(t *testing.T, hub *Hub) *fakeChannel {
	t.Helper()
	ch := newFakeChannel()
	go hub.Serve(context.Background(), ch)
	ch.push(t, wire.StartSharing())

	require.Eventually(t, func() bool {
		return len(ch.received()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	return ch
}

func sessionIDOf(t *testing.T, presenter *fakeChannel) string {
	t.Helper()
	msg, err := wire.Decode(presenter.received()[0])
	require.NoError(t, err)
	require.Equal(t, wire.TypeSessionStarted, msg.Type)
	require.NotEmpty(t, msg.ID)
	return msg.ID
}

func TestPresenterHandshakeAssignsSessionID(t *testing.T) {
	t.Parallel()

	store := NewMemStore()
	hub := NewHub(store)
	defer hub.Close()

	presenter := startPresenter(t, hub)
	id := sessionIDOf(t, presenter)

	actions, err := store.Actions(context.Background(), id)
	require.NoError(t, err)
	require.Empty(t, actions)
}

func TestFanOutPreservesOrderAndReplaysToLateJoiners(t *testing.T) {
	t.Parallel()

	hub := NewHub(NewMemStore())
	defer hub.Close()

	presenter := startPresenter(t, hub)
	id := sessionIDOf(t, presenter)

	actionA := []byte(`{"type":"SUBMIT_STATEMENT","text":"forward 10"}`)
	actionB := []byte(`{"type":"SUBMIT_STATEMENT","text":"right 90"}`)
	actionC := []byte(`{"type":"SUBMIT_STATEMENT","text":"forward 20"}`)

	early := newFakeChannel()
	go hub.Serve(context.Background(), early)
	early.push(t, wire.StartWatching(id))

	presenter.push(t, wire.NewAction(actionA))
	presenter.push(t, wire.NewAction(actionB))

	require.Eventually(t, func() bool {
		return len(early.received()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	// Late joiner gets the full history replayed before anything live.
	late := newFakeChannel()
	go hub.Serve(context.Background(), late)
	late.push(t, wire.StartWatching(id))

	require.Eventually(t, func() bool {
		return len(late.received()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	presenter.push(t, wire.NewAction(actionC))

	require.Eventually(t, func() bool {
		return len(early.received()) == 3 && len(late.received()) == 3
	}, 2*time.Second, 10*time.Millisecond)

	want := [][]byte{actionA, actionB, actionC}
	for i, raw := range early.received() {
		require.JSONEq(t, string(want[i]), string(raw))
	}
	for i, raw := range late.received() {
		require.JSONEq(t, string(want[i]), string(raw))
	}
}

func TestWatcherForUnknownSessionIsClosed(t *testing.T) {
	t.Parallel()

	hub := NewHub(NewMemStore())
	defer hub.Close()

	watcher := newFakeChannel()
	go hub.Serve(context.Background(), watcher)
	watcher.push(t, wire.StartWatching("no-such-session"))

	require.Eventually(t, watcher.closed, 2*time.Second, 10*time.Millisecond)
	require.Empty(t, watcher.received())
}

func TestPresenterDisconnectEndsSessionAndClosesWatchers(t *testing.T) {
	t.Parallel()

	hub := NewHub(NewMemStore())
	defer hub.Close()

	presenter := startPresenter(t, hub)
	id := sessionIDOf(t, presenter)

	watcher := newFakeChannel()
	go hub.Serve(context.Background(), watcher)
	watcher.push(t, wire.StartWatching(id))

	// Make sure the watcher is registered before the presenter drops.
	presenter.push(t, wire.NewAction([]byte(`{"type":"RESET"}`)))
	require.Eventually(t, func() bool {
		return len(watcher.received()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	presenter.Close()

	require.Eventually(t, watcher.closed, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return hub.session(id) == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBadFramesFromPresenterAreDropped(t *testing.T) {
	t.Parallel()

	hub := NewHub(NewMemStore())
	defer hub.Close()

	presenter := startPresenter(t, hub)
	id := sessionIDOf(t, presenter)

	watcher := newFakeChannel()
	go hub.Serve(context.Background(), watcher)
	watcher.push(t, wire.StartWatching(id))

	presenter.inbound <- []byte(`garbage`)
	presenter.push(t, wire.StartSharing()) // wrong type mid-session
	presenter.push(t, wire.NewAction([]byte(`{"type":"RESET"}`)))

	require.Eventually(t, func() bool {
		return len(watcher.received()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.JSONEq(t, `{"type":"RESET"}`, string(watcher.received()[0]))
}

func TestHubCloseEndsAllSessions(t *testing.T) {
	t.Parallel()

	hub := NewHub(NewMemStore())

	presenter := startPresenter(t, hub)
	id := sessionIDOf(t, presenter)

	watcher := newFakeChannel()
	go hub.Serve(context.Background(), watcher)
	watcher.push(t, wire.StartWatching(id))

	hub.Close()

	require.Eventually(t, watcher.closed, 2*time.Second, 10*time.Millisecond)
}
