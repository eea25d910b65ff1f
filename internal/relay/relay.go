// Package relay implements the session relay client: one process can present
// its action stream to a relay server, or watch another process's stream and
// replay it into its own store.
//
// A Relay is a small state machine over three roles. A process is Idle,
// Presenting, or Watching; the roles are mutually exclusive and every failure
// path lands back in Idle. Watching is terminal per session: once the channel
// closes, no reconnect is attempted.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"sharecast/internal/logger"
	"sharecast/internal/wire"
)

// Role is the relay's current session role.
type Role string

const (
	RoleIdle       Role = "idle"
	RolePresenting Role = "presenting"
	RoleWatching   Role = "watching"
)

// ErrNotIdle is returned when a session start is requested while another
// session is active.
var ErrNotIdle = errors.New("relay: session already active")

// ErrNotPresenting is returned by StopPresenting outside the Presenting role.
var ErrNotPresenting = errors.New("relay: not presenting")

// EventKind identifies a lifecycle notification.
type EventKind string

const (
	EventPresentStarted EventKind = "present-started"
	EventPresentStopped EventKind = "present-stopped"
	EventPresentFailed  EventKind = "present-failed"
	EventWatchStarted   EventKind = "watch-started"
	EventWatchStopped   EventKind = "watch-stopped"
	EventWatchFailed    EventKind = "watch-failed"
)

// Event is a lifecycle notification emitted by the relay.
type Event struct {
	Kind      EventKind
	SessionID string
	// WatchURL is the shareable link; set on EventPresentStarted.
	WatchURL string
	// Err carries the cause for the failed kinds.
	Err error
}

// Config wires a Relay to its process.
type Config struct {
	// Endpoint is the relay server websocket URL, e.g. "ws://host/share".
	Endpoint string
	// ShareBase is the origin+path watch links are built from; the session id
	// is appended as the "watching" query parameter.
	ShareBase string
	// Dial opens the channel. Defaults to the websocket dialer.
	Dial DialFunc
	// Dispatch re-dispatches one relayed action descriptor into the local
	// store. Called from a single goroutine, strictly in arrival order.
	Dispatch func(raw []byte)
	// Reset returns the local store to its initial state. Invoked once per
	// watch session, before any replayed action is dispatched.
	Reset func()
	// Notify observes lifecycle events. Optional.
	Notify func(Event)
}

// Relay coordinates at most one presenter or watcher session for a process.
type Relay struct {
	cfg Config

	mu        sync.Mutex
	role      Role
	sessionID string
	channel   Channel
	// gen increments on every role transition so goroutines observing a
	// closed channel can tell whether their session is still the live one.
	gen uint64
}

// New creates an idle relay.
func New(cfg Config) *Relay {
	if cfg.Dial == nil {
		cfg.Dial = Dial
	}
	return &Relay{cfg: cfg, role: RoleIdle}
}

// Role returns the current session role.
func (r *Relay) Role() Role {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.role
}

// SessionID returns the active session id, or "" when idle.
func (r *Relay) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID
}

// WatchURL builds the shareable link for a session id.
func (r *Relay) WatchURL(sessionID string) string {
	return fmt.Sprintf("%s?watching=%s", r.cfg.ShareBase, url.QueryEscape(sessionID))
}

// WatchParam extracts the "watching" query parameter from a URL, or "" when
// absent. Processes call TryStartWatching with the result at startup.
func WatchParam(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("watching")
}

// StartPresenting opens a channel to the relay endpoint, performs the
// presenter handshake, and transitions to Presenting.
//
// If the channel fails before the server's SESSION_STARTED frame arrives the
// relay stays Idle, emits EventPresentFailed, and returns the error.
func (r *Relay) StartPresenting(ctx context.Context) error {
	r.mu.Lock()
	if r.role != RoleIdle {
		r.mu.Unlock()
		return ErrNotIdle
	}
	r.mu.Unlock()

	id, ch, err := r.presentHandshake(ctx)
	if err != nil {
		r.notify(Event{Kind: EventPresentFailed, Err: err})
		return err
	}

	r.mu.Lock()
	if r.role != RoleIdle {
		// Lost a race with another session start.
		r.mu.Unlock()
		_ = ch.Close()
		return ErrNotIdle
	}
	r.role = RolePresenting
	r.sessionID = id
	r.channel = ch
	r.gen++
	gen := r.gen
	r.mu.Unlock()

	go r.watchChannelClose(ch, gen, EventPresentStopped)

	watchURL := r.WatchURL(id)
	logger.Infof("[relay] presenting session %s (%s)", id, watchURL)
	r.notify(Event{Kind: EventPresentStarted, SessionID: id, WatchURL: watchURL})
	return nil
}

func (r *Relay) presentHandshake(ctx context.Context) (string, Channel, error) {
	ch, err := r.cfg.Dial(ctx, r.cfg.Endpoint)
	if err != nil {
		return "", nil, fmt.Errorf("start presenting: %w", err)
	}

	frame, err := wire.Encode(wire.StartSharing())
	if err != nil {
		_ = ch.Close()
		return "", nil, err
	}
	if err := ch.Send(ctx, frame); err != nil {
		_ = ch.Close()
		return "", nil, fmt.Errorf("start presenting: %w", err)
	}

	raw, err := ch.Next(ctx)
	if err != nil {
		_ = ch.Close()
		return "", nil, fmt.Errorf("start presenting: channel closed before session started: %w", err)
	}
	msg, err := wire.Decode(raw)
	if err != nil {
		_ = ch.Close()
		return "", nil, fmt.Errorf("start presenting: %w", err)
	}
	if msg.Type != wire.TypeSessionStarted {
		_ = ch.Close()
		return "", nil, fmt.Errorf("start presenting: unexpected frame %s", msg.Type)
	}
	return msg.ID, ch, nil
}

// StopPresenting closes the channel and returns to Idle.
func (r *Relay) StopPresenting() error {
	r.mu.Lock()
	if r.role != RolePresenting {
		r.mu.Unlock()
		return ErrNotPresenting
	}
	ch := r.channel
	id := r.sessionID
	r.toIdleLocked()
	r.mu.Unlock()

	_ = ch.Close()
	logger.Infof("[relay] stopped presenting session %s", id)
	r.notify(Event{Kind: EventPresentStopped, SessionID: id})
	return nil
}

// RelayAction forwards one locally dispatched action descriptor to the
// server. It silently drops the action unless the relay is Presenting with an
// open channel, so a user action racing an in-flight stop is never an error.
func (r *Relay) RelayAction(ctx context.Context, raw []byte) {
	r.mu.Lock()
	ch := r.channel
	presenting := r.role == RolePresenting && ch != nil
	r.mu.Unlock()
	if !presenting {
		return
	}

	select {
	case <-ch.Done():
		return
	default:
	}

	frame, err := wire.Encode(wire.NewAction(raw))
	if err != nil {
		logger.Warnf("[relay] unencodable action dropped: %v", err)
		return
	}
	if err := ch.Send(ctx, frame); err != nil {
		logger.Debugf("[relay] action dropped on closing channel: %v", err)
	}
}

// TryStartWatching joins the session identified by sessionID. An empty id is
// a no-op: the process stays Idle and behaves as a standalone instance.
//
// On success the local store is reset, the relay transitions to Watching, and
// a receive loop dispatches every inbound frame in arrival order until the
// channel closes. Close is terminal for the session; the relay returns to
// Idle and never reconnects on its own.
func (r *Relay) TryStartWatching(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	r.mu.Lock()
	if r.role != RoleIdle {
		r.mu.Unlock()
		return ErrNotIdle
	}
	r.mu.Unlock()

	ch, err := r.cfg.Dial(ctx, r.cfg.Endpoint)
	if err != nil {
		err = fmt.Errorf("start watching: %w", err)
		r.notify(Event{Kind: EventWatchFailed, SessionID: sessionID, Err: err})
		return err
	}

	// Reset before anything else so replayed history starts from a clean
	// slate rather than double-applying on top of local state.
	if r.cfg.Reset != nil {
		r.cfg.Reset()
	}

	frame, err := wire.Encode(wire.StartWatching(sessionID))
	if err != nil {
		_ = ch.Close()
		return err
	}
	if err := ch.Send(ctx, frame); err != nil {
		_ = ch.Close()
		err = fmt.Errorf("start watching: %w", err)
		r.notify(Event{Kind: EventWatchFailed, SessionID: sessionID, Err: err})
		return err
	}

	r.mu.Lock()
	if r.role != RoleIdle {
		r.mu.Unlock()
		_ = ch.Close()
		return ErrNotIdle
	}
	r.role = RoleWatching
	r.sessionID = sessionID
	r.channel = ch
	r.gen++
	gen := r.gen
	r.mu.Unlock()

	logger.Infof("[relay] watching session %s", sessionID)
	r.notify(Event{Kind: EventWatchStarted, SessionID: sessionID})

	go r.receiveLoop(ch, gen, sessionID)
	return nil
}

// receiveLoop dispatches inbound frames one at a time, preserving arrival
// order. Each frame is the raw inner action the presenter sent; the server
// has already unwrapped NEW_ACTION.
func (r *Relay) receiveLoop(ch Channel, gen uint64, sessionID string) {
	for {
		raw, err := ch.Next(context.Background())
		if err != nil {
			break
		}
		if r.cfg.Dispatch != nil {
			r.cfg.Dispatch(raw)
		}
	}

	r.mu.Lock()
	if r.gen != gen {
		// A newer session replaced this one; nothing to clean up.
		r.mu.Unlock()
		return
	}
	r.toIdleLocked()
	r.mu.Unlock()

	logger.Infof("[relay] stopped watching session %s", sessionID)
	r.notify(Event{Kind: EventWatchStopped, SessionID: sessionID})
}

// watchChannelClose returns the relay to Idle when a presenter channel closes
// underneath it. An explicit StopPresenting bumps gen first, so this emits
// nothing for deliberate stops.
func (r *Relay) watchChannelClose(ch Channel, gen uint64, kind EventKind) {
	<-ch.Done()

	r.mu.Lock()
	if r.gen != gen {
		r.mu.Unlock()
		return
	}
	id := r.sessionID
	r.toIdleLocked()
	r.mu.Unlock()

	logger.Warnf("[relay] session %s channel closed", id)
	r.notify(Event{Kind: kind, SessionID: id})
}

// toIdleLocked clears session state. Caller holds r.mu.
func (r *Relay) toIdleLocked() {
	r.role = RoleIdle
	r.sessionID = ""
	r.channel = nil
	r.gen++
}

func (r *Relay) notify(ev Event) {
	if r.cfg.Notify != nil {
		r.cfg.Notify(ev)
	}
}
