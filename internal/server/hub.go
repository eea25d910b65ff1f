// Package server implements the relay fan-out point: presenters open a
// session, watchers subscribe to it, and every relayed action is logged and
// forwarded in the presenter's send order. Late joiners get the full logged
// history replayed before any live frame.
package server

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"sharecast/internal/logger"
	"sharecast/internal/relay"
	"sharecast/internal/wire"
)

// Hub owns all live sessions.
type Hub struct {
	store Store

	mu       sync.Mutex
	sessions map[string]*session
}

// NewHub creates a hub backed by the given action-log store.
func NewHub(store Store) *Hub {
	return &Hub{
		store:    store,
		sessions: make(map[string]*session),
	}
}

// Serve drives one client connection: it reads the handshake frame and then
// serves the connection as presenter or watcher until its channel closes.
// Serve blocks for the lifetime of the connection.
func (h *Hub) Serve(ctx context.Context, ch relay.Channel) {
	defer ch.Close()

	raw, err := ch.Next(ctx)
	if err != nil {
		return
	}
	msg, err := wire.Decode(raw)
	if err != nil {
		logger.Warnf("[hub] bad handshake frame: %v", err)
		return
	}

	switch msg.Type {
	case wire.TypeStartSharing:
		h.servePresenter(ctx, ch)
	case wire.TypeStartWatching:
		h.serveWatcher(ctx, ch, msg.ID)
	default:
		logger.Warnf("[hub] unexpected handshake type %s", msg.Type)
	}
}

// Close ends every live session. Watcher channels are closed; presenter
// connections observe their session ending when they next enqueue.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.sessions = make(map[string]*session)
	h.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}

func (h *Hub) servePresenter(ctx context.Context, ch relay.Channel) {
	sess, err := h.startSession(ctx)
	if err != nil {
		logger.Errorf("[hub] failed to start session: %v", err)
		return
	}
	defer h.endSession(sess)

	frame, err := wire.Encode(wire.SessionStarted(sess.id))
	if err != nil {
		return
	}
	if err := ch.Send(ctx, frame); err != nil {
		return
	}
	logger.Infof("[hub] session %s started", sess.id)

	for {
		raw, err := ch.Next(ctx)
		if err != nil {
			logger.Infof("[hub] session %s presenter disconnected", sess.id)
			return
		}
		msg, err := wire.Decode(raw)
		if err != nil {
			logger.Warnf("[hub] session %s: dropped bad frame: %v", sess.id, err)
			continue
		}
		if msg.Type != wire.TypeNewAction {
			logger.Warnf("[hub] session %s: unexpected frame %s", sess.id, msg.Type)
			continue
		}
		sess.enqueue(actionEvent{raw: msg.InnerAction})
	}
}

func (h *Hub) serveWatcher(ctx context.Context, ch relay.Channel, sessionID string) {
	sess := h.session(sessionID)
	if sess == nil {
		logger.Warnf("[hub] watcher requested unknown session %s", sessionID)
		return
	}

	sess.enqueue(joinEvent{ch: ch})
	select {
	case <-ch.Done():
		sess.enqueue(leaveEvent{ch: ch})
	case <-sess.done:
	case <-ctx.Done():
	}
}

func (h *Hub) startSession(ctx context.Context) (*session, error) {
	id := uuid.NewString()
	if err := h.store.CreateSession(ctx, id); err != nil {
		return nil, err
	}

	s := newSession(id, h.store)
	h.mu.Lock()
	h.sessions[id] = s
	h.mu.Unlock()

	go s.loop()
	return s, nil
}

func (h *Hub) session(id string) *session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessions[id]
}

func (h *Hub) endSession(s *session) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	h.mu.Unlock()
	s.close()
	logger.Infof("[hub] session %s ended", s.id)
}

// Session events. All mutation of a session's watcher set and log sequence
// happens inside the session loop, which serializes appends, joins, and
// leaves so replay can never interleave with a live frame.

type actionEvent struct{ raw []byte }

type joinEvent struct{ ch relay.Channel }

type leaveEvent struct{ ch relay.Channel }

type session struct {
	id    string
	store Store

	events    chan any
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(id string, store Store) *session {
	return &session{
		id:     id,
		store:  store,
		events: make(chan any, 256),
		done:   make(chan struct{}),
	}
}

// enqueue blocks rather than drops: within a live session the fan-out must
// preserve order and lose nothing.
func (s *session) enqueue(evt any) {
	select {
	case s.events <- evt:
	case <-s.done:
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *session) loop() {
	ctx := context.Background()
	var watchers []relay.Channel
	var seq int64

	for {
		select {
		case <-s.done:
			for _, w := range watchers {
				_ = w.Close()
			}
			if err := s.store.EndSession(ctx, s.id); err != nil {
				logger.Warnf("[hub] session %s: failed to mark ended: %v", s.id, err)
			}
			return

		case evt := <-s.events:
			switch e := evt.(type) {
			case actionEvent:
				seq++
				if err := s.store.AppendAction(ctx, s.id, seq, e.raw); err != nil {
					logger.Errorf("[hub] session %s: failed to log action %d: %v", s.id, seq, err)
				}
				live := watchers[:0]
				for _, w := range watchers {
					if err := w.Send(ctx, e.raw); err != nil {
						_ = w.Close()
						continue
					}
					live = append(live, w)
				}
				watchers = live

			case joinEvent:
				replay, err := s.store.Actions(ctx, s.id)
				if err != nil {
					logger.Errorf("[hub] session %s: replay failed: %v", s.id, err)
					_ = e.ch.Close()
					continue
				}
				joined := true
				for _, raw := range replay {
					if err := e.ch.Send(ctx, raw); err != nil {
						_ = e.ch.Close()
						joined = false
						break
					}
				}
				if joined {
					watchers = append(watchers, e.ch)
					logger.Debugf("[hub] session %s: watcher joined after %d replayed actions", s.id, len(replay))
				}

			case leaveEvent:
				for i, w := range watchers {
					if w == e.ch {
						watchers = append(watchers[:i], watchers[i+1:]...)
						break
					}
				}
			}
		}
	}
}
