package server

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// ErrUnknownSession is returned for lookups of session ids the store has
// never seen.
var ErrUnknownSession = errors.New("unknown session")

// Store persists the per-session action log the hub replays to late joiners.
type Store interface {
	CreateSession(ctx context.Context, sessionID string) error
	AppendAction(ctx context.Context, sessionID string, seq int64, action []byte) error
	// Actions returns the logged actions for a session in seq order.
	Actions(ctx context.Context, sessionID string) ([][]byte, error)
	EndSession(ctx context.Context, sessionID string) error
}

// MemStore is an in-memory Store used in tests and for ephemeral deployments.
type MemStore struct {
	mu       sync.Mutex
	sessions map[string][][]byte
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{sessions: make(map[string][][]byte)}
}

// CreateSession implements Store.
func (m *MemStore) CreateSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		m.sessions[sessionID] = nil
	}
	return nil
}

// AppendAction implements Store. Appends arrive in seq order from the
// session loop, so seq is recorded implicitly by position.
func (m *MemStore) AppendAction(_ context.Context, sessionID string, _ int64, action []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return ErrUnknownSession
	}
	m.sessions[sessionID] = append(m.sessions[sessionID], slices.Clone(action))
	return nil
}

// Actions implements Store.
func (m *MemStore) Actions(_ context.Context, sessionID string) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	actions, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrUnknownSession
	}
	out := make([][]byte, len(actions))
	for i, a := range actions {
		out[i] = slices.Clone(a)
	}
	return out, nil
}

// EndSession implements Store. The log is kept; only liveness is external.
func (m *MemStore) EndSession(context.Context, string) error { return nil }
