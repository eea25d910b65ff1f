// Package store provides a small serialized action container: state owned in
// one place, transformed only by a pure reducer, observed through
// subscriptions.
//
// The container guarantees that one action is fully processed (reduced and
// delivered to every subscriber) before the next dispatch begins, so reducers
// and subscribers never observe interleaved transitions.
package store

import "sync"

// Action is an item dispatched into a store.
//
// Actions are plain descriptors; ActionType returns the wire discriminator
// used when an action is serialized for relay.
type Action interface {
	ActionType() string
}

// Reducer is a pure state transition function.
//
// Reducers must be side-effect free and deterministic for a given
// (state, action). An action a reducer does not recognize or rejects must be
// answered by returning the input state unchanged.
type Reducer[S any] func(state S, action Action) S

// Subscriber observes each dispatched action together with the state that
// resulted from it. Subscribers run on the dispatching goroutine and must not
// call Dispatch.
type Subscriber[S any] func(action Action, state S)

type subscription[S any] struct {
	id int
	fn Subscriber[S]
}

// Store owns state of type S and serializes all dispatches against it.
type Store[S any] struct {
	mu     sync.Mutex
	reduce Reducer[S]
	state  S
	nextID int
	subs   []subscription[S]
}

// New creates a store with the given initial state and reducer.
func New[S any](initial S, reduce Reducer[S]) *Store[S] {
	return &Store[S]{
		reduce: reduce,
		state:  initial,
	}
}

// Dispatch runs the reducer against the current state and notifies
// subscribers. It returns the resulting state.
func (s *Store[S]) Dispatch(action Action) S {
	if action == nil {
		return s.State()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = s.reduce(s.state, action)
	for _, sub := range s.subs {
		sub.fn(action, s.state)
	}
	return s.state
}

// State returns a snapshot of the current state.
func (s *Store[S]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers a subscriber and returns a function that removes it.
// Unsubscribing is idempotent.
func (s *Store[S]) Subscribe(fn Subscriber[S]) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription[S]{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}
