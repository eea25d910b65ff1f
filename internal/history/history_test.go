package history

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sharecast/internal/store"
)

// counterState is a minimal base domain: Marker only moves when an action is
// accepted.
type counterState struct {
	Marker int64
	Value  int
}

type setValue struct{ v int }

func (setValue) ActionType() string { return "SET_VALUE" }

// malformed is rejected by the base reducer: the state passes through
// unchanged and the marker does not move.
type malformed struct{}

func (malformed) ActionType() string { return "MALFORMED" }

func reduceCounter(s counterState, a store.Action) counterState {
	switch a := a.(type) {
	case setValue:
		return counterState{Marker: s.Marker + 1, Value: a.v}
	default:
		return s
	}
}

func newCounterStore() *store.Store[State[counterState]] {
	return store.New(
		Wrap(counterState{}),
		Decorate(reduceCounter, func(s counterState) int64 { return s.Marker }),
	)
}

func TestUndoRedoRoundTrip(t *testing.T) {
	t.Parallel()

	st := newCounterStore()
	initial := st.State()

	const n = 5
	for i := 1; i <= n; i++ {
		st.Dispatch(setValue{v: i * 10})
	}
	for i := 0; i < n; i++ {
		st.Dispatch(Undo)
	}

	final := st.State()
	require.Equal(t, initial.Present, final.Present)
	require.False(t, final.CanUndo)
	require.True(t, final.CanRedo)
}

func TestRedoRestoresExactly(t *testing.T) {
	t.Parallel()

	st := newCounterStore()
	st.Dispatch(setValue{v: 10})
	st.Dispatch(setValue{v: 20})
	beforeUndo := st.State()

	st.Dispatch(Undo)
	redone := st.Dispatch(Redo)

	require.Equal(t, beforeUndo, redone)
}

func TestRejectedActionsAreInvisibleToHistory(t *testing.T) {
	t.Parallel()

	st := newCounterStore()
	st.Dispatch(setValue{v: 10})
	before := st.State()

	after := st.Dispatch(malformed{})

	require.Equal(t, before, after)
	require.True(t, after.CanUndo)
	require.False(t, after.CanRedo)

	// Undo must skip straight past the rejected action to the real history.
	undone := st.Dispatch(Undo)
	require.Equal(t, counterState{}, undone.Present)
}

func TestNewWorkClearsRedo(t *testing.T) {
	t.Parallel()

	st := newCounterStore()
	st.Dispatch(setValue{v: 1})
	st.Dispatch(Undo)
	require.True(t, st.State().CanRedo)

	after := st.Dispatch(setValue{v: 2})
	require.False(t, after.CanRedo)
	require.True(t, after.CanUndo)
	require.Equal(t, 2, after.Present.Value)

	// The redo path was invalidated, so redo is now a no-op.
	require.Equal(t, after, st.Dispatch(Redo))
}

func TestUndoWithEmptyPastIsNoop(t *testing.T) {
	t.Parallel()

	st := newCounterStore()
	before := st.State()
	require.Equal(t, before, st.Dispatch(Undo))
}

func TestRedoWithEmptyFutureIsNoop(t *testing.T) {
	t.Parallel()

	st := newCounterStore()
	st.Dispatch(setValue{v: 1})
	before := st.State()
	require.Equal(t, before, st.Dispatch(Redo))
}

// TestScenario walks the full documented sequence: advance, reject, undo,
// redo — checking flags and snapshots at each step.
func TestScenario(t *testing.T) {
	t.Parallel()

	st := newCounterStore()

	state := st.Dispatch(setValue{v: 10})
	require.Equal(t, counterState{Marker: 1, Value: 10}, state.Present)
	require.True(t, state.CanUndo)
	require.False(t, state.CanRedo)

	state = st.Dispatch(malformed{})
	require.Equal(t, counterState{Marker: 1, Value: 10}, state.Present)
	require.True(t, state.CanUndo)

	state = st.Dispatch(Undo)
	require.Equal(t, counterState{Marker: 0, Value: 0}, state.Present)
	require.False(t, state.CanUndo)
	require.True(t, state.CanRedo)

	state = st.Dispatch(Redo)
	require.Equal(t, counterState{Marker: 1, Value: 10}, state.Present)
	require.True(t, state.CanUndo)
	require.False(t, state.CanRedo)
}

func TestInterleavedUndoRedoKeepsLinearTimeline(t *testing.T) {
	t.Parallel()

	st := newCounterStore()
	st.Dispatch(setValue{v: 1})
	st.Dispatch(setValue{v: 2})
	st.Dispatch(setValue{v: 3})

	st.Dispatch(Undo) // -> 2
	st.Dispatch(Undo) // -> 1
	state := st.Dispatch(Redo) // -> 2
	require.Equal(t, 2, state.Present.Value)
	require.True(t, state.CanUndo)
	require.True(t, state.CanRedo)

	state = st.Dispatch(Redo) // -> 3
	require.Equal(t, 3, state.Present.Value)
	require.False(t, state.CanRedo)
}
