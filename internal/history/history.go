// Package history decorates a reducer with undo/redo capability.
//
// The decorator keeps past and future snapshot stacks privately, in the
// closure of the decorated reducer; consumers only see the present snapshot
// plus the CanUndo/CanRedo flags. Only actions that advance the base
// reducer's progress marker are recorded, so rejected or no-op actions never
// pollute the undo history, and new work invalidates any redo path.
package history

import "sharecast/internal/store"

// Action type discriminators for the history control actions.
const (
	TypeUndo = "UNDO"
	TypeRedo = "REDO"
)

type undoAction struct{}

func (undoAction) ActionType() string { return TypeUndo }

type redoAction struct{}

func (redoAction) ActionType() string { return TypeRedo }

// Undo restores the most recent past snapshot.
var Undo store.Action = undoAction{}

// Redo restores the most recently undone snapshot.
var Redo store.Action = redoAction{}

// State wraps a base snapshot with undo/redo capability flags.
//
// CanUndo is true exactly when the (private) past stack is non-empty, and
// CanRedo exactly when the future stack is non-empty.
type State[S any] struct {
	Present S
	CanUndo bool
	CanRedo bool
}

// Wrap returns the initial decorated state for a base snapshot.
func Wrap[S any](present S) State[S] {
	return State[S]{Present: present}
}

// Decorate wraps base with undo/redo tracking. The marker function extracts
// the base state's progress marker; an action whose reduction leaves the
// marker unchanged is treated as rejected and recorded nowhere.
//
// The returned reducer carries mutable stack state in its closure, so each
// call to Decorate produces a reducer for exactly one store.
func Decorate[S any](base store.Reducer[S], marker func(S) int64) store.Reducer[State[S]] {
	var past, future []S

	return func(state State[S], action store.Action) State[S] {
		switch action.(type) {
		case undoAction:
			if len(past) == 0 {
				return state
			}
			restored := past[len(past)-1]
			past = past[:len(past)-1]
			future = append(future, state.Present)
			return State[S]{
				Present: restored,
				CanUndo: len(past) > 0,
				CanRedo: true,
			}

		case redoAction:
			if len(future) == 0 {
				return state
			}
			restored := future[len(future)-1]
			future = future[:len(future)-1]
			past = append(past, state.Present)
			return State[S]{
				Present: restored,
				CanUndo: true,
				CanRedo: len(future) > 0,
			}

		default:
			next := base(state.Present, action)
			if marker(next) == marker(state.Present) {
				return state
			}
			past = append(past, state.Present)
			future = nil
			return State[S]{
				Present: next,
				CanUndo: true,
				CanRedo: false,
			}
		}
	}
}
