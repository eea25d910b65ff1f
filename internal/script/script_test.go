package script

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForwardDrawsAndAdvances(t *testing.T) {
	t.Parallel()

	state := Reduce(Initial(), SubmitStatement{Text: "forward 100"})

	require.Equal(t, int64(1), state.NextInstructionID)
	require.InDelta(t, 0.0, state.Turtle.X, 1e-9)
	require.InDelta(t, 100.0, state.Turtle.Y, 1e-9)
	require.Len(t, state.Lines, 1)
	require.Equal(t, Line{X1: 0, Y1: 0, X2: 0, Y2: 100}, state.Lines[0])
	require.Equal(t, []string{"forward 100"}, state.Statements)
}

func TestRejectedStatementsLeaveStateUntouched(t *testing.T) {
	t.Parallel()

	base := Reduce(Initial(), SubmitStatement{Text: "forward 10"})

	for _, text := range []string{
		"",
		"sideways 10",
		"forward",
		"forward ten",
		"forward 10 20",
		"penup 3",
	} {
		require.Equal(t, base, Reduce(base, SubmitStatement{Text: text}), "statement %q", text)
	}
}

func TestPenUpSuppressesLines(t *testing.T) {
	t.Parallel()

	state := Initial()
	state = Reduce(state, SubmitStatement{Text: "penup"})
	state = Reduce(state, SubmitStatement{Text: "forward 50"})

	require.Equal(t, int64(2), state.NextInstructionID)
	require.Empty(t, state.Lines)
	require.InDelta(t, 50.0, state.Turtle.Y, 1e-9)
}

func TestTurnsNormalizeHeading(t *testing.T) {
	t.Parallel()

	state := Reduce(Initial(), SubmitStatement{Text: "left 90"})
	require.InDelta(t, 270.0, state.Turtle.Heading, 1e-9)

	state = Reduce(state, SubmitStatement{Text: "right 180"})
	require.InDelta(t, 90.0, state.Turtle.Heading, 1e-9)

	state = Reduce(state, SubmitStatement{Text: "forward 10"})
	require.InDelta(t, 10.0, state.Turtle.X, 1e-9)
	require.InDelta(t, 0.0, state.Turtle.Y, 1e-9)
}

func TestAliases(t *testing.T) {
	t.Parallel()

	long := Reduce(Initial(), SubmitStatement{Text: "forward 30"})
	short := Reduce(Initial(), SubmitStatement{Text: "fd 30"})
	require.Equal(t, long.Turtle, short.Turtle)
	require.Equal(t, long.Lines, short.Lines)
}

func TestHomeAndClear(t *testing.T) {
	t.Parallel()

	state := Initial()
	state = Reduce(state, SubmitStatement{Text: "right 90"})
	state = Reduce(state, SubmitStatement{Text: "forward 40"})
	require.NotEmpty(t, state.Lines)

	state = Reduce(state, SubmitStatement{Text: "home"})
	require.Equal(t, Turtle{PenDown: true}, state.Turtle)
	require.NotEmpty(t, state.Lines, "home keeps the drawing")

	state = Reduce(state, SubmitStatement{Text: "clear"})
	require.Empty(t, state.Lines)
}

func TestResetReturnsInitialState(t *testing.T) {
	t.Parallel()

	state := Reduce(Initial(), SubmitStatement{Text: "forward 10"})
	require.Equal(t, Initial(), Reduce(state, Reset{}))
}

func TestSnapshotsDoNotShareLineStorage(t *testing.T) {
	t.Parallel()

	first := Reduce(Initial(), SubmitStatement{Text: "forward 10"})
	second := Reduce(first, SubmitStatement{Text: "forward 10"})
	third := Reduce(first, SubmitStatement{Text: "right 90"})
	third = Reduce(third, SubmitStatement{Text: "forward 10"})

	// Divergent successors of the same snapshot must not clobber each other.
	require.Equal(t, Line{X1: 0, Y1: 10, X2: 0, Y2: 20}, second.Lines[1])
	require.Equal(t, Line{X1: 0, Y1: 10, X2: 10, Y2: 10}, third.Lines[1])
}

func TestActionCodecRoundTrip(t *testing.T) {
	t.Parallel()

	raw, err := EncodeAction(SubmitStatement{Text: "forward 10"})
	require.NoError(t, err)
	action, err := DecodeAction(raw)
	require.NoError(t, err)
	require.Equal(t, SubmitStatement{Text: "forward 10"}, action)

	raw, err = EncodeAction(Reset{})
	require.NoError(t, err)
	action, err = DecodeAction(raw)
	require.NoError(t, err)
	require.Equal(t, Reset{}, action)
}

func TestDecodeActionRejectsUnknownTypes(t *testing.T) {
	t.Parallel()

	_, err := DecodeAction([]byte(`{"type":"LAUNCH_MISSILES"}`))
	require.Error(t, err)

	_, err = DecodeAction([]byte(`not json`))
	require.Error(t, err)
}
