// Package script implements the turtle-script interpreter that sharecast
// stores and relays. The interpreter is a pure reducer over an immutable
// State; every accepted statement advances NextInstructionID, and rejected
// input leaves the state untouched.
package script

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"sharecast/internal/store"
)

// Turtle is the pen position and orientation. Heading is in degrees,
// 0 pointing up, increasing clockwise.
type Turtle struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
	PenDown bool    `json:"penDown"`
}

// Line is one drawn segment.
type Line struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// State is the interpreter state. NextInstructionID counts accepted
// statements and only moves when a statement is actually applied, which is
// what lets callers distinguish progress from rejection.
type State struct {
	NextInstructionID int64    `json:"nextInstructionId"`
	Turtle            Turtle   `json:"turtle"`
	Lines             []Line   `json:"lines"`
	Statements        []string `json:"statements"`
}

// Initial returns the interpreter's starting state: turtle at home, pen down.
func Initial() State {
	return State{
		Turtle: Turtle{PenDown: true},
	}
}

// Marker extracts the progress marker from a state. It is the marker function
// handed to the history decorator.
func Marker(s State) int64 {
	return s.NextInstructionID
}

// Reduce applies one action to the state. Unknown actions and statements that
// fail to parse return the input state unchanged.
func Reduce(state State, action store.Action) State {
	switch a := action.(type) {
	case Reset:
		return Initial()
	case SubmitStatement:
		op, err := parse(a.Text)
		if err != nil {
			return state
		}
		return apply(state, a.Text, op)
	default:
		return state
	}
}

type operation struct {
	name string
	arg  float64
}

func parse(text string) (operation, error) {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return operation{}, fmt.Errorf("empty statement")
	}

	name := fields[0]
	switch name {
	case "fd":
		name = "forward"
	case "bk":
		name = "backward"
	case "lt":
		name = "left"
	case "rt":
		name = "right"
	}

	switch name {
	case "forward", "backward", "left", "right":
		if len(fields) != 2 {
			return operation{}, fmt.Errorf("%s requires exactly one argument", name)
		}
		arg, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return operation{}, fmt.Errorf("%s: bad argument %q", name, fields[1])
		}
		return operation{name: name, arg: arg}, nil
	case "penup", "pendown", "home", "clear":
		if len(fields) != 1 {
			return operation{}, fmt.Errorf("%s takes no arguments", name)
		}
		return operation{name: name}, nil
	default:
		return operation{}, fmt.Errorf("unknown command %q", fields[0])
	}
}

// apply executes a parsed operation. Slices are cloned before appending so
// snapshots held by undo history never share mutable backing arrays.
func apply(state State, text string, op operation) State {
	next := state
	next.NextInstructionID++
	next.Statements = append(slices.Clone(state.Statements), text)
	next.Lines = slices.Clone(state.Lines)

	switch op.name {
	case "forward":
		next.Turtle, next.Lines = move(state.Turtle, op.arg, next.Lines)
	case "backward":
		next.Turtle, next.Lines = move(state.Turtle, -op.arg, next.Lines)
	case "left":
		next.Turtle.Heading = normalize(state.Turtle.Heading - op.arg)
	case "right":
		next.Turtle.Heading = normalize(state.Turtle.Heading + op.arg)
	case "penup":
		next.Turtle.PenDown = false
	case "pendown":
		next.Turtle.PenDown = true
	case "home":
		next.Turtle.X = 0
		next.Turtle.Y = 0
		next.Turtle.Heading = 0
	case "clear":
		next.Lines = nil
	}
	return next
}

// move advances the turtle and records a segment when the pen is down. The
// lines slice has already been cloned by apply, so appending here is safe.
func move(turtle Turtle, distance float64, lines []Line) (Turtle, []Line) {
	rad := turtle.Heading * math.Pi / 180
	moved := turtle
	moved.X = round(turtle.X + distance*math.Sin(rad))
	moved.Y = round(turtle.Y + distance*math.Cos(rad))
	if turtle.PenDown {
		lines = append(lines, Line{X1: turtle.X, Y1: turtle.Y, X2: moved.X, Y2: moved.Y})
	}
	return moved, lines
}

func normalize(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// round trims float noise so states produced by equivalent statement
// sequences compare deep-equal.
func round(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}
