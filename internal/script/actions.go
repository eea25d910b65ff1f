package script

import (
	"encoding/json"
	"fmt"

	"sharecast/internal/store"
)

// Action type discriminators, as they appear on the wire.
const (
	TypeSubmitStatement = "SUBMIT_STATEMENT"
	TypeReset           = "RESET"
)

// SubmitStatement submits one line of script to the interpreter.
type SubmitStatement struct {
	// Text is the raw statement text.
	Text string `json:"text"`
}

// ActionType implements store.Action.
func (SubmitStatement) ActionType() string { return TypeSubmitStatement }

// Reset returns the interpreter to its initial state. Watchers dispatch it
// before replaying a presenter's history.
type Reset struct{}

// ActionType implements store.Action.
func (Reset) ActionType() string { return TypeReset }

// actionDescriptor is the JSON shape of a script action on the wire.
type actionDescriptor struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// EncodeAction serializes an action as a wire descriptor.
func EncodeAction(action store.Action) ([]byte, error) {
	desc := actionDescriptor{Type: action.ActionType()}
	switch a := action.(type) {
	case SubmitStatement:
		desc.Text = a.Text
	case Reset:
	default:
		return nil, fmt.Errorf("unencodable action %T", action)
	}
	return json.Marshal(desc)
}

// DecodeAction parses a wire descriptor back into an action. Unknown types
// are an error; the caller decides whether to drop or log the frame.
func DecodeAction(raw []byte) (store.Action, error) {
	var desc actionDescriptor
	if err := json.Unmarshal(raw, &desc); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}
	switch desc.Type {
	case TypeSubmitStatement:
		return SubmitStatement{Text: desc.Text}, nil
	case TypeReset:
		return Reset{}, nil
	default:
		return nil, fmt.Errorf("unknown action type %q", desc.Type)
	}
}
