// Package gamestate manipulates the arbitrary JSON state blob a session
// owns: deep cloning, size accounting, and the convention-based ephemeral
// action log kept inside the blob itself.
package gamestate

import (
	"encoding/json"
	"fmt"
	"time"
)

// Reserved state keys for the per-phase action log.
const (
	ActionsKey      = "actions"
	ActionCountsKey = "actionCounts"
)

// State is the session's mutable JSON state blob.
type State map[string]any

// ActionEntry is one logged action inside the state blob.
type ActionEntry struct {
	ParticipantID string         `json:"participantId"`
	Action        string         `json:"action"`
	Params        map[string]any `json:"params,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// Clone deep-copies the state via a JSON round trip. The returned state
// never aliases the input, so a discarded clone cannot corrupt the original.
func Clone(state State) (State, error) {
	if state == nil {
		return State{}, nil
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	var clone State
	if err := json.Unmarshal(raw, &clone); err != nil {
		return nil, fmt.Errorf("unmarshal state clone: %w", err)
	}
	if clone == nil {
		clone = State{}
	}
	return clone, nil
}

// Size returns the serialized byte length of the state blob.
func Size(state State) (int, error) {
	if state == nil {
		return len("{}"), nil
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return 0, fmt.Errorf("marshal state: %w", err)
	}
	return len(raw), nil
}

// AppendAction records an action in the ephemeral log: it appends an entry
// to state.actions and increments state.actionCounts["<phase>:<action>"].
func AppendAction(state State, phase string, entry ActionEntry) {
	if state == nil {
		return
	}

	record := map[string]any{
		"participantId": entry.ParticipantID,
		"action":        entry.Action,
		"timestamp":     entry.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if len(entry.Params) > 0 {
		record["params"] = entry.Params
	}

	actions, _ := state[ActionsKey].([]any)
	state[ActionsKey] = append(actions, record)

	counts, _ := state[ActionCountsKey].(map[string]any)
	if counts == nil {
		counts = map[string]any{}
	}
	key := phase + ":" + entry.Action
	current, _ := counts[key].(float64)
	counts[key] = current + 1
	state[ActionCountsKey] = counts
}

// ResetActionLog clears the per-phase action log. Called on every phase
// transition regardless of trigger.
func ResetActionLog(state State) {
	if state == nil {
		return
	}
	state[ActionsKey] = []any{}
	state[ActionCountsKey] = map[string]any{}
}

// ActionCount returns the logged count for a phase/action pair.
func ActionCount(state State, phase, action string) int {
	counts, _ := state[ActionCountsKey].(map[string]any)
	if counts == nil {
		return 0
	}
	value, _ := counts[phase+":"+action].(float64)
	return int(value)
}
