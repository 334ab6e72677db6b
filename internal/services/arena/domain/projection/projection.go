// Package projection derives role-scoped views of session state. Only the
// keys a role's visibleState whitelist names are copied out; everything else
// stays hidden from that role's participants and agents.
package projection

import (
	"fmt"

	"github.com/louisbranch/arena/internal/services/arena/domain/definition"
	"github.com/louisbranch/arena/internal/services/arena/domain/gamestate"
)

// Project returns the subset of state visible to a role. Whitelist keys
// absent from the state are skipped rather than materialized as nulls. An
// unknown role sees nothing. The result is a deep copy, so callers may hand
// it to untrusted consumers without risking writes to the live state.
func Project(state gamestate.State, roleName string, def definition.Definition) (gamestate.State, error) {
	view := gamestate.State{}
	role, ok := def.Role(roleName)
	if !ok {
		return view, nil
	}

	for _, key := range role.VisibleState {
		value, present := state[key]
		if !present {
			continue
		}
		view[key] = value
	}

	copied, err := gamestate.Clone(view)
	if err != nil {
		return nil, fmt.Errorf("copy projected state: %w", err)
	}
	return copied, nil
}
