// Package definition models the declarative game document: roles, phases,
// actions, and win conditions. A definition is immutable once a session
// references it; the engine only ever reads it.
package definition

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
)

// DefaultMaxStateSize is the serialized state ceiling applied when a
// definition does not declare maxStateSize.
const DefaultMaxStateSize = 1 << 20 // 1,048,576 bytes

// Metadata describes the game for catalog listings and prompts.
type Metadata struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	MinPlayers  int      `json:"minPlayers"`
	MaxPlayers  int      `json:"maxPlayers"`
	Tags        []string `json:"tags,omitempty"`
}

// Role is one playable seat type with its visibility and action grants.
type Role struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	VisibleState     []string `json:"visibleState"`
	AvailableActions []string `json:"availableActions"`
	SystemPrompt     string   `json:"systemPrompt"`
	MinCount         int      `json:"minCount,omitempty"`
	MaxCount         int      `json:"maxCount,omitempty"`
}

// Phase is a named stage in the phase graph. A nil Next marks a terminal
// phase: reaching its end finishes the session.
type Phase struct {
	Name                string   `json:"name"`
	Duration            int      `json:"duration,omitempty"` // seconds; 0 means no timer
	AllowedActions      []string `json:"allowedActions"`
	TransitionCondition string   `json:"transitionCondition,omitempty"`
	Next                *string  `json:"next"`
}

// Action declares a named move, optionally restricted to phases and roles.
// Params documents the expected parameter shape and feeds tool schemas.
type Action struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	TargetType  string         `json:"targetType,omitempty"`
	Phases      []string       `json:"phases,omitempty"`
	Roles       []string       `json:"roles,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
	HumanOnly   bool           `json:"humanOnly,omitempty"`
	AgentOnly   bool           `json:"agentOnly,omitempty"`
}

// WinCondition names a condition that, when true, ends the game in favor of
// one role. Conditions are evaluated in declared order; the first match wins.
type WinCondition struct {
	Role        string `json:"role"`
	Condition   string `json:"condition"`
	Description string `json:"description"`
}

// Economy describes entry fees and prize distribution for a session.
type Economy struct {
	Currency     string `json:"currency,omitempty"`     // free, soft, hard
	EntryFee     int64  `json:"entryFee,omitempty"`     // per participant
	Distribution string `json:"distribution,omitempty"` // even_split, ranked
	RankedSplit  []int  `json:"rankedSplit,omitempty"`  // percentages per rank
}

// Definition is the full declarative game document.
type Definition struct {
	Metadata      Metadata       `json:"metadata"`
	Roles         []Role         `json:"roles"`
	Phases        []Phase        `json:"phases"`
	Actions       []Action       `json:"actions"`
	WinConditions []WinCondition `json:"winConditions,omitempty"`
	Economy       Economy        `json:"economy,omitempty"`
	InitialState  map[string]any `json:"initialState,omitempty"`
	MaxStateSize  int            `json:"maxStateSize,omitempty"`
}

// Parse decodes and validates a definition document.
func Parse(raw []byte) (Definition, error) {
	var def Definition
	if err := json.Unmarshal(raw, &def); err != nil {
		return Definition{}, apperrors.Wrap(apperrors.CodeDefinitionInvalid, "decode definition document", err)
	}
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// Validate checks internal consistency of the document.
func (d Definition) Validate() error {
	if d.Metadata.Name == "" {
		return apperrors.New(apperrors.CodeDefinitionNameEmpty, "definition name is required")
	}
	if d.Metadata.MinPlayers < 1 || d.Metadata.MaxPlayers < d.Metadata.MinPlayers {
		return apperrors.WithMetadata(apperrors.CodeDefinitionPlayerBounds, "player bounds are invalid", map[string]string{
			"Min": fmt.Sprint(d.Metadata.MinPlayers),
			"Max": fmt.Sprint(d.Metadata.MaxPlayers),
		})
	}
	if len(d.Phases) == 0 {
		return apperrors.New(apperrors.CodeDefinitionNoPhases, "definition requires at least one phase")
	}

	roles := make(map[string]Role, len(d.Roles))
	for _, role := range d.Roles {
		if _, ok := roles[role.Name]; ok {
			return apperrors.WithMetadata(apperrors.CodeDefinitionDuplicateName, "duplicate role name", map[string]string{"Name": role.Name})
		}
		if role.MinCount < 0 || (role.MaxCount > 0 && role.MaxCount < role.MinCount) {
			return apperrors.WithMetadata(apperrors.CodeDefinitionRoleCounts, "role counts are invalid", map[string]string{"Role": role.Name})
		}
		roles[role.Name] = role
	}

	phases := make(map[string]Phase, len(d.Phases))
	for _, phase := range d.Phases {
		if _, ok := phases[phase.Name]; ok {
			return apperrors.WithMetadata(apperrors.CodeDefinitionDuplicateName, "duplicate phase name", map[string]string{"Name": phase.Name})
		}
		phases[phase.Name] = phase
	}
	for _, phase := range d.Phases {
		if phase.Next == nil {
			continue
		}
		if _, ok := phases[*phase.Next]; !ok {
			return apperrors.WithMetadata(apperrors.CodeDefinitionBadPhaseRef, "phase next references unknown phase", map[string]string{
				"Phase": phase.Name,
				"Next":  *phase.Next,
			})
		}
	}

	actions := make(map[string]Action, len(d.Actions))
	for _, action := range d.Actions {
		if _, ok := actions[action.Name]; ok {
			return apperrors.WithMetadata(apperrors.CodeDefinitionDuplicateName, "duplicate action name", map[string]string{"Name": action.Name})
		}
		actions[action.Name] = action
		for _, phaseName := range action.Phases {
			if _, ok := phases[phaseName]; !ok {
				return apperrors.WithMetadata(apperrors.CodeDefinitionBadPhaseRef, "action references unknown phase", map[string]string{
					"Action": action.Name,
					"Phase":  phaseName,
				})
			}
		}
		for _, roleName := range action.Roles {
			if _, ok := roles[roleName]; !ok {
				return apperrors.WithMetadata(apperrors.CodeDefinitionBadRoleRef, "action references unknown role", map[string]string{
					"Action": action.Name,
					"Role":   roleName,
				})
			}
		}
	}

	for _, phase := range d.Phases {
		for _, actionName := range phase.AllowedActions {
			if _, ok := actions[actionName]; !ok {
				return apperrors.WithMetadata(apperrors.CodeDefinitionBadActionRef, "phase allows unknown action", map[string]string{
					"Phase":  phase.Name,
					"Action": actionName,
				})
			}
		}
	}

	for _, wc := range d.WinConditions {
		if _, ok := roles[wc.Role]; !ok {
			return apperrors.WithMetadata(apperrors.CodeDefinitionBadRoleRef, "win condition references unknown role", map[string]string{
				"Role":      wc.Role,
				"Condition": wc.Condition,
			})
		}
	}

	return nil
}

// Role returns the role with the given name.
func (d Definition) Role(name string) (Role, bool) {
	for _, role := range d.Roles {
		if role.Name == name {
			return role, true
		}
	}
	return Role{}, false
}

// Phase returns the phase with the given name.
func (d Definition) Phase(name string) (Phase, bool) {
	for _, phase := range d.Phases {
		if phase.Name == name {
			return phase, true
		}
	}
	return Phase{}, false
}

// Action returns the action with the given name.
func (d Definition) Action(name string) (Action, bool) {
	for _, action := range d.Actions {
		if action.Name == name {
			return action, true
		}
	}
	return Action{}, false
}

// FirstPhase returns the entry phase of the graph.
func (d Definition) FirstPhase() (Phase, bool) {
	if len(d.Phases) == 0 {
		return Phase{}, false
	}
	return d.Phases[0], true
}

// AvailableActions returns the actions invocable by a role during a phase.
// An action qualifies when the phase allows it (an empty allowedActions
// list allows everything), its own phase list (if any) includes the phase,
// its role list (if any) includes the role, and the role's
// availableActions grants (if any) include the action.
func (d Definition) AvailableActions(phaseName, roleName string) []Action {
	phase, ok := d.Phase(phaseName)
	if !ok {
		return nil
	}
	role, hasRole := d.Role(roleName)

	var available []Action
	for _, action := range d.Actions {
		if len(phase.AllowedActions) > 0 && !contains(phase.AllowedActions, action.Name) {
			continue
		}
		if len(action.Phases) > 0 && !contains(action.Phases, phaseName) {
			continue
		}
		if len(action.Roles) > 0 && !contains(action.Roles, roleName) {
			continue
		}
		if hasRole && len(role.AvailableActions) > 0 && !contains(role.AvailableActions, action.Name) {
			continue
		}
		available = append(available, action)
	}
	return available
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// MaxStateBytes returns the serialized state ceiling for sessions of this
// definition, falling back to DefaultMaxStateSize.
func (d Definition) MaxStateBytes() int {
	if d.MaxStateSize > 0 {
		return d.MaxStateSize
	}
	return DefaultMaxStateSize
}
