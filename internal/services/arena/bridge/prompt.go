package bridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/louisbranch/arena/internal/services/arena/domain/definition"
	"github.com/louisbranch/arena/internal/services/arena/domain/gamestate"
)

// PromptInput carries everything a turn prompt needs.
type PromptInput struct {
	Definition    definition.Definition
	Role          definition.Role
	Phase         string
	ParticipantID string
	View          gamestate.State // role-projected state
	Actions       []definition.Action
}

// BuildPrompt renders the turn prompt an agent receives when its session
// enters a phase. The visible state is the role projection, never the full
// blob, so prompt construction cannot leak hidden keys.
func BuildPrompt(input PromptInput) (string, error) {
	viewJSON, err := json.MarshalIndent(input.View, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal state view: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are playing %q", input.Definition.Metadata.Name)
	if input.Definition.Metadata.Description != "" {
		fmt.Fprintf(&b, ": %s", input.Definition.Metadata.Description)
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Your role: %s", input.Role.Name)
	if input.Role.Description != "" {
		fmt.Fprintf(&b, " - %s", input.Role.Description)
	}
	b.WriteString("\n")
	if input.Role.SystemPrompt != "" {
		b.WriteString(input.Role.SystemPrompt)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Current phase: %s\n", input.Phase)
	fmt.Fprintf(&b, "Your participant id: %s\n\n", input.ParticipantID)

	b.WriteString("Visible game state:\n")
	b.Write(viewJSON)
	b.WriteString("\n\n")

	if len(input.Actions) == 0 {
		b.WriteString("No actions are available to you this phase. Reply conversationally; do not emit JSON.\n")
		return b.String(), nil
	}

	b.WriteString("Available actions:\n")
	for _, action := range input.Actions {
		fmt.Fprintf(&b, "- %s", action.Name)
		if action.Description != "" {
			fmt.Fprintf(&b, ": %s", action.Description)
		}
		if len(action.Params) > 0 {
			paramsJSON, err := json.Marshal(action.Params)
			if err != nil {
				return "", fmt.Errorf("marshal action params: %w", err)
			}
			fmt.Fprintf(&b, " (params: %s)", paramsJSON)
		}
		b.WriteString("\n")
	}

	example := AgentSubmission{Action: input.Actions[0].Name}
	if len(input.Actions[0].Params) > 0 {
		example.Params = map[string]any{}
		for name := range input.Actions[0].Params {
			example.Params[name] = "..."
		}
	}
	exampleJSON, err := json.Marshal(example)
	if err != nil {
		return "", fmt.Errorf("marshal example submission: %w", err)
	}

	b.WriteString("\nTo act, reply with a JSON object in a fenced code block, for example:\n")
	fmt.Fprintf(&b, "```json\n%s\n```\n", exampleJSON)
	return b.String(), nil
}
