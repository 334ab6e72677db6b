// Package participant models session membership and the control-mode
// capability router that decides which actor category may invoke an action.
package participant

import (
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/arena/internal/platform/id"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
	"github.com/louisbranch/arena/internal/services/arena/domain/definition"
)

// ControlMode gates which actor category drives a participant.
type ControlMode string

const (
	// ModeAgent hands the seat to the bound agent.
	ModeAgent ControlMode = "agent"
	// ModeHuman hands the seat to the user.
	ModeHuman ControlMode = "human"
	// ModeCopilot lets user and agent act together.
	ModeCopilot ControlMode = "copilot"
)

// ActorKind is the source of a submitted action.
type ActorKind string

const (
	// ActorUser marks a human-submitted action.
	ActorUser ActorKind = "user"
	// ActorAgent marks an agent-submitted action.
	ActorAgent ActorKind = "agent"
)

// ParseControlMode returns the canonical control mode for a label.
func ParseControlMode(value string) (ControlMode, bool) {
	switch ControlMode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeAgent:
		return ModeAgent, true
	case ModeHuman:
		return ModeHuman, true
	case ModeCopilot:
		return ModeCopilot, true
	default:
		return "", false
	}
}

// Participant is a user or agent occupying a role within a session.
type Participant struct {
	ID          string
	SessionID   string
	UserID      string
	AgentID     string // empty when no agent is bound
	Role        string // empty until a seat is claimed
	ControlMode ControlMode
	Connected   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateInput captures the fields needed to join a session.
type CreateInput struct {
	SessionID   string
	UserID      string
	AgentID     string
	Role        string
	ControlMode string
}

// Create constructs a participant with a generated ID. The control mode
// defaults to human; agent mode requires a bound agent.
func Create(input CreateInput, now func() time.Time, idGenerator func() (string, error)) (Participant, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		return Participant{}, apperrors.New(apperrors.CodeParticipantEmptySessionID, "session id is required")
	}
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return Participant{}, apperrors.New(apperrors.CodeParticipantEmptyUserID, "user id is required")
	}

	mode := ModeHuman
	if trimmed := strings.TrimSpace(input.ControlMode); trimmed != "" {
		parsed, ok := ParseControlMode(trimmed)
		if !ok {
			return Participant{}, apperrors.WithMetadata(apperrors.CodeParticipantInvalidMode, "control mode is invalid", map[string]string{"Mode": trimmed})
		}
		mode = parsed
	}
	agentID := strings.TrimSpace(input.AgentID)
	if mode != ModeHuman && agentID == "" {
		return Participant{}, apperrors.New(apperrors.CodeAgentNotBound, "control mode requires a bound agent")
	}

	participantID, err := idGenerator()
	if err != nil {
		return Participant{}, fmt.Errorf("generate participant id: %w", err)
	}

	createdAt := now().UTC()
	return Participant{
		ID:          participantID,
		SessionID:   sessionID,
		UserID:      userID,
		AgentID:     agentID,
		Role:        strings.TrimSpace(input.Role),
		ControlMode: mode,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}

// ModeTransition reports the outcome of a control-mode change request.
type ModeTransition struct {
	Allowed bool
	From    ControlMode
	To      ControlMode
	Message string
}

// Transition validates a control-mode change. Every cross-mode pair is
// allowed; self-transitions are rejected and leave the mode unchanged.
func Transition(from, to ControlMode) ModeTransition {
	result := ModeTransition{From: from, To: to}
	if _, ok := ParseControlMode(string(from)); !ok {
		result.Message = fmt.Sprintf("unknown control mode %q", from)
		return result
	}
	if _, ok := ParseControlMode(string(to)); !ok {
		result.Message = fmt.Sprintf("unknown control mode %q", to)
		return result
	}
	if from == to {
		result.Message = fmt.Sprintf("already in %s mode", to)
		return result
	}

	result.Allowed = true
	switch {
	case from == ModeAgent && to == ModeHuman:
		result.Message = "You took control"
	case from == ModeAgent && to == ModeCopilot:
		result.Message = "Copilot mode activated"
	case from == ModeHuman && to == ModeAgent:
		result.Message = "Agent resumed control"
	case from == ModeHuman && to == ModeCopilot:
		result.Message = "Copilot mode activated"
	case from == ModeCopilot && to == ModeAgent:
		result.Message = "Agent took full control"
	case from == ModeCopilot && to == ModeHuman:
		result.Message = "You took full control"
	}
	return result
}

// ValidateAction decides whether an actor category may invoke an action
// under the given control mode. Checks run in a fixed order: the humanOnly
// flag for agent actors, the agentOnly flag for user actors, then the
// actor/mode pairing.
func ValidateAction(action definition.Action, mode ControlMode, actor ActorKind) error {
	switch actor {
	case ActorAgent:
		if action.HumanOnly {
			return apperrors.WithMetadata(apperrors.CodeActionHumanOnly, "action is human-only", map[string]string{"Action": action.Name})
		}
		if mode == ModeHuman && !action.AgentOnly {
			return apperrors.WithMetadata(apperrors.CodeActionActorDisallowed, "agent cannot act in human control mode", map[string]string{"Action": action.Name})
		}
	case ActorUser:
		if action.AgentOnly {
			return apperrors.WithMetadata(apperrors.CodeActionAgentOnly, "action is agent-only", map[string]string{"Action": action.Name})
		}
		if mode == ModeAgent {
			return apperrors.WithMetadata(apperrors.CodeActionActorDisallowed, "user cannot act in agent control mode", map[string]string{"Action": action.Name})
		}
	default:
		return apperrors.WithMetadata(apperrors.CodeActionActorDisallowed, "unknown actor kind", map[string]string{"Actor": string(actor)})
	}
	return nil
}

// FilterAgentActions returns the agent-facing subset of actions for a
// control mode: the list an agent may see and call as tools.
func FilterAgentActions(actions []definition.Action, mode ControlMode) []definition.Action {
	filtered := make([]definition.Action, 0, len(actions))
	for _, action := range actions {
		if ValidateAction(action, mode, ActorAgent) == nil {
			filtered = append(filtered, action)
		}
	}
	return filtered
}
