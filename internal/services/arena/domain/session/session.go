// Package session models the lifecycle of one live game instance.
package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/arena/internal/platform/id"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
	"github.com/louisbranch/arena/internal/services/arena/domain/definition"
	"github.com/louisbranch/arena/internal/services/arena/domain/gamestate"
)

// Status describes the lifecycle state of a session.
type Status string

const (
	// StatusWaiting indicates the session has not started yet.
	StatusWaiting Status = "waiting"
	// StatusActive indicates the session accepts actions.
	StatusActive Status = "active"
	// StatusPaused indicates the session is temporarily suspended.
	StatusPaused Status = "paused"
	// StatusFinished indicates the session has ended.
	StatusFinished Status = "finished"
)

// ParseStatus returns the canonical status for a stored label.
func ParseStatus(value string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusWaiting:
		return StatusWaiting, true
	case StatusActive:
		return StatusActive, true
	case StatusPaused:
		return StatusPaused, true
	case StatusFinished:
		return StatusFinished, true
	default:
		return "", false
	}
}

// Session represents one live instance of a definition. CurrentPhase is
// empty only before start and after the phase graph reaches a terminal
// phase.
type Session struct {
	ID           string
	DefinitionID string
	Status       Status
	CurrentPhase string
	State        gamestate.State
	PrizePool    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	FinishedAt   *time.Time
}

// CreateInput describes the metadata needed to create a session.
type CreateInput struct {
	DefinitionID string
}

// Create creates a new waiting session with a generated ID and timestamps.
func Create(input CreateInput, now func() time.Time, idGenerator func() (string, error)) (Session, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	definitionID := strings.TrimSpace(input.DefinitionID)
	if definitionID == "" {
		return Session{}, apperrors.New(apperrors.CodeSessionEmptyDefinitionID, "definition id is required")
	}

	sessionID, err := idGenerator()
	if err != nil {
		return Session{}, fmt.Errorf("generate session id: %w", err)
	}

	createdAt := now().UTC()
	return Session{
		ID:           sessionID,
		DefinitionID: definitionID,
		Status:       StatusWaiting,
		State:        gamestate.State{},
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}, nil
}

// Start activates a waiting session: the phase pointer moves to the
// definition's entry phase and the state becomes a clone of initialState.
func Start(sess Session, def definition.Definition, now func() time.Time) (Session, error) {
	if now == nil {
		now = time.Now
	}
	if sess.Status != StatusWaiting {
		return Session{}, transitionError(sess.Status, StatusActive)
	}
	first, ok := def.FirstPhase()
	if !ok {
		return Session{}, apperrors.New(apperrors.CodeDefinitionNoPhases, "definition has no phases")
	}

	state, err := gamestate.Clone(def.InitialState)
	if err != nil {
		return Session{}, fmt.Errorf("clone initial state: %w", err)
	}
	gamestate.ResetActionLog(state)

	sess.Status = StatusActive
	sess.CurrentPhase = first.Name
	sess.State = state
	sess.UpdatedAt = now().UTC()
	return sess, nil
}

// Pause suspends an active session.
func Pause(sess Session, now func() time.Time) (Session, error) {
	if now == nil {
		now = time.Now
	}
	if sess.Status != StatusActive {
		return Session{}, transitionError(sess.Status, StatusPaused)
	}
	sess.Status = StatusPaused
	sess.UpdatedAt = now().UTC()
	return sess, nil
}

// Resume reactivates a paused session.
func Resume(sess Session, now func() time.Time) (Session, error) {
	if now == nil {
		now = time.Now
	}
	if sess.Status != StatusPaused {
		return Session{}, transitionError(sess.Status, StatusActive)
	}
	sess.Status = StatusActive
	sess.UpdatedAt = now().UTC()
	return sess, nil
}

// Finish terminates a session. Finishing is allowed from any non-finished
// status so that abandoned waiting sessions can be closed out.
func Finish(sess Session, now func() time.Time) (Session, error) {
	if now == nil {
		now = time.Now
	}
	if sess.Status == StatusFinished {
		return Session{}, apperrors.New(apperrors.CodeSessionAlreadyFinished, "session is already finished")
	}
	finishedAt := now().UTC()
	sess.Status = StatusFinished
	sess.CurrentPhase = ""
	sess.UpdatedAt = finishedAt
	sess.FinishedAt = &finishedAt
	return sess, nil
}

func transitionError(from, to Status) error {
	return apperrors.WithMetadata(
		apperrors.CodeSessionInvalidTransition,
		"session status transition is not allowed",
		map[string]string{"From": string(from), "To": string(to)},
	)
}
