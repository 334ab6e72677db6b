// Package app composes the arena service: definition catalog management,
// session and participant lifecycles, and the seam between user requests,
// the runtime engine, and the agent bridge.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/louisbranch/arena/internal/platform/id"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
	"github.com/louisbranch/arena/internal/platform/requestctx"
	"github.com/louisbranch/arena/internal/services/arena/bridge"
	"github.com/louisbranch/arena/internal/services/arena/domain/definition"
	"github.com/louisbranch/arena/internal/services/arena/domain/gamestate"
	"github.com/louisbranch/arena/internal/services/arena/domain/participant"
	"github.com/louisbranch/arena/internal/services/arena/domain/projection"
	"github.com/louisbranch/arena/internal/services/arena/domain/session"
	"github.com/louisbranch/arena/internal/services/arena/invite"
	"github.com/louisbranch/arena/internal/services/arena/runtime"
	"github.com/louisbranch/arena/internal/services/arena/storage"
)

// Service exposes the arena operations callers invoke. It owns no
// transport; API layers adapt requests onto these methods.
type Service struct {
	stores     storage.Stores
	engine     *runtime.Engine
	bridge     *bridge.Bridge
	joinGrants *invite.JoinGrantConfig

	now         func() time.Time
	idGenerator func() (string, error)
}

// Option customizes service construction.
type Option func(*Service)

// WithJoinGrants enables signed join grant verification on session joins.
func WithJoinGrants(cfg invite.JoinGrantConfig) Option {
	return func(s *Service) { s.joinGrants = &cfg }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator sets the id source.
func WithIDGenerator(generator func() (string, error)) Option {
	return func(s *Service) { s.idGenerator = generator }
}

// New constructs the service over its collaborators.
func New(stores storage.Stores, engine *runtime.Engine, agentBridge *bridge.Bridge, opts ...Option) *Service {
	service := &Service{
		stores:      stores,
		engine:      engine,
		bridge:      agentBridge,
		now:         time.Now,
		idGenerator: id.NewID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(service)
		}
	}
	return service
}

// SetBridge attaches the agent bridge after construction. The bridge
// submits actions through this service, so wiring closes the cycle here.
func (s *Service) SetBridge(agentBridge *bridge.Bridge) {
	s.bridge = agentBridge
}

// CreateDefinition validates and stores a definition document.
func (s *Service) CreateDefinition(ctx context.Context, document []byte) (storage.DefinitionRecord, error) {
	def, err := definition.Parse(document)
	if err != nil {
		return storage.DefinitionRecord{}, err
	}

	definitionID, err := s.idGenerator()
	if err != nil {
		return storage.DefinitionRecord{}, fmt.Errorf("generate definition id: %w", err)
	}

	now := s.now().UTC()
	record := storage.DefinitionRecord{
		ID:        definitionID,
		Name:      def.Metadata.Name,
		Category:  def.Metadata.Category,
		Document:  document,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.stores.Definitions.PutDefinition(ctx, record); err != nil {
		return storage.DefinitionRecord{}, err
	}
	return record, nil
}

// GetDefinition returns a stored, parsed definition.
func (s *Service) GetDefinition(ctx context.Context, definitionID string) (definition.Definition, error) {
	record, err := s.stores.Definitions.GetDefinition(ctx, definitionID)
	if err != nil {
		return definition.Definition{}, err
	}
	return definition.Parse(record.Document)
}

// ListDefinitions returns the definition catalog.
func (s *Service) ListDefinitions(ctx context.Context) ([]storage.DefinitionRecord, error) {
	return s.stores.Definitions.ListDefinitions(ctx)
}

// DeleteDefinition removes a definition from the catalog.
func (s *Service) DeleteDefinition(ctx context.Context, definitionID string) error {
	return s.stores.Definitions.DeleteDefinition(ctx, definitionID)
}

// CreateSession creates a waiting session for a definition.
func (s *Service) CreateSession(ctx context.Context, definitionID string) (storage.SessionRecord, error) {
	if _, err := s.stores.Definitions.GetDefinition(ctx, definitionID); err != nil {
		return storage.SessionRecord{}, err
	}
	sess, err := session.Create(session.CreateInput{DefinitionID: definitionID}, s.now, s.idGenerator)
	if err != nil {
		return storage.SessionRecord{}, err
	}
	record := sessionRecord(sess)
	if err := s.stores.Sessions.PutSession(ctx, record); err != nil {
		return storage.SessionRecord{}, err
	}
	return record, nil
}

// InviteUser issues a pending invite for a session seat.
func (s *Service) InviteUser(ctx context.Context, sessionID, recipientUserID, role string) (storage.InviteRecord, error) {
	if _, err := s.stores.Sessions.GetSession(ctx, sessionID); err != nil {
		return storage.InviteRecord{}, err
	}
	inv, err := invite.Create(invite.CreateInput{
		SessionID:       sessionID,
		RecipientUserID: recipientUserID,
		Role:            role,
	}, s.now, s.idGenerator)
	if err != nil {
		return storage.InviteRecord{}, err
	}
	record := storage.InviteRecord{
		ID:              inv.ID,
		SessionID:       inv.SessionID,
		RecipientUserID: inv.RecipientUserID,
		Role:            inv.Role,
		Status:          inv.Status,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
	}
	if err := s.stores.Invites.PutInvite(ctx, record); err != nil {
		return storage.InviteRecord{}, err
	}
	return record, nil
}

// JoinInput describes a join request.
type JoinInput struct {
	SessionID   string
	InviteID    string
	JoinGrant   string
	UserID      string
	AgentID     string
	Role        string
	ControlMode string
}

// JoinSession admits a user into a waiting session. When join grant
// verification is configured the grant must match the invite; the entry
// fee, if any, moves into the session's prize pool.
func (s *Service) JoinSession(ctx context.Context, input JoinInput) (storage.ParticipantRecord, error) {
	sessRecord, err := s.stores.Sessions.GetSession(ctx, input.SessionID)
	if err != nil {
		return storage.ParticipantRecord{}, err
	}
	if sessRecord.Status != session.StatusWaiting {
		return storage.ParticipantRecord{}, apperrors.WithMetadata(apperrors.CodeSessionInvalidTransition, "session is not joinable", map[string]string{"Status": string(sessRecord.Status)})
	}

	def, err := s.GetDefinition(ctx, sessRecord.DefinitionID)
	if err != nil {
		return storage.ParticipantRecord{}, err
	}

	role := input.Role
	if input.InviteID != "" {
		invRecord, err := s.stores.Invites.GetInvite(ctx, input.InviteID)
		if err != nil {
			return storage.ParticipantRecord{}, err
		}
		if s.joinGrants != nil {
			if _, err := invite.ValidateJoinGrant(input.JoinGrant, invite.JoinGrantExpectation{
				SessionID: input.SessionID,
				InviteID:  input.InviteID,
				UserID:    input.UserID,
			}, *s.joinGrants); err != nil {
				return storage.ParticipantRecord{}, err
			}
		}
		inv := invite.Invite{
			ID:              invRecord.ID,
			SessionID:       invRecord.SessionID,
			RecipientUserID: invRecord.RecipientUserID,
			Role:            invRecord.Role,
			Status:          invRecord.Status,
			CreatedAt:       invRecord.CreatedAt,
			UpdatedAt:       invRecord.UpdatedAt,
		}
		claimed, err := invite.Claim(inv, s.now)
		if err != nil {
			return storage.ParticipantRecord{}, err
		}
		if err := s.stores.Invites.UpdateInviteStatus(ctx, claimed.ID, claimed.Status, claimed.UpdatedAt); err != nil {
			return storage.ParticipantRecord{}, err
		}
		if role == "" {
			role = invRecord.Role
		}
	}

	if err := s.validateSeat(ctx, def, input.SessionID, role); err != nil {
		return storage.ParticipantRecord{}, err
	}

	member, err := participant.Create(participant.CreateInput{
		SessionID:   input.SessionID,
		UserID:      input.UserID,
		AgentID:     input.AgentID,
		Role:        role,
		ControlMode: input.ControlMode,
	}, s.now, s.idGenerator)
	if err != nil {
		return storage.ParticipantRecord{}, err
	}

	record := participantRecord(member)
	if err := s.stores.Participants.PutParticipant(ctx, record); err != nil {
		return storage.ParticipantRecord{}, err
	}

	if def.Economy.EntryFee > 0 {
		sessRecord.PrizePool += def.Economy.EntryFee
		sessRecord.UpdatedAt = s.now().UTC()
		if err := s.stores.Sessions.PutSession(ctx, sessRecord); err != nil {
			return storage.ParticipantRecord{}, err
		}
	}
	return record, nil
}

// validateSeat enforces role existence and seat count ceilings.
func (s *Service) validateSeat(ctx context.Context, def definition.Definition, sessionID, roleName string) error {
	if roleName == "" {
		return nil
	}
	role, ok := def.Role(roleName)
	if !ok {
		return apperrors.WithMetadata(apperrors.CodeParticipantRoleUnknown, "role is not defined", map[string]string{"Role": roleName})
	}
	if role.MaxCount <= 0 {
		return nil
	}

	members, err := s.stores.Participants.ListParticipantsBySession(ctx, sessionID)
	if err != nil {
		return err
	}
	claimed := 0
	for _, member := range members {
		if member.Role == roleName {
			claimed++
		}
	}
	if claimed >= role.MaxCount {
		return apperrors.WithMetadata(apperrors.CodeParticipantRoleFull, "role has no open seats", map[string]string{"Role": roleName})
	}
	return nil
}

// StartSession activates a waiting session once its seats satisfy the
// definition's player and role bounds.
func (s *Service) StartSession(ctx context.Context, sessionID string) error {
	sessRecord, err := s.stores.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	def, err := s.GetDefinition(ctx, sessRecord.DefinitionID)
	if err != nil {
		return err
	}
	members, err := s.stores.Participants.ListParticipantsBySession(ctx, sessionID)
	if err != nil {
		return err
	}

	if len(members) < def.Metadata.MinPlayers || len(members) > def.Metadata.MaxPlayers {
		return apperrors.WithMetadata(apperrors.CodeDefinitionPlayerBounds, "participant count is outside player bounds", map[string]string{
			"Count": fmt.Sprint(len(members)),
			"Min":   fmt.Sprint(def.Metadata.MinPlayers),
			"Max":   fmt.Sprint(def.Metadata.MaxPlayers),
		})
	}
	for _, role := range def.Roles {
		if role.MinCount <= 0 {
			continue
		}
		claimed := 0
		for _, member := range members {
			if member.Role == role.Name {
				claimed++
			}
		}
		if claimed < role.MinCount {
			return apperrors.WithMetadata(apperrors.CodeParticipantRoleUnknown, "role seats are unfilled", map[string]string{
				"Role":    role.Name,
				"Claimed": fmt.Sprint(claimed),
				"Min":     fmt.Sprint(role.MinCount),
			})
		}
	}

	return s.engine.StartSession(ctx, sessionID)
}

// PauseSession suspends an active session.
func (s *Service) PauseSession(ctx context.Context, sessionID string) error {
	return s.engine.PauseSession(ctx, sessionID)
}

// ResumeSession reactivates a paused session.
func (s *Service) ResumeSession(ctx context.Context, sessionID string) error {
	return s.engine.ResumeSession(ctx, sessionID)
}

// SubmitAction routes a user-submitted action through the pipeline. When
// the context carries an authenticated user id it must own the seat.
func (s *Service) SubmitAction(ctx context.Context, sessionID, participantID, action string, params map[string]any) (runtime.ActionResult, error) {
	if caller := requestctx.UserIDFromContext(ctx); caller != "" {
		member, err := s.stores.Participants.GetParticipant(ctx, sessionID, participantID)
		if err != nil {
			return runtime.ActionResult{}, err
		}
		if member.UserID != caller {
			return runtime.ActionResult{}, apperrors.WithMetadata(apperrors.CodeActionActorDisallowed, "seat belongs to another user", map[string]string{
				"ParticipantID": participantID,
			})
		}
	}
	return s.engine.ProcessAction(ctx, runtime.ActionSubmission{
		SessionID:     sessionID,
		ParticipantID: participantID,
		Action:        action,
		Params:        params,
		Actor:         participant.ActorUser,
	})
}

// SubmitAgentAction routes a parsed agent action through the pipeline. It
// implements the bridge's ActionSubmitter.
func (s *Service) SubmitAgentAction(ctx context.Context, sessionID, participantID, action string, params map[string]any) error {
	_, err := s.engine.ProcessAction(ctx, runtime.ActionSubmission{
		SessionID:     sessionID,
		ParticipantID: participantID,
		Action:        action,
		Params:        params,
		Actor:         participant.ActorAgent,
	})
	return err
}

// SetControlMode switches who drives a participant's seat. A takeover
// away from agent control cancels any in-flight generation so a stale
// reply cannot act on the surrendered seat.
func (s *Service) SetControlMode(ctx context.Context, sessionID, participantID, mode string) (participant.ModeTransition, error) {
	target, ok := participant.ParseControlMode(mode)
	if !ok {
		return participant.ModeTransition{}, apperrors.WithMetadata(apperrors.CodeParticipantInvalidMode, "control mode is invalid", map[string]string{"Mode": mode})
	}

	record, err := s.stores.Participants.GetParticipant(ctx, sessionID, participantID)
	if err != nil {
		return participant.ModeTransition{}, err
	}

	transition := participant.Transition(record.ControlMode, target)
	if !transition.Allowed {
		return transition, apperrors.WithMetadata(apperrors.CodeParticipantSelfTransition, transition.Message, map[string]string{
			"From": string(transition.From),
			"To":   string(transition.To),
		})
	}
	if target != participant.ModeHuman && record.AgentID == "" {
		return participant.ModeTransition{}, apperrors.New(apperrors.CodeAgentNotBound, "control mode requires a bound agent")
	}

	if s.bridge != nil && target == participant.ModeHuman {
		s.bridge.CancelTurn(participantID)
	}

	record.ControlMode = target
	record.UpdatedAt = s.now().UTC()
	if err := s.stores.Participants.PutParticipant(ctx, record); err != nil {
		return participant.ModeTransition{}, err
	}
	return transition, nil
}

// ProjectedState returns the session state visible to a participant's role.
func (s *Service) ProjectedState(ctx context.Context, sessionID, participantID string) (gamestate.State, error) {
	sessRecord, err := s.stores.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	member, err := s.stores.Participants.GetParticipant(ctx, sessionID, participantID)
	if err != nil {
		return nil, err
	}
	def, err := s.GetDefinition(ctx, sessRecord.DefinitionID)
	if err != nil {
		return nil, err
	}
	return projection.Project(sessRecord.State, member.Role, def)
}

// SessionJSON renders a session record for API responses.
func (s *Service) SessionJSON(record storage.SessionRecord) ([]byte, error) {
	return json.Marshal(map[string]any{
		"id":           record.ID,
		"definitionId": record.DefinitionID,
		"status":       string(record.Status),
		"currentPhase": record.CurrentPhase,
		"prizePool":    record.PrizePool,
	})
}

func sessionRecord(sess session.Session) storage.SessionRecord {
	return storage.SessionRecord{
		ID:           sess.ID,
		DefinitionID: sess.DefinitionID,
		Status:       sess.Status,
		CurrentPhase: sess.CurrentPhase,
		State:        sess.State,
		PrizePool:    sess.PrizePool,
		CreatedAt:    sess.CreatedAt,
		UpdatedAt:    sess.UpdatedAt,
		FinishedAt:   sess.FinishedAt,
	}
}

func participantRecord(member participant.Participant) storage.ParticipantRecord {
	return storage.ParticipantRecord{
		ID:          member.ID,
		SessionID:   member.SessionID,
		UserID:      member.UserID,
		AgentID:     member.AgentID,
		Role:        member.Role,
		ControlMode: member.ControlMode,
		Connected:   member.Connected,
		CreatedAt:   member.CreatedAt,
		UpdatedAt:   member.UpdatedAt,
	}
}
