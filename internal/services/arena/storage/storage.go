// Package storage defines the persistence interfaces for the arena engine.
// Stores deal in flat record structs so that backends stay decoupled from
// domain behavior.
package storage

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
	"github.com/louisbranch/arena/internal/services/arena/domain/gamestate"
	"github.com/louisbranch/arena/internal/services/arena/domain/participant"
	"github.com/louisbranch/arena/internal/services/arena/domain/session"
	"github.com/louisbranch/arena/internal/services/arena/invite"
)

// ErrNotFound indicates a requested persistence record is missing.
// Callers use this to differentiate between legitimate "no such entity"
// states and transport or data corruption failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// DefinitionRecord captures a stored definition document. Document is the
// raw validated JSON; parsing happens at read time so the stored form stays
// authoritative.
type DefinitionRecord struct {
	ID        string
	Name      string
	Category  string
	Document  []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionRecord captures session lifecycle and state for persistence.
type SessionRecord struct {
	ID           string
	DefinitionID string
	Status       session.Status
	CurrentPhase string
	State        gamestate.State
	PrizePool    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	FinishedAt   *time.Time
}

// ParticipantRecord captures membership state used by routing and seat queries.
type ParticipantRecord struct {
	ID          string
	SessionID   string
	UserID      string
	AgentID     string
	Role        string
	ControlMode participant.ControlMode
	Connected   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InviteRecord captures invite lifecycle state.
type InviteRecord struct {
	ID              string
	SessionID       string
	RecipientUserID string
	Role            string
	Status          invite.Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ActionRecord is one durably logged action, kept independently of the
// ephemeral in-state log so finished sessions remain auditable.
type ActionRecord struct {
	ID            string
	SessionID     string
	ParticipantID string
	Phase         string
	Action        string
	Params        []byte
	CreatedAt     time.Time
}

// PayoutRecord is one participant's share of a settled prize pool.
type PayoutRecord struct {
	ParticipantID string
	UserID        string
	Amount        int64
	Reason        string
}

// SettlementRecord captures how a finished session's pool was disbursed.
type SettlementRecord struct {
	SessionID string
	Payouts   []PayoutRecord
	CreatedAt time.Time
}

// DefinitionStore owns the definition catalog.
type DefinitionStore interface {
	PutDefinition(ctx context.Context, record DefinitionRecord) error
	GetDefinition(ctx context.Context, id string) (DefinitionRecord, error)
	ListDefinitions(ctx context.Context) ([]DefinitionRecord, error)
	DeleteDefinition(ctx context.Context, id string) error
}

// SessionStore owns session lifecycle and state persistence.
type SessionStore interface {
	PutSession(ctx context.Context, record SessionRecord) error
	GetSession(ctx context.Context, id string) (SessionRecord, error)
	ListSessionsByStatus(ctx context.Context, status session.Status) ([]SessionRecord, error)
}

// ParticipantStore owns membership state, including seat and control mode.
type ParticipantStore interface {
	PutParticipant(ctx context.Context, record ParticipantRecord) error
	GetParticipant(ctx context.Context, sessionID, participantID string) (ParticipantRecord, error)
	ListParticipantsBySession(ctx context.Context, sessionID string) ([]ParticipantRecord, error)
	DeleteParticipant(ctx context.Context, sessionID, participantID string) error
}

// InviteStore owns invite lifecycle state.
type InviteStore interface {
	PutInvite(ctx context.Context, record InviteRecord) error
	GetInvite(ctx context.Context, inviteID string) (InviteRecord, error)
	ListPendingInvites(ctx context.Context, sessionID string) ([]InviteRecord, error)
	UpdateInviteStatus(ctx context.Context, inviteID string, status invite.Status, updatedAt time.Time) error
}

// AuditStore owns the durable per-session action journal.
type AuditStore interface {
	AppendAction(ctx context.Context, record ActionRecord) error
	ListActions(ctx context.Context, sessionID string) ([]ActionRecord, error)
}

// SettlementStore owns prize pool settlement records. PutSettlement must
// reject a second settlement for the same session.
type SettlementStore interface {
	PutSettlement(ctx context.Context, record SettlementRecord) error
	GetSettlement(ctx context.Context, sessionID string) (SettlementRecord, error)
}

// Stores groups the per-entity stores a running engine needs.
type Stores struct {
	Definitions  DefinitionStore
	Sessions     SessionStore
	Participants ParticipantStore
	Invites      InviteStore
	Audit        AuditStore
	Settlements  SettlementStore
}
