// Package invite manages session invitations and the signed join grants
// that authorize a user to claim a seat.
package invite

import (
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/arena/internal/platform/id"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
)

// Status is the lifecycle state of an invite.
type Status string

const (
	// StatusPending means the invite can still be claimed.
	StatusPending Status = "pending"
	// StatusClaimed means a user joined through the invite.
	StatusClaimed Status = "claimed"
	// StatusRevoked means the invite was withdrawn before claiming.
	StatusRevoked Status = "revoked"
)

// ParseStatus returns the canonical status for a stored label.
func ParseStatus(value string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusPending:
		return StatusPending, true
	case StatusClaimed:
		return StatusClaimed, true
	case StatusRevoked:
		return StatusRevoked, true
	default:
		return "", false
	}
}

// Invite reserves a seat in a session for a specific user. Role may be
// empty, in which case the claimer picks any open seat.
type Invite struct {
	ID              string
	SessionID       string
	RecipientUserID string
	Role            string
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreateInput captures the fields needed to issue an invite.
type CreateInput struct {
	SessionID       string
	RecipientUserID string
	Role            string
}

// Create issues a pending invite with a generated ID.
func Create(input CreateInput, now func() time.Time, idGenerator func() (string, error)) (Invite, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		return Invite{}, apperrors.New(apperrors.CodeParticipantEmptySessionID, "session id is required")
	}
	recipient := strings.TrimSpace(input.RecipientUserID)
	if recipient == "" {
		return Invite{}, apperrors.New(apperrors.CodeParticipantEmptyUserID, "recipient user id is required")
	}

	inviteID, err := idGenerator()
	if err != nil {
		return Invite{}, fmt.Errorf("generate invite id: %w", err)
	}

	createdAt := now().UTC()
	return Invite{
		ID:              inviteID,
		SessionID:       sessionID,
		RecipientUserID: recipient,
		Role:            strings.TrimSpace(input.Role),
		Status:          StatusPending,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}, nil
}

// Claim marks a pending invite as claimed.
func Claim(inv Invite, now func() time.Time) (Invite, error) {
	if now == nil {
		now = time.Now
	}
	if inv.Status != StatusPending {
		return Invite{}, apperrors.WithMetadata(apperrors.CodeInviteJoinGrantInvalid, "invite is not claimable", map[string]string{"Status": string(inv.Status)})
	}
	inv.Status = StatusClaimed
	inv.UpdatedAt = now().UTC()
	return inv, nil
}

// Revoke withdraws a pending invite.
func Revoke(inv Invite, now func() time.Time) (Invite, error) {
	if now == nil {
		now = time.Now
	}
	if inv.Status != StatusPending {
		return Invite{}, apperrors.WithMetadata(apperrors.CodeInviteJoinGrantInvalid, "invite is not revocable", map[string]string{"Status": string(inv.Status)})
	}
	inv.Status = StatusRevoked
	inv.UpdatedAt = now().UTC()
	return inv, nil
}
