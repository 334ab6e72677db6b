package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/arena/internal/services/arena/invite"
	"github.com/louisbranch/arena/internal/services/arena/storage"
)

// Invite methods

// PutInvite stores or replaces an invite row.
func (s *Store) PutInvite(ctx context.Context, record storage.InviteRecord) error {
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("invite id is required")
	}
	if strings.TrimSpace(record.SessionID) == "" {
		return fmt.Errorf("session id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO invites (id, session_id, recipient_user_id, role, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    recipient_user_id = excluded.recipient_user_id,
    role = excluded.role,
    status = excluded.status,
    updated_at = excluded.updated_at
`,
		record.ID,
		record.SessionID,
		record.RecipientUserID,
		record.Role,
		string(record.Status),
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put invite: %w", err)
	}
	return nil
}

// GetInvite returns an invite by id.
func (s *Store) GetInvite(ctx context.Context, inviteID string) (storage.InviteRecord, error) {
	if err := s.ready(); err != nil {
		return storage.InviteRecord{}, err
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, session_id, recipient_user_id, role, status, created_at, updated_at
FROM invites WHERE id = ?
`, inviteID)

	record, err := scanInvite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.InviteRecord{}, storage.ErrNotFound
	}
	return record, err
}

// ListPendingInvites returns claimable invites for a session.
func (s *Store) ListPendingInvites(ctx context.Context, sessionID string) ([]storage.InviteRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, session_id, recipient_user_id, role, status, created_at, updated_at
FROM invites WHERE session_id = ? AND status = ? ORDER BY created_at, id
`, sessionID, string(invite.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("list pending invites: %w", err)
	}
	defer rows.Close()

	var records []storage.InviteRecord
	for rows.Next() {
		record, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// UpdateInviteStatus moves an invite to a new lifecycle status.
func (s *Store) UpdateInviteStatus(ctx context.Context, inviteID string, status invite.Status, updatedAt time.Time) error {
	if err := s.ready(); err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE invites SET status = ?, updated_at = ? WHERE id = ?
`, string(status), toMillis(updatedAt), inviteID)
	if err != nil {
		return fmt.Errorf("update invite status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update invite rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanInvite(row rowScanner) (storage.InviteRecord, error) {
	var record storage.InviteRecord
	var status string
	var createdAt, updatedAt int64

	err := row.Scan(
		&record.ID,
		&record.SessionID,
		&record.RecipientUserID,
		&record.Role,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.InviteRecord{}, err
		}
		return storage.InviteRecord{}, fmt.Errorf("scan invite: %w", err)
	}

	parsed, ok := invite.ParseStatus(status)
	if !ok {
		return storage.InviteRecord{}, fmt.Errorf("unknown invite status %q", status)
	}
	record.Status = parsed
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}
