package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/arena/internal/platform/errors"
	"github.com/louisbranch/arena/internal/services/arena/storage"
)

// Settlement methods

// PutSettlement stores a settlement and its payouts atomically. A session
// can settle at most once; a second attempt fails without touching rows.
func (s *Store) PutSettlement(ctx context.Context, record storage.SettlementRecord) error {
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(record.SessionID) == "" {
		return fmt.Errorf("session id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM settlements WHERE session_id = ?`, record.SessionID).Scan(&exists)
	if err == nil {
		return apperrors.WithMetadata(apperrors.CodeSettlementAlreadyApplied, "session is already settled", map[string]string{"SessionID": record.SessionID})
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check settlement: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO settlements (session_id, created_at) VALUES (?, ?)
`, record.SessionID, toMillis(record.CreatedAt)); err != nil {
		return fmt.Errorf("put settlement: %w", err)
	}

	for _, payout := range record.Payouts {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO payouts (session_id, participant_id, user_id, amount, reason)
VALUES (?, ?, ?, ?, ?)
`, record.SessionID, payout.ParticipantID, payout.UserID, payout.Amount, payout.Reason); err != nil {
			return fmt.Errorf("put payout: %w", err)
		}
	}

	return tx.Commit()
}

// GetSettlement returns the settlement for a session with its payouts.
func (s *Store) GetSettlement(ctx context.Context, sessionID string) (storage.SettlementRecord, error) {
	if err := s.ready(); err != nil {
		return storage.SettlementRecord{}, err
	}

	var record storage.SettlementRecord
	var createdAt int64
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT session_id, created_at FROM settlements WHERE session_id = ?
`, sessionID).Scan(&record.SessionID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.SettlementRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.SettlementRecord{}, fmt.Errorf("get settlement: %w", err)
	}
	record.CreatedAt = fromMillis(createdAt)

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT participant_id, user_id, amount, reason
FROM payouts WHERE session_id = ? ORDER BY participant_id
`, sessionID)
	if err != nil {
		return storage.SettlementRecord{}, fmt.Errorf("list payouts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var payout storage.PayoutRecord
		if err := rows.Scan(&payout.ParticipantID, &payout.UserID, &payout.Amount, &payout.Reason); err != nil {
			return storage.SettlementRecord{}, fmt.Errorf("scan payout: %w", err)
		}
		record.Payouts = append(record.Payouts, payout)
	}
	return record, rows.Err()
}
