package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/arena/internal/services/arena/storage"
)

// Audit methods

// AppendAction records an accepted action in the durable journal. Unlike
// the in-state log this journal survives phase transitions.
func (s *Store) AppendAction(ctx context.Context, record storage.ActionRecord) error {
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("action id is required")
	}
	if strings.TrimSpace(record.SessionID) == "" {
		return fmt.Errorf("session id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO action_log (id, session_id, participant_id, phase, action, params, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		record.ID,
		record.SessionID,
		record.ParticipantID,
		record.Phase,
		record.Action,
		record.Params,
		toMillis(record.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("append action: %w", err)
	}
	return nil
}

// ListActions returns the journal for a session in append order.
func (s *Store) ListActions(ctx context.Context, sessionID string) ([]storage.ActionRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, session_id, participant_id, phase, action, params, created_at
FROM action_log WHERE session_id = ? ORDER BY created_at, id
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var records []storage.ActionRecord
	for rows.Next() {
		var record storage.ActionRecord
		var createdAt int64
		if err := rows.Scan(
			&record.ID,
			&record.SessionID,
			&record.ParticipantID,
			&record.Phase,
			&record.Action,
			&record.Params,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		record.CreatedAt = fromMillis(createdAt)
		records = append(records, record)
	}
	return records, rows.Err()
}
