package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/arena/internal/services/arena/domain/participant"
	"github.com/louisbranch/arena/internal/services/arena/storage"
)

// Participant methods

// PutParticipant stores or replaces a participant row.
func (s *Store) PutParticipant(ctx context.Context, record storage.ParticipantRecord) error {
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(record.SessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("participant id is required")
	}

	connected := 0
	if record.Connected {
		connected = 1
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO participants (id, session_id, user_id, agent_id, role, control_mode, connected, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(session_id, id) DO UPDATE SET
    user_id = excluded.user_id,
    agent_id = excluded.agent_id,
    role = excluded.role,
    control_mode = excluded.control_mode,
    connected = excluded.connected,
    updated_at = excluded.updated_at
`,
		record.ID,
		record.SessionID,
		record.UserID,
		record.AgentID,
		record.Role,
		string(record.ControlMode),
		connected,
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put participant: %w", err)
	}
	return nil
}

// GetParticipant returns one participant in a session.
func (s *Store) GetParticipant(ctx context.Context, sessionID, participantID string) (storage.ParticipantRecord, error) {
	if err := s.ready(); err != nil {
		return storage.ParticipantRecord{}, err
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, session_id, user_id, agent_id, role, control_mode, connected, created_at, updated_at
FROM participants WHERE session_id = ? AND id = ?
`, sessionID, participantID)

	record, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ParticipantRecord{}, storage.ErrNotFound
	}
	return record, err
}

// ListParticipantsBySession returns all participants for a session in join order.
func (s *Store) ListParticipantsBySession(ctx context.Context, sessionID string) ([]storage.ParticipantRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, session_id, user_id, agent_id, role, control_mode, connected, created_at, updated_at
FROM participants WHERE session_id = ? ORDER BY created_at, id
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var records []storage.ParticipantRecord
	for rows.Next() {
		record, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// DeleteParticipant removes a participant from a session.
func (s *Store) DeleteParticipant(ctx context.Context, sessionID, participantID string) error {
	if err := s.ready(); err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM participants WHERE session_id = ? AND id = ?`, sessionID, participantID)
	if err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete participant rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanParticipant(row rowScanner) (storage.ParticipantRecord, error) {
	var record storage.ParticipantRecord
	var mode string
	var connected int
	var createdAt, updatedAt int64

	err := row.Scan(
		&record.ID,
		&record.SessionID,
		&record.UserID,
		&record.AgentID,
		&record.Role,
		&mode,
		&connected,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ParticipantRecord{}, err
		}
		return storage.ParticipantRecord{}, fmt.Errorf("scan participant: %w", err)
	}

	parsed, ok := participant.ParseControlMode(mode)
	if !ok {
		return storage.ParticipantRecord{}, fmt.Errorf("unknown control mode %q", mode)
	}
	record.ControlMode = parsed
	record.Connected = connected != 0
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}
