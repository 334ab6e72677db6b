package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/arena/internal/services/arena/domain/gamestate"
	"github.com/louisbranch/arena/internal/services/arena/domain/session"
	"github.com/louisbranch/arena/internal/services/arena/storage"
)

// Session methods

// PutSession stores or replaces a session, serializing its state blob.
func (s *Store) PutSession(ctx context.Context, record storage.SessionRecord) error {
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("session id is required")
	}
	if strings.TrimSpace(record.DefinitionID) == "" {
		return fmt.Errorf("definition id is required")
	}

	state := record.State
	if state == nil {
		state = gamestate.State{}
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO sessions (id, definition_id, status, current_phase, state, prize_pool, created_at, updated_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    status = excluded.status,
    current_phase = excluded.current_phase,
    state = excluded.state,
    prize_pool = excluded.prize_pool,
    updated_at = excluded.updated_at,
    finished_at = excluded.finished_at
`,
		record.ID,
		record.DefinitionID,
		string(record.Status),
		record.CurrentPhase,
		stateJSON,
		record.PrizePool,
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
		toNullMillis(record.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// GetSession returns a session by id with its deserialized state.
func (s *Store) GetSession(ctx context.Context, id string) (storage.SessionRecord, error) {
	if err := s.ready(); err != nil {
		return storage.SessionRecord{}, err
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, definition_id, status, current_phase, state, prize_pool, created_at, updated_at, finished_at
FROM sessions WHERE id = ?
`, id)
	return scanSession(row)
}

// ListSessionsByStatus returns sessions in a lifecycle status, oldest first.
// Startup uses this to re-arm phase timers for sessions that were active
// when the process stopped.
func (s *Store) ListSessionsByStatus(ctx context.Context, status session.Status) ([]storage.SessionRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, definition_id, status, current_phase, state, prize_pool, created_at, updated_at, finished_at
FROM sessions WHERE status = ? ORDER BY created_at, id
`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var records []storage.SessionRecord
	for rows.Next() {
		record, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (storage.SessionRecord, error) {
	var record storage.SessionRecord
	var status string
	var stateJSON []byte
	var createdAt, updatedAt int64
	var finishedAt sql.NullInt64

	err := row.Scan(
		&record.ID,
		&record.DefinitionID,
		&status,
		&record.CurrentPhase,
		&stateJSON,
		&record.PrizePool,
		&createdAt,
		&updatedAt,
		&finishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.SessionRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.SessionRecord{}, fmt.Errorf("scan session: %w", err)
	}

	parsed, ok := session.ParseStatus(status)
	if !ok {
		return storage.SessionRecord{}, fmt.Errorf("unknown session status %q", status)
	}
	record.Status = parsed

	record.State = gamestate.State{}
	if len(stateJSON) > 0 {
		if err := json.Unmarshal(stateJSON, &record.State); err != nil {
			return storage.SessionRecord{}, fmt.Errorf("unmarshal session state: %w", err)
		}
	}

	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	record.FinishedAt = fromNullMillis(finishedAt)
	return record, nil
}
