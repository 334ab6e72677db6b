package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/arena/internal/services/arena/storage"
)

// Definition methods

// PutDefinition stores or replaces a definition document.
func (s *Store) PutDefinition(ctx context.Context, record storage.DefinitionRecord) error {
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("definition id is required")
	}
	if len(record.Document) == 0 {
		return fmt.Errorf("definition document is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO definitions (id, name, category, document, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    category = excluded.category,
    document = excluded.document,
    updated_at = excluded.updated_at
`,
		record.ID,
		record.Name,
		record.Category,
		record.Document,
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put definition: %w", err)
	}
	return nil
}

// GetDefinition returns a definition by id.
func (s *Store) GetDefinition(ctx context.Context, id string) (storage.DefinitionRecord, error) {
	if err := s.ready(); err != nil {
		return storage.DefinitionRecord{}, err
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, name, category, document, created_at, updated_at
FROM definitions WHERE id = ?
`, id)

	var record storage.DefinitionRecord
	var createdAt, updatedAt int64
	err := row.Scan(&record.ID, &record.Name, &record.Category, &record.Document, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.DefinitionRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.DefinitionRecord{}, fmt.Errorf("get definition: %w", err)
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

// ListDefinitions returns all stored definitions ordered by name.
func (s *Store) ListDefinitions(ctx context.Context) ([]storage.DefinitionRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, name, category, document, created_at, updated_at
FROM definitions ORDER BY name, id
`)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	defer rows.Close()

	var records []storage.DefinitionRecord
	for rows.Next() {
		var record storage.DefinitionRecord
		var createdAt, updatedAt int64
		if err := rows.Scan(&record.ID, &record.Name, &record.Category, &record.Document, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan definition: %w", err)
		}
		record.CreatedAt = fromMillis(createdAt)
		record.UpdatedAt = fromMillis(updatedAt)
		records = append(records, record)
	}
	return records, rows.Err()
}

// DeleteDefinition removes a definition by id.
func (s *Store) DeleteDefinition(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM definitions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete definition: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete definition rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
