package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/solswan/cadence/internal/model"
)

// SaveEntries saves multiple entries to the database. Entries whose hash
// already exists are skipped, so re-importing a statement is harmless.
func (s *SQLiteStorage) SaveEntries(ctx context.Context, entries []model.Entry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEntries(entries); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO entries (
			id, hash, user_id, kind, title, amount, category, date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, entry := range entries {
		if entry.Hash == "" {
			entry.Hash = entry.GenerateHash()
		}

		_, err = stmt.ExecContext(ctx,
			entry.ID,
			entry.Hash,
			entry.UserID,
			string(entry.Kind),
			entry.Title,
			entry.Amount,
			entry.Category,
			entry.Date,
		)
		if err != nil {
			return fmt.Errorf("failed to insert entry %s: %w", entry.ID, err)
		}
	}

	return tx.Commit()
}

// GetEntries retrieves a user's entries, newest first, optionally bounded
// by a date floor.
func (s *SQLiteStorage) GetEntries(ctx context.Context, userID string, since *time.Time) ([]model.Entry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, hash, user_id, kind, title, amount, category, date, created_at
		FROM entries
		WHERE user_id = ?`
	args := []any{userID}

	if since != nil {
		query += ` AND date >= ?`
		args = append(args, *since)
	}

	query += ` ORDER BY date DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var entries []model.Entry
	for rows.Next() {
		var entry model.Entry
		var kind string
		var category sql.NullString

		if err := rows.Scan(
			&entry.ID, &entry.Hash, &entry.UserID, &kind, &entry.Title,
			&entry.Amount, &category, &entry.Date, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}

		entry.Kind = model.EntryKind(kind)
		if category.Valid {
			entry.Category = category.String
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	return entries, nil
}

// CountEntries returns the number of entries recorded for a user.
func (s *SQLiteStorage) CountEntries(ctx context.Context, userID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE user_id = ?`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}

	return count, nil
}
