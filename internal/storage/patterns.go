package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/solswan/cadence/internal/common"
	"github.com/solswan/cadence/internal/model"
)

// GetActivePatterns returns a user's active patterns ordered by
// confidence, then recency.
func (s *SQLiteStorage) GetActivePatterns(ctx context.Context, userID string) ([]model.Pattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, title, type, category, average_amount, frequency,
			confidence, reason, last_occurrence, next_expected, occurrences,
			total_occurrences, last_updated, is_active
		FROM patterns
		WHERE user_id = ? AND is_active = 1
		ORDER BY confidence DESC, last_updated DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var patterns []model.Pattern
	for rows.Next() {
		pattern, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, *pattern)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate patterns: %w", err)
	}

	return patterns, nil
}

// UpsertPattern creates or overwrites the pattern keyed by the user and
// the draft's (title, type). Draft fields replace the stored ones; the
// occurrence history survives a conflict. The upsert always resets
// last_updated, reactivates the pattern, and recomputes next_expected
// from the draft's last occurrence and frequency.
func (s *SQLiteStorage) UpsertPattern(ctx context.Context, userID string, draft model.Draft) (*model.Pattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateDraft(&draft); err != nil {
		return nil, err
	}

	lastOccurrence := draft.LastOccurrence
	if lastOccurrence.IsZero() {
		lastOccurrence = time.Now()
	}
	nextExpected := model.NextExpected(lastOccurrence, draft.Frequency)
	now := time.Now()

	query := `
		INSERT INTO patterns (
			user_id, title, type, category, average_amount, frequency,
			confidence, reason, last_occurrence, next_expected, last_updated, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(user_id, title, type) DO UPDATE SET
			category = excluded.category,
			average_amount = excluded.average_amount,
			frequency = excluded.frequency,
			confidence = excluded.confidence,
			reason = excluded.reason,
			last_occurrence = excluded.last_occurrence,
			next_expected = excluded.next_expected,
			last_updated = excluded.last_updated,
			is_active = 1`

	_, err := s.db.ExecContext(ctx, query,
		userID, draft.Title, string(draft.Type), draft.Category, draft.Amount,
		string(draft.Frequency), draft.Confidence, draft.Reason,
		lastOccurrence, nextExpected, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert pattern: %w", err)
	}

	return s.getPatternByKey(ctx, userID, draft.Title, string(draft.Type))
}

// SavePattern persists occurrence-level changes to an existing pattern.
func (s *SQLiteStorage) SavePattern(ctx context.Context, pattern *model.Pattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if pattern == nil {
		return fmt.Errorf("%w: pattern", ErrNilParameter)
	}

	occurrencesJSON, err := json.Marshal(pattern.Occurrences)
	if err != nil {
		return fmt.Errorf("failed to marshal occurrences: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE patterns SET
			average_amount = ?,
			last_occurrence = ?,
			next_expected = ?,
			occurrences = ?,
			total_occurrences = ?,
			last_updated = ?
		WHERE id = ?`,
		pattern.AverageAmount, pattern.LastOccurrence, pattern.NextExpected,
		string(occurrencesJSON), pattern.TotalOccurrences, time.Now(), pattern.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save pattern: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check save result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("pattern %d: %w", pattern.ID, common.ErrNotFound)
	}

	return nil
}

// DeactivatePattern soft-deletes a pattern without touching its history.
func (s *SQLiteStorage) DeactivatePattern(ctx context.Context, userID string, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE patterns SET is_active = 0, last_updated = ? WHERE id = ? AND user_id = ?`,
		time.Now(), id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate pattern: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deactivate result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("pattern %d: %w", id, common.ErrNotFound)
	}

	return nil
}

// GetLastAnalysis returns when the user's most recent full analysis ran,
// or nil if none has run yet.
func (s *SQLiteStorage) GetLastAnalysis(ctx context.Context, userID string) (*time.Time, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	var ranAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT ran_at FROM analysis_runs WHERE user_id = ?`, userID,
	).Scan(&ranAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last analysis: %w", err)
	}

	return &ranAt, nil
}

// SaveAnalysisRun records when a full analysis ran for a user.
func (s *SQLiteStorage) SaveAnalysisRun(ctx context.Context, userID string, at time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_runs (user_id, ran_at) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET ran_at = excluded.ran_at`,
		userID, at,
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis run: %w", err)
	}

	return nil
}

// getPatternByKey fetches a single pattern by its natural key.
func (s *SQLiteStorage) getPatternByKey(ctx context.Context, userID, title, patternType string) (*model.Pattern, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, type, category, average_amount, frequency,
			confidence, reason, last_occurrence, next_expected, occurrences,
			total_occurrences, last_updated, is_active
		FROM patterns
		WHERE user_id = ? AND title = ? AND type = ?`,
		userID, title, patternType,
	)

	pattern, err := scanPattern(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pattern %s/%s: %w", title, patternType, common.ErrNotFound)
	}
	return pattern, err
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPattern(row scanner) (*model.Pattern, error) {
	var pattern model.Pattern
	var patternType, frequency string
	var reason sql.NullString
	var lastOccurrence, nextExpected sql.NullTime
	var occurrencesJSON string

	err := row.Scan(
		&pattern.ID, &pattern.UserID, &pattern.Title, &patternType,
		&pattern.Category, &pattern.AverageAmount, &frequency,
		&pattern.Confidence, &reason, &lastOccurrence, &nextExpected,
		&occurrencesJSON, &pattern.TotalOccurrences, &pattern.LastUpdated,
		&pattern.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan pattern: %w", err)
	}

	pattern.Type = model.EntryKind(patternType)
	pattern.Frequency = model.Frequency(frequency)
	if reason.Valid {
		pattern.Reason = reason.String
	}
	if lastOccurrence.Valid {
		pattern.LastOccurrence = lastOccurrence.Time
	}
	if nextExpected.Valid {
		pattern.NextExpected = nextExpected.Time
	}

	if err := json.Unmarshal([]byte(occurrencesJSON), &pattern.Occurrences); err != nil {
		return nil, fmt.Errorf("failed to unmarshal occurrences: %w", err)
	}

	return &pattern, nil
}
