package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/solswan/cadence/internal/model"
	"github.com/solswan/cadence/internal/pattern"
	"github.com/solswan/cadence/internal/service"
)

// minSimilarForDraft is how many prior same-titled transactions a new
// transaction needs before the engine suggests a brand-new pattern.
const minSimilarForDraft = 2

// RecordTransaction runs the incremental update for a newly recorded
// transaction: the first matching active pattern absorbs it as an
// occurrence; otherwise enough same-titled history synthesizes a
// report-only draft. Drafts are not persisted here — the next full
// analysis promotes them.
func (e *PatternEngine) RecordTransaction(ctx context.Context, userID string, entry model.Entry) (service.UpdateResult, error) {
	if entry.Title == "" || !entry.Kind.Valid() {
		return service.UpdateResult{}, fmt.Errorf("invalid entry: title and kind are required")
	}

	patterns, err := e.storage.GetActivePatterns(ctx, userID)
	if err != nil {
		return service.UpdateResult{}, fmt.Errorf("failed to load patterns: %w", err)
	}

	for _, p := range patterns {
		result := pattern.Match(p, entry)
		if !result.Matches {
			continue
		}

		updated := p.WithOccurrence(model.Occurrence{
			Date:    entry.Date,
			Amount:  entry.Amount,
			EntryID: entry.ID,
		})

		if err := e.storage.SavePattern(ctx, &updated); err != nil {
			return service.UpdateResult{}, fmt.Errorf("failed to save occurrence: %w", err)
		}

		slog.Info("Pattern absorbed transaction",
			"user_id", userID,
			"pattern_id", updated.ID,
			"title", updated.Title,
			"confidence", result.Confidence,
			"reason", result.Reason)

		return service.UpdateResult{
			Outcome: service.OutcomeUpdated,
			Pattern: &updated,
		}, nil
	}

	entries, err := e.storage.GetEntries(ctx, userID, nil)
	if err != nil {
		return service.UpdateResult{}, fmt.Errorf("failed to load entries: %w", err)
	}

	if pattern.CountSimilarTitles(entries, entry.Title, entry.ID) >= minSimilarForDraft {
		draft := pattern.DraftForEntry(entries, entry)
		draft.ID = uuid.New().String()

		slog.Info("Suggested new pattern from repeated title",
			"user_id", userID, "title", draft.Title, "frequency", string(draft.Frequency))

		return service.UpdateResult{
			Outcome: service.OutcomeCreated,
			Draft:   &draft,
		}, nil
	}

	return service.UpdateResult{Outcome: service.OutcomeNone}, nil
}
