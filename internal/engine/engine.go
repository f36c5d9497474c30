// Package engine implements the recurring-pattern decision flow: serve
// cached patterns when they exist, run the expensive AI analysis only
// when stale, and degrade to cheap heuristics when anything fails.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/solswan/cadence/internal/common"
	"github.com/solswan/cadence/internal/model"
	"github.com/solswan/cadence/internal/pattern"
	"github.com/solswan/cadence/internal/service"
)

// Window names the history slice handed to an analyzer.
type Window string

// Analysis windows, chosen by total transaction count to bound prompt
// size as history grows.
const (
	WindowAll     Window = "all"
	Window6Months Window = "6months"
	Window3Months Window = "3months"
	Window1Month  Window = "1month"
)

// Config holds configuration options for the pattern engine.
type Config struct {
	// FreshnessWindow is how long a full analysis stays fresh; within it
	// only the light analyzer runs.
	FreshnessWindow time.Duration
	// MinPersistConfidence gates which AI drafts become stored patterns.
	MinPersistConfidence float64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		FreshnessWindow:      7 * 24 * time.Hour,
		MinPersistConfidence: 0.7,
	}
}

// PatternEngine orchestrates pattern detection for a user's transaction
// history.
type PatternEngine struct {
	storage  service.Storage
	analyzer Analyzer
	now      func() time.Time
	config   Config
}

// New creates a new pattern engine with the given dependencies.
func New(storage service.Storage, analyzer Analyzer) *PatternEngine {
	return NewWithConfig(storage, analyzer, DefaultConfig())
}

// NewWithConfig creates a new pattern engine with custom configuration.
func NewWithConfig(storage service.Storage, analyzer Analyzer, config Config) *PatternEngine {
	return &PatternEngine{
		storage:  storage,
		analyzer: analyzer,
		config:   config,
		now:      time.Now,
	}
}

// GetPatterns returns the user's recurring patterns, running whichever
// analysis the decision flow calls for. On total failure it returns an
// empty slice together with an explicit error so the caller always has a
// response.
func (e *PatternEngine) GetPatterns(ctx context.Context, userID string) ([]service.PatternView, error) {
	views, err := e.getPatternsPrimary(ctx, userID)
	if err == nil {
		return views, nil
	}

	slog.Warn("Primary pattern analysis failed, falling back to heuristics",
		"user_id", userID, "error", err)

	fallback, fallbackErr := e.fallbackViews(ctx, userID)
	if fallbackErr != nil {
		slog.Error("Fallback analysis failed",
			"user_id", userID, "error", fallbackErr)
		return []service.PatternView{}, fmt.Errorf("%w: %v", common.ErrAnalysisUnavailable, err)
	}

	return fallback, nil
}

// getPatternsPrimary runs the cache → freshness → full/light decision
// flow. Any error propagates to the caller's fallback branch.
func (e *PatternEngine) getPatternsPrimary(ctx context.Context, userID string) ([]service.PatternView, error) {
	// Cache hit: no analysis runs.
	cached, err := e.storage.GetActivePatterns(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached patterns: %w", err)
	}
	if len(cached) > 0 {
		slog.Debug("Serving cached patterns", "user_id", userID, "count", len(cached))
		return patternViews(cached), nil
	}

	runFull, err := e.shouldRunFullAnalysis(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries, err := e.windowedEntries(ctx, userID)
	if err != nil {
		return nil, err
	}

	if runFull {
		return e.runFullAnalysis(ctx, userID, entries)
	}

	return e.runLightAnalysis(userID, entries, "light"), nil
}

// shouldRunFullAnalysis reports whether the user's last full analysis is
// missing or stale.
func (e *PatternEngine) shouldRunFullAnalysis(ctx context.Context, userID string) (bool, error) {
	last, err := e.storage.GetLastAnalysis(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check analysis freshness: %w", err)
	}
	if last == nil {
		return true, nil
	}
	return e.now().Sub(*last) >= e.config.FreshnessWindow, nil
}

// windowedEntries picks the history slice by total transaction count and
// fetches it.
func (e *PatternEngine) windowedEntries(ctx context.Context, userID string) ([]model.Entry, error) {
	count, err := e.storage.CountEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}

	window := SelectWindow(count)
	floor := e.windowFloor(window)

	entries, err := e.storage.GetEntries(ctx, userID, floor)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}

	slog.Debug("Selected analysis window",
		"user_id", userID, "total", count, "window", string(window), "entries", len(entries))

	return entries, nil
}

// SelectWindow maps a total transaction count to an analysis window.
func SelectWindow(count int) Window {
	switch {
	case count < 100:
		return WindowAll
	case count < 500:
		return Window6Months
	case count < 1000:
		return Window3Months
	default:
		return Window1Month
	}
}

// windowFloor converts a window to a date floor; nil means no floor.
func (e *PatternEngine) windowFloor(w Window) *time.Time {
	var floor time.Time
	switch w {
	case Window6Months:
		floor = e.now().AddDate(0, -6, 0)
	case Window3Months:
		floor = e.now().AddDate(0, -3, 0)
	case Window1Month:
		floor = e.now().AddDate(0, -1, 0)
	default:
		return nil
	}
	return &floor
}

// runFullAnalysis invokes the AI analyzer and persists the drafts that
// clear the confidence gate. Individual upsert failures do not abort the
// batch.
func (e *PatternEngine) runFullAnalysis(ctx context.Context, userID string, entries []model.Entry) ([]service.PatternView, error) {
	if len(entries) == 0 {
		slog.Info("No transactions in analysis window", "user_id", userID)
		return []service.PatternView{}, nil
	}

	drafts, err := e.analyzer.Analyze(ctx, entries)
	if err != nil {
		return nil, fmt.Errorf("full analysis failed: %w", err)
	}

	views := make([]service.PatternView, 0, len(drafts))
	for i, draft := range drafts {
		if draft.Confidence <= e.config.MinPersistConfidence {
			slog.Debug("Skipping low-confidence draft",
				"user_id", userID, "title", draft.Title, "confidence", draft.Confidence)
			continue
		}

		stored, upsertErr := e.storage.UpsertPattern(ctx, userID, draft)
		if upsertErr != nil {
			slog.Error("Failed to persist pattern",
				"user_id", userID, "title", draft.Title, "error", upsertErr)
			views = append(views, service.ViewFromDraft(fmt.Sprintf("ai_%d", i+1), draft))
			continue
		}
		views = append(views, service.ViewFromPattern(*stored))
	}

	if err := e.storage.SaveAnalysisRun(ctx, userID, e.now()); err != nil {
		slog.Warn("Failed to record analysis run", "user_id", userID, "error", err)
	}

	slog.Info("Full analysis complete",
		"user_id", userID, "drafts", len(drafts), "persisted", len(views))

	return views, nil
}

// runLightAnalysis produces unpersisted heuristic drafts with synthetic
// identifiers and the current date as their last occurrence.
func (e *PatternEngine) runLightAnalysis(userID string, entries []model.Entry, idPrefix string) []service.PatternView {
	drafts := pattern.StampDrafts(pattern.AnalyzeLight(entries), e.now())

	views := make([]service.PatternView, 0, len(drafts))
	for i, draft := range drafts {
		views = append(views, service.ViewFromDraft(fmt.Sprintf("%s_%d", idPrefix, i+1), draft))
	}

	slog.Debug("Light analysis complete", "user_id", userID, "drafts", len(views))

	return views
}

// fallbackViews re-fetches the full unwindowed history and runs the
// light analyzer over it.
func (e *PatternEngine) fallbackViews(ctx context.Context, userID string) ([]service.PatternView, error) {
	entries, err := e.storage.GetEntries(ctx, userID, nil)
	if err != nil {
		return nil, fmt.Errorf("fallback fetch failed: %w", err)
	}
	return e.runLightAnalysis(userID, entries, "fallback"), nil
}

// GetCachedPatterns is a repository pass-through with a light-analysis
// fallback when nothing is cached. It never persists anything.
func (e *PatternEngine) GetCachedPatterns(ctx context.Context, userID string) ([]service.PatternView, error) {
	cached, err := e.storage.GetActivePatterns(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached patterns: %w", err)
	}
	if len(cached) > 0 {
		return patternViews(cached), nil
	}

	entries, err := e.storage.GetEntries(ctx, userID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}

	return e.runLightAnalysis(userID, entries, "light"), nil
}

func patternViews(patterns []model.Pattern) []service.PatternView {
	views := make([]service.PatternView, len(patterns))
	for i, p := range patterns {
		views[i] = service.ViewFromPattern(p)
	}
	return views
}
