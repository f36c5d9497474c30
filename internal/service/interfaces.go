// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/solswan/cadence/internal/model"
)

// Storage defines the contract for our persistence layer. The engine
// reads the transaction side and owns the pattern side; financial entries
// are only ever written by ingestion (import, add).
type Storage interface {
	// Transaction store operations
	SaveEntries(ctx context.Context, entries []model.Entry) error
	GetEntries(ctx context.Context, userID string, since *time.Time) ([]model.Entry, error)
	CountEntries(ctx context.Context, userID string) (int, error)

	// Pattern repository operations
	GetActivePatterns(ctx context.Context, userID string) ([]model.Pattern, error)
	UpsertPattern(ctx context.Context, userID string, draft model.Draft) (*model.Pattern, error)
	SavePattern(ctx context.Context, pattern *model.Pattern) error
	DeactivatePattern(ctx context.Context, userID string, id int64) error

	// Analysis freshness tracking
	GetLastAnalysis(ctx context.Context, userID string) (*time.Time, error)
	SaveAnalysisRun(ctx context.Context, userID string, at time.Time) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// UpdateOutcome describes the result of an incremental pattern update.
type UpdateOutcome string

// Incremental update outcomes.
const (
	OutcomeUpdated UpdateOutcome = "updated"
	OutcomeCreated UpdateOutcome = "created"
	OutcomeNone    UpdateOutcome = "noop"
)

// UpdateResult reports what an incremental pattern update did. Pattern is
// set for OutcomeUpdated; Draft is set for OutcomeCreated.
type UpdateResult struct {
	Pattern *model.Pattern
	Draft   *model.Draft
	Outcome UpdateOutcome
}
