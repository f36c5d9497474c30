package engine

import (
	"context"

	"github.com/solswan/cadence/internal/model"
)

// Analyzer runs the expensive AI-backed pattern analysis over a
// transaction window.
type Analyzer interface {
	Analyze(ctx context.Context, entries []model.Entry) ([]model.Draft, error)
}
