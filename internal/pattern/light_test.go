package pattern

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solswan/cadence/internal/model"
)

// entriesAtGap builds n same-titled expense entries spaced gapDays apart.
func entriesAtGap(title string, n, gapDays int) []model.Entry {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := make([]model.Entry, n)
	for i := range entries {
		entries[i] = model.Entry{
			ID:     title + string(rune('a'+i)),
			Title:  title,
			Amount: 9.99,
			Kind:   model.KindExpense,
			Date:   start.AddDate(0, 0, i*gapDays),
		}
	}
	return entries
}

func TestAnalyzeLight(t *testing.T) {
	t.Run("deduplicates titles case-insensitively", func(t *testing.T) {
		entries := []model.Entry{
			{ID: "1", Title: "Netflix", Amount: 15.49, Kind: model.KindExpense, Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
			{ID: "2", Title: "NETFLIX", Amount: 15.49, Kind: model.KindExpense, Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
			{ID: "3", Title: "Rent", Amount: 1200, Kind: model.KindExpense, Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		}

		drafts := AnalyzeLight(entries)

		require.Len(t, drafts, 2)
		assert.Equal(t, "Netflix", drafts[0].Title)
		assert.Equal(t, "Rent", drafts[1].Title)
	})

	t.Run("drafts carry fixed confidence and heuristic reason", func(t *testing.T) {
		drafts := AnalyzeLight(entriesAtGap("Spotify", 4, 30))

		require.Len(t, drafts, 1)
		assert.InDelta(t, LightConfidence, drafts[0].Confidence, 0.001)
		assert.Equal(t, LightReason, drafts[0].Reason)
		assert.Equal(t, model.DefaultCategory, drafts[0].Category)
		assert.True(t, drafts[0].LastOccurrence.IsZero())
	})

	t.Run("skips blank titles", func(t *testing.T) {
		entries := []model.Entry{
			{ID: "1", Title: "   ", Amount: 5, Kind: model.KindExpense},
			{ID: "2", Title: "", Amount: 5, Kind: model.KindExpense},
		}
		assert.Empty(t, AnalyzeLight(entries))
	})

	t.Run("empty input yields no drafts", func(t *testing.T) {
		assert.Empty(t, AnalyzeLight(nil))
	})
}

func TestEstimateFrequency(t *testing.T) {
	tests := []struct {
		name    string
		entries []model.Entry
		want    model.Frequency
	}{
		{"single occurrence defaults to monthly", entriesAtGap("Coffee", 1, 0), model.FrequencyMonthly},
		{"two occurrences still default to monthly", entriesAtGap("Coffee", 2, 1), model.FrequencyMonthly},
		{"one day gap is daily", entriesAtGap("Coffee", 5, 1), model.FrequencyDaily},
		{"ten day gap is weekly", entriesAtGap("Cleaner", 4, 10), model.FrequencyWeekly},
		{"thirty day gap is monthly", entriesAtGap("Netflix", 6, 30), model.FrequencyMonthly},
		{"hundred day gap is quarterly", entriesAtGap("Insurance", 3, 100), model.FrequencyQuarterly},
		{"four hundred day gap is yearly", entriesAtGap("Domain renewal", 3, 400), model.FrequencyYearly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := strings.ToLower(tt.entries[0].Title)
			assert.Equal(t, tt.want, estimateFrequency(tt.entries, key))
		})
	}
}

func TestClassifyGap(t *testing.T) {
	tests := []struct {
		days float64
		want model.Frequency
	}{
		{1, model.FrequencyDaily},
		{6.99, model.FrequencyDaily},
		{7, model.FrequencyWeekly},
		{13.99, model.FrequencyWeekly},
		{14, model.FrequencyMonthly},
		{44.99, model.FrequencyMonthly},
		{45, model.FrequencyQuarterly},
		{119.99, model.FrequencyQuarterly},
		{120, model.FrequencyYearly},
		{400, model.FrequencyYearly},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyGap(tt.days), "days=%v", tt.days)
	}
}

func TestCountSimilarTitles(t *testing.T) {
	entries := []model.Entry{
		{ID: "1", Title: "Netflix Subscription"},
		{ID: "2", Title: "netflix subscription"},
		{ID: "3", Title: "NETFLIX"},
		{ID: "4", Title: "Spotify"},
	}

	t.Run("substring match excluding self", func(t *testing.T) {
		assert.Equal(t, 2, CountSimilarTitles(entries, "Netflix", "3"))
	})

	t.Run("no exclusion", func(t *testing.T) {
		assert.Equal(t, 3, CountSimilarTitles(entries, "netflix", "new-entry"))
	})

	t.Run("blank title counts nothing", func(t *testing.T) {
		assert.Equal(t, 0, CountSimilarTitles(entries, "  ", "1"))
	})
}

func TestDraftForEntry(t *testing.T) {
	history := entriesAtGap("Gym Membership", 4, 30)
	entry := model.Entry{
		ID:       "new",
		Title:    "Gym Membership",
		Amount:   45,
		Kind:     model.KindExpense,
		Category: "health",
		Date:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	draft := DraftForEntry(history, entry)

	assert.Equal(t, "Gym Membership", draft.Title)
	assert.Equal(t, model.FrequencyMonthly, draft.Frequency)
	assert.Equal(t, "health", draft.Category)
	assert.InDelta(t, LightConfidence, draft.Confidence, 0.001)
	assert.Equal(t, entry.Date, draft.LastOccurrence)
	assert.Equal(t, entry.Date.AddDate(0, 1, 0), draft.NextExpected)
}

func TestStampDrafts(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	drafts := StampDrafts([]model.Draft{
		{Title: "Netflix", Frequency: model.FrequencyMonthly},
		{Title: "Coffee", Frequency: model.FrequencyDaily},
	}, now)

	require.Len(t, drafts, 2)
	assert.Equal(t, now, drafts[0].LastOccurrence)
	assert.Equal(t, now.AddDate(0, 1, 0), drafts[0].NextExpected)
	assert.Equal(t, now.AddDate(0, 0, 1), drafts[1].NextExpected)
}
