package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solswan/cadence/internal/common"
	"github.com/solswan/cadence/internal/model"
)

// mockStorage is an in-memory service.Storage with per-method error
// injection and call recording.
type mockStorage struct {
	entries      []model.Entry
	patterns     []model.Pattern
	lastAnalysis *time.Time

	getEntriesErr  error
	getPatternsErr error
	upsertErr      error

	upserted     []model.Draft
	saved        []model.Pattern
	analysisRuns []time.Time
	nextID       int64
}

func (m *mockStorage) SaveEntries(_ context.Context, entries []model.Entry) error {
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *mockStorage) GetEntries(_ context.Context, userID string, since *time.Time) ([]model.Entry, error) {
	if m.getEntriesErr != nil {
		return nil, m.getEntriesErr
	}
	var out []model.Entry
	for _, e := range m.entries {
		if e.UserID != userID {
			continue
		}
		if since != nil && e.Date.Before(*since) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *mockStorage) CountEntries(_ context.Context, userID string) (int, error) {
	count := 0
	for _, e := range m.entries {
		if e.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (m *mockStorage) GetActivePatterns(_ context.Context, userID string) ([]model.Pattern, error) {
	if m.getPatternsErr != nil {
		return nil, m.getPatternsErr
	}
	var out []model.Pattern
	for _, p := range m.patterns {
		if p.UserID == userID && p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockStorage) UpsertPattern(_ context.Context, userID string, draft model.Draft) (*model.Pattern, error) {
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	m.upserted = append(m.upserted, draft)
	m.nextID++
	p := model.Pattern{
		ID:             m.nextID,
		UserID:         userID,
		Title:          draft.Title,
		Type:           draft.Type,
		Category:       draft.Category,
		Frequency:      draft.Frequency,
		AverageAmount:  draft.Amount,
		Confidence:     draft.Confidence,
		Reason:         draft.Reason,
		LastOccurrence: draft.LastOccurrence,
		NextExpected:   draft.NextExpected,
		IsActive:       true,
	}
	m.patterns = append(m.patterns, p)
	return &p, nil
}

func (m *mockStorage) SavePattern(_ context.Context, pattern *model.Pattern) error {
	m.saved = append(m.saved, *pattern)
	for i, p := range m.patterns {
		if p.ID == pattern.ID {
			m.patterns[i] = *pattern
			return nil
		}
	}
	return common.ErrNotFound
}

func (m *mockStorage) DeactivatePattern(_ context.Context, userID string, id int64) error {
	for i, p := range m.patterns {
		if p.UserID == userID && p.ID == id {
			m.patterns[i].IsActive = false
			return nil
		}
	}
	return common.ErrNotFound
}

func (m *mockStorage) GetLastAnalysis(_ context.Context, _ string) (*time.Time, error) {
	return m.lastAnalysis, nil
}

func (m *mockStorage) SaveAnalysisRun(_ context.Context, _ string, at time.Time) error {
	m.analysisRuns = append(m.analysisRuns, at)
	m.lastAnalysis = &at
	return nil
}

func (m *mockStorage) Migrate(_ context.Context) error { return nil }
func (m *mockStorage) Close() error                    { return nil }

// mockAnalyzer counts calls and returns canned drafts.
type mockAnalyzer struct {
	err    error
	drafts []model.Draft
	calls  int
}

func (m *mockAnalyzer) Analyze(_ context.Context, _ []model.Entry) ([]model.Draft, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.drafts, nil
}

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestEngine(store *mockStorage, analyzer *mockAnalyzer) *PatternEngine {
	e := New(store, analyzer)
	e.now = func() time.Time { return testNow }
	return e
}

func monthlyEntries(userID, title string, n int, amount float64) []model.Entry {
	entries := make([]model.Entry, n)
	for i := range entries {
		entries[i] = model.Entry{
			ID:     title + "-" + string(rune('a'+i)),
			UserID: userID,
			Title:  title,
			Amount: amount,
			Kind:   model.KindExpense,
			Date:   testNow.AddDate(0, -i, 0),
		}
	}
	return entries
}

func TestSelectWindow(t *testing.T) {
	tests := []struct {
		count int
		want  Window
	}{
		{0, WindowAll},
		{50, WindowAll},
		{99, WindowAll},
		{100, Window6Months},
		{300, Window6Months},
		{499, Window6Months},
		{500, Window3Months},
		{700, Window3Months},
		{999, Window3Months},
		{1000, Window1Month},
		{1500, Window1Month},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SelectWindow(tt.count), "count=%d", tt.count)
	}
}

func TestPatternEngine_GetPatterns(t *testing.T) {
	t.Run("cache hit skips all analysis", func(t *testing.T) {
		store := &mockStorage{
			patterns: []model.Pattern{
				{
					ID: 1, UserID: "user1", Title: "Netflix", Type: model.KindExpense,
					Frequency: model.FrequencyMonthly, AverageAmount: 15.49,
					Confidence: 0.95, IsActive: true,
					LastOccurrence: testNow.AddDate(0, 0, -10),
					NextExpected:   testNow.AddDate(0, 0, 20),
				},
			},
		}
		analyzer := &mockAnalyzer{}
		e := newTestEngine(store, analyzer)

		views, err := e.GetPatterns(context.Background(), "user1")
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "Netflix", views[0].Title)
		assert.Equal(t, "1", views[0].ID)
		assert.Zero(t, analyzer.calls)
	})

	t.Run("inactive patterns are not a cache hit", func(t *testing.T) {
		store := &mockStorage{
			patterns: []model.Pattern{
				{ID: 1, UserID: "user1", Title: "Old Gym", IsActive: false},
			},
		}
		analyzer := &mockAnalyzer{}
		e := newTestEngine(store, analyzer)

		views, err := e.GetPatterns(context.Background(), "user1")
		require.NoError(t, err)
		assert.Empty(t, views)
		assert.Zero(t, analyzer.calls) // no transactions either, so no full run
	})

	t.Run("no prior analysis runs the full analyzer and persists confident drafts", func(t *testing.T) {
		store := &mockStorage{entries: monthlyEntries("user1", "Netflix", 5, 15.49)}
		analyzer := &mockAnalyzer{
			drafts: []model.Draft{
				{Title: "Netflix", Type: model.KindExpense, Frequency: model.FrequencyMonthly, Amount: 15.49, Confidence: 0.95},
				{Title: "Maybe Rent", Type: model.KindExpense, Frequency: model.FrequencyMonthly, Amount: 1200, Confidence: 0.5},
			},
		}
		e := newTestEngine(store, analyzer)

		views, err := e.GetPatterns(context.Background(), "user1")
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "Netflix", views[0].Title)

		// Only the confident draft was persisted, and the run was recorded.
		require.Len(t, store.upserted, 1)
		assert.Equal(t, "Netflix", store.upserted[0].Title)
		require.Len(t, store.analysisRuns, 1)
		assert.Equal(t, testNow, store.analysisRuns[0])
	})

	t.Run("draft at the confidence gate is not persisted", func(t *testing.T) {
		store := &mockStorage{entries: monthlyEntries("user1", "Rent", 4, 1200)}
		analyzer := &mockAnalyzer{
			drafts: []model.Draft{
				{Title: "Rent", Type: model.KindExpense, Frequency: model.FrequencyMonthly, Amount: 1200, Confidence: 0.7},
			},
		}
		e := newTestEngine(store, analyzer)

		views, err := e.GetPatterns(context.Background(), "user1")
		require.NoError(t, err)
		assert.Empty(t, views)
		assert.Empty(t, store.upserted)
	})

	t.Run("fresh analysis runs the light analyzer instead", func(t *testing.T) {
		last := testNow.Add(-3 * 24 * time.Hour)
		store := &mockStorage{
			entries:      monthlyEntries("user1", "Spotify", 4, 9.99),
			lastAnalysis: &last,
		}
		analyzer := &mockAnalyzer{}
		e := newTestEngine(store, analyzer)

		views, err := e.GetPatterns(context.Background(), "user1")
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Zero(t, analyzer.calls)
		assert.Equal(t, "light_1", views[0].ID)
		assert.Equal(t, "Spotify", views[0].Title)
		assert.InDelta(t, 0.6, views[0].Confidence, 0.001)
		assert.Empty(t, store.upserted) // light results are never persisted
	})

	t.Run("stale analysis runs the full analyzer again", func(t *testing.T) {
		last := testNow.Add(-10 * 24 * time.Hour)
		store := &mockStorage{
			entries:      monthlyEntries("user1", "Spotify", 4, 9.99),
			lastAnalysis: &last,
		}
		analyzer := &mockAnalyzer{}
		e := newTestEngine(store, analyzer)

		_, err := e.GetPatterns(context.Background(), "user1")
		require.NoError(t, err)
		assert.Equal(t, 1, analyzer.calls)
	})

	t.Run("zero transactions yields empty result without calling the analyzer", func(t *testing.T) {
		store := &mockStorage{}
		analyzer := &mockAnalyzer{}
		e := newTestEngine(store, analyzer)

		views, err := e.GetPatterns(context.Background(), "user1")
		require.NoError(t, err)
		assert.Empty(t, views)
		assert.NotNil(t, views)
		assert.Zero(t, analyzer.calls)
	})

	t.Run("analyzer failure falls back to heuristics", func(t *testing.T) {
		store := &mockStorage{entries: monthlyEntries("user1", "Netflix", 5, 15.49)}
		analyzer := &mockAnalyzer{err: errors.New("model unavailable")}
		e := newTestEngine(store, analyzer)

		views, err := e.GetPatterns(context.Background(), "user1")
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "fallback_1", views[0].ID)
		assert.Empty(t, store.upserted)
	})

	t.Run("total failure returns empty slice with explicit error", func(t *testing.T) {
		store := &mockStorage{
			entries:       monthlyEntries("user1", "Netflix", 5, 15.49),
			getEntriesErr: errors.New("disk gone"),
		}
		analyzer := &mockAnalyzer{}
		e := newTestEngine(store, analyzer)

		views, err := e.GetPatterns(context.Background(), "user1")
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrAnalysisUnavailable)
		assert.NotNil(t, views)
		assert.Empty(t, views)
	})

	t.Run("upsert failure still surfaces the draft", func(t *testing.T) {
		store := &mockStorage{
			entries:   monthlyEntries("user1", "Netflix", 5, 15.49),
			upsertErr: errors.New("constraint violated"),
		}
		analyzer := &mockAnalyzer{
			drafts: []model.Draft{
				{Title: "Netflix", Type: model.KindExpense, Frequency: model.FrequencyMonthly, Amount: 15.49, Confidence: 0.95},
			},
		}
		e := newTestEngine(store, analyzer)

		views, err := e.GetPatterns(context.Background(), "user1")
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "ai_1", views[0].ID)
	})
}

func TestPatternEngine_GetPatterns_Idempotent(t *testing.T) {
	store := &mockStorage{entries: monthlyEntries("user1", "Netflix", 5, 15.49)}
	analyzer := &mockAnalyzer{
		drafts: []model.Draft{
			{Title: "Netflix", Type: model.KindExpense, Frequency: model.FrequencyMonthly, Amount: 15.49, Confidence: 0.95},
		},
	}
	e := newTestEngine(store, analyzer)

	first, err := e.GetPatterns(context.Background(), "user1")
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, 1, analyzer.calls)

	// Second call is served from the repository; the analyzer stays cold.
	second, err := e.GetPatterns(context.Background(), "user1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, analyzer.calls)
}

func TestPatternEngine_GetCachedPatterns(t *testing.T) {
	t.Run("returns stored patterns without analysis", func(t *testing.T) {
		store := &mockStorage{
			patterns: []model.Pattern{
				{ID: 7, UserID: "user1", Title: "Rent", IsActive: true, Confidence: 0.9},
			},
		}
		analyzer := &mockAnalyzer{}
		e := newTestEngine(store, analyzer)

		views, err := e.GetCachedPatterns(context.Background(), "user1")
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "7", views[0].ID)
		assert.Zero(t, analyzer.calls)
	})

	t.Run("empty cache falls back to heuristics without persisting", func(t *testing.T) {
		store := &mockStorage{entries: monthlyEntries("user1", "Spotify", 4, 9.99)}
		analyzer := &mockAnalyzer{}
		e := newTestEngine(store, analyzer)

		views, err := e.GetCachedPatterns(context.Background(), "user1")
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "light_1", views[0].ID)
		assert.Zero(t, analyzer.calls)
		assert.Empty(t, store.upserted)
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		store := &mockStorage{getPatternsErr: errors.New("locked")}
		e := newTestEngine(store, &mockAnalyzer{})

		_, err := e.GetCachedPatterns(context.Background(), "user1")
		assert.Error(t, err)
	})
}
