package pattern

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solswan/cadence/internal/model"
)

type mockGenerator struct {
	err      error
	response string
	calls    int
	prompts  []string
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.calls++
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func sampleEntries() []model.Entry {
	return []model.Entry{
		{
			ID:     "1",
			Title:  "Monthly Salary",
			Amount: 5000,
			Kind:   model.KindIncome,
			Date:   time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:       "2",
			Title:    "Netflix",
			Amount:   15.49,
			Kind:     model.KindExpense,
			Category: "entertainment",
			Date:     time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:     "3",
			Title:  "Rent",
			Amount: 1200,
			Kind:   model.KindExpense,
			Date:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestAIAnalyzer_BuildPrompt(t *testing.T) {
	gen := &mockGenerator{response: "[]"}
	analyzer := NewAIAnalyzer(gen)

	_, err := analyzer.Analyze(context.Background(), sampleEntries())
	require.NoError(t, err)
	require.Equal(t, 1, gen.calls)

	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "Income: Monthly Salary - 5000.00 on 25/01/2024")
	assert.Contains(t, prompt, "Expense: Netflix - 15.49 (Category: entertainment) on 03/01/2024")
	assert.Contains(t, prompt, "Expense: Rent - 1200.00 (Category: others) on 01/01/2024")
	assert.Contains(t, prompt, "JSON array")
}

func TestAIAnalyzer_Analyze(t *testing.T) {
	validJSON := `[
		{
			"id": 1,
			"title": "Netflix",
			"amount": 15.49,
			"type": "expense",
			"category": "entertainment",
			"frequency": "monthly",
			"confidence": 0.95,
			"pattern_reason": "Charged on the 3rd of every month",
			"last_occurrence": "03/01/2024",
			"next_expected": "03/02/2024"
		}
	]`

	t.Run("parses a plain JSON array", func(t *testing.T) {
		analyzer := NewAIAnalyzer(&mockGenerator{response: validJSON})

		drafts, err := analyzer.Analyze(context.Background(), sampleEntries())
		require.NoError(t, err)
		require.Len(t, drafts, 1)

		d := drafts[0]
		assert.Equal(t, "Netflix", d.Title)
		assert.Equal(t, model.KindExpense, d.Type)
		assert.Equal(t, model.FrequencyMonthly, d.Frequency)
		assert.InDelta(t, 0.95, d.Confidence, 0.001)
		assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), d.LastOccurrence)
		assert.Equal(t, time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), d.NextExpected)
	})

	t.Run("strips markdown code fences", func(t *testing.T) {
		fenced := "```json\n" + validJSON + "\n```"
		analyzer := NewAIAnalyzer(&mockGenerator{response: fenced})

		drafts, err := analyzer.Analyze(context.Background(), sampleEntries())
		require.NoError(t, err)
		assert.Len(t, drafts, 1)
	})

	t.Run("unparseable response is a hard error", func(t *testing.T) {
		analyzer := NewAIAnalyzer(&mockGenerator{response: "I found three recurring patterns for you!"})

		drafts, err := analyzer.Analyze(context.Background(), sampleEntries())
		require.Error(t, err)
		assert.Nil(t, drafts)
		assert.Contains(t, err.Error(), "parse")
	})

	t.Run("generator failure propagates", func(t *testing.T) {
		genErr := errors.New("rate limited")
		analyzer := NewAIAnalyzer(&mockGenerator{err: genErr})

		_, err := analyzer.Analyze(context.Background(), sampleEntries())
		require.Error(t, err)
		assert.ErrorIs(t, err, genErr)
	})

	t.Run("empty window makes no generator call", func(t *testing.T) {
		gen := &mockGenerator{response: validJSON}
		analyzer := NewAIAnalyzer(gen)

		drafts, err := analyzer.Analyze(context.Background(), nil)
		require.NoError(t, err)
		assert.Nil(t, drafts)
		assert.Zero(t, gen.calls)
	})

	t.Run("does not filter low-confidence drafts", func(t *testing.T) {
		low := strings.Replace(validJSON, "0.95", "0.1", 1)
		analyzer := NewAIAnalyzer(&mockGenerator{response: low})

		drafts, err := analyzer.Analyze(context.Background(), sampleEntries())
		require.NoError(t, err)
		require.Len(t, drafts, 1)
		assert.InDelta(t, 0.1, drafts[0].Confidence, 0.001)
	})
}

func TestParseDrafts_Sanitization(t *testing.T) {
	t.Run("skips entries without title or with invalid type", func(t *testing.T) {
		drafts, err := parseDrafts(`[
			{"title": "", "type": "expense", "frequency": "monthly", "confidence": 0.9},
			{"title": "Mystery", "type": "transfer", "frequency": "monthly", "confidence": 0.9},
			{"title": "Rent", "type": "expense", "frequency": "monthly", "confidence": 0.9}
		]`)
		require.NoError(t, err)
		require.Len(t, drafts, 1)
		assert.Equal(t, "Rent", drafts[0].Title)
	})

	t.Run("invalid frequency defaults to monthly", func(t *testing.T) {
		drafts, err := parseDrafts(`[{"title": "Rent", "type": "expense", "frequency": "biweekly", "confidence": 0.9}]`)
		require.NoError(t, err)
		require.Len(t, drafts, 1)
		assert.Equal(t, model.FrequencyMonthly, drafts[0].Frequency)
	})

	t.Run("confidence is clamped to [0,1]", func(t *testing.T) {
		drafts, err := parseDrafts(`[
			{"title": "A", "type": "expense", "frequency": "monthly", "confidence": 1.7},
			{"title": "B", "type": "expense", "frequency": "monthly", "confidence": -0.2}
		]`)
		require.NoError(t, err)
		require.Len(t, drafts, 2)
		assert.InDelta(t, 1.0, drafts[0].Confidence, 0.001)
		assert.InDelta(t, 0.0, drafts[1].Confidence, 0.001)
	})

	t.Run("empty category becomes the default bucket", func(t *testing.T) {
		drafts, err := parseDrafts(`[{"title": "Salary", "type": "income", "frequency": "monthly", "confidence": 0.9}]`)
		require.NoError(t, err)
		require.Len(t, drafts, 1)
		assert.Equal(t, model.DefaultCategory, drafts[0].Category)
	})
}

func TestCleanMarkdownWrapper(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no fence", `[{"a":1}]`, `[{"a":1}]`},
		{"json fence", "```json\n[1,2]\n```", "[1,2]"},
		{"bare fence", "```\n[1,2]\n```", "[1,2]"},
		{"surrounding whitespace", "  \n```json\n[]\n```\n ", "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanMarkdownWrapper(tt.input))
		})
	}
}
