package pattern

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/solswan/cadence/internal/common"
	"github.com/solswan/cadence/internal/model"
)

// Generator is the external generative-text collaborator. One attempt per
// call; failures propagate so the caller can fall back to the heuristic
// analyzer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// PromptDateFormat renders transaction dates day/month/year in prompts.
const PromptDateFormat = "02/01/2006"

// AIAnalyzer infers recurring patterns from transaction history by
// prompting a generative model and parsing its JSON reply.
type AIAnalyzer struct {
	generator Generator
}

// NewAIAnalyzer creates an analyzer backed by the given generator.
func NewAIAnalyzer(generator Generator) *AIAnalyzer {
	return &AIAnalyzer{generator: generator}
}

// Analyze sends the transaction window to the generative model and parses
// the returned pattern drafts. A response that does not parse as a JSON
// array is a hard error for this call; the analyzer performs no
// confidence filtering of its own.
func (a *AIAnalyzer) Analyze(ctx context.Context, entries []model.Entry) ([]model.Draft, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	response, err := a.generator.Generate(ctx, buildPrompt(entries))
	if err != nil {
		return nil, fmt.Errorf("generator call failed: %w", err)
	}

	return parseDrafts(response)
}

// buildPrompt formats one line per transaction plus response-shape
// instructions for the model.
func buildPrompt(entries []model.Entry) string {
	var sb strings.Builder

	sb.WriteString("Analyze the following transactions and identify recurring patterns such as salaries, subscriptions, rent and regular bills.\n\nTransactions:\n")

	for _, entry := range entries {
		switch entry.Kind {
		case model.KindIncome:
			fmt.Fprintf(&sb, "Income: %s - %.2f on %s\n",
				entry.Title, entry.Amount, entry.Date.Format(PromptDateFormat))
		case model.KindExpense:
			fmt.Fprintf(&sb, "Expense: %s - %.2f (Category: %s) on %s\n",
				entry.Title, entry.Amount, entry.CategoryOrDefault(), entry.Date.Format(PromptDateFormat))
		}
	}

	sb.WriteString(`
Respond with ONLY a JSON array, no explanatory text. Each element must have:
{"id": string, "title": string, "amount": number, "type": "income"|"expense", "category": string, "frequency": "daily"|"weekly"|"monthly"|"quarterly"|"yearly", "confidence": number between 0 and 1, "pattern_reason": string, "last_occurrence": "DD/MM/YYYY", "next_expected": "DD/MM/YYYY"}
Include only patterns you are confident about (confidence above 0.7).`)

	return sb.String()
}

// parseDrafts strips any markdown code-fence wrapping and decodes the
// JSON array the model returned.
func parseDrafts(response string) ([]model.Draft, error) {
	content := cleanMarkdownWrapper(response)

	var raw []struct {
		ID             any     `json:"id"`
		Title          string  `json:"title"`
		Type           string  `json:"type"`
		Category       string  `json:"category"`
		Frequency      string  `json:"frequency"`
		PatternReason  string  `json:"pattern_reason"`
		LastOccurrence string  `json:"last_occurrence"`
		NextExpected   string  `json:"next_expected"`
		Amount         float64 `json:"amount"`
		Confidence     float64 `json:"confidence"`
	}

	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON array: %v", common.ErrInvalidResponse, err)
	}

	now := time.Now()
	drafts := make([]model.Draft, 0, len(raw))
	for _, r := range raw {
		kind := model.EntryKind(strings.ToLower(r.Type))
		if r.Title == "" || !kind.Valid() {
			continue
		}

		frequency := model.Frequency(strings.ToLower(r.Frequency))
		if !frequency.Valid() {
			frequency = model.FrequencyMonthly
		}

		confidence := r.Confidence
		if confidence < 0 {
			confidence = 0
		} else if confidence > 1 {
			confidence = 1
		}

		category := r.Category
		if category == "" {
			category = model.DefaultCategory
		}

		lastOccurrence := parseModelDate(r.LastOccurrence, now)

		drafts = append(drafts, model.Draft{
			Title:          r.Title,
			Amount:         r.Amount,
			Type:           kind,
			Category:       category,
			Frequency:      frequency,
			Confidence:     confidence,
			Reason:         r.PatternReason,
			LastOccurrence: lastOccurrence,
			NextExpected:   model.NextExpected(lastOccurrence, frequency),
		})
	}

	return drafts, nil
}

// parseModelDate accepts the formats models actually emit; anything
// unrecognized falls back to the analysis time so the repository can
// still derive a next-expected date.
func parseModelDate(value string, fallback time.Time) time.Time {
	layouts := []string{PromptDateFormat, "2006-01-02", time.RFC3339}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return fallback
}

// cleanMarkdownWrapper removes a surrounding markdown code fence, which
// some models add despite instructions.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		} else {
			content = strings.TrimPrefix(content, "```")
		}
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")

	return strings.TrimSpace(content)
}
