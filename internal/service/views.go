package service

import (
	"strconv"

	"github.com/solswan/cadence/internal/model"
)

// ViewDateFormat renders dates day/month/year for API responses.
const ViewDateFormat = "02/01/2006"

// PatternView is the outward-facing shape of a pattern.
type PatternView struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Type           string  `json:"type"`
	Category       string  `json:"category"`
	Frequency      string  `json:"frequency"`
	Reason         string  `json:"pattern_reason"`
	LastOccurrence string  `json:"last_occurrence"`
	NextExpected   string  `json:"next_expected"`
	Amount         float64 `json:"amount"`
	Confidence     float64 `json:"confidence"`
}

// ViewFromPattern formats a stored pattern for API responses.
func ViewFromPattern(p model.Pattern) PatternView {
	return PatternView{
		ID:             strconv.FormatInt(p.ID, 10),
		Title:          p.Title,
		Type:           string(p.Type),
		Category:       p.Category,
		Frequency:      string(p.Frequency),
		Reason:         p.Reason,
		LastOccurrence: p.LastOccurrence.Format(ViewDateFormat),
		NextExpected:   p.NextExpected.Format(ViewDateFormat),
		Amount:         p.AverageAmount,
		Confidence:     p.Confidence,
	}
}

// ViewFromDraft formats an unpersisted draft for API responses, using the
// caller-supplied synthetic identifier.
func ViewFromDraft(id string, d model.Draft) PatternView {
	return PatternView{
		ID:             id,
		Title:          d.Title,
		Type:           string(d.Type),
		Category:       d.Category,
		Frequency:      string(d.Frequency),
		Reason:         d.Reason,
		LastOccurrence: d.LastOccurrence.Format(ViewDateFormat),
		NextExpected:   d.NextExpected.Format(ViewDateFormat),
		Amount:         d.Amount,
		Confidence:     d.Confidence,
	}
}
