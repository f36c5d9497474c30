package pattern

import (
	"strings"
	"time"

	"github.com/solswan/cadence/internal/model"
)

// LightConfidence is the fixed confidence assigned to heuristic drafts.
// They are never filtered; the low value marks their provenance.
const LightConfidence = 0.6

// LightReason explains heuristic drafts to the user.
const LightReason = "Detected by transaction history heuristics"

// Interval classification bounds in days. An average gap below a bound
// classifies as that frequency; anything at or above the last bound is
// yearly.
const (
	dailyBoundDays     = 7
	weeklyBoundDays    = 14
	monthlyBoundDays   = 45
	quarterlyBoundDays = 120
)

// minMatchesForGap is how many same-titled transactions are needed before
// the average gap is trusted; below it the frequency defaults to monthly.
const minMatchesForGap = 3

// AnalyzeLight proposes draft patterns from a bounded transaction window
// without touching the network or storage. Titles are deduplicated
// case-insensitively; each candidate's frequency comes from the average
// day gap across all transactions whose title contains the candidate
// title as a substring. Drafts carry no occurrence dates — the caller
// stamps those when formatting or persisting.
func AnalyzeLight(entries []model.Entry) []model.Draft {
	seen := make(map[string]struct{}, len(entries))
	var drafts []model.Draft

	for _, entry := range entries {
		key := strings.ToLower(strings.TrimSpace(entry.Title))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		drafts = append(drafts, model.Draft{
			Title:      entry.Title,
			Amount:     entry.Amount,
			Type:       entry.Kind,
			Category:   entry.CategoryOrDefault(),
			Frequency:  estimateFrequency(entries, key),
			Confidence: LightConfidence,
			Reason:     LightReason,
		})
	}

	return drafts
}

// estimateFrequency classifies how often transactions with a matching
// title recur. With too few matches it defaults to monthly; otherwise it
// averages the day span between the earliest and latest match.
func estimateFrequency(entries []model.Entry, titleKey string) model.Frequency {
	var matches []model.Entry
	for _, entry := range entries {
		if strings.Contains(strings.ToLower(entry.Title), titleKey) {
			matches = append(matches, entry)
		}
	}

	if len(matches) < minMatchesForGap {
		return model.FrequencyMonthly
	}

	earliest, latest := matches[0].Date, matches[0].Date
	for _, m := range matches[1:] {
		if m.Date.Before(earliest) {
			earliest = m.Date
		}
		if m.Date.After(latest) {
			latest = m.Date
		}
	}

	avgGapDays := latest.Sub(earliest).Hours() / 24 / float64(len(matches)-1)
	return classifyGap(avgGapDays)
}

func classifyGap(days float64) model.Frequency {
	switch {
	case days < dailyBoundDays:
		return model.FrequencyDaily
	case days < weeklyBoundDays:
		return model.FrequencyWeekly
	case days < monthlyBoundDays:
		return model.FrequencyMonthly
	case days < quarterlyBoundDays:
		return model.FrequencyQuarterly
	default:
		return model.FrequencyYearly
	}
}

// CountSimilarTitles reports how many entries share the given title as a
// case-insensitive substring, excluding the entry with the given ID. The
// incremental update path uses it to decide whether a brand-new
// transaction already has enough history to suggest a pattern.
func CountSimilarTitles(entries []model.Entry, title, excludeID string) int {
	key := strings.ToLower(strings.TrimSpace(title))
	if key == "" {
		return 0
	}

	count := 0
	for _, entry := range entries {
		if entry.ID == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(entry.Title), key) {
			count++
		}
	}
	return count
}

// DraftForEntry synthesizes a lightweight draft from a single new
// transaction, estimating its frequency from the prior entries that
// share its title.
func DraftForEntry(entries []model.Entry, entry model.Entry) model.Draft {
	key := strings.ToLower(strings.TrimSpace(entry.Title))

	draft := model.Draft{
		Title:      entry.Title,
		Amount:     entry.Amount,
		Type:       entry.Kind,
		Category:   entry.CategoryOrDefault(),
		Frequency:  estimateFrequency(entries, key),
		Confidence: LightConfidence,
		Reason:     "Created from repeated transaction title",
	}

	return stampDraft(draft, entry.Date)
}

// stampDraft is shared by the engine paths that surface unpersisted
// drafts: the occurrence dates are synthesized at response time.
func stampDraft(d model.Draft, now time.Time) model.Draft {
	d.LastOccurrence = now
	d.NextExpected = model.NextExpected(now, d.Frequency)
	return d
}

// StampDrafts fills in synthetic occurrence dates for drafts that were
// never persisted.
func StampDrafts(drafts []model.Draft, now time.Time) []model.Draft {
	stamped := make([]model.Draft, len(drafts))
	for i, d := range drafts {
		stamped[i] = stampDraft(d, now)
	}
	return stamped
}
