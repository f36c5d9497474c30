// Package pattern implements recurring-transaction detection: similarity
// matching against stored patterns, a cheap heuristic analyzer, and an
// AI-backed analyzer for larger history windows.
package pattern

import (
	"fmt"
	"math"
	"strings"

	"github.com/solswan/cadence/internal/model"
)

// Signal weights. Title carries the most, amount and category split the
// rest; a match needs the score strictly above the threshold, so at least
// two signals must fire and amount+category alone (0.6) is not enough.
const (
	titleWeight    = 0.4
	amountWeight   = 0.3
	categoryWeight = 0.3

	titleSimilarityThreshold = 0.7
	amountTolerance          = 0.20
	matchThreshold           = 0.6
)

// MatchResult reports how well a transaction fits a pattern.
type MatchResult struct {
	Reason     string
	Confidence float64
	Matches    bool
}

// Match scores a transaction against a pattern using title, amount and
// category signals. Pure function: deterministic, no side effects.
func Match(p model.Pattern, e model.Entry) MatchResult {
	titleSim := titleSimilarity(p.Title, e.Title)
	amountOK := amountWithinTolerance(p.AverageAmount, e.Amount)
	categoryOK := p.Category == e.CategoryOrDefault()

	var score float64
	var reasons []string

	if titleSim > titleSimilarityThreshold {
		score += titleWeight
		reasons = append(reasons, fmt.Sprintf("title similarity %.2f", titleSim))
	}
	if amountOK {
		score += amountWeight
		reasons = append(reasons, "amount within 20% of average")
	}
	if categoryOK {
		score += categoryWeight
		reasons = append(reasons, "category match")
	}

	reason := "no matching signals"
	if len(reasons) > 0 {
		reason = strings.Join(reasons, ", ")
	}

	return MatchResult{
		Matches:    score > matchThreshold,
		Confidence: score,
		Reason:     reason,
	}
}

// titleSimilarity computes shared-token overlap between two titles:
// the count of case-insensitively shared whitespace-delimited tokens
// divided by the larger token count. Zero when either title is empty.
func titleSimilarity(a, b string) float64 {
	tokensA := strings.Fields(strings.ToLower(a))
	tokensB := strings.Fields(strings.ToLower(b))
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	setB := make(map[string]struct{}, len(tokensB))
	for _, tok := range tokensB {
		setB[tok] = struct{}{}
	}

	shared := 0
	for _, tok := range tokensA {
		if _, ok := setB[tok]; ok {
			shared++
		}
	}

	longest := len(tokensA)
	if len(tokensB) > longest {
		longest = len(tokensB)
	}

	return float64(shared) / float64(longest)
}

// amountWithinTolerance reports whether the transaction amount falls
// within the tolerance band around the pattern average.
func amountWithinTolerance(average, amount float64) bool {
	if average == 0 {
		return false
	}
	return math.Abs(average-amount)/average <= amountTolerance
}
