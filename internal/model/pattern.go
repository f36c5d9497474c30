package model

import "time"

// OccurrenceWindow bounds the occurrence history retained per pattern.
// Older entries slide out once the window is full.
const OccurrenceWindow = 20

// Occurrence is one historical instance of a pattern recurring.
type Occurrence struct {
	Date    time.Time `json:"date"`
	EntryID string    `json:"entry_id"`
	Amount  float64   `json:"amount"`
}

// Pattern is a detected recurring transaction template. Patterns are
// scoped per user and keyed by (user, title, type); the same title may
// exist for different users or for both an income and an expense stream.
type Pattern struct {
	LastOccurrence   time.Time
	NextExpected     time.Time
	LastUpdated      time.Time
	UserID           string
	Title            string
	Category         string
	Reason           string
	Type             EntryKind
	Frequency        Frequency
	Occurrences      []Occurrence
	ID               int64
	TotalOccurrences int
	AverageAmount    float64
	Confidence       float64
	IsActive         bool
}

// WithOccurrence returns a copy of the pattern with the occurrence
// appended. The occurrence window is truncated to its bound, the average
// amount is recomputed over the retained entries, and the last-occurrence
// and next-expected dates are refreshed. The receiver is not modified.
func (p Pattern) WithOccurrence(occ Occurrence) Pattern {
	occurrences := make([]Occurrence, len(p.Occurrences), len(p.Occurrences)+1)
	copy(occurrences, p.Occurrences)
	occurrences = append(occurrences, occ)

	if len(occurrences) > OccurrenceWindow {
		occurrences = occurrences[len(occurrences)-OccurrenceWindow:]
	}

	var total float64
	for _, o := range occurrences {
		total += o.Amount
	}

	p.Occurrences = occurrences
	p.TotalOccurrences = len(occurrences)
	p.AverageAmount = total / float64(len(occurrences))
	p.LastOccurrence = occ.Date
	p.NextExpected = NextExpected(occ.Date, p.Frequency)
	return p
}

// Draft describes a detected pattern before it is persisted. Both the
// light analyzer and the AI analyzer produce drafts; the engine decides
// which of them become stored patterns.
type Draft struct {
	LastOccurrence time.Time
	NextExpected   time.Time
	ID             string
	Title          string
	Category       string
	Reason         string
	Type           EntryKind
	Frequency      Frequency
	Amount         float64
	Confidence     float64
}
