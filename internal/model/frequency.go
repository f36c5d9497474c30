package model

import "time"

// Frequency describes how often a recurring pattern repeats.
type Frequency string

// Supported frequencies.
const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// Valid reports whether the frequency is one of the supported values.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// NextExpected computes the next expected occurrence date from the last
// one. Monthly, quarterly and yearly increments follow calendar
// arithmetic: advancing from Jan 31 by one month lands in early March
// when February is shorter, matching time.AddDate semantics.
func NextExpected(last time.Time, f Frequency) time.Time {
	switch f {
	case FrequencyDaily:
		return last.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return last.AddDate(0, 0, 7)
	case FrequencyQuarterly:
		return last.AddDate(0, 3, 0)
	case FrequencyYearly:
		return last.AddDate(1, 0, 0)
	default:
		return last.AddDate(0, 1, 0)
	}
}
