package domain

import (
	"encoding/json"
	"strconv"
)

// UnknownColor buckets attempts whose snapshot is missing or carries no
// color, so records from old backups still show up in breakdowns.
const UnknownColor = "unknown"

// Rate is the overall success percentage. The historical store serialized
// the empty case as the JSON number 0 and every other value as a one-decimal
// string ("50.0"); both forms are preserved because the backup format is
// shared with older exports.
type Rate struct {
	Known bool
	Value float64
}

func (r Rate) String() string {
	if !r.Known {
		return "0"
	}
	return strconv.FormatFloat(r.Value, 'f', 1, 64)
}

func (r Rate) MarshalJSON() ([]byte, error) {
	if !r.Known {
		return []byte("0"), nil
	}
	return json.Marshal(r.String())
}

type OverallStats struct {
	TotalSessions int  `json:"totalSessions"`
	TotalAttempts int  `json:"totalAttempts"`
	TotalSuccess  int  `json:"totalSuccess"`
	SuccessRate   Rate `json:"overallSuccessRate"`
}

// Overall folds the closed sessions into the aggregate counters. Open drafts
// do not count until finished.
func Overall(history []Session) OverallStats {
	stats := OverallStats{TotalSessions: len(history)}
	for _, session := range history {
		for _, attempt := range session.Attempts {
			stats.TotalAttempts++
			if attempt.Success {
				stats.TotalSuccess++
			}
		}
	}
	if stats.TotalAttempts > 0 {
		stats.SuccessRate = Rate{Known: true, Value: float64(stats.TotalSuccess) / float64(stats.TotalAttempts) * 100}
	}
	return stats
}

type ColorStat struct {
	Success int `json:"success"`
	Total   int `json:"total"`
}

// CountByColor groups attempts by their snapshot color.
func CountByColor(attempts []Attempt) map[string]ColorStat {
	stats := map[string]ColorStat{}
	for _, attempt := range attempts {
		color := UnknownColor
		if attempt.Route != nil && attempt.Route.Color != "" {
			color = attempt.Route.Color
		}
		entry := stats[color]
		entry.Total++
		if attempt.Success {
			entry.Success++
		}
		stats[color] = entry
	}
	return stats
}

// AllAttempts flattens history in session order, attempts in call order.
func AllAttempts(history []Session) []Attempt {
	attempts := []Attempt{}
	for _, session := range history {
		attempts = append(attempts, session.Attempts...)
	}
	return attempts
}
