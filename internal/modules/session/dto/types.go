package dto

import (
	"time"

	"crux/internal/modules/session/domain"
)

type StartInput struct {
	// Date accepts RFC 3339, the datetime-local form (2006-01-02T15:04), or
	// a plain day.
	Date string
	Gym  string
}

// RouteRef names a route for an attempt: either a saved route by id, or an
// ad-hoc inline description.
type RouteRef struct {
	RouteID string
	Name    string
	Color   string
	Gym     string
	Notes   string
}

type AddAttemptInput struct {
	Route   *RouteRef
	Success *bool
	Notes   string
}

type AttemptPatch struct {
	Route   *RouteRef
	Success *bool
	Notes   *string
}

type UpdateAttemptInput struct {
	SessionID string
	AttemptID string
	Patch     AttemptPatch
}

type DeleteAttemptInput struct {
	SessionID string
	AttemptID string
}

type RouteSnapshotRecord struct {
	RouteID string
	Name    string
	Color   string
	Gym     string
	Notes   string
}

type AttemptRecord struct {
	ID        string
	Timestamp time.Time
	RouteID   string
	Route     *RouteSnapshotRecord
	Success   bool
	Notes     string
}

type SessionRecord struct {
	ID       string
	Date     time.Time
	Gym      string
	Open     bool
	Attempts []AttemptRecord
}

// OverallStatsOutput reuses domain.Rate so the historical number-vs-string
// serialization quirk stays in one place.
type OverallStatsOutput struct {
	TotalSessions      int         `json:"totalSessions"`
	TotalAttempts      int         `json:"totalAttempts"`
	TotalSuccess       int         `json:"totalSuccess"`
	OverallSuccessRate domain.Rate `json:"overallSuccessRate"`
}

type ColorStatsInput struct {
	// SessionID restricts the breakdown to one session (open or closed);
	// empty means all history.
	SessionID string
}

type ColorCount struct {
	Success int `json:"success"`
	Total   int `json:"total"`
}

type ColorStatsOutput struct {
	Colors map[string]ColorCount `json:"colors"`
}

type RestoreInput struct {
	Sessions []SessionRecord
	Current  *SessionRecord
}
