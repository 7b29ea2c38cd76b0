package domain

import (
	"fmt"
	"strings"
	"time"
)

const SchemaVersion = 2

// DraftKey is the fixed identifier of the singleton draft record that
// mirrors the open session between process runs.
const DraftKey = "current"

// RouteSnapshot is the copy of a route embedded into an attempt when it is
// logged. History keeps the route's name and color even after the route
// itself is edited or deleted, so snapshots never reference routes live.
type RouteSnapshot struct {
	RouteID string `json:"routeId,omitempty"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Gym     string `json:"gym,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// Attempt is one logged climb. Snapshots arriving from old backups can be
// absent, which is why Route is a pointer; attempts created through the app
// always embed one.
type Attempt struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	RouteID   string         `json:"routeId,omitempty"`
	Route     *RouteSnapshot `json:"route,omitempty"`
	Success   bool           `json:"success"`
	Notes     string         `json:"notes,omitempty"`
}

// Session groups the attempts of one gym visit. A session is either open
// (mirrored by the draft) or closed (a row in history); at most one session
// is open at a time.
type Session struct {
	ID       string    `json:"id"`
	Date     time.Time `json:"date"`
	Gym      string    `json:"gym"`
	Attempts []Attempt `json:"attempts"`
}

// AttemptPatch carries the only attempt fields an edit may change. ID and
// timestamp of the target are always preserved.
type AttemptPatch struct {
	Route   *RouteSnapshot
	Success *bool
	Notes   *string
}

// Apply rewrites the mutable fields of attempt in place.
func (p AttemptPatch) Apply(attempt *Attempt) {
	if p.Route != nil {
		snapshot := *p.Route
		attempt.Route = &snapshot
		attempt.RouteID = snapshot.RouteID
	}
	if p.Success != nil {
		attempt.Success = *p.Success
	}
	if p.Notes != nil {
		attempt.Notes = *p.Notes
	}
}

// whenLayouts are the accepted date inputs: the datetime-local form the app
// historically persisted, RFC 3339, and a plain day.
var whenLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseWhen reconstructs a point in time from any accepted layout.
func ParseWhen(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range whenLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}
