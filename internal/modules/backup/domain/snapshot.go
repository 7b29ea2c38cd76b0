package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SnapshotVersion is the current export format. Version 1 files are still
// accepted on import.
const SnapshotVersion = 2

// ID tolerates the numeric identifiers found in version 1 exports and
// normalizes them to strings.
type ID string

func (i *ID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*i = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*i = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*i = ID(n.String())
	return nil
}

// When accepts the date shapes that have appeared across export versions:
// RFC 3339 with or without fractional seconds, the datetime-local form, a
// plain day, and epoch milliseconds.
type When struct {
	time.Time
}

var whenLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func (w *When) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		w.Time = time.Time{}
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		for _, layout := range whenLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				w.Time = parsed.UTC()
				return nil
			}
		}
		return fmt.Errorf("unrecognized timestamp %q", s)
	}
	var millis int64
	if err := json.Unmarshal(trimmed, &millis); err != nil {
		return err
	}
	w.Time = time.UnixMilli(millis).UTC()
	return nil
}

func (w When) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.Time.UTC().Format(time.RFC3339Nano))
}

type RouteSnapshot struct {
	RouteID ID     `json:"routeId,omitempty"`
	Name    string `json:"name,omitempty"`
	Color   string `json:"color,omitempty"`
	Gym     string `json:"gym,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// Version 1 exports embedded the saved route verbatim, with its id under
// "id" rather than "routeId".
func (r *RouteSnapshot) UnmarshalJSON(data []byte) error {
	type plain RouteSnapshot
	aux := struct {
		*plain
		LegacyID ID `json:"id"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if r.RouteID == "" {
		r.RouteID = aux.LegacyID
	}
	return nil
}

type Attempt struct {
	ID        ID             `json:"id"`
	Timestamp When           `json:"timestamp"`
	RouteID   ID             `json:"routeId,omitempty"`
	Route     *RouteSnapshot `json:"route,omitempty"`
	Success   bool           `json:"success"`
	Notes     string         `json:"notes,omitempty"`
}

type Session struct {
	ID       ID        `json:"id"`
	Date     When      `json:"date"`
	Gym      string    `json:"gym"`
	Attempts []Attempt `json:"attempts"`
}

// Snapshot is the portable backup: the full history plus the open session,
// null when none is open.
type Snapshot struct {
	Version        int       `json:"version"`
	Timestamp      time.Time `json:"timestamp"`
	Sessions       []Session `json:"sessions"`
	CurrentSession *Session  `json:"currentSession"`
}

func (s Snapshot) Validate() error {
	if s.Version != 1 && s.Version != SnapshotVersion {
		return fmt.Errorf("unsupported backup version %d", s.Version)
	}
	return nil
}

// Counts reports how many sessions and attempts the snapshot carries,
// including the open session.
func (s Snapshot) Counts() (sessions, attempts int) {
	sessions = len(s.Sessions)
	for _, session := range s.Sessions {
		attempts += len(session.Attempts)
	}
	if s.CurrentSession != nil {
		sessions++
		attempts += len(s.CurrentSession.Attempts)
	}
	return sessions, attempts
}
