package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"crux/internal/modules/session/domain"
)

func boolPtr(v bool) *bool { return &v }

func TestOverallEmptyHistoryUsesNumericZeroRate(t *testing.T) {
	t.Parallel()
	stats := domain.Overall(nil)
	if stats.TotalSessions != 0 || stats.TotalAttempts != 0 || stats.TotalSuccess != 0 {
		t.Fatalf("expected zero counters, got %+v", stats)
	}
	if stats.SuccessRate.String() != "0" {
		t.Fatalf("expected rate string 0, got %q", stats.SuccessRate.String())
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		t.Fatalf("marshal stats: %v", err)
	}
	want := `{"totalSessions":0,"totalAttempts":0,"totalSuccess":0,"overallSuccessRate":0}`
	if string(payload) != want {
		t.Fatalf("unexpected json %s", payload)
	}
}

func TestOverallFormatsRateToOneDecimalString(t *testing.T) {
	t.Parallel()
	history := []domain.Session{
		{
			ID:  "s-1",
			Gym: "Test Gym",
			Attempts: []domain.Attempt{
				{ID: "a-1", Success: true, Route: &domain.RouteSnapshot{Name: "R1", Color: "red"}},
				{ID: "a-2", Success: false, Route: &domain.RouteSnapshot{Name: "R2", Color: "blue"}},
			},
		},
	}
	stats := domain.Overall(history)
	if stats.TotalSessions != 1 || stats.TotalAttempts != 2 || stats.TotalSuccess != 1 {
		t.Fatalf("unexpected counters %+v", stats)
	}
	if stats.SuccessRate.String() != "50.0" {
		t.Fatalf("expected 50.0, got %q", stats.SuccessRate.String())
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		t.Fatalf("marshal stats: %v", err)
	}
	want := `{"totalSessions":1,"totalAttempts":2,"totalSuccess":1,"overallSuccessRate":"50.0"}`
	if string(payload) != want {
		t.Fatalf("unexpected json %s", payload)
	}
}

func TestCountByColorBucketsMissingSnapshotsAsUnknown(t *testing.T) {
	t.Parallel()
	attempts := []domain.Attempt{
		{ID: "a-1", Success: true, Route: &domain.RouteSnapshot{Name: "R1", Color: "red"}},
		{ID: "a-2", Success: false, Route: &domain.RouteSnapshot{Name: "R2", Color: "blue"}},
		{ID: "a-3", Success: true, Route: &domain.RouteSnapshot{Name: "R3", Color: "red"}},
		{ID: "a-4", Success: false},
		{ID: "a-5", Success: true, Route: &domain.RouteSnapshot{Name: "R5"}},
	}
	stats := domain.CountByColor(attempts)
	if got := stats["red"]; got.Success != 2 || got.Total != 2 {
		t.Fatalf("unexpected red bucket %+v", got)
	}
	if got := stats["blue"]; got.Success != 0 || got.Total != 1 {
		t.Fatalf("unexpected blue bucket %+v", got)
	}
	if got := stats[domain.UnknownColor]; got.Success != 1 || got.Total != 2 {
		t.Fatalf("unexpected unknown bucket %+v", got)
	}
}

func TestAttemptPatchPreservesIDAndTimestamp(t *testing.T) {
	t.Parallel()
	stamp := time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC)
	attempt := domain.Attempt{
		ID:        "a-1",
		Timestamp: stamp,
		RouteID:   "r-1",
		Route:     &domain.RouteSnapshot{RouteID: "r-1", Name: "R1", Color: "red"},
		Success:   false,
		Notes:     "slippery start",
	}
	notes := "stuck the dyno"
	patch := domain.AttemptPatch{
		Route:   &domain.RouteSnapshot{RouteID: "r-2", Name: "R2", Color: "black"},
		Success: boolPtr(true),
		Notes:   &notes,
	}
	patch.Apply(&attempt)
	if attempt.ID != "a-1" || !attempt.Timestamp.Equal(stamp) {
		t.Fatalf("patch must not touch id or timestamp, got %+v", attempt)
	}
	if attempt.RouteID != "r-2" || attempt.Route.Name != "R2" || attempt.Route.Color != "black" {
		t.Fatalf("route not applied: %+v", attempt.Route)
	}
	if !attempt.Success || attempt.Notes != "stuck the dyno" {
		t.Fatalf("success/notes not applied: %+v", attempt)
	}
}

func TestParseWhenAcceptsHistoricalLayouts(t *testing.T) {
	t.Parallel()
	cases := map[string]time.Time{
		"2023-01-15T10:30":      time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC),
		"2023-01-15T10:30:45":   time.Date(2023, 1, 15, 10, 30, 45, 0, time.UTC),
		"2023-01-15":            time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
		"2023-01-15T10:30:00Z":  time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC),
		" 2023-01-15T10:30:00Z": time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC),
	}
	for input, want := range cases {
		got, err := domain.ParseWhen(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if !got.Equal(want) {
			t.Fatalf("parse %q: got %v want %v", input, got, want)
		}
	}
	if _, err := domain.ParseWhen("yesterday-ish"); err == nil {
		t.Fatalf("expected error for unparseable date")
	}
}
