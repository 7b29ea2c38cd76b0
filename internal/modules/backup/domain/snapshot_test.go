package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"crux/internal/modules/backup/domain"
)

func TestWhenAcceptsEveryExportedShape(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		raw  string
		want time.Time
	}{
		{name: "rfc3339", raw: `"2026-03-14T10:05:00Z"`, want: time.Date(2026, 3, 14, 10, 5, 0, 0, time.UTC)},
		{name: "fractional", raw: `"2026-03-14T10:05:00.25Z"`, want: time.Date(2026, 3, 14, 10, 5, 0, 250000000, time.UTC)},
		{name: "datetime local", raw: `"2023-09-01T10:40"`, want: time.Date(2023, 9, 1, 10, 40, 0, 0, time.UTC)},
		{name: "seconds no zone", raw: `"2023-09-01T10:15:30"`, want: time.Date(2023, 9, 1, 10, 15, 30, 0, time.UTC)},
		{name: "plain day", raw: `"2023-09-01"`, want: time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC)},
		{name: "epoch millis", raw: `1693562400000`, want: time.Date(2023, 9, 1, 10, 0, 0, 0, time.UTC)},
		{name: "null", raw: `null`, want: time.Time{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var got domain.When
			if err := json.Unmarshal([]byte(tc.raw), &got); err != nil {
				t.Fatalf("unmarshal %s: %v", tc.raw, err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("parsed %s as %v, want %v", tc.raw, got.Time, tc.want)
			}
		})
	}

	var bad domain.When
	if err := json.Unmarshal([]byte(`"next tuesday"`), &bad); err == nil {
		t.Fatalf("expected an error for an unrecognized timestamp")
	}
}

func TestWhenMarshalsAsRFC3339(t *testing.T) {
	t.Parallel()
	when := domain.When{Time: time.Date(2026, 3, 14, 10, 5, 0, 0, time.UTC)}
	raw, err := json.Marshal(when)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `"2026-03-14T10:05:00Z"` {
		t.Fatalf("unexpected encoding: %s", raw)
	}
}

func TestIDNormalizesNumbers(t *testing.T) {
	t.Parallel()
	var payload struct {
		Numeric domain.ID `json:"numeric"`
		Text    domain.ID `json:"text"`
		Null    domain.ID `json:"null"`
	}
	raw := `{"numeric":1693526400000,"text":"route-7","null":null}`
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.Numeric != "1693526400000" {
		t.Fatalf("numeric id became %q", payload.Numeric)
	}
	if payload.Text != "route-7" {
		t.Fatalf("text id became %q", payload.Text)
	}
	if payload.Null != "" {
		t.Fatalf("null id became %q", payload.Null)
	}
}

func TestSnapshotValidateAndCounts(t *testing.T) {
	t.Parallel()
	snapshot := domain.Snapshot{
		Version: domain.SnapshotVersion,
		Sessions: []domain.Session{
			{ID: "s-1", Attempts: []domain.Attempt{{ID: "a-1"}, {ID: "a-2"}}},
			{ID: "s-2"},
		},
		CurrentSession: &domain.Session{ID: "open", Attempts: []domain.Attempt{{ID: "a-3"}}},
	}
	if err := snapshot.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	sessions, attempts := snapshot.Counts()
	if sessions != 3 || attempts != 3 {
		t.Fatalf("counted %d sessions and %d attempts", sessions, attempts)
	}

	snapshot.Version = 1
	if err := snapshot.Validate(); err != nil {
		t.Fatalf("version 1 must stay importable: %v", err)
	}
	snapshot.Version = 9
	if err := snapshot.Validate(); err == nil {
		t.Fatalf("expected an unsupported version to be rejected")
	}
}
