package activity_test

import (
	"context"
	"testing"
	"time"

	"crux/internal/platform/activity"
)

func TestFileRecorderTailMissingLogReturnsEmpty(t *testing.T) {
	t.Parallel()
	recorder := activity.NewFileRecorder(t.TempDir())
	events, err := recorder.Tail(context.Background(), activity.Query{})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestFileRecorderAppendAssignsDefaults(t *testing.T) {
	t.Parallel()
	recorder := activity.NewFileRecorder(t.TempDir())
	err := recorder.Append(context.Background(), activity.Event{
		Type:    activity.SessionStarted,
		Message: "started at Test Gym",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	events, err := recorder.Tail(context.Background(), activity.Query{})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if events[0].ID == "" {
		t.Fatalf("expected generated event id")
	}
	if events[0].OccurredAt.IsZero() {
		t.Fatalf("expected occurredAt to be stamped")
	}
	if events[0].Type != activity.SessionStarted {
		t.Fatalf("unexpected type %q", events[0].Type)
	}
}

func TestFileRecorderTailKeepsNewestWhenOverLimit(t *testing.T) {
	t.Parallel()
	recorder := activity.NewFileRecorder(t.TempDir())
	base := time.Date(2023, 1, 15, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := recorder.Append(context.Background(), activity.Event{
			ID:         string(rune('a' + i)),
			Type:       activity.AttemptAdded,
			Message:    "attempt",
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	events, err := recorder.Tail(context.Background(), activity.Query{Limit: 2})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected two events, got %d", len(events))
	}
	if events[0].ID != "d" || events[1].ID != "e" {
		t.Fatalf("expected newest events in order, got %q then %q", events[0].ID, events[1].ID)
	}
}

func TestFileRecorderTailFiltersBySince(t *testing.T) {
	t.Parallel()
	recorder := activity.NewFileRecorder(t.TempDir())
	base := time.Date(2023, 1, 15, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := recorder.Append(context.Background(), activity.Event{
			ID:         string(rune('a' + i)),
			Type:       activity.RouteSaved,
			OccurredAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	events, err := recorder.Tail(context.Background(), activity.Query{Since: base.Add(90 * time.Minute)})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event after since, got %d", len(events))
	}
	if events[0].ID != "c" {
		t.Fatalf("expected newest event, got %q", events[0].ID)
	}
}
