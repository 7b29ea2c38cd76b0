package out_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	sessionout "crux/internal/modules/session/adapter/out"
	"crux/internal/modules/session/domain"
	apperrors "crux/internal/platform/errors"
)

func openStore(t *testing.T) *sessionout.SQLiteSessionStore {
	t.Helper()
	store, err := sessionout.NewSQLiteSessionStore(filepath.Join(t.TempDir(), "crux.db"))
	if err != nil {
		t.Fatalf("open session store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSession(id string, day int) domain.Session {
	date := time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC)
	return domain.Session{
		ID:   id,
		Date: date,
		Gym:  "Boulder Barn",
		Attempts: []domain.Attempt{
			{
				ID:        id + "-a1",
				Timestamp: date.Add(10 * time.Hour),
				RouteID:   "route-7",
				Route:     &domain.RouteSnapshot{RouteID: "route-7", Name: "Heel Hook Arete", Color: "red", Gym: "Boulder Barn"},
				Success:   true,
			},
			{
				ID:        id + "-a2",
				Timestamp: date.Add(10*time.Hour + 20*time.Minute),
				Success:   false,
				Notes:     "burned out",
			},
		},
	}
}

func TestDraftRoundTripAndClear(t *testing.T) {
	t.Parallel()
	store := openStore(t)
	ctx := context.Background()

	if _, err := store.LoadDraft(ctx); err != apperrors.ErrNoActiveSession {
		t.Fatalf("expected no active session before save, got %v", err)
	}

	draft := sampleSession("draft-1", 7)
	if err := store.SaveDraft(ctx, draft); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	loaded, err := store.LoadDraft(ctx)
	if err != nil {
		t.Fatalf("load draft: %v", err)
	}
	if loaded.ID != draft.ID || loaded.Gym != draft.Gym || len(loaded.Attempts) != 2 {
		t.Fatalf("draft round trip lost data: %+v", loaded)
	}
	if !loaded.Attempts[0].Timestamp.Equal(draft.Attempts[0].Timestamp) {
		t.Fatalf("draft attempt timestamp changed: %v", loaded.Attempts[0].Timestamp)
	}
	if loaded.Attempts[1].Route != nil {
		t.Fatalf("expected nil snapshot to stay nil, got %+v", loaded.Attempts[1].Route)
	}

	draft.Gym = "Crux & Mantle"
	if err := store.SaveDraft(ctx, draft); err != nil {
		t.Fatalf("overwrite draft: %v", err)
	}
	loaded, err = store.LoadDraft(ctx)
	if err != nil {
		t.Fatalf("reload draft: %v", err)
	}
	if loaded.Gym != "Crux & Mantle" {
		t.Fatalf("overwrite must replace the draft, got %q", loaded.Gym)
	}

	cleared, err := store.ClearDraft(ctx)
	if err != nil || !cleared {
		t.Fatalf("clear draft: cleared=%v err=%v", cleared, err)
	}
	cleared, err = store.ClearDraft(ctx)
	if err != nil || cleared {
		t.Fatalf("second clear must report false, got cleared=%v err=%v", cleared, err)
	}
	if _, err := store.LoadDraft(ctx); err != apperrors.ErrNoActiveSession {
		t.Fatalf("expected no active session after clear, got %v", err)
	}
}

func TestHistoryAppendListGetOrdering(t *testing.T) {
	t.Parallel()
	store := openStore(t)
	ctx := context.Background()

	older := sampleSession("sess-old", 1)
	newer := sampleSession("sess-new", 9)
	if err := store.Append(ctx, older); err != nil {
		t.Fatalf("append older: %v", err)
	}
	if err := store.Append(ctx, newer); err != nil {
		t.Fatalf("append newer: %v", err)
	}

	sessions, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != "sess-new" || sessions[1].ID != "sess-old" {
		t.Fatalf("expected newest first, got %+v", sessions)
	}
	if len(sessions[0].Attempts) != 2 || sessions[0].Attempts[0].ID != "sess-new-a1" {
		t.Fatalf("attempts must keep insertion order, got %+v", sessions[0].Attempts)
	}

	got, err := store.Get(ctx, "sess-old")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Attempts[0].Route == nil || got.Attempts[0].Route.Name != "Heel Hook Arete" {
		t.Fatalf("snapshot lost in round trip: %+v", got.Attempts[0].Route)
	}
	if !got.Date.Equal(older.Date) {
		t.Fatalf("date changed in round trip: %v", got.Date)
	}

	if _, err := store.Get(ctx, "missing"); !apperrors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAttemptUpdateDeleteAndReplaceAll(t *testing.T) {
	t.Parallel()
	store := openStore(t)
	ctx := context.Background()

	session := sampleSession("sess-1", 7)
	if err := store.Append(ctx, session); err != nil {
		t.Fatalf("append session: %v", err)
	}

	edited := session.Attempts[1]
	edited.Success = true
	edited.Notes = "second go went clean"
	edited.Route = &domain.RouteSnapshot{Name: "Slab of Doom", Color: "purple"}
	if err := store.UpdateAttempt(ctx, "sess-1", edited); err != nil {
		t.Fatalf("update attempt: %v", err)
	}
	got, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if !got.Attempts[1].Success || got.Attempts[1].Route == nil || got.Attempts[1].Route.Color != "purple" {
		t.Fatalf("update not persisted: %+v", got.Attempts[1])
	}
	if !got.Attempts[1].Timestamp.Equal(session.Attempts[1].Timestamp) {
		t.Fatalf("update must not touch the timestamp, got %v", got.Attempts[1].Timestamp)
	}

	if err := store.UpdateAttempt(ctx, "sess-1", domain.Attempt{ID: "missing"}); !apperrors.IsNotFound(err) {
		t.Fatalf("expected not found for unknown attempt, got %v", err)
	}
	if err := store.DeleteAttempt(ctx, "sess-1", "missing"); !apperrors.IsNotFound(err) {
		t.Fatalf("expected not found for unknown delete, got %v", err)
	}
	if err := store.DeleteAttempt(ctx, "sess-1", "sess-1-a2"); err != nil {
		t.Fatalf("delete attempt: %v", err)
	}
	got, err = store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if len(got.Attempts) != 1 || got.Attempts[0].ID != "sess-1-a1" {
		t.Fatalf("delete removed the wrong attempt: %+v", got.Attempts)
	}

	replacement := []domain.Session{sampleSession("sess-2", 11)}
	if err := store.ReplaceAll(ctx, replacement); err != nil {
		t.Fatalf("replace all: %v", err)
	}
	sessions, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list after replace: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "sess-2" {
		t.Fatalf("replace must drop old sessions, got %+v", sessions)
	}
}
