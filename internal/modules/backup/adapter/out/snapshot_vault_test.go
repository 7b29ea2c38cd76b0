package out_test

import (
	"context"
	"errors"
	"testing"
	"time"

	out "crux/internal/modules/backup/adapter/out"
	"crux/internal/modules/backup/domain"
)

func snapshotAt(ts time.Time, gym string) domain.Snapshot {
	return domain.Snapshot{
		Version:   domain.SnapshotVersion,
		Timestamp: ts,
		Sessions: []domain.Session{{
			ID:   domain.ID("s-" + gym),
			Date: domain.When{Time: ts.Add(-2 * time.Hour)},
			Gym:  gym,
			Attempts: []domain.Attempt{{
				ID:        "a-1",
				Timestamp: domain.When{Time: ts.Add(-90 * time.Minute)},
				Success:   true,
			}},
		}},
	}
}

func TestFileSnapshotVaultOrdersByTimestamp(t *testing.T) {
	t.Parallel()
	vault := out.NewFileSnapshotVault(t.TempDir())
	ctx := context.Background()

	if _, _, err := vault.Latest(ctx); !errors.Is(err, domain.ErrNoSnapshots) {
		t.Fatalf("expected ErrNoSnapshots on an empty vault, got %v", err)
	}
	count, latestAt, err := vault.Count(ctx)
	if err != nil {
		t.Fatalf("count empty vault: %v", err)
	}
	if count != 0 || !latestAt.IsZero() {
		t.Fatalf("unexpected empty vault count: %d at %v", count, latestAt)
	}

	first := snapshotAt(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), "Basalt")
	second := snapshotAt(time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC), "Granite Works")

	if _, err := vault.Store(ctx, first); err != nil {
		t.Fatalf("store first: %v", err)
	}
	secondName, err := vault.Store(ctx, second)
	if err != nil {
		t.Fatalf("store second: %v", err)
	}

	latest, name, err := vault.Latest(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if name != secondName {
		t.Fatalf("latest picked %q, want %q", name, secondName)
	}
	if len(latest.Sessions) != 1 || latest.Sessions[0].Gym != "Granite Works" {
		t.Fatalf("unexpected latest snapshot: %+v", latest)
	}
	if !latest.Timestamp.Equal(second.Timestamp) {
		t.Fatalf("timestamp drifted to %v", latest.Timestamp)
	}
	if !latest.Sessions[0].Attempts[0].Timestamp.Equal(second.Sessions[0].Attempts[0].Timestamp.Time) {
		t.Fatalf("attempt timestamp drifted")
	}

	count, latestAt, err = vault.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 || !latestAt.Equal(second.Timestamp) {
		t.Fatalf("unexpected count: %d at %v", count, latestAt)
	}
}

func TestFileSnapshotVaultOverwritesSameTimestamp(t *testing.T) {
	t.Parallel()
	vault := out.NewFileSnapshotVault(t.TempDir())
	ctx := context.Background()

	ts := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	firstName, err := vault.Store(ctx, snapshotAt(ts, "Basalt"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	secondName, err := vault.Store(ctx, snapshotAt(ts, "Granite Works"))
	if err != nil {
		t.Fatalf("store again: %v", err)
	}
	if firstName != secondName {
		t.Fatalf("same timestamp produced %q and %q", firstName, secondName)
	}

	count, _, err := vault.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected the overwrite to keep one file, got %d", count)
	}
	latest, _, err := vault.Latest(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Sessions[0].Gym != "Granite Works" {
		t.Fatalf("expected last write to win, got %+v", latest.Sessions[0])
	}
}
