package out_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	out "crux/internal/modules/backup/adapter/out"
	"crux/internal/modules/backup/domain"
	backupout "crux/internal/modules/backup/port/out"
)

type fakeIPCHandler struct {
	mu       sync.Mutex
	archived []domain.Snapshot
	stopped  bool
}

func (h *fakeIPCHandler) Ping(context.Context) error { return nil }

func (h *fakeIPCHandler) Push(_ context.Context, snapshot domain.Snapshot) (string, error) {
	h.mu.Lock()
	h.archived = append(h.archived, snapshot)
	h.mu.Unlock()
	return "20260314-101500.000000000.json", nil
}

func (h *fakeIPCHandler) Fetch(context.Context) (domain.Snapshot, string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.archived) == 0 {
		return domain.Snapshot{}, "", domain.ErrNoSnapshots
	}
	return h.archived[len(h.archived)-1], "20260314-101500.000000000.json", nil
}

func (h *fakeIPCHandler) Status(context.Context) (backupout.DaemonStatus, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return backupout.DaemonStatus{
		StartedAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		Snapshots: len(h.archived),
	}, nil
}

func (h *fakeIPCHandler) Stop(context.Context) error {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
	return nil
}

func TestJSONRPCServerClientContract(t *testing.T) {
	t.Parallel()
	h := &fakeIPCHandler{}
	server := out.NewJSONRPCServer()
	client := out.NewJSONRPCClient()
	socketPath := filepath.Join(t.TempDir(), "daemon.sock")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ctx, socketPath, h)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if err := client.Ping(context.Background(), socketPath); err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if _, _, err := client.Fetch(context.Background(), socketPath); err == nil {
		t.Fatalf("expected fetch on an empty archive to fail")
	}

	pushed := domain.Snapshot{
		Version:   domain.SnapshotVersion,
		Timestamp: time.Date(2026, 3, 14, 10, 15, 0, 0, time.UTC),
		Sessions: []domain.Session{{
			ID:   "s-1",
			Date: domain.When{Time: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)},
			Gym:  "Basalt",
			Attempts: []domain.Attempt{{
				ID:        "a-1",
				Timestamp: domain.When{Time: time.Date(2026, 3, 14, 9, 5, 0, 0, time.UTC)},
				Route:     &domain.RouteSnapshot{Name: "Dyno Alley", Color: "red"},
				Success:   true,
			}},
		}},
	}
	name, err := client.Push(context.Background(), socketPath, pushed)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if name == "" {
		t.Fatalf("expected a snapshot name")
	}

	fetched, fetchedName, err := client.Fetch(context.Background(), socketPath)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if fetchedName != name {
		t.Fatalf("unexpected snapshot name %q", fetchedName)
	}
	if len(fetched.Sessions) != 1 || fetched.Sessions[0].Gym != "Basalt" {
		t.Fatalf("unexpected fetched snapshot: %+v", fetched)
	}
	attempt := fetched.Sessions[0].Attempts[0]
	if !attempt.Timestamp.Equal(pushed.Sessions[0].Attempts[0].Timestamp.Time) {
		t.Fatalf("attempt timestamp did not survive the wire: %v", attempt.Timestamp)
	}
	if attempt.Route == nil || attempt.Route.Name != "Dyno Alley" {
		t.Fatalf("route snapshot did not survive the wire: %+v", attempt.Route)
	}

	status, err := client.Status(context.Background(), socketPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Snapshots != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}

	if err := client.Stop(context.Background(), socketPath); err != nil {
		t.Fatalf("stop rpc: %v", err)
	}
	h.mu.Lock()
	stopped := h.stopped
	h.mu.Unlock()
	if !stopped {
		t.Fatalf("expected stop hook to run")
	}

	cancel()
	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("serve exit error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not shut down")
	}
}
