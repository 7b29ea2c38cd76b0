package service_test

import (
	"context"
	"os"
	"testing"
	"time"

	out "crux/internal/modules/backup/adapter/out"
	"crux/internal/modules/backup/domain"
	backupout "crux/internal/modules/backup/port/out"
	"crux/internal/modules/backup/service"
	apperrors "crux/internal/platform/errors"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func waitForDaemon(t *testing.T, client backupout.IPCClient, socketPath string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if err := client.Ping(context.Background(), socketPath); err == nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("daemon socket never came up")
}

func TestSnapshotCodecRoundTripAndLegacyParse(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	clk := &fakeClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
	svc := service.NewBackupService(home, clk, out.NewFileSnapshotVault(home), out.NewFileDaemonStore(home), nil, nil)

	closed := domain.Session{
		ID:   "s-1",
		Date: domain.When{Time: time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)},
		Gym:  "Basalt",
		Attempts: []domain.Attempt{{
			ID:        "a-1",
			Timestamp: domain.When{Time: time.Date(2026, 3, 10, 18, 5, 0, 0, time.UTC)},
			Route:     &domain.RouteSnapshot{Name: "Dyno Alley", Color: "red"},
			Success:   true,
		}},
	}
	open := domain.Session{ID: "open-1", Date: domain.When{Time: clk.now}, Gym: "Granite Works"}

	snapshot := svc.Compose([]domain.Session{closed}, &open)
	if snapshot.Version != domain.SnapshotVersion {
		t.Fatalf("composed version %d", snapshot.Version)
	}
	if !snapshot.Timestamp.Equal(clk.now) {
		t.Fatalf("composed timestamp %v", snapshot.Timestamp)
	}

	data, err := svc.Encode(snapshot)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	parsed, err := svc.Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sessions, attempts := parsed.Counts()
	if sessions != 2 || attempts != 1 {
		t.Fatalf("round trip counted %d sessions and %d attempts", sessions, attempts)
	}
	if parsed.CurrentSession == nil || parsed.CurrentSession.Gym != "Granite Works" {
		t.Fatalf("open session lost: %+v", parsed.CurrentSession)
	}
	if !parsed.Sessions[0].Attempts[0].Timestamp.Equal(closed.Attempts[0].Timestamp.Time) {
		t.Fatalf("attempt timestamp drifted")
	}

	if _, err := svc.Parse([]byte("{not json")); !apperrors.IsValidation(err) {
		t.Fatalf("expected a validation error for malformed input, got %v", err)
	}
	if _, err := svc.Parse([]byte(`{"version":9,"sessions":[]}`)); !apperrors.IsValidation(err) {
		t.Fatalf("expected an unsupported version to be rejected, got %v", err)
	}
}

func TestParseAcceptsVersionOneExports(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	clk := &fakeClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
	svc := service.NewBackupService(home, clk, out.NewFileSnapshotVault(home), out.NewFileDaemonStore(home), nil, nil)

	const legacy = `{
  "version": 1,
  "timestamp": "2023-09-01T12:00:00.000Z",
  "sessions": [
    {
      "id": 1693526400000,
      "date": "2023-09-01",
      "gym": "Old Gym",
      "attempts": [
        {"id": 5, "timestamp": 1693562400000, "routeId": 4, "success": true},
        {"id": 6, "timestamp": "2023-09-01T10:40", "success": false, "notes": "pumped out"}
      ]
    }
  ],
  "currentSession": null
}`
	snapshot, err := svc.Parse([]byte(legacy))
	if err != nil {
		t.Fatalf("parse v1: %v", err)
	}
	if snapshot.CurrentSession != nil {
		t.Fatalf("expected a null open session")
	}
	session := snapshot.Sessions[0]
	if session.ID != "1693526400000" {
		t.Fatalf("numeric session id became %q", session.ID)
	}
	if !session.Date.Equal(time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("plain day parsed as %v", session.Date.Time)
	}
	if session.Attempts[0].RouteID != "4" {
		t.Fatalf("numeric route id became %q", session.Attempts[0].RouteID)
	}
	if !session.Attempts[0].Timestamp.Equal(time.Date(2023, 9, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("millis timestamp parsed as %v", session.Attempts[0].Timestamp.Time)
	}
	if !session.Attempts[1].Timestamp.Equal(time.Date(2023, 9, 1, 10, 40, 0, 0, time.UTC)) {
		t.Fatalf("short timestamp parsed as %v", session.Attempts[1].Timestamp.Time)
	}
}

func TestDaemonServesPushAndFetchOverSocket(t *testing.T) {
	t.Parallel()
	home := t.TempDir()
	clk := &fakeClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
	daemonStore := out.NewFileDaemonStore(home)
	daemonSvc := service.NewBackupService(home, clk, out.NewFileSnapshotVault(home), daemonStore, out.NewJSONRPCServer(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() {
		runErr <- daemonSvc.RunDaemon(ctx)
	}()

	client := out.NewJSONRPCClient()
	waitForDaemon(t, client, daemonStore.SocketPath())

	// A second service stands in for the CLI process. Its own vault lives in
	// another home, so it can only see the snapshot if the push really
	// traveled the socket.
	cliHome := t.TempDir()
	cliVault := out.NewFileSnapshotVault(cliHome)
	cliSvc := service.NewBackupService(home, clk, cliVault, daemonStore, nil, client)

	name, err := cliSvc.StoreSnapshot(context.Background(), daemonSvc.Compose(nil, nil))
	if err != nil {
		t.Fatalf("push through daemon: %v", err)
	}
	if name == "" {
		t.Fatalf("expected a snapshot name")
	}
	if count, _, _ := cliVault.Count(context.Background()); count != 0 {
		t.Fatalf("push bypassed the daemon and hit the local vault")
	}

	fetched, fetchedName, err := cliSvc.LatestSnapshot(context.Background())
	if err != nil {
		t.Fatalf("fetch through daemon: %v", err)
	}
	if fetchedName != name || fetched.Version != domain.SnapshotVersion {
		t.Fatalf("unexpected fetch result: %q %+v", fetchedName, fetched)
	}

	status, err := cliSvc.DaemonStatus(context.Background())
	if err != nil {
		t.Fatalf("daemon status: %v", err)
	}
	if !status.Running || status.PID != os.Getpid() {
		t.Fatalf("unexpected runtime status: %+v", status)
	}
	if status.Status.Snapshots != 1 || !status.Status.StartedAt.Equal(clk.now) {
		t.Fatalf("unexpected daemon status: %+v", status.Status)
	}

	if err := daemonSvc.StopDaemon(context.Background()); err != nil {
		t.Fatalf("stop daemon: %v", err)
	}
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("daemon exit error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("daemon did not shut down")
	}
	if _, err := os.Stat(daemonStore.SocketPath()); !os.IsNotExist(err) {
		t.Fatalf("socket file survived shutdown: %v", err)
	}
	if _, err := daemonStore.ReadPID(context.Background()); !os.IsNotExist(err) {
		t.Fatalf("pid file survived shutdown: %v", err)
	}

	// With the daemon gone the same calls fall back to the local vault.
	if _, err := cliSvc.StoreSnapshot(context.Background(), daemonSvc.Compose(nil, nil)); err != nil {
		t.Fatalf("push without daemon: %v", err)
	}
	if count, _, _ := cliVault.Count(context.Background()); count != 1 {
		t.Fatalf("expected the fallback push to land locally")
	}
}
