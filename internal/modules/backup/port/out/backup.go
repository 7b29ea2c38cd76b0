package out

import (
	"context"
	"time"

	"crux/internal/modules/backup/domain"
)

// SnapshotVault archives the snapshots the daemon has accepted.
type SnapshotVault interface {
	Store(ctx context.Context, snapshot domain.Snapshot) (string, error)
	Latest(ctx context.Context) (domain.Snapshot, string, error)
	Count(ctx context.Context) (int, time.Time, error)
}

type DaemonStore interface {
	WritePID(ctx context.Context, pid int) error
	ReadPID(ctx context.Context) (int, error)
	ClearPID(ctx context.Context) error
	SocketPath() string
	LogPath() string
}

// IPCServer serves the stable JSON-RPC daemon API.
type IPCServer interface {
	Serve(ctx context.Context, socketPath string, handler IPCHandler) error
}

// IPCClient talks to the local daemon JSON-RPC API.
type IPCClient interface {
	Ping(ctx context.Context, socketPath string) error
	Push(ctx context.Context, socketPath string, snapshot domain.Snapshot) (string, error)
	Fetch(ctx context.Context, socketPath string) (domain.Snapshot, string, error)
	Status(ctx context.Context, socketPath string) (DaemonStatus, error)
	Stop(ctx context.Context, socketPath string) error
}

type IPCHandler interface {
	Ping(ctx context.Context) error
	Push(ctx context.Context, snapshot domain.Snapshot) (string, error)
	Fetch(ctx context.Context) (domain.Snapshot, string, error)
	Status(ctx context.Context) (DaemonStatus, error)
	Stop(ctx context.Context) error
}

type DaemonStatus struct {
	StartedAt time.Time
	Snapshots int
	LatestAt  time.Time
}

type DaemonRuntimeStatus struct {
	Running    bool
	PID        int
	SocketPath string
	LogPath    string
	Status     DaemonStatus
}
