package dto

import "time"

type SnapshotOutput struct {
	Data      []byte
	Sessions  int
	Attempts  int
	Timestamp time.Time
}

type ImportOutput struct {
	Sessions int
	Attempts int
}

type PushOutput struct {
	Name     string
	Sessions int
	Attempts int
}

type PullOutput struct {
	Name     string
	Sessions int
	Attempts int
}

type DaemonStatusOutput struct {
	Running    bool
	PID        int
	StartedAt  time.Time
	Snapshots  int
	LatestAt   time.Time
	SocketPath string
	LogPath    string
}
