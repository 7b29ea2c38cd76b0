package domain

import "errors"

var (
	ErrDaemonNotRunning  = errors.New("backup daemon is not running")
	ErrDaemonStartFailed = errors.New("backup daemon start failed")
	ErrNoSnapshots       = errors.New("no snapshots archived yet")
)
