package in

import (
	"context"

	"crux/internal/modules/backup/dto"
)

type Usecase interface {
	RunDaemon(ctx context.Context) error
	StartDaemon(ctx context.Context) error
	StopDaemon(ctx context.Context) error
	DaemonStatus(ctx context.Context) (dto.DaemonStatusOutput, error)

	Export(ctx context.Context) (dto.SnapshotOutput, error)
	Import(ctx context.Context, data []byte) (dto.ImportOutput, error)
	Push(ctx context.Context) (dto.PushOutput, error)
	Pull(ctx context.Context) (dto.PullOutput, error)
}
