package in

import (
	"context"

	"crux/internal/modules/session/dto"
)

type Usecase interface {
	Start(ctx context.Context, input dto.StartInput) (dto.SessionRecord, error)
	AddAttempt(ctx context.Context, input dto.AddAttemptInput) (dto.AttemptRecord, error)
	UpdateAttempt(ctx context.Context, input dto.UpdateAttemptInput) (dto.AttemptRecord, error)
	DeleteAttempt(ctx context.Context, input dto.DeleteAttemptInput) error
	Finish(ctx context.Context) (dto.SessionRecord, error)
	Clear(ctx context.Context) error
	Current(ctx context.Context) (dto.SessionRecord, error)
	Get(ctx context.Context, sessionID string) (dto.SessionRecord, error)
	History(ctx context.Context) ([]dto.SessionRecord, error)
	OverallStats(ctx context.Context) (dto.OverallStatsOutput, error)
	ColorStats(ctx context.Context, input dto.ColorStatsInput) (dto.ColorStatsOutput, error)
	RestoreAll(ctx context.Context, input dto.RestoreInput) error
}
