package in

import (
	"context"

	sessiondto "crux/internal/modules/session/dto"
	sessionin "crux/internal/modules/session/port/in"
)

type CLIHandler struct {
	usecase sessionin.Usecase
}

func NewCLIHandler(usecase sessionin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Start(ctx context.Context, date, gym string) (sessiondto.SessionRecord, error) {
	return h.usecase.Start(ctx, sessiondto.StartInput{Date: date, Gym: gym})
}

// AddAttempt passes nil route or result through untouched so the usecase can
// report which one is missing.
func (h CLIHandler) AddAttempt(ctx context.Context, route *sessiondto.RouteRef, success *bool, notes string) (sessiondto.AttemptRecord, error) {
	return h.usecase.AddAttempt(ctx, sessiondto.AddAttemptInput{Route: route, Success: success, Notes: notes})
}

func (h CLIHandler) UpdateAttempt(ctx context.Context, sessionID, attemptID string, patch sessiondto.AttemptPatch) (sessiondto.AttemptRecord, error) {
	return h.usecase.UpdateAttempt(ctx, sessiondto.UpdateAttemptInput{SessionID: sessionID, AttemptID: attemptID, Patch: patch})
}

func (h CLIHandler) DeleteAttempt(ctx context.Context, sessionID, attemptID string) error {
	return h.usecase.DeleteAttempt(ctx, sessiondto.DeleteAttemptInput{SessionID: sessionID, AttemptID: attemptID})
}

func (h CLIHandler) Finish(ctx context.Context) (sessiondto.SessionRecord, error) {
	return h.usecase.Finish(ctx)
}

func (h CLIHandler) Clear(ctx context.Context) error {
	return h.usecase.Clear(ctx)
}

func (h CLIHandler) Current(ctx context.Context) (sessiondto.SessionRecord, error) {
	return h.usecase.Current(ctx)
}

func (h CLIHandler) Show(ctx context.Context, sessionID string) (sessiondto.SessionRecord, error) {
	return h.usecase.Get(ctx, sessionID)
}

func (h CLIHandler) History(ctx context.Context) ([]sessiondto.SessionRecord, error) {
	return h.usecase.History(ctx)
}

func (h CLIHandler) OverallStats(ctx context.Context) (sessiondto.OverallStatsOutput, error) {
	return h.usecase.OverallStats(ctx)
}

func (h CLIHandler) ColorStats(ctx context.Context, sessionID string) (sessiondto.ColorStatsOutput, error) {
	return h.usecase.ColorStats(ctx, sessiondto.ColorStatsInput{SessionID: sessionID})
}
