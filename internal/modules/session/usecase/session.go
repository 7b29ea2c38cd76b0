package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	routesin "crux/internal/modules/routes/port/in"
	"crux/internal/modules/session/domain"
	"crux/internal/modules/session/dto"
	sessionin "crux/internal/modules/session/port/in"
	sessionout "crux/internal/modules/session/port/out"
	"crux/internal/modules/session/service"
	"crux/internal/platform/activity"
	apperrors "crux/internal/platform/errors"
)

// Interactor wires the session service to its peers: route lookups for
// attempt snapshots, the journal export, and the activity log.
type Interactor struct {
	svc      *service.SessionService
	routes   routesin.Usecase
	journal  sessionout.JournalStore
	recorder activity.Recorder
}

func NewInteractor(svc *service.SessionService, routes routesin.Usecase, journal sessionout.JournalStore, recorder activity.Recorder) sessionin.Usecase {
	return &Interactor{svc: svc, routes: routes, journal: journal, recorder: recorder}
}

func (i *Interactor) Start(ctx context.Context, input dto.StartInput) (dto.SessionRecord, error) {
	date, err := parseDateInput(input.Date)
	if err != nil {
		return dto.SessionRecord{}, err
	}
	session, err := i.svc.Start(ctx, date, strings.TrimSpace(input.Gym))
	if err != nil {
		return dto.SessionRecord{}, err
	}
	i.record(ctx, activity.SessionStarted, fmt.Sprintf("started session at %s", session.Gym))
	return toSessionRecord(session, true), nil
}

func (i *Interactor) AddAttempt(ctx context.Context, input dto.AddAttemptInput) (dto.AttemptRecord, error) {
	// State first: callers must see exactly "No active session" when no
	// draft exists, before any input validation or route lookup runs.
	if _, err := i.svc.Current(ctx); err != nil {
		return dto.AttemptRecord{}, err
	}
	if input.Route == nil {
		return dto.AttemptRecord{}, apperrors.Validation("A route is required")
	}
	if input.Success == nil {
		return dto.AttemptRecord{}, apperrors.Validation("A result is required")
	}
	snapshot, err := i.resolveSnapshot(ctx, *input.Route)
	if err != nil {
		return dto.AttemptRecord{}, err
	}
	attempt, err := i.svc.AddAttempt(ctx, snapshot, *input.Success, input.Notes)
	if err != nil {
		return dto.AttemptRecord{}, err
	}
	i.record(ctx, activity.AttemptAdded, fmt.Sprintf("logged %s on %s", resultWord(attempt.Success), snapshotLabel(attempt.Route)))
	return toAttemptRecord(attempt), nil
}

func (i *Interactor) UpdateAttempt(ctx context.Context, input dto.UpdateAttemptInput) (dto.AttemptRecord, error) {
	if input.Patch.Route != nil && input.Patch.Success == nil {
		// Changing the route invalidates the old result, so a new one must
		// come with it. Checked before the route lookup so the caller sees
		// the input problem, not a lookup failure.
		return dto.AttemptRecord{}, apperrors.Validation("A result is required when changing the route")
	}
	patch := domain.AttemptPatch{Success: input.Patch.Success, Notes: input.Patch.Notes}
	if input.Patch.Route != nil {
		snapshot, err := i.resolveSnapshot(ctx, *input.Patch.Route)
		if err != nil {
			return dto.AttemptRecord{}, err
		}
		patch.Route = snapshot
	}
	attempt, open, err := i.svc.UpdateAttempt(ctx, input.SessionID, input.AttemptID, patch)
	if err != nil {
		return dto.AttemptRecord{}, err
	}
	if !open {
		i.refreshJournal(ctx, input.SessionID)
	}
	i.record(ctx, activity.AttemptUpdated, fmt.Sprintf("edited attempt %s", input.AttemptID))
	return toAttemptRecord(attempt), nil
}

func (i *Interactor) DeleteAttempt(ctx context.Context, input dto.DeleteAttemptInput) error {
	open, err := i.svc.DeleteAttempt(ctx, input.SessionID, input.AttemptID)
	if err != nil {
		return err
	}
	if !open {
		i.refreshJournal(ctx, input.SessionID)
	}
	i.record(ctx, activity.AttemptDeleted, fmt.Sprintf("deleted attempt %s", input.AttemptID))
	return nil
}

func (i *Interactor) Finish(ctx context.Context) (dto.SessionRecord, error) {
	session, err := i.svc.Finish(ctx)
	if err != nil {
		return dto.SessionRecord{}, err
	}
	if i.journal != nil {
		_, _ = i.journal.Write(ctx, session)
	}
	i.record(ctx, activity.SessionFinished, fmt.Sprintf("finished session at %s with %d attempts", session.Gym, len(session.Attempts)))
	return toSessionRecord(session, false), nil
}

func (i *Interactor) Clear(ctx context.Context) error {
	cleared, err := i.svc.Clear(ctx)
	if err != nil {
		return err
	}
	if cleared {
		i.record(ctx, activity.SessionCleared, "discarded the open session")
	}
	return nil
}

func (i *Interactor) Current(ctx context.Context) (dto.SessionRecord, error) {
	session, err := i.svc.Current(ctx)
	if err != nil {
		return dto.SessionRecord{}, err
	}
	return toSessionRecord(session, true), nil
}

func (i *Interactor) Get(ctx context.Context, sessionID string) (dto.SessionRecord, error) {
	session, open, err := i.svc.Get(ctx, sessionID)
	if err != nil {
		return dto.SessionRecord{}, err
	}
	return toSessionRecord(session, open), nil
}

func (i *Interactor) History(ctx context.Context) ([]dto.SessionRecord, error) {
	history, err := i.svc.History(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]dto.SessionRecord, 0, len(history))
	for _, session := range history {
		records = append(records, toSessionRecord(session, false))
	}
	return records, nil
}

func (i *Interactor) OverallStats(ctx context.Context) (dto.OverallStatsOutput, error) {
	stats, err := i.svc.Overall(ctx)
	if err != nil {
		return dto.OverallStatsOutput{}, err
	}
	return dto.OverallStatsOutput{
		TotalSessions:      stats.TotalSessions,
		TotalAttempts:      stats.TotalAttempts,
		TotalSuccess:       stats.TotalSuccess,
		OverallSuccessRate: stats.SuccessRate,
	}, nil
}

func (i *Interactor) ColorStats(ctx context.Context, input dto.ColorStatsInput) (dto.ColorStatsOutput, error) {
	stats, err := i.svc.ColorStats(ctx, input.SessionID)
	if err != nil {
		return dto.ColorStatsOutput{}, err
	}
	out := dto.ColorStatsOutput{Colors: map[string]dto.ColorCount{}}
	for color, stat := range stats {
		out.Colors[color] = dto.ColorCount{Success: stat.Success, Total: stat.Total}
	}
	return out, nil
}

func (i *Interactor) RestoreAll(ctx context.Context, input dto.RestoreInput) error {
	sessions := make([]domain.Session, 0, len(input.Sessions))
	for _, record := range input.Sessions {
		sessions = append(sessions, fromSessionRecord(record))
	}
	var current *domain.Session
	if input.Current != nil {
		session := fromSessionRecord(*input.Current)
		current = &session
	}
	return i.svc.RestoreAll(ctx, sessions, current)
}

// resolveSnapshot turns a route reference into the embedded copy stored on
// the attempt. Saved routes are looked up through the routes module; ad-hoc
// references are embedded as given.
func (i *Interactor) resolveSnapshot(ctx context.Context, ref dto.RouteRef) (*domain.RouteSnapshot, error) {
	if ref.RouteID != "" {
		if i.routes == nil {
			return nil, apperrors.NotFound("Route not found")
		}
		route, err := i.routes.Get(ctx, ref.RouteID)
		if err != nil {
			return nil, err
		}
		return &domain.RouteSnapshot{
			RouteID: route.ID,
			Name:    route.Name,
			Color:   route.Color,
			Gym:     route.Gym,
			Notes:   route.Notes,
		}, nil
	}
	return &domain.RouteSnapshot{Name: ref.Name, Color: ref.Color, Gym: ref.Gym, Notes: ref.Notes}, nil
}

func (i *Interactor) refreshJournal(ctx context.Context, sessionID string) {
	if i.journal == nil {
		return
	}
	session, open, err := i.svc.Get(ctx, sessionID)
	if err != nil || open {
		return
	}
	_ = i.journal.Refresh(ctx, session)
}

func (i *Interactor) record(ctx context.Context, eventType activity.Type, message string) {
	if i.recorder == nil {
		return
	}
	_ = i.recorder.Append(ctx, activity.Event{Type: eventType, Message: message})
}

func parseDateInput(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	date, err := domain.ParseWhen(value)
	if err != nil {
		return time.Time{}, apperrors.Validation("Unrecognized date %q", value)
	}
	return date, nil
}

func resultWord(success bool) string {
	if success {
		return "a send"
	}
	return "a fall"
}

func snapshotLabel(snapshot *domain.RouteSnapshot) string {
	if snapshot == nil {
		return "an unnamed route"
	}
	switch {
	case snapshot.Name != "" && snapshot.Color != "":
		return fmt.Sprintf("%s (%s)", snapshot.Name, snapshot.Color)
	case snapshot.Name != "":
		return snapshot.Name
	case snapshot.Color != "":
		return fmt.Sprintf("a %s route", snapshot.Color)
	default:
		return "an unnamed route"
	}
}

func toSessionRecord(session domain.Session, open bool) dto.SessionRecord {
	record := dto.SessionRecord{
		ID:       session.ID,
		Date:     session.Date,
		Gym:      session.Gym,
		Open:     open,
		Attempts: make([]dto.AttemptRecord, 0, len(session.Attempts)),
	}
	for _, attempt := range session.Attempts {
		record.Attempts = append(record.Attempts, toAttemptRecord(attempt))
	}
	return record
}

func toAttemptRecord(attempt domain.Attempt) dto.AttemptRecord {
	record := dto.AttemptRecord{
		ID:        attempt.ID,
		Timestamp: attempt.Timestamp,
		RouteID:   attempt.RouteID,
		Success:   attempt.Success,
		Notes:     attempt.Notes,
	}
	if attempt.Route != nil {
		record.Route = &dto.RouteSnapshotRecord{
			RouteID: attempt.Route.RouteID,
			Name:    attempt.Route.Name,
			Color:   attempt.Route.Color,
			Gym:     attempt.Route.Gym,
			Notes:   attempt.Route.Notes,
		}
	}
	return record
}

func fromSessionRecord(record dto.SessionRecord) domain.Session {
	session := domain.Session{
		ID:       record.ID,
		Date:     record.Date,
		Gym:      record.Gym,
		Attempts: make([]domain.Attempt, 0, len(record.Attempts)),
	}
	for _, attempt := range record.Attempts {
		converted := domain.Attempt{
			ID:        attempt.ID,
			Timestamp: attempt.Timestamp,
			RouteID:   attempt.RouteID,
			Success:   attempt.Success,
			Notes:     attempt.Notes,
		}
		if attempt.Route != nil {
			converted.Route = &domain.RouteSnapshot{
				RouteID: attempt.Route.RouteID,
				Name:    attempt.Route.Name,
				Color:   attempt.Route.Color,
				Gym:     attempt.Route.Gym,
				Notes:   attempt.Route.Notes,
			}
		}
		session.Attempts = append(session.Attempts, converted)
	}
	return session
}
