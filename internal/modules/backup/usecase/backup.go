package usecase

import (
	"context"
	"errors"
	"fmt"

	"crux/internal/modules/backup/domain"
	"crux/internal/modules/backup/dto"
	backupin "crux/internal/modules/backup/port/in"
	"crux/internal/modules/backup/service"
	sessiondto "crux/internal/modules/session/dto"
	sessionin "crux/internal/modules/session/port/in"
	"crux/internal/platform/activity"
	apperrors "crux/internal/platform/errors"
)

// Interactor bridges the backup service and the session module: exports read
// the logbook through the session API, imports replace it the same way.
type Interactor struct {
	svc      *service.BackupService
	sessions sessionin.Usecase
	recorder activity.Recorder
}

func NewInteractor(svc *service.BackupService, sessions sessionin.Usecase, recorder activity.Recorder) backupin.Usecase {
	return &Interactor{svc: svc, sessions: sessions, recorder: recorder}
}

func (i *Interactor) Export(ctx context.Context) (dto.SnapshotOutput, error) {
	snapshot, err := i.compose(ctx)
	if err != nil {
		return dto.SnapshotOutput{}, err
	}
	data, err := i.svc.Encode(snapshot)
	if err != nil {
		return dto.SnapshotOutput{}, err
	}
	sessions, attempts := snapshot.Counts()
	i.record(ctx, activity.BackupExported, fmt.Sprintf("exported %d sessions (%d attempts)", sessions, attempts))
	return dto.SnapshotOutput{
		Data:      data,
		Sessions:  sessions,
		Attempts:  attempts,
		Timestamp: snapshot.Timestamp,
	}, nil
}

func (i *Interactor) Import(ctx context.Context, data []byte) (dto.ImportOutput, error) {
	snapshot, err := i.svc.Parse(data)
	if err != nil {
		return dto.ImportOutput{}, err
	}
	if err := i.restore(ctx, snapshot); err != nil {
		return dto.ImportOutput{}, err
	}
	sessions, attempts := snapshot.Counts()
	i.record(ctx, activity.BackupImported, fmt.Sprintf("imported %d sessions (%d attempts)", sessions, attempts))
	return dto.ImportOutput{Sessions: sessions, Attempts: attempts}, nil
}

func (i *Interactor) Push(ctx context.Context) (dto.PushOutput, error) {
	snapshot, err := i.compose(ctx)
	if err != nil {
		return dto.PushOutput{}, err
	}
	name, err := i.svc.StoreSnapshot(ctx, snapshot)
	if err != nil {
		return dto.PushOutput{}, err
	}
	sessions, attempts := snapshot.Counts()
	i.record(ctx, activity.BackupPushed, fmt.Sprintf("archived snapshot %s", name))
	return dto.PushOutput{Name: name, Sessions: sessions, Attempts: attempts}, nil
}

func (i *Interactor) Pull(ctx context.Context) (dto.PullOutput, error) {
	snapshot, name, err := i.svc.LatestSnapshot(ctx)
	if err != nil {
		return dto.PullOutput{}, err
	}
	if err := i.restore(ctx, snapshot); err != nil {
		return dto.PullOutput{}, err
	}
	sessions, attempts := snapshot.Counts()
	i.record(ctx, activity.BackupPulled, fmt.Sprintf("restored snapshot %s", name))
	return dto.PullOutput{Name: name, Sessions: sessions, Attempts: attempts}, nil
}

func (i *Interactor) RunDaemon(ctx context.Context) error {
	return i.svc.RunDaemon(ctx)
}

func (i *Interactor) StartDaemon(ctx context.Context) error {
	if err := i.svc.StartDaemon(ctx); err != nil {
		return err
	}
	i.record(ctx, activity.DaemonStarted, "backup daemon started")
	return nil
}

func (i *Interactor) StopDaemon(ctx context.Context) error {
	if err := i.svc.StopDaemon(ctx); err != nil {
		return err
	}
	i.record(ctx, activity.DaemonStopped, "backup daemon stopped")
	return nil
}

func (i *Interactor) DaemonStatus(ctx context.Context) (dto.DaemonStatusOutput, error) {
	status, err := i.svc.DaemonStatus(ctx)
	if err != nil {
		return dto.DaemonStatusOutput{}, err
	}
	return dto.DaemonStatusOutput{
		Running:    status.Running,
		PID:        status.PID,
		StartedAt:  status.Status.StartedAt,
		Snapshots:  status.Status.Snapshots,
		LatestAt:   status.Status.LatestAt,
		SocketPath: status.SocketPath,
		LogPath:    status.LogPath,
	}, nil
}

func (i *Interactor) compose(ctx context.Context) (domain.Snapshot, error) {
	history, err := i.sessions.History(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	sessions := make([]domain.Session, 0, len(history))
	for _, record := range history {
		sessions = append(sessions, toWireSession(record))
	}

	var current *domain.Session
	open, err := i.sessions.Current(ctx)
	switch {
	case err == nil:
		session := toWireSession(open)
		current = &session
	case errors.Is(err, apperrors.ErrNoActiveSession):
		// nothing open, currentSession stays null
	default:
		return domain.Snapshot{}, err
	}
	return i.svc.Compose(sessions, current), nil
}

func (i *Interactor) restore(ctx context.Context, snapshot domain.Snapshot) error {
	input := sessiondto.RestoreInput{
		Sessions: make([]sessiondto.SessionRecord, 0, len(snapshot.Sessions)),
	}
	for _, session := range snapshot.Sessions {
		input.Sessions = append(input.Sessions, fromWireSession(session, false))
	}
	if snapshot.CurrentSession != nil {
		record := fromWireSession(*snapshot.CurrentSession, true)
		input.Current = &record
	}
	return i.sessions.RestoreAll(ctx, input)
}

func (i *Interactor) record(ctx context.Context, eventType activity.Type, message string) {
	if i.recorder == nil {
		return
	}
	_ = i.recorder.Append(ctx, activity.Event{Type: eventType, Message: message})
}

func toWireSession(record sessiondto.SessionRecord) domain.Session {
	session := domain.Session{
		ID:       domain.ID(record.ID),
		Date:     domain.When{Time: record.Date},
		Gym:      record.Gym,
		Attempts: make([]domain.Attempt, 0, len(record.Attempts)),
	}
	for _, attempt := range record.Attempts {
		converted := domain.Attempt{
			ID:        domain.ID(attempt.ID),
			Timestamp: domain.When{Time: attempt.Timestamp},
			RouteID:   domain.ID(attempt.RouteID),
			Success:   attempt.Success,
			Notes:     attempt.Notes,
		}
		if attempt.Route != nil {
			converted.Route = &domain.RouteSnapshot{
				RouteID: domain.ID(attempt.Route.RouteID),
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

func fromWireSession(session domain.Session, open bool) sessiondto.SessionRecord {
	record := sessiondto.SessionRecord{
		ID:       string(session.ID),
		Date:     session.Date.Time,
		Gym:      session.Gym,
		Open:     open,
		Attempts: make([]sessiondto.AttemptRecord, 0, len(session.Attempts)),
	}
	for _, attempt := range session.Attempts {
		converted := sessiondto.AttemptRecord{
			ID:        string(attempt.ID),
			Timestamp: attempt.Timestamp.Time,
			RouteID:   string(attempt.RouteID),
			Success:   attempt.Success,
			Notes:     attempt.Notes,
		}
		if attempt.Route != nil {
			converted.Route = &sessiondto.RouteSnapshotRecord{
				RouteID: string(attempt.Route.RouteID),
				Name:    attempt.Route.Name,
				Color:   attempt.Route.Color,
				Gym:     attempt.Route.Gym,
				Notes:   attempt.Route.Notes,
			}
			// Older exports carried the saved-route id on only one of the two
			// spots, keep the attempt and its embedded copy agreeing.
			if converted.RouteID == "" {
				converted.RouteID = converted.Route.RouteID
			}
			converted.Route.RouteID = converted.RouteID
		}
		record.Attempts = append(record.Attempts, converted)
	}
	return record
}
