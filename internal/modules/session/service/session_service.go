package service

import (
	"context"
	"errors"
	"time"

	"crux/internal/modules/session/domain"
	sessionout "crux/internal/modules/session/port/out"
	"crux/internal/platform/clock"
	apperrors "crux/internal/platform/errors"
	"crux/internal/platform/id"
)

// SessionService owns the session state machine: NoSession -> (start) ->
// SessionOpen -> (finish | clear) -> NoSession, with attempt edits looping on
// the open state. The draft row is the durable image of SessionOpen.
type SessionService struct {
	clock   clock.Clock
	idGen   id.Generator
	history sessionout.HistoryStore
	draft   sessionout.DraftStore
}

func NewSessionService(clk clock.Clock, idGen id.Generator, history sessionout.HistoryStore, draft sessionout.DraftStore) *SessionService {
	return &SessionService{clock: clk, idGen: idGen, history: history, draft: draft}
}

func (s *SessionService) Start(ctx context.Context, date time.Time, gym string) (domain.Session, error) {
	if date.IsZero() {
		return domain.Session{}, apperrors.Validation("A session date is required")
	}
	if gym == "" {
		return domain.Session{}, apperrors.Validation("A gym is required")
	}
	_, err := s.draft.LoadDraft(ctx)
	if err == nil {
		return domain.Session{}, apperrors.ErrActiveSessionExists
	}
	if !errors.Is(err, apperrors.ErrNoActiveSession) {
		return domain.Session{}, err
	}
	session := domain.Session{
		ID:       s.idGen.New(),
		Date:     date,
		Gym:      gym,
		Attempts: []domain.Attempt{},
	}
	if err := s.draft.SaveDraft(ctx, session); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

func (s *SessionService) AddAttempt(ctx context.Context, snapshot *domain.RouteSnapshot, success bool, notes string) (domain.Attempt, error) {
	// State check goes first: with no open session the caller must see
	// exactly ErrNoActiveSession, whatever else is wrong with the input.
	session, err := s.draft.LoadDraft(ctx)
	if err != nil {
		return domain.Attempt{}, err
	}
	if snapshot == nil {
		return domain.Attempt{}, apperrors.Validation("A route is required")
	}
	copied := *snapshot
	attempt := domain.Attempt{
		ID:        s.idGen.New(),
		Timestamp: s.clock.Now(),
		RouteID:   copied.RouteID,
		Route:     &copied,
		Success:   success,
		Notes:     notes,
	}
	session.Attempts = append(session.Attempts, attempt)
	if err := s.draft.SaveDraft(ctx, session); err != nil {
		return domain.Attempt{}, err
	}
	return attempt, nil
}

// UpdateAttempt edits an attempt in the open session or in history, keeping
// its id and timestamp. The second return reports whether the owning session
// is still open, which decides where the change was persisted.
func (s *SessionService) UpdateAttempt(ctx context.Context, sessionID, attemptID string, patch domain.AttemptPatch) (domain.Attempt, bool, error) {
	if patch.Route != nil && patch.Success == nil {
		return domain.Attempt{}, false, apperrors.Validation("A result is required when changing the route")
	}

	session, open, err := s.Get(ctx, sessionID)
	if err != nil {
		return domain.Attempt{}, false, err
	}
	idx := indexOfAttempt(session.Attempts, attemptID)
	if idx < 0 {
		return domain.Attempt{}, false, apperrors.NotFound("Attempt not found")
	}
	patch.Apply(&session.Attempts[idx])
	attempt := session.Attempts[idx]

	if open {
		if err := s.draft.SaveDraft(ctx, session); err != nil {
			return domain.Attempt{}, false, err
		}
		return attempt, true, nil
	}
	if err := s.history.UpdateAttempt(ctx, sessionID, attempt); err != nil {
		return domain.Attempt{}, false, err
	}
	return attempt, false, nil
}

// DeleteAttempt removes an attempt with the same lookup and persistence
// branching as UpdateAttempt.
func (s *SessionService) DeleteAttempt(ctx context.Context, sessionID, attemptID string) (bool, error) {
	session, open, err := s.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}
	idx := indexOfAttempt(session.Attempts, attemptID)
	if idx < 0 {
		return false, apperrors.NotFound("Attempt not found")
	}

	if open {
		session.Attempts = append(session.Attempts[:idx], session.Attempts[idx+1:]...)
		if err := s.draft.SaveDraft(ctx, session); err != nil {
			return false, err
		}
		return true, nil
	}
	if err := s.history.DeleteAttempt(ctx, sessionID, attemptID); err != nil {
		return false, err
	}
	return false, nil
}

func (s *SessionService) Finish(ctx context.Context) (domain.Session, error) {
	session, err := s.draft.LoadDraft(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	if len(session.Attempts) == 0 {
		return domain.Session{}, apperrors.Validation("Cannot finish a session with no attempts")
	}
	if err := s.history.Append(ctx, session); err != nil {
		return domain.Session{}, err
	}
	if _, err := s.draft.ClearDraft(ctx); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

// Clear drops the open session unconditionally and reports whether one
// existed.
func (s *SessionService) Clear(ctx context.Context) (bool, error) {
	return s.draft.ClearDraft(ctx)
}

func (s *SessionService) Current(ctx context.Context) (domain.Session, error) {
	return s.draft.LoadDraft(ctx)
}

// Get finds a session in the open draft or in history and reports which.
func (s *SessionService) Get(ctx context.Context, sessionID string) (domain.Session, bool, error) {
	draft, err := s.draft.LoadDraft(ctx)
	if err == nil && draft.ID == sessionID {
		return draft, true, nil
	}
	if err != nil && !errors.Is(err, apperrors.ErrNoActiveSession) {
		return domain.Session{}, false, err
	}
	session, err := s.history.Get(ctx, sessionID)
	if err != nil {
		return domain.Session{}, false, err
	}
	return session, false, nil
}

func (s *SessionService) History(ctx context.Context) ([]domain.Session, error) {
	return s.history.List(ctx)
}

func (s *SessionService) Overall(ctx context.Context) (domain.OverallStats, error) {
	history, err := s.history.List(ctx)
	if err != nil {
		return domain.OverallStats{}, err
	}
	return domain.Overall(history), nil
}

// ColorStats breaks attempts down by snapshot color: all history by default,
// or one session (open or closed) when sessionID is given.
func (s *SessionService) ColorStats(ctx context.Context, sessionID string) (map[string]domain.ColorStat, error) {
	if sessionID != "" {
		session, _, err := s.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return domain.CountByColor(session.Attempts), nil
	}
	history, err := s.history.List(ctx)
	if err != nil {
		return nil, err
	}
	return domain.CountByColor(domain.AllAttempts(history)), nil
}

// RestoreAll swaps in a full state snapshot: history is replaced wholesale
// and the draft follows the snapshot's current session.
func (s *SessionService) RestoreAll(ctx context.Context, sessions []domain.Session, current *domain.Session) error {
	if err := s.history.ReplaceAll(ctx, sessions); err != nil {
		return err
	}
	if current == nil {
		_, err := s.draft.ClearDraft(ctx)
		return err
	}
	return s.draft.SaveDraft(ctx, *current)
}

func indexOfAttempt(attempts []domain.Attempt, attemptID string) int {
	for i, attempt := range attempts {
		if attempt.ID == attemptID {
			return i
		}
	}
	return -1
}
