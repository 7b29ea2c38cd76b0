package out

import (
	"context"

	"crux/internal/modules/session/domain"
)

// HistoryStore persists closed sessions and their attempts.
type HistoryStore interface {
	Append(ctx context.Context, session domain.Session) error
	List(ctx context.Context) ([]domain.Session, error)
	Get(ctx context.Context, sessionID string) (domain.Session, error)
	UpdateAttempt(ctx context.Context, sessionID string, attempt domain.Attempt) error
	DeleteAttempt(ctx context.Context, sessionID, attemptID string) error
	ReplaceAll(ctx context.Context, sessions []domain.Session) error
}

// DraftStore persists the singleton mirror of the open session under the
// fixed "current" key.
type DraftStore interface {
	SaveDraft(ctx context.Context, session domain.Session) error
	// LoadDraft returns apperrors.ErrNoActiveSession when no draft exists.
	LoadDraft(ctx context.Context) (domain.Session, error)
	// ClearDraft reports whether a draft existed.
	ClearDraft(ctx context.Context) (bool, error)
}

// JournalStore writes the human-readable markdown note for a finished
// session and refreshes its generated attempt block after later edits.
type JournalStore interface {
	Write(ctx context.Context, session domain.Session) (string, error)
	Refresh(ctx context.Context, session domain.Session) error
}
