package out

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"crux/internal/modules/session/domain"
	"crux/internal/platform/activity"
	apperrors "crux/internal/platform/errors"
	"crux/internal/platform/id"
	"crux/internal/platform/tx"
)

// LegacyMigrator folds the flat JSON files written by early releases into the
// sqlite store. It runs once at startup, never blocks the app on failure, and
// is safe to re-run: inserts ignore rows that already exist.
type LegacyMigrator struct {
	store    *SQLiteSessionStore
	homePath string
	idGen    id.Generator
	recorder activity.Recorder
}

func NewLegacyMigrator(store *SQLiteSessionStore, homePath string, idGen id.Generator, recorder activity.Recorder) *LegacyMigrator {
	return &LegacyMigrator{store: store, homePath: homePath, idGen: idGen, recorder: recorder}
}

// Run migrates whatever legacy files are present and removes each one only
// after its contents landed. A corrupt history file does not stop the draft
// migration, and vice versa.
func (m *LegacyMigrator) Run(ctx context.Context) error {
	sessionsPath := filepath.Join(m.homePath, "sessions.json")
	draftPath := filepath.Join(m.homePath, "draft.json")

	var firstErr error
	if _, err := os.Stat(sessionsPath); err == nil {
		if err := m.migrateHistory(ctx, sessionsPath); err != nil {
			m.note(ctx, "history migration failed: %v", err)
			firstErr = err
		}
	}
	if _, err := os.Stat(draftPath); err == nil {
		if err := m.migrateDraft(ctx, draftPath); err != nil {
			m.note(ctx, "draft migration failed: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (m *LegacyMigrator) migrateHistory(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	legacy := []legacySession{}
	if err := json.Unmarshal(data, &legacy); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	migrated, skipped := 0, 0
	err = tx.Within(ctx, m.store.db, func(txn *sql.Tx) error {
		for _, record := range legacy {
			session, ok := m.convertSession(record)
			if !ok {
				skipped++
				continue
			}
			if err := insertSession(ctx, txn, session, true); err != nil {
				return err
			}
			migrated++
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove %s: %w", filepath.Base(path), err)
	}
	m.note(ctx, "migrated %d legacy sessions (%d skipped)", migrated, skipped)
	return nil
}

func (m *LegacyMigrator) migrateDraft(ctx context.Context, path string) error {
	if _, err := m.store.LoadDraft(ctx); err == nil {
		// A live draft always wins over a stale legacy one.
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove %s: %w", filepath.Base(path), err)
		}
		return nil
	} else if !apperrors.IsValidation(err) {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	record := legacySession{}
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	session, ok := m.convertSession(record)
	if !ok {
		return errors.New("legacy draft has no usable date")
	}
	if err := m.store.SaveDraft(ctx, session); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove %s: %w", filepath.Base(path), err)
	}
	m.note(ctx, "migrated legacy draft session")
	return nil
}

func (m *LegacyMigrator) convertSession(record legacySession) (domain.Session, bool) {
	date, err := domain.ParseWhen(record.Date)
	if err != nil {
		return domain.Session{}, false
	}
	session := domain.Session{
		ID:       m.orNewID(string(record.ID)),
		Date:     date,
		Gym:      record.Gym,
		Attempts: []domain.Attempt{},
	}
	for _, legacy := range record.Attempts {
		attempt := domain.Attempt{
			ID:      m.orNewID(string(legacy.ID)),
			RouteID: string(legacy.RouteID),
			Success: legacy.Success,
			Notes:   legacy.Notes,
		}
		if ts, err := domain.ParseWhen(legacy.Timestamp); err == nil {
			attempt.Timestamp = ts
		} else {
			attempt.Timestamp = date
		}
		if legacy.Route != nil {
			attempt.Route = &domain.RouteSnapshot{
				RouteID: string(legacy.Route.ID),
				Name:    legacy.Route.Name,
				Color:   legacy.Route.Color,
				Gym:     legacy.Route.Gym,
				Notes:   legacy.Route.Notes,
			}
			if attempt.RouteID == "" {
				attempt.RouteID = string(legacy.Route.ID)
			}
			attempt.Route.RouteID = attempt.RouteID
		}
		session.Attempts = append(session.Attempts, attempt)
	}
	return session, true
}

func (m *LegacyMigrator) orNewID(value string) string {
	if value != "" {
		return value
	}
	return m.idGen.New()
}

func (m *LegacyMigrator) note(ctx context.Context, format string, args ...any) {
	if m.recorder == nil {
		return
	}
	_ = m.recorder.Append(ctx, activity.Event{
		Type:    activity.Migration,
		Message: fmt.Sprintf(format, args...),
	})
}

// Legacy ids were epoch-millisecond numbers; newer files carry strings. Both
// decode to the string form used everywhere else.
type legacyID string

func (l *legacyID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*l = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*l = legacyID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*l = legacyID(n.String())
	return nil
}

type legacyRoute struct {
	ID    legacyID `json:"id"`
	Name  string   `json:"name"`
	Color string   `json:"color"`
	Gym   string   `json:"gym"`
	Notes string   `json:"notes"`
}

type legacyAttempt struct {
	ID        legacyID     `json:"id"`
	Timestamp string       `json:"timestamp"`
	RouteID   legacyID     `json:"routeId"`
	Route     *legacyRoute `json:"route"`
	Success   bool         `json:"success"`
	Notes     string       `json:"notes"`
}

type legacySession struct {
	ID       legacyID        `json:"id"`
	Date     string          `json:"date"`
	Gym      string          `json:"gym"`
	Attempts []legacyAttempt `json:"attempts"`
}
