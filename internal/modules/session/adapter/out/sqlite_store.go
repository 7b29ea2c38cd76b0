package out

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"crux/internal/modules/session/domain"
	apperrors "crux/internal/platform/errors"
	"crux/internal/platform/tx"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

// SQLiteSessionStore implements both the history and draft ports over one
// database handle, so finishing a session touches a single storage engine.
type SQLiteSessionStore struct {
	db *sql.DB
}

func NewSQLiteSessionStore(dbPath string) (*SQLiteSessionStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Keep sqlite responsive when the TUI and a CLI command overlap.
	_, _ = db.Exec("PRAGMA busy_timeout = 5000;")
	_, _ = db.Exec("PRAGMA journal_mode = WAL;")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL;")

	store := &SQLiteSessionStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLiteSessionStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteSessionStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  date TEXT NOT NULL,
  gym TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  ts TEXT NOT NULL,
  route_id TEXT NOT NULL DEFAULT '',
  route_name TEXT NOT NULL DEFAULT '',
  route_color TEXT NOT NULL DEFAULT '',
  route_gym TEXT NOT NULL DEFAULT '',
  route_notes TEXT NOT NULL DEFAULT '',
  has_route INTEGER NOT NULL DEFAULT 1,
  success INTEGER NOT NULL,
  notes TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_attempts_session ON attempts(session_id, position);
CREATE TABLE IF NOT EXISTS draft (
  key TEXT PRIMARY KEY CHECK (key = 'current'),
  payload TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create session tables: %w", err)
	}
	return nil
}

func (s *SQLiteSessionStore) Append(ctx context.Context, session domain.Session) error {
	return tx.Within(ctx, s.db, func(txn *sql.Tx) error {
		return insertSession(ctx, txn, session, false)
	})
}

func (s *SQLiteSessionStore) List(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, date, gym FROM sessions ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []domain.Session{}
	index := map[string]int{}
	for rows.Next() {
		var id, date, gym string
		if err := rows.Scan(&id, &date, &gym); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		parsed, err := parseStoredTime(date)
		if err != nil {
			return nil, err
		}
		index[id] = len(sessions)
		sessions = append(sessions, domain.Session{ID: id, Date: parsed, Gym: gym, Attempts: []domain.Attempt{}})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	attemptRows, err := s.db.QueryContext(ctx, `SELECT session_id, `+attemptColumns+` FROM attempts ORDER BY session_id, position`)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer attemptRows.Close()
	for attemptRows.Next() {
		var sessionID string
		attempt, err := scanAttempt(attemptRows, &sessionID)
		if err != nil {
			return nil, err
		}
		if at, ok := index[sessionID]; ok {
			sessions[at].Attempts = append(sessions[at].Attempts, attempt)
		}
	}
	if err := attemptRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return sessions, nil
}

func (s *SQLiteSessionStore) Get(ctx context.Context, sessionID string) (domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, date, gym FROM sessions WHERE id = ?`, sessionID)
	var id, date, gym string
	if err := row.Scan(&id, &date, &gym); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, apperrors.NotFound("Session not found")
		}
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	parsed, err := parseStoredTime(date)
	if err != nil {
		return domain.Session{}, err
	}
	session := domain.Session{ID: id, Date: parsed, Gym: gym, Attempts: []domain.Attempt{}}

	rows, err := s.db.QueryContext(ctx, `SELECT session_id, `+attemptColumns+` FROM attempts WHERE session_id = ? ORDER BY position`, sessionID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("get attempts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var owner string
		attempt, err := scanAttempt(rows, &owner)
		if err != nil {
			return domain.Session{}, err
		}
		session.Attempts = append(session.Attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return domain.Session{}, fmt.Errorf("iterate attempts: %w", err)
	}
	return session, nil
}

func (s *SQLiteSessionStore) UpdateAttempt(ctx context.Context, sessionID string, attempt domain.Attempt) error {
	snapshot := attempt.Route
	hasRoute := 0
	var routeID, routeName, routeColor, routeGym, routeNotes string
	if snapshot != nil {
		hasRoute = 1
		routeID, routeName, routeColor, routeGym, routeNotes = snapshot.RouteID, snapshot.Name, snapshot.Color, snapshot.Gym, snapshot.Notes
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE attempts
SET route_id = ?, route_name = ?, route_color = ?, route_gym = ?, route_notes = ?, has_route = ?, success = ?, notes = ?
WHERE id = ? AND session_id = ?`,
		routeID, routeName, routeColor, routeGym, routeNotes, hasRoute, boolToInt(attempt.Success), attempt.Notes,
		attempt.ID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update attempt result: %w", err)
	}
	if affected == 0 {
		return apperrors.NotFound("Attempt not found")
	}
	return nil
}

func (s *SQLiteSessionStore) DeleteAttempt(ctx context.Context, sessionID, attemptID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM attempts WHERE id = ? AND session_id = ?`, attemptID, sessionID)
	if err != nil {
		return fmt.Errorf("delete attempt: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete attempt result: %w", err)
	}
	if affected == 0 {
		return apperrors.NotFound("Attempt not found")
	}
	return nil
}

func (s *SQLiteSessionStore) ReplaceAll(ctx context.Context, sessions []domain.Session) error {
	return tx.Within(ctx, s.db, func(txn *sql.Tx) error {
		if _, err := txn.ExecContext(ctx, `DELETE FROM attempts`); err != nil {
			return fmt.Errorf("clear attempts: %w", err)
		}
		if _, err := txn.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
			return fmt.Errorf("clear sessions: %w", err)
		}
		for _, session := range sessions {
			if err := insertSession(ctx, txn, session, false); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteSessionStore) SaveDraft(ctx context.Context, session domain.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO draft (key, payload, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at`,
		domain.DraftKey, string(payload), time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *SQLiteSessionStore) LoadDraft(ctx context.Context) (domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM draft WHERE key = ?`, domain.DraftKey)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, apperrors.ErrNoActiveSession
		}
		return domain.Session{}, fmt.Errorf("load draft: %w", err)
	}
	session := domain.Session{}
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return domain.Session{}, fmt.Errorf("decode draft: %w", err)
	}
	if session.ID == "" {
		return domain.Session{}, apperrors.ErrNoActiveSession
	}
	return session, nil
}

func (s *SQLiteSessionStore) ClearDraft(ctx context.Context) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM draft WHERE key = ?`, domain.DraftKey)
	if err != nil {
		return false, fmt.Errorf("clear draft: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("clear draft result: %w", err)
	}
	return affected > 0, nil
}

const attemptColumns = `id, position, ts, route_id, route_name, route_color, route_gym, route_notes, has_route, success, notes`

type attemptScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(rows attemptScanner, sessionID *string) (domain.Attempt, error) {
	var (
		id, ts, routeID, routeName, routeColor, routeGym, routeNotes, notes string
		position, hasRoute, success                                         int
	)
	if err := rows.Scan(sessionID, &id, &position, &ts, &routeID, &routeName, &routeColor, &routeGym, &routeNotes, &hasRoute, &success, &notes); err != nil {
		return domain.Attempt{}, fmt.Errorf("scan attempt: %w", err)
	}
	timestamp, err := parseStoredTime(ts)
	if err != nil {
		return domain.Attempt{}, err
	}
	attempt := domain.Attempt{
		ID:        id,
		Timestamp: timestamp,
		RouteID:   routeID,
		Success:   success != 0,
		Notes:     notes,
	}
	if hasRoute != 0 {
		attempt.Route = &domain.RouteSnapshot{
			RouteID: routeID,
			Name:    routeName,
			Color:   routeColor,
			Gym:     routeGym,
			Notes:   routeNotes,
		}
	}
	return attempt, nil
}

func insertSession(ctx context.Context, txn *sql.Tx, session domain.Session, ignoreDuplicate bool) error {
	stmt := `INSERT INTO sessions (id, date, gym) VALUES (?, ?, ?)`
	if ignoreDuplicate {
		stmt = `INSERT OR IGNORE INTO sessions (id, date, gym) VALUES (?, ?, ?)`
	}
	res, err := txn.ExecContext(ctx, stmt, session.ID, session.Date.UTC().Format(timeLayout), session.Gym)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if ignoreDuplicate {
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert session result: %w", err)
		}
		if affected == 0 {
			return nil
		}
	}
	for position, attempt := range session.Attempts {
		if err := insertAttempt(ctx, txn, session.ID, position, attempt); err != nil {
			return err
		}
	}
	return nil
}

func insertAttempt(ctx context.Context, txn *sql.Tx, sessionID string, position int, attempt domain.Attempt) error {
	hasRoute := 0
	var routeID, routeName, routeColor, routeGym, routeNotes string
	if attempt.Route != nil {
		hasRoute = 1
		routeID, routeName, routeColor, routeGym, routeNotes = attempt.Route.RouteID, attempt.Route.Name, attempt.Route.Color, attempt.Route.Gym, attempt.Route.Notes
	} else {
		routeID = attempt.RouteID
	}
	_, err := txn.ExecContext(ctx, `
INSERT INTO attempts (id, session_id, position, ts, route_id, route_name, route_color, route_gym, route_notes, has_route, success, notes)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.ID, sessionID, position, attempt.Timestamp.UTC().Format(timeLayout),
		routeID, routeName, routeColor, routeGym, routeNotes, hasRoute, boolToInt(attempt.Success), attempt.Notes,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func parseStoredTime(value string) (time.Time, error) {
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", value, err)
	}
	return parsed, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
