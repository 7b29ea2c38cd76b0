package out

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"crux/internal/modules/routes/domain"
	apperrors "crux/internal/platform/errors"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

type SQLiteRouteStore struct {
	db *sql.DB
}

func NewSQLiteRouteStore(dbPath string) (*SQLiteRouteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	_, _ = db.Exec("PRAGMA busy_timeout = 5000;")
	_, _ = db.Exec("PRAGMA journal_mode = WAL;")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL;")

	store := &SQLiteRouteStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLiteRouteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteRouteStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS routes (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  color TEXT NOT NULL,
  gym TEXT NOT NULL DEFAULT '',
  notes TEXT NOT NULL DEFAULT '',
  image BLOB,
  image_mime TEXT NOT NULL DEFAULT '',
  image_width INTEGER NOT NULL DEFAULT 0,
  image_height INTEGER NOT NULL DEFAULT 0,
  image_pages INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create routes table: %w", err)
	}
	return nil
}

func (s *SQLiteRouteStore) Save(ctx context.Context, route domain.Route) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO routes (id, name, color, gym, notes, image, image_mime, image_width, image_height, image_pages, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		route.ID, route.Name, string(route.Color), route.Gym, route.Notes,
		route.Image, route.Attachment.MIME, route.Attachment.Width, route.Attachment.Height, route.Attachment.Pages,
		route.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert route: %w", err)
	}
	return nil
}

const metaColumns = `id, name, color, gym, notes, length(COALESCE(image, x'')), image_mime, image_width, image_height, image_pages, created_at`

func (s *SQLiteRouteStore) FindByID(ctx context.Context, id string) (domain.Route, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+metaColumns+` FROM routes WHERE id = ?`, id)
	route, err := scanRoute(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Route{}, apperrors.NotFound("Route not found")
		}
		return domain.Route{}, fmt.Errorf("get route: %w", err)
	}
	return route, nil
}

func (s *SQLiteRouteStore) List(ctx context.Context) ([]domain.Route, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+metaColumns+` FROM routes ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	defer rows.Close()

	routes := []domain.Route{}
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("scan route: %w", err)
		}
		routes = append(routes, route)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate routes: %w", err)
	}
	return routes, nil
}

// Update rewrites the descriptive fields; the blob columns change only when
// the caller supplies a replacement image.
func (s *SQLiteRouteStore) Update(ctx context.Context, route domain.Route) error {
	var (
		res sql.Result
		err error
	)
	if route.Image != nil {
		res, err = s.db.ExecContext(ctx, `
UPDATE routes
SET name = ?, color = ?, gym = ?, notes = ?, image = ?, image_mime = ?, image_width = ?, image_height = ?, image_pages = ?
WHERE id = ?`,
			route.Name, string(route.Color), route.Gym, route.Notes,
			route.Image, route.Attachment.MIME, route.Attachment.Width, route.Attachment.Height, route.Attachment.Pages,
			route.ID,
		)
	} else {
		res, err = s.db.ExecContext(ctx, `
UPDATE routes SET name = ?, color = ?, gym = ?, notes = ? WHERE id = ?`,
			route.Name, string(route.Color), route.Gym, route.Notes, route.ID,
		)
	}
	if err != nil {
		return fmt.Errorf("update route: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update route result: %w", err)
	}
	if affected == 0 {
		return apperrors.NotFound("Route not found")
	}
	return nil
}

func (s *SQLiteRouteStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM routes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete route: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete route result: %w", err)
	}
	return affected > 0, nil
}

func (s *SQLiteRouteStore) ImageByID(ctx context.Context, id string) ([]byte, string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(image, x''), image_mime FROM routes WHERE id = ?`, id)
	var (
		data     []byte
		blobMIME string
	)
	if err := row.Scan(&data, &blobMIME); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", apperrors.NotFound("Route not found")
		}
		return nil, "", fmt.Errorf("get route image: %w", err)
	}
	return data, blobMIME, nil
}

type routeScanner interface {
	Scan(dest ...any) error
}

func scanRoute(row routeScanner) (domain.Route, error) {
	var (
		id, name, color, gym, notes, blobMIME, createdAt string
		size, width, height, pages                       int
	)
	if err := row.Scan(&id, &name, &color, &gym, &notes, &size, &blobMIME, &width, &height, &pages, &createdAt); err != nil {
		return domain.Route{}, err
	}
	created, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return domain.Route{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return domain.Route{
		ID:    id,
		Name:  name,
		Color: domain.Color(color),
		Gym:   gym,
		Notes: notes,
		Attachment: domain.AttachmentInfo{
			MIME:   blobMIME,
			Size:   size,
			Width:  width,
			Height: height,
			Pages:  pages,
		},
		CreatedAt: created,
	}, nil
}
