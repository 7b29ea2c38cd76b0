package tx_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"crux/internal/platform/tx"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "tx.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Exec(`CREATE TABLE entries (id TEXT PRIMARY KEY)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func countEntries(t *testing.T, db *sql.DB) int {
	t.Helper()
	row := db.QueryRow(`SELECT COUNT(1) FROM entries`)
	count := 0
	if err := row.Scan(&count); err != nil {
		t.Fatalf("count entries: %v", err)
	}
	return count
}

func TestWithinCommitsOnSuccess(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	err := tx.Within(context.Background(), db, func(txn *sql.Tx) error {
		_, err := txn.Exec(`INSERT INTO entries (id) VALUES ('a'), ('b')`)
		return err
	})
	if err != nil {
		t.Fatalf("within: %v", err)
	}
	if got := countEntries(t, db); got != 2 {
		t.Fatalf("expected 2 entries after commit, got %d", got)
	}
}

func TestWithinRollsBackOnError(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	boom := errors.New("boom")
	err := tx.Within(context.Background(), db, func(txn *sql.Tx) error {
		if _, err := txn.Exec(`INSERT INTO entries (id) VALUES ('a')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got %v", err)
	}
	if got := countEntries(t, db); got != 0 {
		t.Fatalf("expected rollback to leave 0 entries, got %d", got)
	}
}
