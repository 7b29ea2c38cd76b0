package tx

import (
	"context"
	"database/sql"
	"fmt"
)

// Within runs fn inside a SQL transaction, committing on success and rolling
// back on any error from fn.
func Within(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	txn, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(txn); err != nil {
		_ = txn.Rollback()
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
