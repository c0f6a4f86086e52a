package db

import (
	"context"
	"database/sql"
	"fmt"
)

// InTx runs fn against a transaction, committing it when fn returns nil and
// rolling it back otherwise.
func InTx(ctx context.Context, sqlite *sql.DB, fn func(tx *Queries) error) error {
	sqltx, err := sqlite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	err = fn(New(sqltx))
	if err != nil {
		sqltx.Rollback()
		return err
	}
	return sqltx.Commit()
}
