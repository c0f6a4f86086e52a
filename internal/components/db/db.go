// Package db persists what the CLI keeps between runs: the secure login,
// fetched reviews and a record of every fetch run.
package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Open opens (creating if needed) the sqlite database at path and applies
// the schema, ":memory:" is accepted.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	memory := path == ":memory:"
	if !memory {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
	}

	sqlite, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// sqlite has a single writer, every connection to :memory: is also a
	// different database
	sqlite.SetMaxOpenConns(1)
	if !memory {
		_, err = sqlite.ExecContext(ctx, "PRAGMA journal_mode=WAL")
		if err != nil {
			sqlite.Close()
			return nil, fmt.Errorf("open db: %w", err)
		}
	}
	_, err = sqlite.ExecContext(ctx, Schema)
	if err != nil {
		sqlite.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return sqlite, nil
}
