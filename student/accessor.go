package student

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Accessor is the DB layer entrypoint for student-related queries.
type Accessor struct {
	db DBTX
}

func NewAccessor(db DBTX) *Accessor {
	return &Accessor{db: db}
}
