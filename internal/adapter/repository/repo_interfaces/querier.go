package repo_interfaces

import (
	"context"
	"database/sql"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repository methods take a Querier so the same code serves plain reads and
// the coordinator's transactional units of work.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UnitOfWork runs fn inside a single database transaction. Any error returned
// by fn rolls the whole transaction back; the transaction resource is released
// on every exit path, panic included.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(q Querier) error) error
}
