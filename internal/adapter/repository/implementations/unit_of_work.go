package implementations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lajan-app/escrow-engine/internal/adapter/repository/repo_interfaces"
)

type SQLUnitOfWork struct {
	db *sql.DB
}

func NewSQLUnitOfWork(db *sql.DB) *SQLUnitOfWork {
	return &SQLUnitOfWork{db: db}
}

// RunInTx executes fn in one database transaction. Row locks taken inside fn
// (SELECT ... FOR UPDATE) are held until commit or rollback, which is what
// serializes competing escrow operations on the same loan and wallets.
func (u *SQLUnitOfWork) RunInTx(ctx context.Context, fn func(q repo_interfaces.Querier) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	done := false
	defer func() {
		if !done {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	done = true

	return nil
}
