package implementations

import (
	"context"
	"fmt"

	"github.com/lajan-app/escrow-engine/internal/adapter/repository/repo_interfaces"
	"github.com/lajan-app/escrow-engine/internal/domain"
	"github.com/lajan-app/escrow-engine/internal/logger"
)

type IdempotencyRepository struct{}

func NewIdempotencyRepository() *IdempotencyRepository {
	return &IdempotencyRepository{}
}

// Claim inserts the key; the primary key constraint makes a replayed key fail
// inside the caller's transaction, before any ledger mutation is visible.
func (r *IdempotencyRepository) Claim(ctx context.Context, q repo_interfaces.Querier, key string, operation string) error {
	const query = `
INSERT INTO idempotency_keys (key, operation)
VALUES ($1, $2)`

	if _, err := q.ExecContext(ctx, query, key, operation); err != nil {
		if isUniqueViolation(err) {
			logger.Info("idempotency repository replayed key", logger.Fields{
				"operation": operation,
			})
			return domain.ErrDuplicateRequest
		}
		return fmt.Errorf("claim idempotency key: %w", err)
	}

	return nil
}
