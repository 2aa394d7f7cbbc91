package repo_interfaces

import "context"

type IdempotencyRepository interface {
	// Claim records the key inside the caller's transaction. A key that was
	// already claimed returns domain.ErrDuplicateRequest, which aborts the
	// enclosing unit of work before any ledger call.
	Claim(ctx context.Context, q Querier, key string, operation string) error
}
