package repo_interfaces

import (
	"context"

	"github.com/lajan-app/escrow-engine/internal/domain"
)

type LedgerRepository interface {
	// Append inserts one ledger entry. Entries are append-only: there is no
	// update or delete on this repository.
	Append(ctx context.Context, q Querier, entry domain.LedgerEntry) (domain.LedgerEntry, error)
	ListByWallet(ctx context.Context, q Querier, walletID string, limit int) ([]domain.LedgerEntry, error)
}
