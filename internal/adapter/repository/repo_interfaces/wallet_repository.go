package repo_interfaces

import (
	"context"

	"github.com/lajan-app/escrow-engine/internal/domain"
	"github.com/shopspring/decimal"
)

type WalletRepository interface {
	Create(ctx context.Context, q Querier, userID string, currency string) (domain.Wallet, error)
	GetByUser(ctx context.Context, q Querier, userID string, currency string) (domain.Wallet, error)
	// GetByUserForUpdate locks the wallet row for the remainder of the
	// enclosing transaction.
	GetByUserForUpdate(ctx context.Context, q Querier, userID string, currency string) (domain.Wallet, error)
	// Debit subtracts amount from the wallet balance. Returns
	// domain.ErrInsufficientFunds when the balance is lower than amount and
	// domain.ErrNotFound when the wallet does not exist.
	Debit(ctx context.Context, q Querier, walletID string, amount decimal.Decimal) error
	// Credit adds amount to the wallet balance.
	Credit(ctx context.Context, q Querier, walletID string, amount decimal.Decimal) error
}
