package service_interfaces

import (
	"context"

	"github.com/lajan-app/escrow-engine/internal/adapter/http/models"
	"github.com/lajan-app/escrow-engine/internal/commons"
)

type WalletService interface {
	Deposit(ctx context.Context, req models.DepositRequest) (commons.Response[models.WalletResponse], error)
	GetBalance(ctx context.Context, userID string) (commons.Response[models.WalletResponse], error)
	ListLedgerEntries(ctx context.Context, userID string, limit int) (commons.Response[[]models.LedgerEntryResponse], error)
}
