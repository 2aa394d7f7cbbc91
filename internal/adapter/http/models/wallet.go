package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/lajan-app/escrow-engine/internal/domain"
	"github.com/shopspring/decimal"
)

type DepositRequest struct {
	UserID         string          `json:"userId"`
	Amount         decimal.Decimal `json:"amount"`
	Reference      string          `json:"reference"`
	IdempotencyKey string          `json:"-"`
}

func (r DepositRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.UserID) == "" {
		errs = append(errs, "userId is required")
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, "amount must be greater than zero")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(errs, "; "))
	}
	return nil
}

type WalletResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Currency  string    `json:"currency"`
	Balance   string    `json:"balance"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type LedgerEntryResponse struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	ReferenceID string    `json:"referenceId"`
	CreatedAt   time.Time `json:"createdAt"`
}

func MapWalletToResponse(wallet domain.Wallet) WalletResponse {
	return WalletResponse{
		ID:        wallet.ID,
		UserID:    wallet.UserID,
		Currency:  wallet.Currency,
		Balance:   wallet.Balance.StringFixed(2),
		UpdatedAt: wallet.UpdatedAt,
	}
}

func MapLedgerEntryToResponse(entry domain.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:          entry.ID,
		Kind:        string(entry.Kind),
		Amount:      entry.Amount.StringFixed(2),
		Currency:    entry.Currency,
		ReferenceID: entry.ReferenceID,
		CreatedAt:   entry.CreatedAt,
	}
}
