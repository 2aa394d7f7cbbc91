package services

import (
	"context"
	"fmt"

	"github.com/lajan-app/escrow-engine/internal/adapter/repository/repo_interfaces"
	"github.com/lajan-app/escrow-engine/internal/domain"
	"github.com/lajan-app/escrow-engine/internal/logger"
	"github.com/shopspring/decimal"
)

// WalletLedger is the only component allowed to mutate wallet balances. Every
// call runs against the caller's transaction handle and pairs exactly one
// balance mutation with exactly one appended ledger entry, so the wallet
// balance always equals the signed sum of its log. The ledger does no
// deduplication of its own: callers guarantee at most one call per business
// event.
type WalletLedger struct {
	walletRepo repo_interfaces.WalletRepository
	ledgerRepo repo_interfaces.LedgerRepository
}

func NewWalletLedger(
	walletRepo repo_interfaces.WalletRepository,
	ledgerRepo repo_interfaces.LedgerRepository,
) *WalletLedger {
	return &WalletLedger{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
	}
}

// Reserve debits the wallet and records a RESERVATION entry. Returns
// domain.ErrInsufficientFunds when the balance is lower than amount; the
// debit is immediate and stays in place until released or settled.
func (l *WalletLedger) Reserve(ctx context.Context, q repo_interfaces.Querier, wallet domain.Wallet, amount decimal.Decimal, referenceID string) (domain.LedgerEntry, error) {
	if err := validAmount(amount); err != nil {
		return domain.LedgerEntry{}, err
	}
	if err := l.walletRepo.Debit(ctx, q, wallet.ID, amount); err != nil {
		return domain.LedgerEntry{}, err
	}
	return l.append(ctx, q, wallet, domain.LedgerEntryReservation, amount, referenceID)
}

// Release credits the wallet back and records a RELEASE entry, refunding a
// prior reservation.
func (l *WalletLedger) Release(ctx context.Context, q repo_interfaces.Querier, wallet domain.Wallet, amount decimal.Decimal, referenceID string) (domain.LedgerEntry, error) {
	if err := validAmount(amount); err != nil {
		return domain.LedgerEntry{}, err
	}
	if err := l.walletRepo.Credit(ctx, q, wallet.ID, amount); err != nil {
		return domain.LedgerEntry{}, err
	}
	return l.append(ctx, q, wallet, domain.LedgerEntryRelease, amount, referenceID)
}

// Settle credits the wallet and records a SETTLEMENT entry, the final payout
// of funds reserved elsewhere.
func (l *WalletLedger) Settle(ctx context.Context, q repo_interfaces.Querier, wallet domain.Wallet, amount decimal.Decimal, referenceID string) (domain.LedgerEntry, error) {
	if err := validAmount(amount); err != nil {
		return domain.LedgerEntry{}, err
	}
	if err := l.walletRepo.Credit(ctx, q, wallet.ID, amount); err != nil {
		return domain.LedgerEntry{}, err
	}
	return l.append(ctx, q, wallet, domain.LedgerEntrySettlement, amount, referenceID)
}

// Deposit credits the wallet with external funds and records a DEPOSIT entry.
// Used by wallet top-ups only, never by escrow flows.
func (l *WalletLedger) Deposit(ctx context.Context, q repo_interfaces.Querier, wallet domain.Wallet, amount decimal.Decimal, referenceID string) (domain.LedgerEntry, error) {
	if err := validAmount(amount); err != nil {
		return domain.LedgerEntry{}, err
	}
	if err := l.walletRepo.Credit(ctx, q, wallet.ID, amount); err != nil {
		return domain.LedgerEntry{}, err
	}
	return l.append(ctx, q, wallet, domain.LedgerEntryDeposit, amount, referenceID)
}

func validAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: ledger amount must be greater than zero", domain.ErrValidation)
	}
	return nil
}

func (l *WalletLedger) append(ctx context.Context, q repo_interfaces.Querier, wallet domain.Wallet, kind domain.LedgerEntryKind, amount decimal.Decimal, referenceID string) (domain.LedgerEntry, error) {
	entry, err := l.ledgerRepo.Append(ctx, q, domain.LedgerEntry{
		WalletID:    wallet.ID,
		Kind:        kind,
		Amount:      amount,
		Currency:    wallet.Currency,
		ReferenceID: referenceID,
	})
	if err != nil {
		return domain.LedgerEntry{}, err
	}

	logger.Info("wallet ledger entry recorded", logger.Fields{
		"walletId":    wallet.ID,
		"kind":        kind,
		"amount":      amount.StringFixed(2),
		"referenceId": referenceID,
	})

	return entry, nil
}
