package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LedgerEntryKind string

const (
	LedgerEntryReservation LedgerEntryKind = "RESERVATION"
	LedgerEntryRelease     LedgerEntryKind = "RELEASE"
	LedgerEntrySettlement  LedgerEntryKind = "SETTLEMENT"
	LedgerEntryDeposit     LedgerEntryKind = "DEPOSIT"
)

// LedgerEntry is one append-only row in a wallet's transaction log. A
// reservation debits the wallet; every other kind credits it. Amount is
// always positive, the kind carries the direction.
type LedgerEntry struct {
	ID          string
	WalletID    string
	Kind        LedgerEntryKind
	Amount      decimal.Decimal
	Currency    string
	ReferenceID string
	CreatedAt   time.Time
}

// Debit reports whether the entry reduces the wallet balance.
func (k LedgerEntryKind) Debit() bool {
	return k == LedgerEntryReservation
}

// Signed returns the entry amount with the sign implied by its kind, so a
// wallet balance can be recomputed as the plain sum of its entries.
func (e LedgerEntry) Signed() decimal.Decimal {
	if e.Kind.Debit() {
		return e.Amount.Neg()
	}
	return e.Amount
}
