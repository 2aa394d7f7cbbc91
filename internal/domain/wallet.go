package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds a user's spendable balance in a single currency. There is
// exactly one wallet per (user, currency) pair. The balance is only ever
// mutated through the wallet ledger, so it can always be reconstructed from
// the wallet's ledger entries.
type Wallet struct {
	ID        string
	UserID    string
	Currency  string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}
