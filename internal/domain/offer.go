package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "PENDING"
	OfferStatusAccepted  OfferStatus = "ACCEPTED"
	OfferStatusRejected  OfferStatus = "REJECTED"
	OfferStatusCancelled OfferStatus = "CANCELLED"
)

// offerTransitions: a pending offer is either accepted, rejected (by the
// borrower, or automatically when a sibling is accepted) or cancelled (by the
// lender, or automatically when the loan is cancelled). All three end states
// are terminal.
var offerTransitions = map[OfferStatus][]OfferStatus{
	OfferStatusPending:   {OfferStatusAccepted, OfferStatusRejected, OfferStatusCancelled},
	OfferStatusAccepted:  {},
	OfferStatusRejected:  {},
	OfferStatusCancelled: {},
}

// Offer is a lender's funded bid on a loan request. The offer amount is
// reserved from the lender's wallet for as long as the offer stays pending.
type Offer struct {
	ID        string
	LoanID    string
	LenderID  string
	Amount    decimal.Decimal
	Rate      decimal.Decimal
	Status    OfferStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s OfferStatus) CanTransitionTo(next OfferStatus) bool {
	for _, allowed := range offerTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OfferStatus) Valid() bool {
	_, ok := offerTransitions[s]
	return ok
}
