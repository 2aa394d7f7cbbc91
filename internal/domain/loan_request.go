package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusRequested LoanStatus = "REQUESTED"
	LoanStatusActive    LoanStatus = "ACTIVE"
	LoanStatusCancelled LoanStatus = "CANCELLED"
)

// loanTransitions is the closed transition table for a loan request. ACTIVE
// and CANCELLED are terminal: repayment tracking happens outside this engine.
var loanTransitions = map[LoanStatus][]LoanStatus{
	LoanStatusRequested: {LoanStatusActive, LoanStatusCancelled},
	LoanStatusActive:    {},
	LoanStatusCancelled: {},
}

// LoanRequest is a borrower's posting on the marketplace. LenderID stays nil
// until an offer is accepted.
type LoanRequest struct {
	ID             string
	BorrowerID     string
	LenderID       *string
	Amount         decimal.Decimal
	Rate           decimal.Decimal
	DurationMonths int
	Status         LoanStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (s LoanStatus) CanTransitionTo(next LoanStatus) bool {
	for _, allowed := range loanTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s LoanStatus) Valid() bool {
	_, ok := loanTransitions[s]
	return ok
}
