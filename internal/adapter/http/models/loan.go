package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/lajan-app/escrow-engine/internal/domain"
	"github.com/shopspring/decimal"
)

type CreateLoanRequest struct {
	BorrowerID     string          `json:"borrowerId"`
	Amount         decimal.Decimal `json:"amount"`
	Rate           decimal.Decimal `json:"rate"`
	DurationMonths int             `json:"durationMonths"`
}

func (r CreateLoanRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.BorrowerID) == "" {
		errs = append(errs, "borrowerId is required")
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, "amount must be greater than zero")
	}
	if r.Rate.IsNegative() {
		errs = append(errs, "rate cannot be negative")
	}
	if r.DurationMonths <= 0 {
		errs = append(errs, "durationMonths must be greater than zero")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(errs, "; "))
	}
	return nil
}

type CancelLoanRequest struct {
	LoanID         string `json:"loanId"`
	ActorID        string `json:"actorId"`
	IdempotencyKey string `json:"-"`
}

func (r CancelLoanRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.LoanID) == "" {
		errs = append(errs, "loanId is required")
	}
	if strings.TrimSpace(r.ActorID) == "" {
		errs = append(errs, "actorId is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(errs, "; "))
	}
	return nil
}

type LoanResponse struct {
	ID             string    `json:"id"`
	BorrowerID     string    `json:"borrowerId"`
	LenderID       string    `json:"lenderId,omitempty"`
	Amount         string    `json:"amount"`
	Rate           string    `json:"rate"`
	DurationMonths int       `json:"durationMonths"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type CancelLoanResponse struct {
	Loan            LoanResponse `json:"loan"`
	CancelledOffers []string     `json:"cancelledOffers"`
}

func MapLoanToResponse(loan domain.LoanRequest) LoanResponse {
	response := LoanResponse{
		ID:             loan.ID,
		BorrowerID:     loan.BorrowerID,
		Amount:         loan.Amount.StringFixed(2),
		Rate:           loan.Rate.StringFixed(2),
		DurationMonths: loan.DurationMonths,
		Status:         string(loan.Status),
		CreatedAt:      loan.CreatedAt,
		UpdatedAt:      loan.UpdatedAt,
	}
	if loan.LenderID != nil {
		response.LenderID = *loan.LenderID
	}
	return response
}
