package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/lajan-app/escrow-engine/internal/domain"
	"github.com/shopspring/decimal"
)

type CreateOfferRequest struct {
	LoanID         string          `json:"loanId"`
	LenderID       string          `json:"lenderId"`
	Amount         decimal.Decimal `json:"amount"`
	Rate           decimal.Decimal `json:"rate"`
	IdempotencyKey string          `json:"-"`
}

func (r CreateOfferRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.LoanID) == "" {
		errs = append(errs, "loanId is required")
	}
	if strings.TrimSpace(r.LenderID) == "" {
		errs = append(errs, "lenderId is required")
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, "amount must be greater than zero")
	}
	if r.Rate.IsNegative() {
		errs = append(errs, "rate cannot be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(errs, "; "))
	}
	return nil
}

type AcceptOfferRequest struct {
	LoanID         string `json:"loanId"`
	OfferID        string `json:"offerId"`
	ActorID        string `json:"actorId"`
	IdempotencyKey string `json:"-"`
}

func (r AcceptOfferRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.LoanID) == "" {
		errs = append(errs, "loanId is required")
	}
	if strings.TrimSpace(r.OfferID) == "" {
		errs = append(errs, "offerId is required")
	}
	if strings.TrimSpace(r.ActorID) == "" {
		errs = append(errs, "actorId is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(errs, "; "))
	}
	return nil
}

type RejectOfferRequest struct {
	OfferID        string `json:"offerId"`
	ActorID        string `json:"actorId"`
	Reason         string `json:"reason"`
	IdempotencyKey string `json:"-"`
}

func (r RejectOfferRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.OfferID) == "" {
		errs = append(errs, "offerId is required")
	}
	if strings.TrimSpace(r.ActorID) == "" {
		errs = append(errs, "actorId is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(errs, "; "))
	}
	return nil
}

type CancelOfferRequest struct {
	OfferID        string `json:"offerId"`
	ActorID        string `json:"actorId"`
	IdempotencyKey string `json:"-"`
}

func (r CancelOfferRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.OfferID) == "" {
		errs = append(errs, "offerId is required")
	}
	if strings.TrimSpace(r.ActorID) == "" {
		errs = append(errs, "actorId is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(errs, "; "))
	}
	return nil
}

type OfferResponse struct {
	ID        string    `json:"id"`
	LoanID    string    `json:"loanId"`
	LenderID  string    `json:"lenderId"`
	Amount    string    `json:"amount"`
	Rate      string    `json:"rate"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type AcceptOfferResponse struct {
	Loan           LoanResponse  `json:"loan"`
	Offer          OfferResponse `json:"offer"`
	RejectedOffers []string      `json:"rejectedOffers"`
}

func MapOfferToResponse(offer domain.Offer) OfferResponse {
	return OfferResponse{
		ID:        offer.ID,
		LoanID:    offer.LoanID,
		LenderID:  offer.LenderID,
		Amount:    offer.Amount.StringFixed(2),
		Rate:      offer.Rate.StringFixed(2),
		Status:    string(offer.Status),
		CreatedAt: offer.CreatedAt,
		UpdatedAt: offer.UpdatedAt,
	}
}
