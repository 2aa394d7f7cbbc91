package service_interfaces

import (
	"context"

	"github.com/lajan-app/escrow-engine/internal/adapter/http/models"
	"github.com/lajan-app/escrow-engine/internal/commons"
)

type LoanService interface {
	CreateLoanRequest(ctx context.Context, req models.CreateLoanRequest) (commons.Response[models.LoanResponse], error)
	GetLoan(ctx context.Context, loanID string) (commons.Response[models.LoanResponse], error)
	ListOpenLoans(ctx context.Context, limit int) (commons.Response[[]models.LoanResponse], error)
	ListOffersByLoan(ctx context.Context, loanID string) (commons.Response[[]models.OfferResponse], error)
}
