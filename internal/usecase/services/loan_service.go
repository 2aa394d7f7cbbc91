package services

import (
	"context"
	"errors"

	"github.com/lajan-app/escrow-engine/internal/adapter/http/models"
	"github.com/lajan-app/escrow-engine/internal/adapter/repository/repo_interfaces"
	"github.com/lajan-app/escrow-engine/internal/commons"
	"github.com/lajan-app/escrow-engine/internal/domain"
	"github.com/lajan-app/escrow-engine/internal/logger"
)

// LoanService covers the borrower-side marketplace surface that does not
// touch wallets: posting a request and browsing loans and their offers.
// Everything that moves money lives on the escrow coordinator.
type LoanService struct {
	db        repo_interfaces.Querier
	loanRepo  repo_interfaces.LoanRepository
	offerRepo repo_interfaces.OfferRepository
}

func NewLoanService(
	db repo_interfaces.Querier,
	loanRepo repo_interfaces.LoanRepository,
	offerRepo repo_interfaces.OfferRepository,
) *LoanService {
	return &LoanService{
		db:        db,
		loanRepo:  loanRepo,
		offerRepo: offerRepo,
	}
}

func (s *LoanService) CreateLoanRequest(ctx context.Context, req models.CreateLoanRequest) (commons.Response[models.LoanResponse], error) {
	logger.Info("loan service create loan request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.LoanResponse]("validation failed", err.Error()), err
	}

	loan, err := s.loanRepo.Create(ctx, s.db, domain.LoanRequest{
		BorrowerID:     req.BorrowerID,
		Amount:         req.Amount,
		Rate:           req.Rate,
		DurationMonths: req.DurationMonths,
		Status:         domain.LoanStatusRequested,
	})
	if err != nil {
		return commons.ErrorResponse[models.LoanResponse]("failed to create loan request", "Unable to create the loan request right now"), err
	}

	return commons.SuccessResponse("Loan request created", models.MapLoanToResponse(loan)), nil
}

func (s *LoanService) GetLoan(ctx context.Context, loanID string) (commons.Response[models.LoanResponse], error) {
	loan, err := s.loanRepo.Get(ctx, s.db, loanID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return commons.ErrorResponse[models.LoanResponse]("Record not found"), err
		}
		return commons.ErrorResponse[models.LoanResponse]("failed to fetch loan request"), err
	}

	return commons.SuccessResponse("Loan request", models.MapLoanToResponse(loan)), nil
}

func (s *LoanService) ListOpenLoans(ctx context.Context, limit int) (commons.Response[[]models.LoanResponse], error) {
	loans, err := s.loanRepo.ListOpen(ctx, s.db, limit)
	if err != nil {
		return commons.ErrorResponse[[]models.LoanResponse]("failed to list loan requests"), err
	}

	responses := make([]models.LoanResponse, 0, len(loans))
	for _, loan := range loans {
		responses = append(responses, models.MapLoanToResponse(loan))
	}

	return commons.SuccessResponse("Open loan requests", responses), nil
}

func (s *LoanService) ListOffersByLoan(ctx context.Context, loanID string) (commons.Response[[]models.OfferResponse], error) {
	if _, err := s.loanRepo.Get(ctx, s.db, loanID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return commons.ErrorResponse[[]models.OfferResponse]("Record not found"), err
		}
		return commons.ErrorResponse[[]models.OfferResponse]("failed to list offers"), err
	}

	offers, err := s.offerRepo.ListByLoan(ctx, s.db, loanID)
	if err != nil {
		return commons.ErrorResponse[[]models.OfferResponse]("failed to list offers"), err
	}

	responses := make([]models.OfferResponse, 0, len(offers))
	for _, offer := range offers {
		responses = append(responses, models.MapOfferToResponse(offer))
	}

	return commons.SuccessResponse("Offers on loan request", responses), nil
}
