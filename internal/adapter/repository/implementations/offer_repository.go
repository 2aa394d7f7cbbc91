package implementations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lajan-app/escrow-engine/internal/adapter/repository/repo_interfaces"
	"github.com/lajan-app/escrow-engine/internal/domain"
	"github.com/lajan-app/escrow-engine/internal/logger"
	"github.com/shopspring/decimal"
)

type OfferRepository struct{}

func NewOfferRepository() *OfferRepository {
	return &OfferRepository{}
}

const offerColumns = `id, loan_id, lender_id, amount, rate, status, created_at, updated_at`

func (r *OfferRepository) Create(ctx context.Context, q repo_interfaces.Querier, offer domain.Offer) (domain.Offer, error) {
	logger.Info("offer repository create", logger.Fields{
		"loanId":   offer.LoanID,
		"lenderId": offer.LenderID,
		"amount":   offer.Amount.StringFixed(2),
	})

	const query = `
INSERT INTO offers (loan_id, lender_id, amount, rate, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at, updated_at`

	var (
		id        string
		createdAt time.Time
		updatedAt time.Time
	)

	if err := q.QueryRowContext(
		ctx,
		query,
		offer.LoanID,
		offer.LenderID,
		offer.Amount.StringFixed(2),
		offer.Rate.StringFixed(2),
		offer.Status,
	).Scan(&id, &createdAt, &updatedAt); err != nil {
		if isUniqueViolation(err) {
			logger.Info("offer repository duplicate offer", logger.Fields{
				"loanId":   offer.LoanID,
				"lenderId": offer.LenderID,
			})
			return domain.Offer{}, domain.ErrDuplicateOffer
		}
		logger.Error("offer repository create failed", err, logger.Fields{
			"loanId":   offer.LoanID,
			"lenderId": offer.LenderID,
		})
		return domain.Offer{}, fmt.Errorf("create offer: %w", err)
	}

	offer.ID = id
	offer.CreatedAt = createdAt
	offer.UpdatedAt = updatedAt
	return offer, nil
}

func (r *OfferRepository) Get(ctx context.Context, q repo_interfaces.Querier, id string) (domain.Offer, error) {
	const query = `
SELECT ` + offerColumns + `
FROM offers
WHERE id = $1`

	return scanOffer(q.QueryRowContext(ctx, query, id))
}

func (r *OfferRepository) GetForUpdate(ctx context.Context, q repo_interfaces.Querier, id string) (domain.Offer, error) {
	const query = `
SELECT ` + offerColumns + `
FROM offers
WHERE id = $1
FOR UPDATE`

	return scanOffer(q.QueryRowContext(ctx, query, id))
}

func (r *OfferRepository) ListPendingByLoanForUpdate(ctx context.Context, q repo_interfaces.Querier, loanID string) ([]domain.Offer, error) {
	const query = `
SELECT ` + offerColumns + `
FROM offers
WHERE loan_id = $1
  AND status = $2
ORDER BY created_at
FOR UPDATE`

	return listOffers(ctx, q, query, loanID, domain.OfferStatusPending)
}

func (r *OfferRepository) ListByLoan(ctx context.Context, q repo_interfaces.Querier, loanID string) ([]domain.Offer, error) {
	const query = `
SELECT ` + offerColumns + `
FROM offers
WHERE loan_id = $1
ORDER BY created_at`

	return listOffers(ctx, q, query, loanID)
}

func (r *OfferRepository) ExistsForLender(ctx context.Context, q repo_interfaces.Querier, loanID string, lenderID string) (bool, error) {
	const query = `
SELECT 1
FROM offers
WHERE loan_id = $1
  AND lender_id = $2`

	var exists int
	if err := q.QueryRowContext(ctx, query, loanID, lenderID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check offer for lender: %w", err)
	}

	return true, nil
}

func (r *OfferRepository) UpdateStatus(ctx context.Context, q repo_interfaces.Querier, id string, status domain.OfferStatus) error {
	logger.Info("offer repository update status", logger.Fields{
		"offerId": id,
		"status":  status,
	})

	const query = `
UPDATE offers
SET status = $2,
    updated_at = NOW()
WHERE id = $1`

	result, err := q.ExecContext(ctx, query, id, status)
	if err != nil {
		logger.Error("offer repository update status failed", err, logger.Fields{
			"offerId": id,
		})
		return fmt.Errorf("update offer status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update offer status rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func listOffers(ctx context.Context, q repo_interfaces.Querier, query string, args ...any) ([]domain.Offer, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	defer rows.Close()

	var offers []domain.Offer
	for rows.Next() {
		var (
			offer  domain.Offer
			amount string
			rate   string
		)
		if err := rows.Scan(
			&offer.ID,
			&offer.LoanID,
			&offer.LenderID,
			&amount,
			&rate,
			&offer.Status,
			&offer.CreatedAt,
			&offer.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}

		parsedAmount, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse offer amount: %w", err)
		}
		offer.Amount = parsedAmount

		parsedRate, err := decimal.NewFromString(rate)
		if err != nil {
			return nil, fmt.Errorf("parse offer rate: %w", err)
		}
		offer.Rate = parsedRate

		offers = append(offers, offer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offers: %w", err)
	}

	return offers, nil
}

func scanOffer(row *sql.Row) (domain.Offer, error) {
	var (
		offer  domain.Offer
		amount string
		rate   string
	)

	if err := row.Scan(
		&offer.ID,
		&offer.LoanID,
		&offer.LenderID,
		&amount,
		&rate,
		&offer.Status,
		&offer.CreatedAt,
		&offer.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Offer{}, domain.ErrNotFound
		}
		return domain.Offer{}, fmt.Errorf("scan offer: %w", err)
	}

	parsedAmount, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("parse offer amount: %w", err)
	}
	offer.Amount = parsedAmount

	parsedRate, err := decimal.NewFromString(rate)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("parse offer rate: %w", err)
	}
	offer.Rate = parsedRate

	return offer, nil
}
