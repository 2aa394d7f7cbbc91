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

type LoanRepository struct{}

func NewLoanRepository() *LoanRepository {
	return &LoanRepository{}
}

const loanColumns = `id, borrower_id, lender_id, amount, rate, duration_months, status, created_at, updated_at`

func (r *LoanRepository) Create(ctx context.Context, q repo_interfaces.Querier, loan domain.LoanRequest) (domain.LoanRequest, error) {
	logger.Info("loan repository create", logger.Fields{
		"borrowerId": loan.BorrowerID,
		"amount":     loan.Amount.StringFixed(2),
	})

	const query = `
INSERT INTO loan_requests (borrower_id, amount, rate, duration_months, status)
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
		loan.BorrowerID,
		loan.Amount.StringFixed(2),
		loan.Rate.StringFixed(2),
		loan.DurationMonths,
		loan.Status,
	).Scan(&id, &createdAt, &updatedAt); err != nil {
		logger.Error("loan repository create failed", err, logger.Fields{
			"borrowerId": loan.BorrowerID,
		})
		return domain.LoanRequest{}, fmt.Errorf("create loan request: %w", err)
	}

	loan.ID = id
	loan.CreatedAt = createdAt
	loan.UpdatedAt = updatedAt
	return loan, nil
}

func (r *LoanRepository) Get(ctx context.Context, q repo_interfaces.Querier, id string) (domain.LoanRequest, error) {
	const query = `
SELECT ` + loanColumns + `
FROM loan_requests
WHERE id = $1`

	return scanLoan(q.QueryRowContext(ctx, query, id))
}

func (r *LoanRepository) GetForUpdate(ctx context.Context, q repo_interfaces.Querier, id string) (domain.LoanRequest, error) {
	const query = `
SELECT ` + loanColumns + `
FROM loan_requests
WHERE id = $1
FOR UPDATE`

	return scanLoan(q.QueryRowContext(ctx, query, id))
}

func (r *LoanRepository) GetForShare(ctx context.Context, q repo_interfaces.Querier, id string) (domain.LoanRequest, error) {
	const query = `
SELECT ` + loanColumns + `
FROM loan_requests
WHERE id = $1
FOR SHARE`

	return scanLoan(q.QueryRowContext(ctx, query, id))
}

func (r *LoanRepository) UpdateStatus(ctx context.Context, q repo_interfaces.Querier, id string, status domain.LoanStatus, lenderID *string) error {
	logger.Info("loan repository update status", logger.Fields{
		"loanId": id,
		"status": status,
	})

	const query = `
UPDATE loan_requests
SET status = $2,
    lender_id = COALESCE($3, lender_id),
    updated_at = NOW()
WHERE id = $1`

	result, err := q.ExecContext(ctx, query, id, status, lenderID)
	if err != nil {
		logger.Error("loan repository update status failed", err, logger.Fields{
			"loanId": id,
		})
		return fmt.Errorf("update loan status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update loan status rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *LoanRepository) ListOpen(ctx context.Context, q repo_interfaces.Querier, limit int) ([]domain.LoanRequest, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
SELECT ` + loanColumns + `
FROM loan_requests
WHERE status = $1
ORDER BY created_at DESC
LIMIT $2`

	rows, err := q.QueryContext(ctx, query, domain.LoanStatusRequested, limit)
	if err != nil {
		return nil, fmt.Errorf("list open loans: %w", err)
	}
	defer rows.Close()

	loans := make([]domain.LoanRequest, 0, limit)
	for rows.Next() {
		loan, err := scanLoanRow(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate open loans: %w", err)
	}

	return loans, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoan(row *sql.Row) (domain.LoanRequest, error) {
	loan, err := scanLoanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.LoanRequest{}, domain.ErrNotFound
		}
		return domain.LoanRequest{}, err
	}
	return loan, nil
}

func scanLoanRow(row rowScanner) (domain.LoanRequest, error) {
	var (
		loan     domain.LoanRequest
		lenderID sql.NullString
		amount   string
		rate     string
	)

	if err := row.Scan(
		&loan.ID,
		&loan.BorrowerID,
		&lenderID,
		&amount,
		&rate,
		&loan.DurationMonths,
		&loan.Status,
		&loan.CreatedAt,
		&loan.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.LoanRequest{}, err
		}
		return domain.LoanRequest{}, fmt.Errorf("scan loan request: %w", err)
	}

	if lenderID.Valid {
		value := lenderID.String
		loan.LenderID = &value
	}

	parsedAmount, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.LoanRequest{}, fmt.Errorf("parse loan amount: %w", err)
	}
	loan.Amount = parsedAmount

	parsedRate, err := decimal.NewFromString(rate)
	if err != nil {
		return domain.LoanRequest{}, fmt.Errorf("parse loan rate: %w", err)
	}
	loan.Rate = parsedRate

	return loan, nil
}
