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
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type WalletRepository struct{}

func NewWalletRepository() *WalletRepository {
	return &WalletRepository{}
}

func (r *WalletRepository) Create(ctx context.Context, q repo_interfaces.Querier, userID string, currency string) (domain.Wallet, error) {
	logger.Info("wallet repository create", logger.Fields{
		"userId":   userID,
		"currency": currency,
	})

	const query = `
INSERT INTO wallets (user_id, currency, balance)
VALUES ($1, $2, 0)
RETURNING id, created_at, updated_at`

	var (
		id        string
		createdAt time.Time
		updatedAt time.Time
	)

	if err := q.QueryRowContext(ctx, query, userID, currency).Scan(&id, &createdAt, &updatedAt); err != nil {
		if isUniqueViolation(err) {
			// The (user, currency) wallet already exists; return it instead.
			return r.GetByUser(ctx, q, userID, currency)
		}
		logger.Error("wallet repository create failed", err, logger.Fields{
			"userId": userID,
		})
		return domain.Wallet{}, fmt.Errorf("create wallet: %w", err)
	}

	return domain.Wallet{
		ID:        id,
		UserID:    userID,
		Currency:  currency,
		Balance:   decimal.Zero,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func (r *WalletRepository) GetByUser(ctx context.Context, q repo_interfaces.Querier, userID string, currency string) (domain.Wallet, error) {
	const query = `
SELECT id, user_id, currency, balance, created_at, updated_at
FROM wallets
WHERE user_id = $1
  AND UPPER(currency) = UPPER($2)`

	return scanWallet(q.QueryRowContext(ctx, query, userID, currency))
}

func (r *WalletRepository) GetByUserForUpdate(ctx context.Context, q repo_interfaces.Querier, userID string, currency string) (domain.Wallet, error) {
	const query = `
SELECT id, user_id, currency, balance, created_at, updated_at
FROM wallets
WHERE user_id = $1
  AND UPPER(currency) = UPPER($2)
FOR UPDATE`

	return scanWallet(q.QueryRowContext(ctx, query, userID, currency))
}

// Debit subtracts amount from the wallet, guarded so the balance can never go
// negative: the UPDATE only matches when balance >= amount, and zero affected
// rows on an existing wallet means insufficient funds.
func (r *WalletRepository) Debit(ctx context.Context, q repo_interfaces.Querier, walletID string, amount decimal.Decimal) error {
	logger.Info("wallet repository debit", logger.Fields{
		"walletId": walletID,
		"amount":   amount.StringFixed(2),
	})

	const query = `
UPDATE wallets
SET balance = balance - $2::numeric,
    updated_at = NOW()
WHERE id = $1
  AND balance >= $2::numeric`

	result, err := q.ExecContext(ctx, query, walletID, amount.StringFixed(2))
	if err != nil {
		logger.Error("wallet repository debit failed", err, logger.Fields{
			"walletId": walletID,
		})
		return fmt.Errorf("debit wallet: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit wallet rows affected: %w", err)
	}
	if rows == 0 {
		const existsQuery = `SELECT 1 FROM wallets WHERE id = $1`
		var exists int
		if scanErr := q.QueryRowContext(ctx, existsQuery, walletID).Scan(&exists); scanErr != nil {
			if errors.Is(scanErr, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("check wallet: %w", scanErr)
		}
		logger.Info("wallet repository insufficient balance", logger.Fields{
			"walletId": walletID,
			"amount":   amount.StringFixed(2),
		})
		return domain.ErrInsufficientFunds
	}

	return nil
}

func (r *WalletRepository) Credit(ctx context.Context, q repo_interfaces.Querier, walletID string, amount decimal.Decimal) error {
	logger.Info("wallet repository credit", logger.Fields{
		"walletId": walletID,
		"amount":   amount.StringFixed(2),
	})

	const query = `
UPDATE wallets
SET balance = balance + $2::numeric,
    updated_at = NOW()
WHERE id = $1`

	result, err := q.ExecContext(ctx, query, walletID, amount.StringFixed(2))
	if err != nil {
		logger.Error("wallet repository credit failed", err, logger.Fields{
			"walletId": walletID,
		})
		return fmt.Errorf("credit wallet: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("credit wallet rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func scanWallet(row *sql.Row) (domain.Wallet, error) {
	var (
		wallet  domain.Wallet
		balance string
	)

	if err := row.Scan(
		&wallet.ID,
		&wallet.UserID,
		&wallet.Currency,
		&balance,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Wallet{}, domain.ErrNotFound
		}
		return domain.Wallet{}, fmt.Errorf("scan wallet: %w", err)
	}

	parsed, err := decimal.NewFromString(balance)
	if err != nil {
		return domain.Wallet{}, fmt.Errorf("parse wallet balance: %w", err)
	}
	wallet.Balance = parsed

	return wallet, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == "23505"
	}
	return false
}
