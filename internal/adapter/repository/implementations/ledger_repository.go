package implementations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lajan-app/escrow-engine/internal/adapter/repository/repo_interfaces"
	"github.com/lajan-app/escrow-engine/internal/domain"
	"github.com/lajan-app/escrow-engine/internal/logger"
	"github.com/shopspring/decimal"
)

type LedgerRepository struct{}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{}
}

func (r *LedgerRepository) Append(ctx context.Context, q repo_interfaces.Querier, entry domain.LedgerEntry) (domain.LedgerEntry, error) {
	logger.Info("ledger repository append", logger.Fields{
		"walletId":    entry.WalletID,
		"kind":        entry.Kind,
		"amount":      entry.Amount.StringFixed(2),
		"referenceId": entry.ReferenceID,
	})

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	const query = `
INSERT INTO transactions (id, wallet_id, kind, amount, currency, reference_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at`

	var createdAt time.Time
	if err := q.QueryRowContext(
		ctx,
		query,
		entry.ID,
		entry.WalletID,
		entry.Kind,
		entry.Amount.StringFixed(2),
		entry.Currency,
		entry.ReferenceID,
	).Scan(&createdAt); err != nil {
		logger.Error("ledger repository append failed", err, logger.Fields{
			"walletId": entry.WalletID,
			"kind":     entry.Kind,
		})
		return domain.LedgerEntry{}, fmt.Errorf("append ledger entry: %w", err)
	}

	entry.CreatedAt = createdAt
	return entry, nil
}

func (r *LedgerRepository) ListByWallet(ctx context.Context, q repo_interfaces.Querier, walletID string, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
SELECT id, wallet_id, kind, amount, currency, reference_id, created_at
FROM transactions
WHERE wallet_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

	rows, err := q.QueryContext(ctx, query, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LedgerEntry, 0, limit)
	for rows.Next() {
		var (
			entry  domain.LedgerEntry
			amount string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.WalletID,
			&entry.Kind,
			&amount,
			&entry.Currency,
			&entry.ReferenceID,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}

		parsed, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse ledger amount: %w", err)
		}
		entry.Amount = parsed
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}

	return entries, nil
}
