package repo_interfaces

import (
	"context"

	"github.com/lajan-app/escrow-engine/internal/domain"
)

type LoanRepository interface {
	Create(ctx context.Context, q Querier, loan domain.LoanRequest) (domain.LoanRequest, error)
	Get(ctx context.Context, q Querier, id string) (domain.LoanRequest, error)
	// GetForUpdate locks the loan row so concurrent accept/cancel operations
	// on the same loan serialize on it.
	GetForUpdate(ctx context.Context, q Querier, id string) (domain.LoanRequest, error)
	// GetForShare takes a shared lock: offer creation holds it while checking
	// the loan is still open, so two lenders do not block each other but an
	// in-flight accept or cancel does block them.
	GetForShare(ctx context.Context, q Querier, id string) (domain.LoanRequest, error)
	// UpdateStatus moves the loan to status and, when lenderID is non-nil,
	// records the winning lender.
	UpdateStatus(ctx context.Context, q Querier, id string, status domain.LoanStatus, lenderID *string) error
	ListOpen(ctx context.Context, q Querier, limit int) ([]domain.LoanRequest, error)
}
