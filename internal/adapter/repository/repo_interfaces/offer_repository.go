package repo_interfaces

import (
	"context"

	"github.com/lajan-app/escrow-engine/internal/domain"
)

type OfferRepository interface {
	// Create inserts the offer in PENDING status. A second offer by the same
	// lender on the same loan violates the storage uniqueness constraint and
	// returns domain.ErrDuplicateOffer.
	Create(ctx context.Context, q Querier, offer domain.Offer) (domain.Offer, error)
	Get(ctx context.Context, q Querier, id string) (domain.Offer, error)
	GetForUpdate(ctx context.Context, q Querier, id string) (domain.Offer, error)
	// ListPendingByLoanForUpdate locks every pending offer of the loan; used
	// by AcceptOffer and CancelRequest before the refund loop.
	ListPendingByLoanForUpdate(ctx context.Context, q Querier, loanID string) ([]domain.Offer, error)
	ListByLoan(ctx context.Context, q Querier, loanID string) ([]domain.Offer, error)
	ExistsForLender(ctx context.Context, q Querier, loanID string, lenderID string) (bool, error)
	UpdateStatus(ctx context.Context, q Querier, id string, status domain.OfferStatus) error
}
