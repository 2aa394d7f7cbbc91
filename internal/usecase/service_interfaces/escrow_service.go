package service_interfaces

import (
	"context"

	"github.com/lajan-app/escrow-engine/internal/adapter/http/models"
	"github.com/lajan-app/escrow-engine/internal/commons"
)

// EscrowService is the escrow coordinator: the five marketplace operations,
// each executed as a single atomic unit of work.
type EscrowService interface {
	CreateOffer(ctx context.Context, req models.CreateOfferRequest) (commons.Response[models.OfferResponse], error)
	AcceptOffer(ctx context.Context, req models.AcceptOfferRequest) (commons.Response[models.AcceptOfferResponse], error)
	RejectOffer(ctx context.Context, req models.RejectOfferRequest) (commons.Response[models.OfferResponse], error)
	CancelOffer(ctx context.Context, req models.CancelOfferRequest) (commons.Response[models.OfferResponse], error)
	CancelRequest(ctx context.Context, req models.CancelLoanRequest) (commons.Response[models.CancelLoanResponse], error)
}
