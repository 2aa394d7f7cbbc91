package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lajan-app/escrow-engine/internal/adapter/http/models"
	"github.com/lajan-app/escrow-engine/internal/adapter/repository/repo_interfaces"
	"github.com/lajan-app/escrow-engine/internal/commons"
	"github.com/lajan-app/escrow-engine/internal/domain"
	"github.com/lajan-app/escrow-engine/internal/logger"
	"github.com/lajan-app/escrow-engine/internal/usecase/service_interfaces"
)

// EscrowService coordinates the five marketplace operations. Each operation
// runs its state-machine checks and every wallet ledger call inside one
// database transaction; notifications and activity-log entries are emitted
// only after that transaction commits.
type EscrowService struct {
	uow              repo_interfaces.UnitOfWork
	loanRepo         repo_interfaces.LoanRepository
	offerRepo        repo_interfaces.OfferRepository
	walletRepo       repo_interfaces.WalletRepository
	idempotencyRepo  repo_interfaces.IdempotencyRepository
	ledger           *WalletLedger
	notificationSink service_interfaces.NotificationSink
	activitySink     service_interfaces.ActivityLogSink
	currency         string
}

func NewEscrowService(
	uow repo_interfaces.UnitOfWork,
	loanRepo repo_interfaces.LoanRepository,
	offerRepo repo_interfaces.OfferRepository,
	walletRepo repo_interfaces.WalletRepository,
	idempotencyRepo repo_interfaces.IdempotencyRepository,
	ledger *WalletLedger,
	notificationSink service_interfaces.NotificationSink,
	activitySink service_interfaces.ActivityLogSink,
	currency string,
) *EscrowService {
	return &EscrowService{
		uow:              uow,
		loanRepo:         loanRepo,
		offerRepo:        offerRepo,
		walletRepo:       walletRepo,
		idempotencyRepo:  idempotencyRepo,
		ledger:           ledger,
		notificationSink: notificationSink,
		activitySink:     activitySink,
		currency:         strings.ToUpper(strings.TrimSpace(currency)),
	}
}

// postCommit accumulates the events of one operation while its transaction is
// open and flushes them only if the transaction committed.
type postCommit struct {
	notifications []domain.Notification
	activities    []domain.ActivityEntry
}

func (p *postCommit) notify(n domain.Notification) {
	p.notifications = append(p.notifications, n)
}

func (p *postCommit) log(a domain.ActivityEntry) {
	p.activities = append(p.activities, a)
}

func (s *EscrowService) CreateOffer(ctx context.Context, req models.CreateOfferRequest) (commons.Response[models.OfferResponse], error) {
	logger.Info("escrow service create offer", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.OfferResponse]("validation failed", err.Error()), err
	}

	var (
		created domain.Offer
		events  postCommit
	)

	err := s.uow.RunInTx(ctx, func(q repo_interfaces.Querier) error {
		if err := s.claimKey(ctx, q, req.IdempotencyKey, "CreateOffer"); err != nil {
			return err
		}

		loan, err := s.loanRepo.GetForShare(ctx, q, req.LoanID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrLoanNotAvailable
			}
			return err
		}
		if loan.Status != domain.LoanStatusRequested {
			return domain.ErrLoanNotAvailable
		}
		if loan.BorrowerID == req.LenderID {
			return fmt.Errorf("%w: borrower cannot fund their own loan", domain.ErrValidation)
		}

		// Application-level duplicate check; the UNIQUE(loan_id, lender_id)
		// constraint backs it up under concurrent identical submissions.
		exists, err := s.offerRepo.ExistsForLender(ctx, q, loan.ID, req.LenderID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateOffer
		}

		wallet, err := s.walletRepo.GetByUserForUpdate(ctx, q, req.LenderID, s.currency)
		if err != nil {
			return err
		}

		created, err = s.offerRepo.Create(ctx, q, domain.Offer{
			LoanID:   loan.ID,
			LenderID: req.LenderID,
			Amount:   req.Amount,
			Rate:     req.Rate,
			Status:   domain.OfferStatusPending,
		})
		if err != nil {
			return err
		}

		if _, err := s.ledger.Reserve(ctx, q, wallet, created.Amount, created.ID); err != nil {
			return err
		}

		events.notify(domain.Notification{
			UserID:        loan.BorrowerID,
			EventType:     domain.EventOfferCreated,
			Title:         "New offer on your loan request",
			Body:          fmt.Sprintf("A lender offered %s %s at %s%%", created.Amount.StringFixed(2), s.currency, created.Rate.StringFixed(2)),
			ReferenceID:   created.ID,
			ReferenceType: domain.ReferenceTypeOffer,
		})
		events.log(domain.ActivityEntry{
			ActorID:   req.LenderID,
			EventType: domain.EventOfferCreated,
			Detail:    fmt.Sprintf("offer %s of %s %s on loan %s", created.ID, created.Amount.StringFixed(2), s.currency, loan.ID),
		})

		return nil
	})
	if err != nil {
		return s.mapOfferError(err), err
	}

	s.emit(ctx, events)

	return commons.SuccessResponse("Offer created and funds reserved", models.MapOfferToResponse(created)), nil
}

func (s *EscrowService) AcceptOffer(ctx context.Context, req models.AcceptOfferRequest) (commons.Response[models.AcceptOfferResponse], error) {
	logger.Info("escrow service accept offer", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.AcceptOfferResponse]("validation failed", err.Error()), err
	}

	var (
		response models.AcceptOfferResponse
		events   postCommit
	)

	err := s.uow.RunInTx(ctx, func(q repo_interfaces.Querier) error {
		if err := s.claimKey(ctx, q, req.IdempotencyKey, "AcceptOffer"); err != nil {
			return err
		}

		loan, err := s.loanRepo.GetForUpdate(ctx, q, req.LoanID)
		if err != nil {
			return err
		}
		if loan.BorrowerID != req.ActorID {
			return domain.ErrUnauthorized
		}
		if !loan.Status.CanTransitionTo(domain.LoanStatusActive) {
			return domain.ErrInvalidState
		}

		offer, err := s.offerRepo.GetForUpdate(ctx, q, req.OfferID)
		if err != nil {
			return err
		}
		if offer.LoanID != loan.ID {
			return domain.ErrNotFound
		}
		if !offer.Status.CanTransitionTo(domain.OfferStatusAccepted) {
			return domain.ErrInvalidState
		}

		siblings, err := s.offerRepo.ListPendingByLoanForUpdate(ctx, q, loan.ID)
		if err != nil {
			return err
		}

		if err := s.loanRepo.UpdateStatus(ctx, q, loan.ID, domain.LoanStatusActive, &offer.LenderID); err != nil {
			return err
		}
		if err := s.offerRepo.UpdateStatus(ctx, q, offer.ID, domain.OfferStatusAccepted); err != nil {
			return err
		}

		borrowerWallet, err := s.borrowerWallet(ctx, q, loan.BorrowerID)
		if err != nil {
			return err
		}
		if _, err := s.ledger.Settle(ctx, q, borrowerWallet, offer.Amount, offer.ID); err != nil {
			return err
		}

		rejected := make([]string, 0, len(siblings))
		for _, sibling := range siblings {
			if sibling.ID == offer.ID {
				continue
			}
			if err := s.offerRepo.UpdateStatus(ctx, q, sibling.ID, domain.OfferStatusRejected); err != nil {
				return err
			}
			if err := s.refundLender(ctx, q, sibling); err != nil {
				return err
			}
			rejected = append(rejected, sibling.ID)

			events.notify(domain.Notification{
				UserID:        sibling.LenderID,
				EventType:     domain.EventOfferRejected,
				Title:         "Offer not selected",
				Body:          fmt.Sprintf("Your offer of %s %s was not selected; the reserved funds were returned to your wallet", sibling.Amount.StringFixed(2), s.currency),
				ReferenceID:   sibling.ID,
				ReferenceType: domain.ReferenceTypeOffer,
			})
		}

		loan.Status = domain.LoanStatusActive
		loan.LenderID = &offer.LenderID
		offer.Status = domain.OfferStatusAccepted
		response = models.AcceptOfferResponse{
			Loan:           models.MapLoanToResponse(loan),
			Offer:          models.MapOfferToResponse(offer),
			RejectedOffers: rejected,
		}

		events.notify(domain.Notification{
			UserID:        offer.LenderID,
			EventType:     domain.EventOfferAccepted,
			Title:         "Offer accepted",
			Body:          fmt.Sprintf("Your offer of %s %s was accepted by the borrower", offer.Amount.StringFixed(2), s.currency),
			ReferenceID:   offer.ID,
			ReferenceType: domain.ReferenceTypeOffer,
		})
		events.notify(domain.Notification{
			UserID:        loan.BorrowerID,
			EventType:     domain.EventLoanActivated,
			Title:         "Loan funded",
			Body:          fmt.Sprintf("%s %s was credited to your wallet", offer.Amount.StringFixed(2), s.currency),
			ReferenceID:   loan.ID,
			ReferenceType: domain.ReferenceTypeLoan,
		})
		events.log(domain.ActivityEntry{
			ActorID:   req.ActorID,
			EventType: domain.EventOfferAccepted,
			Detail:    fmt.Sprintf("accepted offer %s on loan %s, rejected %d competing offer(s)", offer.ID, loan.ID, len(rejected)),
		})

		return nil
	})
	if err != nil {
		return s.mapAcceptError(err), err
	}

	s.emit(ctx, events)

	return commons.SuccessResponse("Offer accepted, loan is now active", response), nil
}

func (s *EscrowService) RejectOffer(ctx context.Context, req models.RejectOfferRequest) (commons.Response[models.OfferResponse], error) {
	logger.Info("escrow service reject offer", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.OfferResponse]("validation failed", err.Error()), err
	}

	reason := strings.TrimSpace(req.Reason)

	offer, err := s.closeOffer(ctx, closeOfferParams{
		offerID:        req.OfferID,
		actorID:        req.ActorID,
		idempotencyKey: req.IdempotencyKey,
		operation:      "RejectOffer",
		target:         domain.OfferStatusRejected,
		authorize: func(loan domain.LoanRequest, offer domain.Offer, actorID string) error {
			if loan.BorrowerID != actorID {
				return domain.ErrUnauthorized
			}
			return nil
		},
		buildEvents: func(offer domain.Offer, events *postCommit) {
			body := fmt.Sprintf("Your offer of %s %s was declined; the reserved funds were returned to your wallet", offer.Amount.StringFixed(2), s.currency)
			if reason != "" {
				body = fmt.Sprintf("%s. Reason: %s", body, reason)
			}
			events.notify(domain.Notification{
				UserID:        offer.LenderID,
				EventType:     domain.EventOfferRejected,
				Title:         "Offer declined",
				Body:          body,
				ReferenceID:   offer.ID,
				ReferenceType: domain.ReferenceTypeOffer,
			})
			events.log(domain.ActivityEntry{
				ActorID:   req.ActorID,
				EventType: domain.EventOfferRejected,
				Detail:    fmt.Sprintf("rejected offer %s on loan %s", offer.ID, offer.LoanID),
			})
		},
	})
	if err != nil {
		return s.mapOfferError(err), err
	}

	return commons.SuccessResponse("Offer rejected and funds released", models.MapOfferToResponse(offer)), nil
}

func (s *EscrowService) CancelOffer(ctx context.Context, req models.CancelOfferRequest) (commons.Response[models.OfferResponse], error) {
	logger.Info("escrow service cancel offer", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.OfferResponse]("validation failed", err.Error()), err
	}

	offer, err := s.closeOffer(ctx, closeOfferParams{
		offerID:        req.OfferID,
		actorID:        req.ActorID,
		idempotencyKey: req.IdempotencyKey,
		operation:      "CancelOffer",
		target:         domain.OfferStatusCancelled,
		authorize: func(loan domain.LoanRequest, offer domain.Offer, actorID string) error {
			if offer.LenderID != actorID {
				return domain.ErrUnauthorized
			}
			return nil
		},
		buildEvents: func(offer domain.Offer, events *postCommit) {
			events.notify(domain.Notification{
				UserID:        offer.LenderID,
				EventType:     domain.EventOfferCancelled,
				Title:         "Offer cancelled",
				Body:          fmt.Sprintf("Your offer was cancelled and %s %s returned to your wallet", offer.Amount.StringFixed(2), s.currency),
				ReferenceID:   offer.ID,
				ReferenceType: domain.ReferenceTypeOffer,
			})
			events.log(domain.ActivityEntry{
				ActorID:   req.ActorID,
				EventType: domain.EventOfferCancelled,
				Detail:    fmt.Sprintf("cancelled offer %s on loan %s", offer.ID, offer.LoanID),
			})
		},
	})
	if err != nil {
		return s.mapOfferError(err), err
	}

	return commons.SuccessResponse("Offer cancelled and funds released", models.MapOfferToResponse(offer)), nil
}

func (s *EscrowService) CancelRequest(ctx context.Context, req models.CancelLoanRequest) (commons.Response[models.CancelLoanResponse], error) {
	logger.Info("escrow service cancel request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.CancelLoanResponse]("validation failed", err.Error()), err
	}

	var (
		response models.CancelLoanResponse
		events   postCommit
	)

	err := s.uow.RunInTx(ctx, func(q repo_interfaces.Querier) error {
		if err := s.claimKey(ctx, q, req.IdempotencyKey, "CancelRequest"); err != nil {
			return err
		}

		loan, err := s.loanRepo.GetForUpdate(ctx, q, req.LoanID)
		if err != nil {
			return err
		}
		if loan.BorrowerID != req.ActorID {
			return domain.ErrUnauthorized
		}
		if !loan.Status.CanTransitionTo(domain.LoanStatusCancelled) {
			return domain.ErrInvalidState
		}

		pending, err := s.offerRepo.ListPendingByLoanForUpdate(ctx, q, loan.ID)
		if err != nil {
			return err
		}

		if err := s.loanRepo.UpdateStatus(ctx, q, loan.ID, domain.LoanStatusCancelled, nil); err != nil {
			return err
		}

		cancelled := make([]string, 0, len(pending))
		for _, offer := range pending {
			if err := s.offerRepo.UpdateStatus(ctx, q, offer.ID, domain.OfferStatusCancelled); err != nil {
				return err
			}
			if err := s.refundLender(ctx, q, offer); err != nil {
				return err
			}
			cancelled = append(cancelled, offer.ID)

			events.notify(domain.Notification{
				UserID:        offer.LenderID,
				EventType:     domain.EventOfferCancelled,
				Title:         "Loan request withdrawn",
				Body:          fmt.Sprintf("The borrower withdrew the loan request; %s %s was returned to your wallet", offer.Amount.StringFixed(2), s.currency),
				ReferenceID:   offer.ID,
				ReferenceType: domain.ReferenceTypeOffer,
			})
		}

		loan.Status = domain.LoanStatusCancelled
		response = models.CancelLoanResponse{
			Loan:            models.MapLoanToResponse(loan),
			CancelledOffers: cancelled,
		}

		events.log(domain.ActivityEntry{
			ActorID:   req.ActorID,
			EventType: domain.EventLoanCancelled,
			Detail:    fmt.Sprintf("cancelled loan %s, released %d pending offer(s)", loan.ID, len(cancelled)),
		})

		return nil
	})
	if err != nil {
		return s.mapCancelLoanError(err), err
	}

	s.emit(ctx, events)

	return commons.SuccessResponse("Loan request cancelled, all reserved funds released", response), nil
}

type closeOfferParams struct {
	offerID        string
	actorID        string
	idempotencyKey string
	operation      string
	target         domain.OfferStatus
	authorize      func(loan domain.LoanRequest, offer domain.Offer, actorID string) error
	buildEvents    func(offer domain.Offer, events *postCommit)
}

// closeOffer is the shared path for RejectOffer and CancelOffer: both move a
// pending offer to a terminal status and release the lender's reservation.
func (s *EscrowService) closeOffer(ctx context.Context, params closeOfferParams) (domain.Offer, error) {
	var (
		closed domain.Offer
		events postCommit
	)

	err := s.uow.RunInTx(ctx, func(q repo_interfaces.Querier) error {
		if err := s.claimKey(ctx, q, params.idempotencyKey, params.operation); err != nil {
			return err
		}

		offer, err := s.offerRepo.GetForUpdate(ctx, q, params.offerID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrOfferNotAvailable
			}
			return err
		}

		loan, err := s.loanRepo.Get(ctx, q, offer.LoanID)
		if err != nil {
			return err
		}

		if err := params.authorize(loan, offer, params.actorID); err != nil {
			return err
		}
		if !offer.Status.CanTransitionTo(params.target) {
			return domain.ErrOfferNotAvailable
		}

		if err := s.offerRepo.UpdateStatus(ctx, q, offer.ID, params.target); err != nil {
			return err
		}
		if err := s.refundLender(ctx, q, offer); err != nil {
			return err
		}

		offer.Status = params.target
		closed = offer
		params.buildEvents(offer, &events)

		return nil
	})
	if err != nil {
		return domain.Offer{}, err
	}

	s.emit(ctx, events)

	return closed, nil
}

// refundLender releases a pending offer's reservation back to its lender
// inside the current transaction.
func (s *EscrowService) refundLender(ctx context.Context, q repo_interfaces.Querier, offer domain.Offer) error {
	wallet, err := s.walletRepo.GetByUserForUpdate(ctx, q, offer.LenderID, s.currency)
	if err != nil {
		return err
	}
	_, err = s.ledger.Release(ctx, q, wallet, offer.Amount, offer.ID)
	return err
}

// borrowerWallet loads the borrower's wallet, provisioning it on first
// settlement if the borrower never deposited before.
func (s *EscrowService) borrowerWallet(ctx context.Context, q repo_interfaces.Querier, borrowerID string) (domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByUserForUpdate(ctx, q, borrowerID, s.currency)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Wallet{}, err
	}
	return s.walletRepo.Create(ctx, q, borrowerID, s.currency)
}

func (s *EscrowService) claimKey(ctx context.Context, q repo_interfaces.Querier, key string, operation string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	return s.idempotencyRepo.Claim(ctx, q, key, operation)
}

// emit flushes post-commit events. Sink failures are logged and discarded;
// the financial state already committed and is never rolled back for them.
func (s *EscrowService) emit(ctx context.Context, events postCommit) {
	for _, notification := range events.notifications {
		if err := s.notificationSink.Notify(ctx, notification); err != nil {
			logger.Error("escrow service notification delivery failed", err, logger.Fields{
				"userId":    notification.UserID,
				"eventType": notification.EventType,
			})
		}
	}
	for _, entry := range events.activities {
		if err := s.activitySink.Log(ctx, entry); err != nil {
			logger.Error("escrow service activity log delivery failed", err, logger.Fields{
				"actorId":   entry.ActorID,
				"eventType": entry.EventType,
			})
		}
	}
}

func (s *EscrowService) mapOfferError(err error) commons.Response[models.OfferResponse] {
	return commons.ErrorResponse[models.OfferResponse](escrowErrorMessage(err), err.Error())
}

func (s *EscrowService) mapAcceptError(err error) commons.Response[models.AcceptOfferResponse] {
	return commons.ErrorResponse[models.AcceptOfferResponse](escrowErrorMessage(err), err.Error())
}

func (s *EscrowService) mapCancelLoanError(err error) commons.Response[models.CancelLoanResponse] {
	return commons.ErrorResponse[models.CancelLoanResponse](escrowErrorMessage(err), err.Error())
}

func escrowErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation failed"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "Insufficient balance"
	case errors.Is(err, domain.ErrDuplicateOffer):
		return "You already have an offer on this loan"
	case errors.Is(err, domain.ErrDuplicateRequest):
		return "This request was already processed"
	case errors.Is(err, domain.ErrLoanNotAvailable):
		return "This loan request is no longer open"
	case errors.Is(err, domain.ErrOfferNotAvailable):
		return "This offer is no longer available"
	case errors.Is(err, domain.ErrInvalidState):
		return "The requested transition is not allowed"
	case errors.Is(err, domain.ErrUnauthorized):
		return "You are not allowed to perform this operation"
	case errors.Is(err, domain.ErrNotFound):
		return "Record not found"
	default:
		return "Unable to process the operation right now"
	}
}
