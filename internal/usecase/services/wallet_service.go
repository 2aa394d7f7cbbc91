package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lajan-app/escrow-engine/internal/adapter/http/models"
	"github.com/lajan-app/escrow-engine/internal/adapter/repository/repo_interfaces"
	"github.com/lajan-app/escrow-engine/internal/commons"
	"github.com/lajan-app/escrow-engine/internal/domain"
	"github.com/lajan-app/escrow-engine/internal/logger"
	"github.com/lajan-app/escrow-engine/internal/usecase/service_interfaces"
)

// WalletService is the user-facing wallet surface: top-ups, balance and the
// ledger history. Deposits go through the wallet ledger like every other
// balance change so the transaction log stays complete.
type WalletService struct {
	db              repo_interfaces.Querier
	uow             repo_interfaces.UnitOfWork
	walletRepo      repo_interfaces.WalletRepository
	ledgerRepo      repo_interfaces.LedgerRepository
	idempotencyRepo repo_interfaces.IdempotencyRepository
	ledger          *WalletLedger
	activitySink    service_interfaces.ActivityLogSink
	currency        string
}

func NewWalletService(
	db repo_interfaces.Querier,
	uow repo_interfaces.UnitOfWork,
	walletRepo repo_interfaces.WalletRepository,
	ledgerRepo repo_interfaces.LedgerRepository,
	idempotencyRepo repo_interfaces.IdempotencyRepository,
	ledger *WalletLedger,
	activitySink service_interfaces.ActivityLogSink,
	currency string,
) *WalletService {
	return &WalletService{
		db:              db,
		uow:             uow,
		walletRepo:      walletRepo,
		ledgerRepo:      ledgerRepo,
		idempotencyRepo: idempotencyRepo,
		ledger:          ledger,
		activitySink:    activitySink,
		currency:        strings.ToUpper(strings.TrimSpace(currency)),
	}
}

func (s *WalletService) Deposit(ctx context.Context, req models.DepositRequest) (commons.Response[models.WalletResponse], error) {
	logger.Info("wallet service deposit", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.WalletResponse]("validation failed", err.Error()), err
	}

	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = uuid.NewString()
	}

	var wallet domain.Wallet

	err := s.uow.RunInTx(ctx, func(q repo_interfaces.Querier) error {
		if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
			if err := s.idempotencyRepo.Claim(ctx, q, key, "Deposit"); err != nil {
				return err
			}
		}

		locked, err := s.walletRepo.GetByUserForUpdate(ctx, q, req.UserID, s.currency)
		if errors.Is(err, domain.ErrNotFound) {
			locked, err = s.walletRepo.Create(ctx, q, req.UserID, s.currency)
		}
		if err != nil {
			return err
		}

		if _, err := s.ledger.Deposit(ctx, q, locked, req.Amount, reference); err != nil {
			return err
		}

		locked.Balance = locked.Balance.Add(req.Amount)
		wallet = locked
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateRequest) {
			return commons.ErrorResponse[models.WalletResponse]("This request was already processed", err.Error()), err
		}
		return commons.ErrorResponse[models.WalletResponse]("failed to process deposit", "Unable to process the deposit right now"), err
	}

	if logErr := s.activitySink.Log(ctx, domain.ActivityEntry{
		ActorID:   req.UserID,
		EventType: domain.EventWalletCredited,
		Detail:    fmt.Sprintf("deposited %s %s (reference %s)", req.Amount.StringFixed(2), s.currency, reference),
	}); logErr != nil {
		logger.Error("wallet service activity log delivery failed", logErr, logger.Fields{
			"userId": req.UserID,
		})
	}

	return commons.SuccessResponse("Deposit successful", models.MapWalletToResponse(wallet)), nil
}

func (s *WalletService) GetBalance(ctx context.Context, userID string) (commons.Response[models.WalletResponse], error) {
	wallet, err := s.walletRepo.GetByUser(ctx, s.db, userID, s.currency)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return commons.ErrorResponse[models.WalletResponse]("Record not found"), err
		}
		return commons.ErrorResponse[models.WalletResponse]("failed to fetch wallet"), err
	}

	return commons.SuccessResponse("Wallet balance", models.MapWalletToResponse(wallet)), nil
}

func (s *WalletService) ListLedgerEntries(ctx context.Context, userID string, limit int) (commons.Response[[]models.LedgerEntryResponse], error) {
	wallet, err := s.walletRepo.GetByUser(ctx, s.db, userID, s.currency)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return commons.ErrorResponse[[]models.LedgerEntryResponse]("Record not found"), err
		}
		return commons.ErrorResponse[[]models.LedgerEntryResponse]("failed to fetch wallet"), err
	}

	entries, err := s.ledgerRepo.ListByWallet(ctx, s.db, wallet.ID, limit)
	if err != nil {
		return commons.ErrorResponse[[]models.LedgerEntryResponse]("failed to list transactions"), err
	}

	responses := make([]models.LedgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, models.MapLedgerEntryToResponse(entry))
	}

	return commons.SuccessResponse("Wallet transactions", responses), nil
}
