package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/lajan-app/escrow-engine/internal/adapter/events/kafka"
	"github.com/lajan-app/escrow-engine/internal/adapter/events/noop"
	"github.com/lajan-app/escrow-engine/internal/adapter/http/controller"
	"github.com/lajan-app/escrow-engine/internal/adapter/http/middleware"
	"github.com/lajan-app/escrow-engine/internal/adapter/http/router"
	"github.com/lajan-app/escrow-engine/internal/adapter/repository/implementations"
	"github.com/lajan-app/escrow-engine/internal/config"
	"github.com/lajan-app/escrow-engine/internal/usecase/service_interfaces"
	"github.com/lajan-app/escrow-engine/internal/usecase/services"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := implementations.RunMigrations(migrateCtx, cfg.DatabaseDSN, cfg.MigrationsDir); err != nil {
		cancel()
		log.Fatalf("run migrations: %v", err)
	}
	cancel()

	db, err := implementations.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	var (
		notificationSink service_interfaces.NotificationSink
		activitySink     service_interfaces.ActivityLogSink
	)
	if len(cfg.KafkaBrokers) > 0 {
		notifications := kafka.NewNotificationSink(cfg.KafkaBrokers)
		defer notifications.Close()
		activity := kafka.NewActivityLogSink(cfg.KafkaBrokers)
		defer activity.Close()
		notificationSink = notifications
		activitySink = activity
	} else {
		log.Println("no kafka brokers configured, event delivery disabled")
		sinks := noop.NewSinks()
		notificationSink = sinks
		activitySink = sinks
	}

	uow := implementations.NewSQLUnitOfWork(db)
	walletRepo := implementations.NewWalletRepository()
	ledgerRepo := implementations.NewLedgerRepository()
	loanRepo := implementations.NewLoanRepository()
	offerRepo := implementations.NewOfferRepository()
	idempotencyRepo := implementations.NewIdempotencyRepository()

	walletLedger := services.NewWalletLedger(walletRepo, ledgerRepo)
	escrowService := services.NewEscrowService(
		uow,
		loanRepo,
		offerRepo,
		walletRepo,
		idempotencyRepo,
		walletLedger,
		notificationSink,
		activitySink,
		cfg.WalletCurrency,
	)
	loanService := services.NewLoanService(db, loanRepo, offerRepo)
	walletService := services.NewWalletService(
		db,
		uow,
		walletRepo,
		ledgerRepo,
		idempotencyRepo,
		walletLedger,
		activitySink,
		cfg.WalletCurrency,
	)

	authMiddleware := middleware.BasicAuth(cfg.ChannelID, cfg.ChannelKey, cfg.ChannelKeyHash)
	mux := router.New(
		controller.NewLoanController(loanService, escrowService),
		controller.NewOfferController(escrowService),
		controller.NewWalletController(walletService),
		authMiddleware,
	)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Printf("escrow engine listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
