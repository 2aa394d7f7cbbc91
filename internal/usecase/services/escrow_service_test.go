package services_test

import (
	"context"
	"testing"

	"github.com/lajan-app/escrow-engine/internal/adapter/http/models"
	"github.com/lajan-app/escrow-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertWalletConsistent checks that the wallet balance equals the seeded
// starting balance plus the signed sum of its ledger entries.
func assertWalletConsistent(t *testing.T, env *testEnv, walletID string, seeded string) {
	t.Helper()
	wallet, ok := env.store.wallets[walletID]
	require.True(t, ok, "wallet %s missing", walletID)
	expected := decimal.RequireFromString(seeded).Add(env.store.ledgerSum(walletID))
	assert.True(t, wallet.Balance.Equal(expected),
		"wallet %s balance %s diverged from ledger-implied %s", walletID, wallet.Balance, expected)
}

func TestCreateOfferReservesFunds(t *testing.T) {
	env := newTestEnv()
	loan := env.seedLoan("borrower-1", "300")
	lenderWallet := env.seedWallet("lender-1", "500")

	resp, err := env.escrow.CreateOffer(context.Background(), models.CreateOfferRequest{
		LoanID:   loan.ID,
		LenderID: "lender-1",
		Amount:   decimal.RequireFromString("300"),
		Rate:     decimal.RequireFromString("4.50"),
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Equal(t, string(domain.OfferStatusPending), resp.Data.Status)

	assert.True(t, env.store.wallets[lenderWallet.ID].Balance.Equal(decimal.RequireFromString("200")))

	entries := env.store.entriesFor(lenderWallet.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.LedgerEntryReservation, entries[0].Kind)
	assert.Equal(t, resp.Data.ID, entries[0].ReferenceID)
	assert.True(t, entries[0].Amount.Equal(decimal.RequireFromString("300")))

	require.Len(t, env.sinks.notifications, 1)
	assert.Equal(t, domain.EventOfferCreated, env.sinks.notifications[0].EventType)
	assert.Equal(t, "borrower-1", env.sinks.notifications[0].UserID)
	require.Len(t, env.sinks.activities, 1)
	assert.Equal(t, "lender-1", env.sinks.activities[0].ActorID)
}

func TestCreateOfferInsufficientFundsLeavesNoTrace(t *testing.T) {
	env := newTestEnv()
	loan := env.seedLoan("borrower-1", "300")
	lenderWallet := env.seedWallet("lender-1", "100")

	resp, err := env.escrow.CreateOffer(context.Background(), models.CreateOfferRequest{
		LoanID:   loan.ID,
		LenderID: "lender-1",
		Amount:   decimal.RequireFromString("300"),
		Rate:     decimal.RequireFromString("4.50"),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.False(t, resp.Success)
	assert.Equal(t, "Insufficient balance", resp.Message)

	assert.Empty(t, env.store.offers, "failed offer must not leave a row behind")
	assert.Empty(t, env.store.entries)
	assert.True(t, env.store.wallets[lenderWallet.ID].Balance.Equal(decimal.RequireFromString("100")))
	assert.Empty(t, env.sinks.notifications)
}

func TestCreateOfferOnOwnLoan(t *testing.T) {
	env := newTestEnv()
	loan := env.seedLoan("borrower-1", "300")
	env.seedWallet("borrower-1", "500")

	_, err := env.escrow.CreateOffer(context.Background(), models.CreateOfferRequest{
		LoanID:   loan.ID,
		LenderID: "borrower-1",
		Amount:   decimal.RequireFromString("300"),
		Rate:     decimal.RequireFromString("4.50"),
	})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, env.store.offers)
}

func TestCreateOfferDuplicateLender(t *testing.T) {
	env := newTestEnv()
	loan := env.seedLoan("borrower-1", "300")
	env.seedWallet("lender-1", "1000")

	req := models.CreateOfferRequest{
		LoanID:   loan.ID,
		LenderID: "lender-1",
		Amount:   decimal.RequireFromString("300"),
		Rate:     decimal.RequireFromString("4.50"),
	}
	_, err := env.escrow.CreateOffer(context.Background(), req)
	require.NoError(t, err)

	_, err = env.escrow.CreateOffer(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrDuplicateOffer)

	assert.Len(t, env.store.offers, 1)
	assert.Len(t, env.store.entries, 1, "duplicate must not reserve a second time")
}

func TestCreateOfferLoanNotOpen(t *testing.T) {
	env := newTestEnv()
	env.seedWallet("lender-1", "500")

	req := models.CreateOfferRequest{
		LoanID:   "loan-missing",
		LenderID: "lender-1",
		Amount:   decimal.RequireFromString("300"),
		Rate:     decimal.RequireFromString("4.50"),
	}
	_, err := env.escrow.CreateOffer(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrLoanNotAvailable)

	cancelled := env.seedLoan("borrower-1", "300")
	cancelled.Status = domain.LoanStatusCancelled
	env.store.loans[cancelled.ID] = cancelled

	req.LoanID = cancelled.ID
	_, err = env.escrow.CreateOffer(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrLoanNotAvailable)
}

func TestAcceptOfferSettlesAndRefundsCompetitors(t *testing.T) {
	env := newTestEnv()
	loan := env.seedLoan("borrower-1", "300")
	walletA := env.seedWallet("lender-a", "500")
	walletB := env.seedWallet("lender-b", "400")

	offerA, err := env.escrow.CreateOffer(context.Background(), models.CreateOfferRequest{
		LoanID:   loan.ID,
		LenderID: "lender-a",
		Amount:   decimal.RequireFromString("300"),
		Rate:     decimal.RequireFromString("4.00"),
	})
	require.NoError(t, err)
	offerB, err := env.escrow.CreateOffer(context.Background(), models.CreateOfferRequest{
		LoanID:   loan.ID,
		LenderID: "lender-b",
		Amount:   decimal.RequireFromString("400"),
		Rate:     decimal.RequireFromString("6.00"),
	})
	require.NoError(t, err)

	resp, err := env.escrow.AcceptOffer(context.Background(), models.AcceptOfferRequest{
		LoanID:  loan.ID,
		OfferID: offerB.Data.ID,
		ActorID: "borrower-1",
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.NotNil(t, resp.Data)

	assert.Equal(t, string(domain.LoanStatusActive), resp.Data.Loan.Status)
	assert.Equal(t, "lender-b", resp.Data.Loan.LenderID)
	assert.Equal(t, string(domain.OfferStatusAccepted), resp.Data.Offer.Status)
	assert.Equal(t, []string{offerA.Data.ID}, resp.Data.RejectedOffers)

	assert.Equal(t, domain.OfferStatusRejected, env.store.offers[offerA.Data.ID].Status)
	assert.Equal(t, domain.OfferStatusAccepted, env.store.offers[offerB.Data.ID].Status)

	// Winner stays debited, loser is made whole, borrower receives the
	// principal in a freshly provisioned wallet.
	assert.True(t, env.store.wallets[walletA.ID].Balance.Equal(decimal.RequireFromString("500")))
	assert.True(t, env.store.wallets[walletB.ID].Balance.Equal(decimal.RequireFromString("0")))

	borrowerWallet, walletErr := (&memWalletRepo{store: env.store}).GetByUser(context.Background(), nil, "borrower-1", testCurrency)
	require.NoError(t, walletErr)
	assert.True(t, borrowerWallet.Balance.Equal(decimal.RequireFromString("400")))

	settlements := env.store.entriesFor(borrowerWallet.ID)
	require.Len(t, settlements, 1)
	assert.Equal(t, domain.LedgerEntrySettlement, settlements[0].Kind)
	assert.Equal(t, offerB.Data.ID, settlements[0].ReferenceID)

	refunds := env.store.entriesFor(walletA.ID)
	require.Len(t, refunds, 2)
	assert.Equal(t, domain.LedgerEntryRelease, refunds[1].Kind)
	assert.True(t, env.store.ledgerSum(walletA.ID).IsZero())

	assertWalletConsistent(t, env, walletA.ID, "500")
	assertWalletConsistent(t, env, walletB.ID, "400")
	assertWalletConsistent(t, env, borrowerWallet.ID, "0")
}

func TestAcceptOfferUnauthorized(t *testing.T) {
	env := newTestEnv()
	loan := env.seedLoan("borrower-1", "300")
	env.seedWallet("lender-a", "500")

	offer, err := env.escrow.CreateOffer(context.Background(), models.CreateOfferRequest{
		LoanID:   loan.ID,
		LenderID: "lender-a",
		Amount:   decimal.RequireFromString("300"),
		Rate:     decimal.RequireFromString("4.00"),
	})
	require.NoError(t, err)

	_, err = env.escrow.AcceptOffer(context.Background(), models.AcceptOfferRequest{
		LoanID:  loan.ID,
		OfferID: offer.Data.ID,
		ActorID: "lender-a",
	})
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	assert.Equal(t, domain.LoanStatusRequested, env.store.loans[loan.ID].Status)
	assert.Equal(t, domain.OfferStatusPending, env.store.offers[offer.Data.ID].Status)
}

func TestAcceptOfferTwice(t *testing.T) {
	env := newTestEnv()
	loan := env.seedLoan("borrower-1", "300")
	env.seedWallet("lender-a", "500")

	offer, err := env.escrow.CreateOffer(context.Background(), models.CreateOfferRequest{
		LoanID:   loan.ID,
		LenderID: "lender-a",
		Amount:   decimal.RequireFromString("300"),
		Rate:     decimal.RequireFromString("4.00"),
	})
	require.NoError(t, err)

	accept := models.AcceptOfferRequest{
		LoanID:  loan.ID,
		OfferID: offer.Data.ID,
		ActorID: "borrower-1",
	}
	_, err = env.escrow.AcceptOffer(context.Background(), accept)
	require.NoError(t, err)

	entriesBefore := len(env.store.entries)

	_, err = env.escrow.AcceptOffer(context.Background(), accept)
	require.ErrorIs(t, err, domain.ErrInvalidState)

	assert.Len(t, env.store.entries, entriesBefore, "second accept must not move funds again")
}

func TestAcceptOfferFromAnotherLoan(t *testing.T) {
	env := newTestEnv()
	loanA := env.seedLoan("borrower-1", "300")
	loanB := env.seedLoan("borrower-2", "200")
	env.seedWallet("lender-a", "500")

	offerOnB, err := env.escrow.CreateOffer(context.Background(), models.CreateOfferRequest{
		LoanID:   loanB.ID,
		LenderID: "lender-a",
		Amount:   decimal.RequireFromString("200"),
		Rate:     decimal.RequireFromString("4.00"),
	})
	require.NoError(t, err)

	_, err = env.escrow.AcceptOffer(context.Background(), models.AcceptOfferRequest{
		LoanID:  loanA.ID,
		OfferID: offerOnB.Data.ID,
		ActorID: "borrower-1",
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.LoanStatusRequested, env.store.loans[loanA.ID].Status)
}

func TestRejectOfferReleasesReservation(t *testing.T) {
	env := newTestEnv()
	loan := env.seedLoan("borrower-1", "300")
	wallet := env.seedWallet("lender-a", "500")

	offer, err := env.escrow.CreateOffer(context.Background(), models.CreateOfferRequest{
		LoanID:   loan.ID,
		LenderID: "lender-a",
		Amount:   decimal.RequireFromString("300"),
		Rate:     decimal.RequireFromString("4.00"),
	})
	require.NoError(t, err)

	resp, err := env.escrow.RejectOffer(context.Background(), models.RejectOfferRequest{
		OfferID: offer.Data.ID,
		ActorID: "borrower-1",
		Reason:  "rate too high",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.OfferStatusRejected), resp.Data.Status)

	assert.True(t, env.store.wallets[wallet.ID].Balance.Equal(decimal.RequireFromString("500")))
	assert.True(t, env.store.ledgerSum(wallet.ID).IsZero())
	assert.Equal(t, domain.LoanStatusRequested, env.store.loans[loan.ID].Status, "loan stays open after a reject")

	last := env.sinks.notifications[len(env.sinks.notifications)-1]
	assert.Equal(t, domain.EventOfferRejected, last.EventType)
	assert.Contains(t, last.Body, "rate too high")
}

func TestRejectOfferOnlyBorrower(t *testing.T) {
	env := newTestEnv()
	loan := env.seedLoan("borrower-1", "300")
	env.seedWallet("lender-a", "500")

	offer, err := env.escrow.CreateOffer(context.Background(), models.CreateOfferRequest{
		LoanID:   loan.ID,
		LenderID: "lender-a",
		Amount:   decimal.RequireFromString("300"),
		Rate:     decimal.RequireFromString("4.00"),
	})
	require.NoError(t, err)

	_, err = env.escrow.RejectOffer(context.Background(), models.RejectOfferRequest{
		OfferID: offer.Data.ID,
		ActorID: "lender-a",
	})
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, domain.OfferStatusPending, env.store.offers[offer.Data.ID].Status)
}

func TestCancelOfferRoundTrip(t *testing.T) {
	env := newTestEnv()
	loan := env.seedLoan("borrower-1", "300")
	wallet := env.seedWallet("lender-a", "500")

	offer, err := env.escrow.CreateOffer(context.Background(), models.CreateOfferRequest{
		LoanID:   loan.ID,
		LenderID: "lender-a",
		Amount:   decimal.RequireFromString("300"),
		Rate:     decimal.RequireFromString("4.00"),
	})
	require.NoError(t, err)

	_, err = env.escrow.CancelOffer(context.Background(), models.CancelOfferRequest{
		OfferID: offer.Data.ID,
		ActorID: "lender-a",
	})
	require.NoError(t, err)

	assert.True(t, env.store.wallets[wallet.ID].Balance.Equal(decimal.RequireFromString("500")))
	entries := env.store.entriesFor(wallet.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.LedgerEntryReservation, entries[0].Kind)
	assert.Equal(t, domain.LedgerEntryRelease, entries[1].Kind)
	assert.Equal(t, domain.OfferStatusCancelled, env.store.offers[offer.Data.ID].Status)

	// Terminal offers cannot be closed again.
	_, err = env.escrow.CancelOffer(context.Background(), models.CancelOfferRequest{
		OfferID: offer.Data.ID,
		ActorID: "lender-a",
	})
	require.ErrorIs(t, err, domain.ErrOfferNotAvailable)
	assert.Len(t, env.store.entriesFor(wallet.ID), 2, "no double release")
}

func TestCancelOfferOnlyLender(t *testing.T) {
	env := newTestEnv()
	loan := env.seedLoan("borrower-1", "300")
	env.seedWallet("lender-a", "500")

	offer, err := env.escrow.CreateOffer(context.Background(), models.CreateOfferRequest{
		LoanID:   loan.ID,
		LenderID: "lender-a",
		Amount:   decimal.RequireFromString("300"),
		Rate:     decimal.RequireFromString("4.00"),
	})
	require.NoError(t, err)

	_, err = env.escrow.CancelOffer(context.Background(), models.CancelOfferRequest{
		OfferID: offer.Data.ID,
		ActorID: "borrower-1",
	})
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCancelRequestReleasesAllPendingOffers(t *testing.T) {
	env := newTestEnv()
	loan := env.seedLoan("borrower-1", "300")
	walletA := env.seedWallet("lender-a", "500")
	walletB := env.seedWallet("lender-b", "400")

	for _, lender := range []string{"lender-a", "lender-b"} {
		_, err := env.escrow.CreateOffer(context.Background(), models.CreateOfferRequest{
			LoanID:   loan.ID,
			LenderID: lender,
			Amount:   decimal.RequireFromString("300"),
			Rate:     decimal.RequireFromString("5.00"),
		})
		require.NoError(t, err)
	}

	resp, err := env.escrow.CancelRequest(context.Background(), models.CancelLoanRequest{
		LoanID:  loan.ID,
		ActorID: "borrower-1",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Data)
	assert.Equal(t, string(domain.LoanStatusCancelled), resp.Data.Loan.Status)
	assert.Len(t, resp.Data.CancelledOffers, 2)

	assert.True(t, env.store.wallets[walletA.ID].Balance.Equal(decimal.RequireFromString("500")))
	assert.True(t, env.store.wallets[walletB.ID].Balance.Equal(decimal.RequireFromString("400")))
	for _, offer := range env.store.offers {
		assert.Equal(t, domain.OfferStatusCancelled, offer.Status)
	}
}

func TestCancelRequestAfterActivation(t *testing.T) {
	env := newTestEnv()
	loan := env.seedLoan("borrower-1", "300")
	env.seedWallet("lender-a", "500")

	offer, err := env.escrow.CreateOffer(context.Background(), models.CreateOfferRequest{
		LoanID:   loan.ID,
		LenderID: "lender-a",
		Amount:   decimal.RequireFromString("300"),
		Rate:     decimal.RequireFromString("4.00"),
	})
	require.NoError(t, err)

	_, err = env.escrow.AcceptOffer(context.Background(), models.AcceptOfferRequest{
		LoanID:  loan.ID,
		OfferID: offer.Data.ID,
		ActorID: "borrower-1",
	})
	require.NoError(t, err)

	_, err = env.escrow.CancelRequest(context.Background(), models.CancelLoanRequest{
		LoanID:  loan.ID,
		ActorID: "borrower-1",
	})
	require.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, domain.LoanStatusActive, env.store.loans[loan.ID].Status)
}

func TestIdempotencyKeyReplay(t *testing.T) {
	env := newTestEnv()
	loan := env.seedLoan("borrower-1", "300")
	wallet := env.seedWallet("lender-a", "500")

	req := models.CreateOfferRequest{
		LoanID:         loan.ID,
		LenderID:       "lender-a",
		Amount:         decimal.RequireFromString("300"),
		Rate:           decimal.RequireFromString("4.00"),
		IdempotencyKey: "req-42",
	}
	_, err := env.escrow.CreateOffer(context.Background(), req)
	require.NoError(t, err)

	_, err = env.escrow.CreateOffer(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrDuplicateRequest)

	assert.Len(t, env.store.offers, 1)
	assert.True(t, env.store.wallets[wallet.ID].Balance.Equal(decimal.RequireFromString("200")),
		"replay must not reserve twice")
}

func TestSinkFailureDoesNotFailOperation(t *testing.T) {
	env := newTestEnv()
	env.sinks.failing = true
	loan := env.seedLoan("borrower-1", "300")
	wallet := env.seedWallet("lender-a", "500")

	resp, err := env.escrow.CreateOffer(context.Background(), models.CreateOfferRequest{
		LoanID:   loan.ID,
		LenderID: "lender-a",
		Amount:   decimal.RequireFromString("300"),
		Rate:     decimal.RequireFromString("4.00"),
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.True(t, env.store.wallets[wallet.ID].Balance.Equal(decimal.RequireFromString("200")))
}
