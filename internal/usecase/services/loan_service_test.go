package services_test

import (
	"context"
	"testing"

	"github.com/lajan-app/escrow-engine/internal/adapter/http/models"
	"github.com/lajan-app/escrow-engine/internal/domain"
	"github.com/lajan-app/escrow-engine/internal/usecase/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoanService(env *testEnv) *services.LoanService {
	return services.NewLoanService(
		nil,
		&memLoanRepo{store: env.store},
		&memOfferRepo{store: env.store},
	)
}

func TestCreateLoanRequest(t *testing.T) {
	env := newTestEnv()
	svc := newLoanService(env)

	resp, err := svc.CreateLoanRequest(context.Background(), models.CreateLoanRequest{
		BorrowerID:     "borrower-1",
		Amount:         decimal.RequireFromString("250"),
		Rate:           decimal.RequireFromString("7.50"),
		DurationMonths: 6,
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Equal(t, string(domain.LoanStatusRequested), resp.Data.Status)
	assert.Equal(t, "250.00", resp.Data.Amount)
	assert.Empty(t, resp.Data.LenderID)

	stored := env.store.loans[resp.Data.ID]
	assert.Equal(t, "borrower-1", stored.BorrowerID)
	assert.Nil(t, stored.LenderID)
}

func TestCreateLoanRequestValidation(t *testing.T) {
	env := newTestEnv()
	svc := newLoanService(env)

	_, err := svc.CreateLoanRequest(context.Background(), models.CreateLoanRequest{
		BorrowerID:     "",
		Amount:         decimal.Zero,
		Rate:           decimal.RequireFromString("-1"),
		DurationMonths: 0,
	})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, env.store.loans)
}

func TestListOpenLoansSkipsClosed(t *testing.T) {
	env := newTestEnv()
	svc := newLoanService(env)

	open := env.seedLoan("borrower-1", "100")
	closed := env.seedLoan("borrower-2", "200")
	closed.Status = domain.LoanStatusCancelled
	env.store.loans[closed.ID] = closed

	resp, err := svc.ListOpenLoans(context.Background(), 50)
	require.NoError(t, err)
	require.NotNil(t, resp.Data)
	loans := *resp.Data
	require.Len(t, loans, 1)
	assert.Equal(t, open.ID, loans[0].ID)
}

func TestGetLoanNotFound(t *testing.T) {
	env := newTestEnv()
	svc := newLoanService(env)

	_, err := svc.GetLoan(context.Background(), "loan-missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListOffersByLoan(t *testing.T) {
	env := newTestEnv()
	svc := newLoanService(env)
	loan := env.seedLoan("borrower-1", "300")
	env.seedWallet("lender-a", "500")
	env.seedWallet("lender-b", "500")

	for _, lender := range []string{"lender-a", "lender-b"} {
		_, err := env.escrow.CreateOffer(context.Background(), models.CreateOfferRequest{
			LoanID:   loan.ID,
			LenderID: lender,
			Amount:   decimal.RequireFromString("300"),
			Rate:     decimal.RequireFromString("5.00"),
		})
		require.NoError(t, err)
	}

	resp, err := svc.ListOffersByLoan(context.Background(), loan.ID)
	require.NoError(t, err)
	require.NotNil(t, resp.Data)
	assert.Len(t, *resp.Data, 2)

	_, err = svc.ListOffersByLoan(context.Background(), "loan-missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
