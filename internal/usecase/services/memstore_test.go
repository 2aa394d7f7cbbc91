package services_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/lajan-app/escrow-engine/internal/adapter/repository/repo_interfaces"
	"github.com/lajan-app/escrow-engine/internal/domain"
	"github.com/lajan-app/escrow-engine/internal/usecase/services"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory stand-in for the four relations plus the
// idempotency keys. The fake unit of work snapshots it before each operation
// and restores it on error, mirroring transaction rollback.
type memStore struct {
	wallets map[string]domain.Wallet
	entries []domain.LedgerEntry
	loans   map[string]domain.LoanRequest
	offers  map[string]domain.Offer
	keys    map[string]string
	seq     int
}

func newMemStore() *memStore {
	return &memStore{
		wallets: make(map[string]domain.Wallet),
		loans:   make(map[string]domain.LoanRequest),
		offers:  make(map[string]domain.Offer),
		keys:    make(map[string]string),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) snapshot() *memStore {
	snap := newMemStore()
	snap.seq = s.seq
	for k, v := range s.wallets {
		snap.wallets[k] = v
	}
	for k, v := range s.loans {
		snap.loans[k] = v
	}
	for k, v := range s.offers {
		snap.offers[k] = v
	}
	for k, v := range s.keys {
		snap.keys[k] = v
	}
	snap.entries = append([]domain.LedgerEntry(nil), s.entries...)
	return snap
}

func (s *memStore) restore(snap *memStore) {
	s.wallets = snap.wallets
	s.loans = snap.loans
	s.offers = snap.offers
	s.keys = snap.keys
	s.entries = snap.entries
	s.seq = snap.seq
}

// entriesFor returns the ledger entries of the wallet in append order.
func (s *memStore) entriesFor(walletID string) []domain.LedgerEntry {
	var out []domain.LedgerEntry
	for _, entry := range s.entries {
		if entry.WalletID == walletID {
			out = append(out, entry)
		}
	}
	return out
}

// ledgerSum recomputes the wallet balance from its log.
func (s *memStore) ledgerSum(walletID string) decimal.Decimal {
	sum := decimal.Zero
	for _, entry := range s.entriesFor(walletID) {
		sum = sum.Add(entry.Signed())
	}
	return sum
}

type memUnitOfWork struct {
	store *memStore
}

func (u *memUnitOfWork) RunInTx(ctx context.Context, fn func(q repo_interfaces.Querier) error) error {
	snap := u.store.snapshot()
	if err := fn(nil); err != nil {
		u.store.restore(snap)
		return err
	}
	return nil
}

type memWalletRepo struct {
	store *memStore
}

func (r *memWalletRepo) Create(ctx context.Context, q repo_interfaces.Querier, userID string, currency string) (domain.Wallet, error) {
	if wallet, err := r.GetByUser(ctx, q, userID, currency); err == nil {
		return wallet, nil
	}
	wallet := domain.Wallet{
		ID:       r.store.nextID("wallet"),
		UserID:   userID,
		Currency: currency,
		Balance:  decimal.Zero,
	}
	r.store.wallets[wallet.ID] = wallet
	return wallet, nil
}

func (r *memWalletRepo) GetByUser(ctx context.Context, q repo_interfaces.Querier, userID string, currency string) (domain.Wallet, error) {
	for _, wallet := range r.store.wallets {
		if wallet.UserID == userID && wallet.Currency == currency {
			return wallet, nil
		}
	}
	return domain.Wallet{}, domain.ErrNotFound
}

func (r *memWalletRepo) GetByUserForUpdate(ctx context.Context, q repo_interfaces.Querier, userID string, currency string) (domain.Wallet, error) {
	return r.GetByUser(ctx, q, userID, currency)
}

func (r *memWalletRepo) Debit(ctx context.Context, q repo_interfaces.Querier, walletID string, amount decimal.Decimal) error {
	wallet, ok := r.store.wallets[walletID]
	if !ok {
		return domain.ErrNotFound
	}
	if wallet.Balance.LessThan(amount) {
		return domain.ErrInsufficientFunds
	}
	wallet.Balance = wallet.Balance.Sub(amount)
	r.store.wallets[walletID] = wallet
	return nil
}

func (r *memWalletRepo) Credit(ctx context.Context, q repo_interfaces.Querier, walletID string, amount decimal.Decimal) error {
	wallet, ok := r.store.wallets[walletID]
	if !ok {
		return domain.ErrNotFound
	}
	wallet.Balance = wallet.Balance.Add(amount)
	r.store.wallets[walletID] = wallet
	return nil
}

type memLedgerRepo struct {
	store *memStore
}

func (r *memLedgerRepo) Append(ctx context.Context, q repo_interfaces.Querier, entry domain.LedgerEntry) (domain.LedgerEntry, error) {
	if entry.ID == "" {
		entry.ID = r.store.nextID("entry")
	}
	r.store.entries = append(r.store.entries, entry)
	return entry, nil
}

func (r *memLedgerRepo) ListByWallet(ctx context.Context, q repo_interfaces.Querier, walletID string, limit int) ([]domain.LedgerEntry, error) {
	return r.store.entriesFor(walletID), nil
}

type memLoanRepo struct {
	store *memStore
}

func (r *memLoanRepo) Create(ctx context.Context, q repo_interfaces.Querier, loan domain.LoanRequest) (domain.LoanRequest, error) {
	loan.ID = r.store.nextID("loan")
	r.store.loans[loan.ID] = loan
	return loan, nil
}

func (r *memLoanRepo) Get(ctx context.Context, q repo_interfaces.Querier, id string) (domain.LoanRequest, error) {
	loan, ok := r.store.loans[id]
	if !ok {
		return domain.LoanRequest{}, domain.ErrNotFound
	}
	return loan, nil
}

func (r *memLoanRepo) GetForUpdate(ctx context.Context, q repo_interfaces.Querier, id string) (domain.LoanRequest, error) {
	return r.Get(ctx, q, id)
}

func (r *memLoanRepo) GetForShare(ctx context.Context, q repo_interfaces.Querier, id string) (domain.LoanRequest, error) {
	return r.Get(ctx, q, id)
}

func (r *memLoanRepo) UpdateStatus(ctx context.Context, q repo_interfaces.Querier, id string, status domain.LoanStatus, lenderID *string) error {
	loan, ok := r.store.loans[id]
	if !ok {
		return domain.ErrNotFound
	}
	loan.Status = status
	if lenderID != nil {
		value := *lenderID
		loan.LenderID = &value
	}
	r.store.loans[id] = loan
	return nil
}

func (r *memLoanRepo) ListOpen(ctx context.Context, q repo_interfaces.Querier, limit int) ([]domain.LoanRequest, error) {
	var out []domain.LoanRequest
	for _, loan := range r.store.loans {
		if loan.Status == domain.LoanStatusRequested {
			out = append(out, loan)
		}
	}
	return out, nil
}

type memOfferRepo struct {
	store *memStore
}

func (r *memOfferRepo) Create(ctx context.Context, q repo_interfaces.Querier, offer domain.Offer) (domain.Offer, error) {
	for _, existing := range r.store.offers {
		if existing.LoanID == offer.LoanID && existing.LenderID == offer.LenderID {
			return domain.Offer{}, domain.ErrDuplicateOffer
		}
	}
	offer.ID = r.store.nextID("offer")
	r.store.offers[offer.ID] = offer
	return offer, nil
}

func (r *memOfferRepo) Get(ctx context.Context, q repo_interfaces.Querier, id string) (domain.Offer, error) {
	offer, ok := r.store.offers[id]
	if !ok {
		return domain.Offer{}, domain.ErrNotFound
	}
	return offer, nil
}

func (r *memOfferRepo) GetForUpdate(ctx context.Context, q repo_interfaces.Querier, id string) (domain.Offer, error) {
	return r.Get(ctx, q, id)
}

func (r *memOfferRepo) ListPendingByLoanForUpdate(ctx context.Context, q repo_interfaces.Querier, loanID string) ([]domain.Offer, error) {
	var out []domain.Offer
	// Walk in creation order so refund loops are deterministic.
	for i := 1; i <= r.store.seq; i++ {
		offer, ok := r.store.offers[fmt.Sprintf("offer-%d", i)]
		if ok && offer.LoanID == loanID && offer.Status == domain.OfferStatusPending {
			out = append(out, offer)
		}
	}
	return out, nil
}

func (r *memOfferRepo) ListByLoan(ctx context.Context, q repo_interfaces.Querier, loanID string) ([]domain.Offer, error) {
	var out []domain.Offer
	for i := 1; i <= r.store.seq; i++ {
		offer, ok := r.store.offers[fmt.Sprintf("offer-%d", i)]
		if ok && offer.LoanID == loanID {
			out = append(out, offer)
		}
	}
	return out, nil
}

func (r *memOfferRepo) ExistsForLender(ctx context.Context, q repo_interfaces.Querier, loanID string, lenderID string) (bool, error) {
	for _, offer := range r.store.offers {
		if offer.LoanID == loanID && offer.LenderID == lenderID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memOfferRepo) UpdateStatus(ctx context.Context, q repo_interfaces.Querier, id string, status domain.OfferStatus) error {
	offer, ok := r.store.offers[id]
	if !ok {
		return domain.ErrNotFound
	}
	offer.Status = status
	r.store.offers[id] = offer
	return nil
}

type memIdempotencyRepo struct {
	store *memStore
}

func (r *memIdempotencyRepo) Claim(ctx context.Context, q repo_interfaces.Querier, key string, operation string) error {
	if _, ok := r.store.keys[key]; ok {
		return domain.ErrDuplicateRequest
	}
	r.store.keys[key] = operation
	return nil
}

// recordingSinks captures post-commit events; failing toggles delivery
// errors so tests can check they are swallowed.
type recordingSinks struct {
	notifications []domain.Notification
	activities    []domain.ActivityEntry
	failing       bool
}

func (s *recordingSinks) Notify(ctx context.Context, notification domain.Notification) error {
	if s.failing {
		return errors.New("sink unavailable")
	}
	s.notifications = append(s.notifications, notification)
	return nil
}

func (s *recordingSinks) Log(ctx context.Context, entry domain.ActivityEntry) error {
	if s.failing {
		return errors.New("sink unavailable")
	}
	s.activities = append(s.activities, entry)
	return nil
}

const testCurrency = "HTG"

type testEnv struct {
	store  *memStore
	sinks  *recordingSinks
	escrow *services.EscrowService
	ledger *services.WalletLedger
}

func newTestEnv() *testEnv {
	store := newMemStore()
	sinks := &recordingSinks{}
	walletRepo := &memWalletRepo{store: store}
	ledgerRepo := &memLedgerRepo{store: store}
	ledger := services.NewWalletLedger(walletRepo, ledgerRepo)

	escrow := services.NewEscrowService(
		&memUnitOfWork{store: store},
		&memLoanRepo{store: store},
		&memOfferRepo{store: store},
		walletRepo,
		&memIdempotencyRepo{store: store},
		ledger,
		sinks,
		sinks,
		testCurrency,
	)

	return &testEnv{
		store:  store,
		sinks:  sinks,
		escrow: escrow,
		ledger: ledger,
	}
}

// seedWallet creates a funded wallet outside the ledger, as test fixture
// state; the ledger invariants in assertions are therefore relative to the
// seeded starting point.
func (e *testEnv) seedWallet(userID string, balance string) domain.Wallet {
	wallet := domain.Wallet{
		ID:       e.store.nextID("wallet"),
		UserID:   userID,
		Currency: testCurrency,
		Balance:  decimal.RequireFromString(balance),
	}
	e.store.wallets[wallet.ID] = wallet
	return wallet
}

func (e *testEnv) seedLoan(borrowerID string, amount string) domain.LoanRequest {
	loan := domain.LoanRequest{
		ID:             e.store.nextID("loan"),
		BorrowerID:     borrowerID,
		Amount:         decimal.RequireFromString(amount),
		Rate:           decimal.RequireFromString("5.00"),
		DurationMonths: 12,
		Status:         domain.LoanStatusRequested,
	}
	e.store.loans[loan.ID] = loan
	return loan
}
