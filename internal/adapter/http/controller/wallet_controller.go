package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/lajan-app/escrow-engine/internal/adapter/http/models"
	"github.com/lajan-app/escrow-engine/internal/commons"
)

type WalletService interface {
	Deposit(ctx context.Context, req models.DepositRequest) (commons.Response[models.WalletResponse], error)
	GetBalance(ctx context.Context, userID string) (commons.Response[models.WalletResponse], error)
	ListLedgerEntries(ctx context.Context, userID string, limit int) (commons.Response[[]models.LedgerEntryResponse], error)
}

type WalletController struct {
	wallets WalletService
}

func NewWalletController(wallets WalletService) *WalletController {
	return &WalletController{wallets: wallets}
}

func (c *WalletController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	wrap := func(handler http.HandlerFunc) http.Handler {
		if authMiddleware != nil {
			return authMiddleware(handler)
		}
		return handler
	}

	mux.Handle("POST /wallets/{userId}/deposit", wrap(c.deposit))
	mux.Handle("GET /wallets/{userId}", wrap(c.balance))
	mux.Handle("GET /wallets/{userId}/transactions", wrap(c.transactions))
}

func (c *WalletController) deposit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.WalletResponse]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	req.UserID = r.PathValue("userId")
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	logRequest(r, req)

	response, err := c.wallets.Deposit(r.Context(), req)
	if err != nil {
		logError(r, err, messageFields(response.Message))
		status := statusForError(err)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *WalletController) balance(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	response, err := c.wallets.GetBalance(r.Context(), r.PathValue("userId"))
	if err != nil {
		logError(r, err, messageFields(response.Message))
		status := statusForError(err)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *WalletController) transactions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	response, err := c.wallets.ListLedgerEntries(r.Context(), r.PathValue("userId"), limit)
	if err != nil {
		logError(r, err, messageFields(response.Message))
		status := statusForError(err)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}
