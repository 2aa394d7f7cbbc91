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

type LoanService interface {
	CreateLoanRequest(ctx context.Context, req models.CreateLoanRequest) (commons.Response[models.LoanResponse], error)
	GetLoan(ctx context.Context, loanID string) (commons.Response[models.LoanResponse], error)
	ListOpenLoans(ctx context.Context, limit int) (commons.Response[[]models.LoanResponse], error)
	ListOffersByLoan(ctx context.Context, loanID string) (commons.Response[[]models.OfferResponse], error)
}

type LoanEscrowService interface {
	AcceptOffer(ctx context.Context, req models.AcceptOfferRequest) (commons.Response[models.AcceptOfferResponse], error)
	CancelRequest(ctx context.Context, req models.CancelLoanRequest) (commons.Response[models.CancelLoanResponse], error)
}

type LoanController struct {
	loans  LoanService
	escrow LoanEscrowService
}

func NewLoanController(loans LoanService, escrow LoanEscrowService) *LoanController {
	return &LoanController{loans: loans, escrow: escrow}
}

func (c *LoanController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	wrap := func(handler http.HandlerFunc) http.Handler {
		if authMiddleware != nil {
			return authMiddleware(handler)
		}
		return handler
	}

	mux.Handle("POST /loans", wrap(c.create))
	mux.Handle("GET /loans", wrap(c.list))
	mux.Handle("GET /loans/{id}", wrap(c.get))
	mux.Handle("GET /loans/{id}/offers", wrap(c.listOffers))
	mux.Handle("POST /loans/{id}/cancel", wrap(c.cancel))
	mux.Handle("POST /loans/{id}/offers/{offerId}/accept", wrap(c.acceptOffer))
}

func (c *LoanController) create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.LoanResponse]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	response, err := c.loans.CreateLoanRequest(r.Context(), req)
	if err != nil {
		logError(r, err, messageFields(response.Message))
		status := statusForError(err)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	writeJSON(w, http.StatusCreated, response)
	logResponse(r, http.StatusCreated, response, start)
}

func (c *LoanController) list(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	response, err := c.loans.ListOpenLoans(r.Context(), limit)
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

func (c *LoanController) get(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	response, err := c.loans.GetLoan(r.Context(), r.PathValue("id"))
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

func (c *LoanController) listOffers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	response, err := c.loans.ListOffersByLoan(r.Context(), r.PathValue("id"))
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

func (c *LoanController) cancel(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.CancelLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.CancelLoanResponse]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	req.LoanID = r.PathValue("id")
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	logRequest(r, req)

	response, err := c.escrow.CancelRequest(r.Context(), req)
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

func (c *LoanController) acceptOffer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.AcceptOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.AcceptOfferResponse]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	req.LoanID = r.PathValue("id")
	req.OfferID = r.PathValue("offerId")
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	logRequest(r, req)

	response, err := c.escrow.AcceptOffer(r.Context(), req)
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
