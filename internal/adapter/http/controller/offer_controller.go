package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/lajan-app/escrow-engine/internal/adapter/http/models"
	"github.com/lajan-app/escrow-engine/internal/commons"
)

type OfferEscrowService interface {
	CreateOffer(ctx context.Context, req models.CreateOfferRequest) (commons.Response[models.OfferResponse], error)
	RejectOffer(ctx context.Context, req models.RejectOfferRequest) (commons.Response[models.OfferResponse], error)
	CancelOffer(ctx context.Context, req models.CancelOfferRequest) (commons.Response[models.OfferResponse], error)
}

type OfferController struct {
	escrow OfferEscrowService
}

func NewOfferController(escrow OfferEscrowService) *OfferController {
	return &OfferController{escrow: escrow}
}

func (c *OfferController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	wrap := func(handler http.HandlerFunc) http.Handler {
		if authMiddleware != nil {
			return authMiddleware(handler)
		}
		return handler
	}

	mux.Handle("POST /offers", wrap(c.create))
	mux.Handle("POST /offers/{id}/reject", wrap(c.reject))
	mux.Handle("POST /offers/{id}/cancel", wrap(c.cancel))
}

func (c *OfferController) create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.CreateOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.OfferResponse]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	logRequest(r, req)

	response, err := c.escrow.CreateOffer(r.Context(), req)
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

func (c *OfferController) reject(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.RejectOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.OfferResponse]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	req.OfferID = r.PathValue("id")
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	logRequest(r, req)

	response, err := c.escrow.RejectOffer(r.Context(), req)
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

func (c *OfferController) cancel(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.CancelOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.OfferResponse]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	req.OfferID = r.PathValue("id")
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	logRequest(r, req)

	response, err := c.escrow.CancelOffer(r.Context(), req)
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
