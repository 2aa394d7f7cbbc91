package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lajan-app/escrow-engine/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// statusForError maps the domain error taxonomy onto HTTP status codes. Every
// error not in the taxonomy is a persistence or transport failure and comes
// back as a 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrDuplicateOffer),
		errors.Is(err, domain.ErrDuplicateRequest):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrLoanNotAvailable),
		errors.Is(err, domain.ErrOfferNotAvailable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
