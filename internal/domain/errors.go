package domain

import "errors"

var ErrNotFound = errors.New("record not found")
var ErrUnauthorized = errors.New("actor is not allowed to perform this operation")
var ErrInvalidState = errors.New("entity is not in the required status")
var ErrInsufficientFunds = errors.New("insufficient wallet balance")
var ErrDuplicateOffer = errors.New("lender already has an offer on this loan")
var ErrDuplicateRequest = errors.New("idempotency key already used")
var ErrLoanNotAvailable = errors.New("loan request is not open for offers")
var ErrOfferNotAvailable = errors.New("offer is no longer pending")
var ErrValidation = errors.New("validation failed")
