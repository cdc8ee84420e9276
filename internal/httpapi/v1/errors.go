package v1

import (
    "errors"
    "net/http"

    "github.com/gatepos/canteen/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
    Error string `json:"error"`
    Code  string `json:"code,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
    toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "invalid") }
func notFound(w http.ResponseWriter)               { writeErr(w, http.StatusNotFound, "not_found", "not_found") }
func conflict(w http.ResponseWriter, msg string)   { writeErr(w, http.StatusConflict, msg, "duplicate_key") }
func unprocessable(w http.ResponseWriter, msg, code string) {
    writeErr(w, http.StatusUnprocessableEntity, msg, code)
}

// respondErr maps domain errors onto HTTP statuses and codes.
func respondErr(w http.ResponseWriter, err error) {
    switch {
    case errors.Is(err, errs.ErrNotFound):
        notFound(w)
    case errors.Is(err, errs.ErrInvalidAmount):
        unprocessable(w, err.Error(), "invalid_amount")
    case errors.Is(err, errs.ErrInvalidRange):
        unprocessable(w, err.Error(), "invalid_range")
    case errors.Is(err, errs.ErrGuestNoBalance):
        unprocessable(w, err.Error(), "guest_no_balance")
    case errors.Is(err, errs.ErrDuplicateKey):
        conflict(w, err.Error())
    case errors.Is(err, errs.ErrStoreUnavailable):
        writeErr(w, http.StatusServiceUnavailable, err.Error(), "store_unavailable")
    case errors.Is(err, errs.ErrInvalid):
        badRequest(w, err.Error())
    default:
        writeErr(w, http.StatusInternalServerError, "internal_error", "internal_error")
    }
}

// errCode is respondErr's code mapping, used for per-line batch results.
func errCode(err error) string {
    switch {
    case errors.Is(err, errs.ErrNotFound):
        return "not_found"
    case errors.Is(err, errs.ErrInvalidAmount):
        return "invalid_amount"
    case errors.Is(err, errs.ErrInvalidRange):
        return "invalid_range"
    case errors.Is(err, errs.ErrGuestNoBalance):
        return "guest_no_balance"
    case errors.Is(err, errs.ErrDuplicateKey):
        return "duplicate_key"
    case errors.Is(err, errs.ErrStoreUnavailable):
        return "store_unavailable"
    case errors.Is(err, errs.ErrInvalid):
        return "invalid"
    default:
        return "internal_error"
    }
}
