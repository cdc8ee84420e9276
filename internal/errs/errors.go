package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
    ErrNotFound = errors.New("not_found")
    ErrInvalid  = errors.New("invalid")
    // ErrInvalidAmount is returned when a monetary amount is zero or negative.
    ErrInvalidAmount = errors.New("invalid_amount")
    // ErrInvalidRange is returned when a report filter has start > end.
    ErrInvalidRange = errors.New("invalid_range")
    // ErrDuplicateKey indicates a unique-constraint collision (reference code, username).
    ErrDuplicateKey = errors.New("duplicate_key")
    // ErrStoreUnavailable marks a transient storage failure; callers may retry.
    ErrStoreUnavailable = errors.New("store_unavailable")
    // ErrGuestNoBalance indicates a balance operation was attempted on a guest bill.
    ErrGuestNoBalance = errors.New("guest_has_no_balance")
)
