package billing

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a shop or device does not exist.
	ErrNotFound = errors.New("billing: not found")
	// ErrInvalidArgument is returned for malformed ids or dates.
	ErrInvalidArgument = errors.New("billing: invalid argument")
	// ErrCycleDetected is returned when the shop hierarchy is corrupt.
	ErrCycleDetected = errors.New("billing: cycle detected")
	// ErrStoreUnavailable wraps backend I/O failures.
	ErrStoreUnavailable = errors.New("billing: store unavailable")
	// ErrPoolExhausted is returned when no store connection frees up in time.
	ErrPoolExhausted = errors.New("billing: pool exhausted")
	// ErrInvalidGranularity is returned when granularity is unsupported.
	ErrInvalidGranularity = errors.New("billing: invalid granularity")
	// ErrInvalidPeriodStart is returned when a period start is zero.
	ErrInvalidPeriodStart = errors.New("billing: invalid period start")
	// ErrNegativeCount is returned when a bill carries a negative count.
	ErrNegativeCount = errors.New("billing: negative transaction count")
)

// Error codes used as metric labels and transport hints.
const (
	CodeOK               = "ok"
	CodeNotFound         = "not_found"
	CodeInvalidArgument  = "invalid_argument"
	CodeCycleDetected    = "cycle_detected"
	CodeStoreUnavailable = "store_unavailable"
	CodePoolExhausted    = "pool_exhausted"
	CodeCanceled         = "canceled"
	CodeInternal         = "internal"
)

// Code classifies err into one of the Code* labels.
func Code(err error) string {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrInvalidGranularity), errors.Is(err, ErrInvalidPeriodStart):
		return CodeInvalidArgument
	case errors.Is(err, ErrCycleDetected):
		return CodeCycleDetected
	case errors.Is(err, ErrPoolExhausted):
		return CodePoolExhausted
	case errors.Is(err, ErrStoreUnavailable):
		return CodeStoreUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	default:
		return CodeInternal
	}
}
