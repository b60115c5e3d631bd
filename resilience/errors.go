package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker short-circuits a
	// call without invoking the operation.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrRetriesExhausted is returned when all retry attempts have failed.
	// The last attempt's error is wrapped alongside it.
	ErrRetriesExhausted = errors.New("resilience: retry attempts exhausted")

	// ErrTokensExceedCapacity is returned when a caller requests more
	// tokens than the bucket can ever hold.
	ErrTokensExceedCapacity = errors.New("resilience: requested tokens exceed bucket capacity")

	// ErrBulkheadFull is returned when the bulkhead is at capacity.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")
)
