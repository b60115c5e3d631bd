package quota

import "errors"

var (
	// ErrQuotaExhausted indicates every credential has spent its monthly
	// allowance.
	ErrQuotaExhausted = errors.New("quota: all credentials exhausted")

	// ErrUnknownCredential indicates a label with no tracked state.
	ErrUnknownCredential = errors.New("quota: unknown credential")
)
