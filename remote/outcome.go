package remote

// Outcome is the terminal result code of one protected call, recorded in
// audit records and health counters.
type Outcome string

const (
	// OutcomeSuccess means the call completed normally.
	OutcomeSuccess Outcome = "success"
	// OutcomeTransient means the call failed with a retryable error after
	// exhausting its attempts.
	OutcomeTransient Outcome = "transient_error"
	// OutcomeRateLimit means the remote service throttled the call.
	OutcomeRateLimit Outcome = "rate_limit"
	// OutcomeHardBlock means the remote service rejected the caller outright.
	OutcomeHardBlock Outcome = "hard_block"
	// OutcomeAuth means credentials were rejected.
	OutcomeAuth Outcome = "auth_error"
	// OutcomeCircuitOpen means the breaker short-circuited the call before
	// it reached the remote service.
	OutcomeCircuitOpen Outcome = "circuit_open"
)

// OutcomeOf maps an error to its outcome code. A nil error is a success;
// unclassified errors map to OutcomeTransient.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	kind, ok := KindOf(err)
	if !ok {
		return OutcomeTransient
	}
	switch kind {
	case KindRateLimit:
		return OutcomeRateLimit
	case KindHardBlock:
		return OutcomeHardBlock
	case KindAuth:
		return OutcomeAuth
	default:
		return OutcomeTransient
	}
}

// Failed reports whether the outcome represents a failed call.
func (o Outcome) Failed() bool {
	return o != OutcomeSuccess
}
