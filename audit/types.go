package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/callguard/callguard/remote"
)

// EventType categorizes audit records.
type EventType string

const (
	// EventCall records one attempted protected call.
	EventCall EventType = "call"
	// EventRateLimit records a rate-limit response from the remote service.
	EventRateLimit EventType = "rate_limit"
	// EventBreakerTransition records a circuit breaker state change.
	EventBreakerTransition EventType = "breaker_transition"
	// EventError records a non-call error worth a durable trace.
	EventError EventType = "error"
)

// Record is one immutable audit entry. Once appended it is never mutated
// or deleted.
type Record struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	EventType    EventType      `json:"event_type"`
	Target       string         `json:"target,omitempty"`
	Outcome      remote.Outcome `json:"outcome,omitempty"`
	LatencyMS    float64        `json:"latency_ms,omitempty"`
	Attempt      int            `json:"attempt,omitempty"`
	CircuitState string         `json:"circuit_state,omitempty"`
	Message      string         `json:"message,omitempty"`
}

// NewCall builds a call record.
func NewCall(target string, outcome remote.Outcome, latency time.Duration, attempt int, circuitState string) Record {
	r := newRecord(EventCall)
	r.Target = target
	r.Outcome = outcome
	r.LatencyMS = float64(latency.Microseconds()) / 1000
	r.Attempt = attempt
	r.CircuitState = circuitState
	return r
}

// NewRateLimit builds a rate-limit record.
func NewRateLimit(target, message string) Record {
	r := newRecord(EventRateLimit)
	r.Target = target
	r.Outcome = remote.OutcomeRateLimit
	r.Message = message
	return r
}

// NewBreakerTransition builds a breaker state-change record.
func NewBreakerTransition(target, from, to string) Record {
	r := newRecord(EventBreakerTransition)
	r.Target = target
	r.Message = from + " -> " + to
	r.CircuitState = to
	return r
}

// NewError builds an error record.
func NewError(target, message string) Record {
	r := newRecord(EventError)
	r.Target = target
	r.Message = message
	return r
}

func newRecord(eventType EventType) Record {
	return Record{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
	}
}
