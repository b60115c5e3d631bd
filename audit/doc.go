// Package audit writes an append-only trail of every protected call and
// every breaker state transition.
//
// Records are newline-delimited JSON, written synchronously under a mutex
// before control returns to the caller, so an abrupt process termination
// still leaves a durable record of the last attempted call. The package
// deliberately exposes no mutation or deletion API.
package audit
