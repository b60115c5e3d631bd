// Package remote classifies failures returned by a protected remote API.
//
// The protection layers make different decisions for different failure
// classes: transient failures are retried, rate-limit responses are counted
// toward the halt threshold, and hard blocks stop retries entirely. This
// package defines the taxonomy those layers share, helpers to classify
// errors and HTTP status codes, and the outcome codes written to audit
// records and health counters.
package remote
