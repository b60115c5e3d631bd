// Package observe provides observability primitives for protected remote
// calls.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. Consumers wire the observer into the guard
// coordinator or wrap individual call functions with Middleware.
package observe
