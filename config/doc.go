// Package config loads and validates the operator-supplied protection
// limits.
//
// Configuration is a YAML document, optionally overridden by CALLGUARD_*
// environment variables and bootstrapped from a .env file when present.
// Credential secrets go through strict resolution: a `${VAR}` referencing
// a missing environment variable fails Load, and secretref values are
// resolved through the secret package.
//
// Validation is one-shot and collects every violation instead of
// stopping at the first, so an operator fixes a bad file in one pass.
// Violations abort startup; warnings (an interval below the recommended
// floor, an aggressive hourly budget) are advisory only.
package config
