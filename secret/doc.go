// Package secret resolves credential secrets referenced from
// configuration.
//
// It supports:
//   - Strict environment expansion (see ExpandEnvStrict)
//   - Pluggable secret providers (see Provider)
//   - Resolving secret references in configuration values (see Resolver)
//
// References use the prefix "secretref:":
//   - Full value:  secretref:vault:serpapi/api_key
//   - Inline use:  Bearer secretref:vault:serpapi/api_key
//
// Plain values go through strict environment expansion only: a `${VAR}`
// whose variable is missing is an error, never an empty string, so a
// misconfigured credential fails at startup instead of at the first
// remote call.
package secret
