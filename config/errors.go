package config

import "errors"

var (
	// ErrInvalidConfig indicates validation found at least one violation.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)
