package audit

import "errors"

// Sentinel errors for audit operations.
var (
	// ErrLoggerClosed is returned when appending to a closed logger.
	ErrLoggerClosed = errors.New("audit: logger is closed")
)
