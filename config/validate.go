package config

import "fmt"

// Safety floors for trial-tier accounts. The hard floor aborts startup;
// the recommended floor only warns.
const (
	// MinIntervalFloor is the absolute minimum seconds between calls.
	MinIntervalFloor = 2.0

	// MinIntervalRecommended is the interval below which a warning is
	// issued.
	MinIntervalRecommended = 3.0

	// MaxWorkers is the hard cap on concurrent workers.
	MaxWorkers = 3

	// SafeHourlyBudget is the theoretical calls-per-hour ceiling above
	// which a warning is issued. It matches the recommended interval:
	// 3600 / MinIntervalRecommended.
	SafeHourlyBudget = 1200
)

// Violation is one validation failure. It satisfies error so Load can
// join all violations under ErrInvalidConfig.
type Violation struct {
	Field   string
	Message string
}

func (v Violation) Error() string {
	return v.Field + ": " + v.Message
}

// Validate checks every field and returns all violations, not just the
// first. It is pure; callers decide whether to abort.
func (c Config) Validate() []Violation {
	var violations []Violation
	add := func(field, format string, args ...any) {
		violations = append(violations, Violation{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if len(c.Credentials) == 0 {
		add("credentials", "at least one credential is required")
	}
	for i, cred := range c.Credentials {
		field := fmt.Sprintf("credentials[%d]", i)
		if cred.Label == "" {
			add(field+".label", "label is required")
		}
		if cred.Secret == "" {
			add(field+".secret", "secret is required")
		}
		if cred.MonthlyQuota < 0 {
			add(field+".monthlyQuota", "must not be negative, got %d", cred.MonthlyQuota)
		}
		if cred.BillingCycleDay != 0 && (cred.BillingCycleDay < 1 || cred.BillingCycleDay > 28) {
			add(field+".billingCycleDay", "must be between 1 and 28, got %d", cred.BillingCycleDay)
		}
	}

	if c.MinIntervalSeconds < MinIntervalFloor {
		add("minIntervalSeconds", "must be at least %.0f, got %g", MinIntervalFloor, c.MinIntervalSeconds)
	}
	if c.MaxConcurrentWorkers < 1 || c.MaxConcurrentWorkers > MaxWorkers {
		add("maxConcurrentWorkers", "must be between 1 and %d, got %d", MaxWorkers, c.MaxConcurrentWorkers)
	}
	if c.BucketCapacity < 1 {
		add("bucketCapacity", "must be at least 1, got %d", c.BucketCapacity)
	}
	if c.RefillRatePerSecond <= 0 {
		add("refillRatePerSecond", "must be positive, got %g", c.RefillRatePerSecond)
	}

	if c.FailureThreshold < 1 {
		add("failureThreshold", "must be at least 1, got %d", c.FailureThreshold)
	}
	if c.CooldownTimeoutSeconds <= 0 {
		add("cooldownTimeoutSeconds", "must be positive, got %g", c.CooldownTimeoutSeconds)
	}
	if c.HalfOpenMaxCalls < 1 {
		add("halfOpenMaxCalls", "must be at least 1, got %d", c.HalfOpenMaxCalls)
	}

	if c.BatchSize < 1 {
		add("batchSize", "must be at least 1, got %d", c.BatchSize)
	}
	if c.MinPauseSeconds <= 0 {
		add("minPauseSeconds", "must be positive, got %g", c.MinPauseSeconds)
	}
	if c.MaxPauseSeconds < c.MinPauseSeconds {
		add("maxPauseSeconds", "must be at least minPauseSeconds (%g), got %g", c.MinPauseSeconds, c.MaxPauseSeconds)
	}

	if c.Backoff.MaxAttempts < 1 {
		add("backoff.maxAttempts", "must be at least 1, got %d", c.Backoff.MaxAttempts)
	}
	if c.Backoff.BaseDelay <= 0 {
		add("backoff.baseDelay", "must be positive, got %s", c.Backoff.BaseDelay)
	}
	if c.Backoff.MaxDelay < c.Backoff.BaseDelay {
		add("backoff.maxDelay", "must be at least baseDelay (%s), got %s", c.Backoff.BaseDelay, c.Backoff.MaxDelay)
	}

	return violations
}

// Warnings returns advisory notes about limits that validate but sit
// close to the remote service's tolerance. They never abort startup.
func (c Config) Warnings() []string {
	var warnings []string

	if c.MinIntervalSeconds >= MinIntervalFloor && c.MinIntervalSeconds < MinIntervalRecommended {
		warnings = append(warnings, fmt.Sprintf(
			"minIntervalSeconds %g is below the recommended %g; expect throttling on sustained runs",
			c.MinIntervalSeconds, MinIntervalRecommended))
	}

	if c.MinIntervalSeconds > 0 && c.RefillRatePerSecond > 1/c.MinIntervalSeconds {
		warnings = append(warnings, fmt.Sprintf(
			"refillRatePerSecond %g outpaces minIntervalSeconds %g (effective rate %.3f/s)",
			c.RefillRatePerSecond, c.MinIntervalSeconds, 1/c.MinIntervalSeconds))
	}

	if hourly := c.RefillRatePerSecond * 3600; hourly > SafeHourlyBudget {
		warnings = append(warnings, fmt.Sprintf(
			"theoretical rate of %.0f calls/hour exceeds the safe budget of %d",
			hourly, SafeHourlyBudget))
	}

	return warnings
}
