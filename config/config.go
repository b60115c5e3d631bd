package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/callguard/callguard/batch"
	"github.com/callguard/callguard/health"
	"github.com/callguard/callguard/quota"
	"github.com/callguard/callguard/resilience"
	"github.com/callguard/callguard/secret"
)

// Credential is one remote API credential with its quota terms.
type Credential struct {
	// Label identifies the credential in logs and audit records. The raw
	// secret never appears there.
	Label string `yaml:"label"`

	// Secret is the API key. `${VAR}` references and secretref values
	// are resolved at load time.
	Secret string `yaml:"secret"`

	// MonthlyQuota is the calls-per-billing-cycle allowance.
	MonthlyQuota int `yaml:"monthlyQuota"`

	// BillingCycleDay is the day of month the quota resets (1-28).
	BillingCycleDay int `yaml:"billingCycleDay"`

	// Priority orders credential rotation; lower is used first.
	Priority int `yaml:"priority"`
}

// Backoff configures the retry delays.
type Backoff struct {
	BaseDelay   time.Duration `yaml:"baseDelay" env:"BACKOFF_BASE_DELAY"`
	MaxDelay    time.Duration `yaml:"maxDelay" env:"BACKOFF_MAX_DELAY"`
	MaxAttempts int           `yaml:"maxAttempts" env:"BACKOFF_MAX_ATTEMPTS"`
}

// Config holds every operator-tunable protection limit.
type Config struct {
	Credentials []Credential `yaml:"credentials"`

	MinIntervalSeconds     float64 `yaml:"minIntervalSeconds" env:"MIN_INTERVAL_SECONDS"`
	MaxConcurrentWorkers   int     `yaml:"maxConcurrentWorkers" env:"MAX_CONCURRENT_WORKERS"`
	BucketCapacity         int     `yaml:"bucketCapacity" env:"BUCKET_CAPACITY"`
	RefillRatePerSecond    float64 `yaml:"refillRatePerSecond" env:"REFILL_RATE_PER_SECOND"`
	FailureThreshold       int     `yaml:"failureThreshold" env:"FAILURE_THRESHOLD"`
	CooldownTimeoutSeconds float64 `yaml:"cooldownTimeoutSeconds" env:"COOLDOWN_TIMEOUT_SECONDS"`
	HalfOpenMaxCalls       int     `yaml:"halfOpenMaxCalls" env:"HALF_OPEN_MAX_CALLS"`
	BatchSize              int     `yaml:"batchSize" env:"BATCH_SIZE"`
	MinPauseSeconds        float64 `yaml:"minPauseSeconds" env:"MIN_PAUSE_SECONDS"`
	MaxPauseSeconds        float64 `yaml:"maxPauseSeconds" env:"MAX_PAUSE_SECONDS"`

	Backoff Backoff `yaml:"backoff"`
}

// Default returns the trial-tier defaults. They are deliberately
// conservative; operators loosen them only with a paid tier.
func Default() Config {
	return Config{
		MinIntervalSeconds:     3.0,
		MaxConcurrentWorkers:   3,
		BucketCapacity:         10,
		RefillRatePerSecond:    1.0 / 3.0,
		FailureThreshold:       3,
		CooldownTimeoutSeconds: 300,
		HalfOpenMaxCalls:       3,
		BatchSize:              10,
		MinPauseSeconds:        5,
		MaxPauseSeconds:        60,
		Backoff: Backoff{
			BaseDelay:   2 * time.Second,
			MaxDelay:    60 * time.Second,
			MaxAttempts: 3,
		},
	}
}

// Load reads the YAML document at path, applies CALLGUARD_* environment
// overrides, resolves credential secrets, and validates. A .env file in
// the working directory is loaded first, best-effort. Any validation
// violation aborts the load with ErrInvalidConfig.
func Load(path string) (*Config, error) {
	return LoadWithResolver(context.Background(), path, nil)
}

// LoadWithResolver is Load with an explicit secret resolver. A nil
// resolver falls back to strict environment expansion.
func LoadWithResolver(ctx context.Context, path string, resolver *secret.Resolver) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "CALLGUARD_"}); err != nil {
		return nil, fmt.Errorf("config: environment overrides: %w", err)
	}

	for i := range cfg.Credentials {
		resolved, err := resolver.ResolveValue(ctx, cfg.Credentials[i].Secret)
		if err != nil {
			return nil, fmt.Errorf("config: credential %q: %w", cfg.Credentials[i].Label, err)
		}
		cfg.Credentials[i].Secret = resolved
	}

	if violations := cfg.Validate(); len(violations) > 0 {
		errs := make([]error, 0, len(violations)+1)
		errs = append(errs, ErrInvalidConfig)
		for _, v := range violations {
			errs = append(errs, v)
		}
		return nil, errors.Join(errs...)
	}

	return &cfg, nil
}

// LimiterConfig maps the document fields onto the token bucket.
func (c Config) LimiterConfig() resilience.RateLimiterConfig {
	return resilience.RateLimiterConfig{
		Capacity:   c.BucketCapacity,
		RefillRate: c.RefillRatePerSecond,
	}
}

// RetryConfig maps the backoff fields onto the retrier.
func (c Config) RetryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts: c.Backoff.MaxAttempts,
		BaseDelay:   c.Backoff.BaseDelay,
		MaxDelay:    c.Backoff.MaxDelay,
	}
}

// BreakerConfig maps the breaker fields onto the circuit breaker.
func (c Config) BreakerConfig() resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		FailureThreshold: c.FailureThreshold,
		CooldownTimeout:  secondsToDuration(c.CooldownTimeoutSeconds),
		HalfOpenMaxCalls: c.HalfOpenMaxCalls,
	}
}

// BatchConfig maps the batch fields onto the scheduler.
func (c Config) BatchConfig() batch.Config {
	return batch.Config{
		BatchSize:  c.BatchSize,
		MaxWorkers: c.MaxConcurrentWorkers,
		MinPause:   secondsToDuration(c.MinPauseSeconds),
		MaxPause:   secondsToDuration(c.MaxPauseSeconds),
	}
}

// MonitorConfig returns the monitor thresholds. They are not operator
// tunable; the method exists so callers build the full stack from one
// value.
func (c Config) MonitorConfig() health.MonitorConfig {
	return health.MonitorConfig{}
}

// QuotaSpecs maps the credential quota terms onto the tracker. The raw
// secrets stay behind in the config.
func (c Config) QuotaSpecs() []quota.CredentialSpec {
	specs := make([]quota.CredentialSpec, 0, len(c.Credentials))
	for _, cred := range c.Credentials {
		specs = append(specs, quota.CredentialSpec{
			Label:           cred.Label,
			MonthlyQuota:    cred.MonthlyQuota,
			BillingCycleDay: cred.BillingCycleDay,
			Priority:        cred.Priority,
		})
	}
	return specs
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
