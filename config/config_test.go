package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/callguard/callguard/quota"
)

const validYAML = `
credentials:
  - label: primary
    secret: ${CALLGUARD_TEST_KEY}
    monthlyQuota: 250
    billingCycleDay: 14
    priority: 1
minIntervalSeconds: 3.0
maxConcurrentWorkers: 2
bucketCapacity: 10
refillRatePerSecond: 0.33
failureThreshold: 3
cooldownTimeoutSeconds: 300
halfOpenMaxCalls: 3
batchSize: 10
minPauseSeconds: 5
maxPauseSeconds: 60
backoff:
  baseDelay: 2s
  maxDelay: 60s
  maxAttempts: 3
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "callguard.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_ValidDocument(t *testing.T) {
	t.Setenv("CALLGUARD_TEST_KEY", "sk-test-123")

	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Credentials) != 1 {
		t.Fatalf("credentials = %d, want 1", len(cfg.Credentials))
	}
	cred := cfg.Credentials[0]
	if cred.Label != "primary" {
		t.Errorf("Label = %q", cred.Label)
	}
	if cred.Secret != "sk-test-123" {
		t.Errorf("Secret = %q, want expanded value", cred.Secret)
	}
	if cred.MonthlyQuota != 250 || cred.BillingCycleDay != 14 {
		t.Errorf("quota fields = %+v", cred)
	}
	if cfg.BucketCapacity != 10 || cfg.RefillRatePerSecond != 0.33 {
		t.Errorf("bucket fields = %+v", cfg)
	}
	if cfg.Backoff.BaseDelay != 2*time.Second || cfg.Backoff.MaxAttempts != 3 {
		t.Errorf("backoff = %+v", cfg.Backoff)
	}
}

func TestLoad_MissingSecretEnvVarFails(t *testing.T) {
	os.Unsetenv("CALLGUARD_TEST_KEY")

	_, err := Load(writeConfig(t, validYAML))
	if err == nil {
		t.Fatal("Load() with missing secret env var should fail")
	}
	if !strings.Contains(err.Error(), "CALLGUARD_TEST_KEY") {
		t.Errorf("error should name the missing variable, got: %v", err)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("CALLGUARD_TEST_KEY", "sk-test-123")
	t.Setenv("CALLGUARD_BUCKET_CAPACITY", "5")
	t.Setenv("CALLGUARD_BATCH_SIZE", "25")
	t.Setenv("CALLGUARD_BACKOFF_MAX_ATTEMPTS", "2")

	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BucketCapacity != 5 {
		t.Errorf("BucketCapacity = %d, want env override 5", cfg.BucketCapacity)
	}
	if cfg.BatchSize != 25 {
		t.Errorf("BatchSize = %d, want env override 25", cfg.BatchSize)
	}
	if cfg.Backoff.MaxAttempts != 2 {
		t.Errorf("Backoff.MaxAttempts = %d, want env override 2", cfg.Backoff.MaxAttempts)
	}
}

func TestLoad_DefaultsFillOmittedFields(t *testing.T) {
	t.Setenv("CALLGUARD_TEST_KEY", "sk-test-123")

	cfg, err := Load(writeConfig(t, `
credentials:
  - label: primary
    secret: ${CALLGUARD_TEST_KEY}
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Default()
	if cfg.MinIntervalSeconds != want.MinIntervalSeconds {
		t.Errorf("MinIntervalSeconds = %g, want default %g", cfg.MinIntervalSeconds, want.MinIntervalSeconds)
	}
	if cfg.Backoff != want.Backoff {
		t.Errorf("Backoff = %+v, want default %+v", cfg.Backoff, want.Backoff)
	}
}

func TestLoad_InvalidDocumentReportsAllViolations(t *testing.T) {
	_, err := Load(writeConfig(t, `
credentials: []
minIntervalSeconds: 0.5
maxConcurrentWorkers: 10
bucketCapacity: 0
refillRatePerSecond: 0
`))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load() error = %v, want ErrInvalidConfig", err)
	}

	for _, field := range []string{"credentials", "minIntervalSeconds", "maxConcurrentWorkers", "bucketCapacity", "refillRatePerSecond"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error should mention %s, got: %v", field, err)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("Load() of missing file should fail")
	}
}

func TestConfig_ComponentMappings(t *testing.T) {
	cfg := Default()
	cfg.BucketCapacity = 5
	cfg.RefillRatePerSecond = 1
	cfg.CooldownTimeoutSeconds = 90
	cfg.MinPauseSeconds = 7.5

	if lc := cfg.LimiterConfig(); lc.Capacity != 5 || lc.RefillRate != 1 {
		t.Errorf("LimiterConfig() = %+v", lc)
	}
	if rc := cfg.RetryConfig(); rc.MaxAttempts != 3 || rc.BaseDelay != 2*time.Second {
		t.Errorf("RetryConfig() = %+v", rc)
	}
	if bc := cfg.BreakerConfig(); bc.CooldownTimeout != 90*time.Second {
		t.Errorf("BreakerConfig() cooldown = %v", bc.CooldownTimeout)
	}
	if sc := cfg.BatchConfig(); sc.MinPause != 7500*time.Millisecond || sc.MaxWorkers != 3 {
		t.Errorf("BatchConfig() = %+v", sc)
	}
}

func TestConfig_QuotaSpecs(t *testing.T) {
	cfg := Default()
	cfg.Credentials = []Credential{
		{Label: "backup", Secret: "sk-b", MonthlyQuota: 100, BillingCycleDay: 1, Priority: 2},
		{Label: "primary", Secret: "sk-a", MonthlyQuota: 250, BillingCycleDay: 14, Priority: 1},
	}

	specs := cfg.QuotaSpecs()
	if len(specs) != 2 {
		t.Fatalf("QuotaSpecs() len = %d, want 2", len(specs))
	}
	want := quota.CredentialSpec{Label: "primary", MonthlyQuota: 250, BillingCycleDay: 14, Priority: 1}
	if specs[1] != want {
		t.Errorf("QuotaSpecs()[1] = %+v, want %+v", specs[1], want)
	}
}
