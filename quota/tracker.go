package quota

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/callguard/callguard/health"
)

// Usage warning thresholds, as a fraction of the monthly limit.
const (
	WarnThreshold     = 0.75
	DegradeThreshold  = 0.90
	ExhaustedFraction = 1.0
)

// CredentialSpec describes one credential's quota terms. Specs come from
// configuration; the tracker owns the mutable usage state.
type CredentialSpec struct {
	Label           string
	MonthlyQuota    int
	BillingCycleDay int // day of month the quota resets (1-28)
	Priority        int // lower is used first
}

// state is the persisted per-credential usage.
type state struct {
	Label     string         `json:"label"`
	Limit     int            `json:"limit"`
	Used      int            `json:"used"`
	CycleDay  int            `json:"cycle_day"`
	Priority  int            `json:"priority"`
	LastReset time.Time      `json:"last_reset"`
	Daily     map[string]int `json:"daily,omitempty"` // YYYY-MM-DD -> calls
}

// fileState is the on-disk document.
type fileState struct {
	Credentials map[string]*state `json:"credentials"`
}

// Tracker tracks monthly usage per credential and persists it to a JSON
// file. All methods are safe for concurrent use.
type Tracker struct {
	path string
	now  func() time.Time

	mu    sync.Mutex
	creds map[string]*state
}

// Open loads (or creates) the state file at path and merges the specs
// into it. Existing usage is preserved; limits, cycle days, and
// priorities follow the specs. Credentials removed from the specs are
// dropped.
func Open(path string, specs []CredentialSpec) (*Tracker, error) {
	t := &Tracker{
		path:  path,
		now:   time.Now,
		creds: make(map[string]*state),
	}

	var persisted fileState
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &persisted); err != nil {
			return nil, fmt.Errorf("quota: parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// First run.
	default:
		return nil, fmt.Errorf("quota: read %s: %w", path, err)
	}

	for _, spec := range specs {
		s := &state{
			Label:     spec.Label,
			Limit:     spec.MonthlyQuota,
			CycleDay:  spec.BillingCycleDay,
			Priority:  spec.Priority,
			LastReset: t.now(),
			Daily:     make(map[string]int),
		}
		if prev, ok := persisted.Credentials[spec.Label]; ok {
			s.Used = prev.Used
			s.LastReset = prev.LastReset
			if prev.Daily != nil {
				s.Daily = prev.Daily
			}
		}
		t.creds[spec.Label] = s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetDueLocked()
	if err := t.persistLocked(); err != nil {
		return nil, err
	}
	return t, nil
}

// Active returns the label of the highest-priority credential with
// remaining quota. When every credential is spent it returns
// ErrQuotaExhausted; the caller should halt the run rather than burn
// calls on rejections.
func (t *Tracker) Active() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetDueLocked()

	candidates := make([]*state, 0, len(t.creds))
	for _, s := range t.creds {
		if s.Limit <= 0 || s.Used < s.Limit {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return "", ErrQuotaExhausted
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		return candidates[i].Label < candidates[j].Label
	})
	return candidates[0].Label, nil
}

// RecordUse adds n calls to the credential's monthly and daily usage and
// persists the new state before returning.
func (t *Tracker) RecordUse(label string, n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.creds[label]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCredential, label)
	}

	t.resetDueLocked()
	s.Used += n
	day := t.now().UTC().Format("2006-01-02")
	if s.Daily == nil {
		s.Daily = make(map[string]int)
	}
	s.Daily[day] += n

	return t.persistLocked()
}

// Usage returns used and limit for a credential.
func (t *Tracker) Usage(label string) (used, limit int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.creds[label]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownCredential, label)
	}
	t.resetDueLocked()
	return s.Used, s.Limit, nil
}

// CredentialStatus is a point-in-time view of one credential.
type CredentialStatus struct {
	Label    string
	Used     int
	Limit    int
	Priority int
	Fraction float64 // used/limit, 0 when the limit is unmetered
}

// Snapshot returns the status of every credential, ordered by priority.
func (t *Tracker) Snapshot() []CredentialStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetDueLocked()

	statuses := make([]CredentialStatus, 0, len(t.creds))
	for _, s := range t.creds {
		status := CredentialStatus{
			Label:    s.Label,
			Used:     s.Used,
			Limit:    s.Limit,
			Priority: s.Priority,
		}
		if s.Limit > 0 {
			status.Fraction = float64(s.Used) / float64(s.Limit)
		}
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].Priority != statuses[j].Priority {
			return statuses[i].Priority < statuses[j].Priority
		}
		return statuses[i].Label < statuses[j].Label
	})
	return statuses
}

// Warnings returns advisory notes for credentials at or above the usage
// thresholds.
func (t *Tracker) Warnings() []string {
	var warnings []string
	for _, s := range t.Snapshot() {
		switch {
		case s.Limit <= 0:
		case s.Fraction >= ExhaustedFraction:
			warnings = append(warnings, fmt.Sprintf("credential %q exhausted (%d/%d)", s.Label, s.Used, s.Limit))
		case s.Fraction >= DegradeThreshold:
			warnings = append(warnings, fmt.Sprintf("credential %q at %.0f%% of quota (%d/%d)", s.Label, s.Fraction*100, s.Used, s.Limit))
		case s.Fraction >= WarnThreshold:
			warnings = append(warnings, fmt.Sprintf("credential %q past %.0f%% of quota (%d/%d)", s.Label, WarnThreshold*100, s.Used, s.Limit))
		}
	}
	return warnings
}

// Name implements health.Checker.
func (t *Tracker) Name() string { return "quota" }

// Check implements health.Checker: unhealthy when every credential is
// exhausted, degraded when the active one is close.
func (t *Tracker) Check(ctx context.Context) health.Result {
	if _, err := t.Active(); err != nil {
		return health.Unhealthy("all credentials exhausted", err)
	}

	for _, s := range t.Snapshot() {
		if s.Limit > 0 && s.Fraction >= DegradeThreshold && s.Fraction < ExhaustedFraction {
			return health.Degraded(fmt.Sprintf("credential %q at %.0f%% of quota", s.Label, s.Fraction*100))
		}
	}

	remaining := 0
	for _, s := range t.Snapshot() {
		if s.Limit <= 0 || s.Used < s.Limit {
			remaining++
		}
	}
	return health.Healthy(fmt.Sprintf("%d credential(s) with remaining quota", remaining))
}

// resetDueLocked zeroes usage for credentials whose billing cycle has
// rolled over since the last reset. Callers must hold t.mu.
func (t *Tracker) resetDueLocked() {
	now := t.now().UTC()
	for _, s := range t.creds {
		day := s.CycleDay
		if day < 1 || day > 28 {
			day = 1
		}

		// Most recent cycle boundary at or before now.
		boundary := time.Date(now.Year(), now.Month(), day, 0, 0, 0, 0, time.UTC)
		if boundary.After(now) {
			boundary = boundary.AddDate(0, -1, 0)
		}

		if s.LastReset.Before(boundary) {
			s.Used = 0
			s.Daily = make(map[string]int)
			s.LastReset = boundary
		}
	}
}

// persistLocked writes the state file atomically. Callers must hold t.mu.
func (t *Tracker) persistLocked() error {
	doc := fileState{Credentials: t.creds}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("quota: marshal state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0o750); err != nil {
		return fmt.Errorf("quota: create state dir: %w", err)
	}

	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("quota: write state: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return fmt.Errorf("quota: replace state: %w", err)
	}
	return nil
}
