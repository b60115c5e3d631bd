package health

import (
	"context"
	"errors"
	"testing"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestResultConstructors(t *testing.T) {
	h := Healthy("ok")
	if h.Status != StatusHealthy || h.Message != "ok" || h.Timestamp.IsZero() {
		t.Errorf("Healthy() = %+v", h)
	}

	d := Degraded("slow")
	if d.Status != StatusDegraded {
		t.Errorf("Degraded() status = %v", d.Status)
	}

	cause := errors.New("boom")
	u := Unhealthy("down", cause)
	if u.Status != StatusUnhealthy || u.Error != cause {
		t.Errorf("Unhealthy() = %+v", u)
	}

	withDetails := h.WithDetails(map[string]any{"calls": 3})
	if withDetails.Details["calls"] != 3 {
		t.Error("WithDetails() did not attach details")
	}
}

func TestCheckerSet_RegisterAndCheck(t *testing.T) {
	set := NewCheckerSet()
	set.Register("a", NewCheckerFunc("a", func(ctx context.Context) Result {
		return Healthy("a ok")
	}))
	set.Register("b", NewCheckerFunc("b", func(ctx context.Context) Result {
		return Degraded("b slow")
	}))

	names := set.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", names)
	}

	result, err := set.Check(context.Background(), "b")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.Status != StatusDegraded {
		t.Errorf("Check(b) status = %v, want degraded", result.Status)
	}

	if _, err := set.Check(context.Background(), "missing"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check(missing) error = %v, want ErrCheckerNotFound", err)
	}
}

func TestCheckerSet_RegisterReplacesByName(t *testing.T) {
	set := NewCheckerSet()
	set.Register("a", NewCheckerFunc("a", func(ctx context.Context) Result {
		return Unhealthy("old", nil)
	}))
	set.Register("a", NewCheckerFunc("a", func(ctx context.Context) Result {
		return Healthy("new")
	}))

	if names := set.Names(); len(names) != 1 {
		t.Fatalf("Names() = %v, want single entry", names)
	}
	result, _ := set.Check(context.Background(), "a")
	if result.Message != "new" {
		t.Errorf("Check(a) message = %q, want replacement checker", result.Message)
	}
}

func TestCheckerSet_CheckAllAndOverallStatus(t *testing.T) {
	set := NewCheckerSet()
	set.Register("ok", NewCheckerFunc("ok", func(ctx context.Context) Result {
		return Healthy("fine")
	}))
	set.Register("slow", NewCheckerFunc("slow", func(ctx context.Context) Result {
		return Degraded("elevated failures")
	}))

	results := set.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("CheckAll() returned %d results, want 2", len(results))
	}
	if got := set.OverallStatus(results); got != StatusDegraded {
		t.Errorf("OverallStatus() = %v, want degraded", got)
	}

	set.Register("down", NewCheckerFunc("down", func(ctx context.Context) Result {
		return Unhealthy("stopped", ErrCheckFailed)
	}))
	if got := set.OverallStatus(set.CheckAll(context.Background())); got != StatusUnhealthy {
		t.Errorf("OverallStatus() = %v, want unhealthy", got)
	}
}

func TestCheckerSet_OverallStatusEmpty(t *testing.T) {
	set := NewCheckerSet()
	if got := set.OverallStatus(nil); got != StatusHealthy {
		t.Errorf("OverallStatus(nil) = %v, want healthy", got)
	}
}
