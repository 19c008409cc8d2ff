package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
)

func TestProbeHealthRepositoryAllHealthy(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	repo, err := NewProbeHealthRepository([]DependencyCheck{
		{Name: "catalog", Critical: true, Check: func(context.Context) error { return nil }},
		{Name: "cart_store", Check: func(context.Context) error { return nil }},
	}, WithProbeClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewProbeHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusOK || !report.Ready() {
		t.Fatalf("expected ok report, got %+v", report)
	}
	if len(report.Checks) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(report.Checks))
	}
	if report.GeneratedAt != now || report.Checks["catalog"].CheckedAt != now {
		t.Fatalf("expected clock timestamps, got %+v", report)
	}
}

func TestProbeHealthRepositoryNonCriticalFailureDegrades(t *testing.T) {
	repo, err := NewProbeHealthRepository([]DependencyCheck{
		{Name: "catalog", Critical: true, Check: func(context.Context) error { return nil }},
		{Name: "events", Check: func(context.Context) error { return errors.New("broker down") }},
	})
	if err != nil {
		t.Fatalf("NewProbeHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusDegraded || !report.Ready() {
		t.Fatalf("expected degraded but ready, got %+v", report)
	}
	if got := report.Checks["events"]; got.Status != domain.HealthStatusError || got.Detail != "broker down" {
		t.Fatalf("unexpected events result %+v", got)
	}
}

func TestProbeHealthRepositoryCriticalTimeout(t *testing.T) {
	repo, err := NewProbeHealthRepository([]DependencyCheck{
		{
			Name:     "catalog",
			Critical: true,
			Timeout:  10 * time.Millisecond,
			Check: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		},
	})
	if err != nil {
		t.Fatalf("NewProbeHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Ready() {
		t.Fatalf("expected not ready, got %+v", report)
	}
	if report.Checks["catalog"].Detail != "timeout" {
		t.Fatalf("expected timeout detail, got %+v", report.Checks["catalog"])
	}
}

func TestNewProbeHealthRepositoryValidatesChecks(t *testing.T) {
	cases := []struct {
		name   string
		checks []DependencyCheck
	}{
		{name: "empty"},
		{name: "missing name", checks: []DependencyCheck{{Check: func(context.Context) error { return nil }}}},
		{name: "missing func", checks: []DependencyCheck{{Name: "catalog"}}},
		{name: "duplicate", checks: []DependencyCheck{
			{Name: "catalog", Check: func(context.Context) error { return nil }},
			{Name: "catalog", Check: func(context.Context) error { return nil }},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewProbeHealthRepository(tc.checks); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
