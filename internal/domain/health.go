package domain

import "time"

const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
	HealthStatusError    = "error"
)

// DependencyHealth is the outcome of one readiness probe.
type DependencyHealth struct {
	Status    string
	Detail    string
	Latency   time.Duration
	CheckedAt time.Time
}

// HealthReport aggregates readiness probes.
type HealthReport struct {
	Status      string
	Checks      map[string]DependencyHealth
	GeneratedAt time.Time
}

// Ready reports whether no probe failed outright.
func (r HealthReport) Ready() bool {
	return r.Status != HealthStatusError
}
