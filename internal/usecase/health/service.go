package health

import (
	"context"
	"sort"
	"time"
)

// DefaultCheckTimeout bounds each component probe.
const DefaultCheckTimeout = 3 * time.Second

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a collaborator is failing; matching still works on the remaining signals.
	Degraded Status = "degraded"
	// Unhealthy indicates the candidate store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

type component struct {
	name    string
	checker Checker
}

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store      StorePinger
	components []component
	timeout    time.Duration
}

// New creates a Service over the candidate store.
func New(store StorePinger) *Service {
	return &Service{store: store, timeout: DefaultCheckTimeout}
}

// WithComponent adds a collaborator probe. A nil checker is skipped.
func (s *Service) WithComponent(name string, c Checker) *Service {
	if c != nil {
		s.components = append(s.components, component{name: name, checker: c})
		sort.Slice(s.components, func(i, j int) bool { return s.components[i].name < s.components[j].name })
	}
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 1+len(s.components))
	status := Healthy

	if err := s.probe(ctx, s.store.Ping); err != nil {
		checks["store"] = CheckError
		status = Unhealthy
	} else {
		checks["store"] = CheckOK
	}

	for _, c := range s.components {
		if err := s.probe(ctx, c.checker.HealthCheck); err != nil {
			checks[c.name] = CheckError
			if status == Healthy {
				status = Degraded
			}
			continue
		}
		checks[c.name] = CheckOK
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) probe(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx)
}
