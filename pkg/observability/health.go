package observability

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// HealthStatus grades a component from fully working to down.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// severity orders statuses so the worst one wins during aggregation.
func (s HealthStatus) severity() int {
	switch s {
	case HealthStatusUnhealthy:
		return 2
	case HealthStatusDegraded:
		return 1
	default:
		return 0
	}
}

// HealthCheckResult reports the outcome of a single probe.
type HealthCheckResult struct {
	Status    HealthStatus  `json:"status"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	Timestamp time.Time     `json:"timestamp"`
}

// HealthChecker probes one backing service.
type HealthChecker func(ctx context.Context) HealthCheckResult

// HealthRegistry holds named checkers and caches the results of the most
// recent run for OverallStatus.
type HealthRegistry struct {
	mu     sync.RWMutex
	checks map[string]HealthChecker
	last   map[string]HealthCheckResult
}

// NewHealthRegistry returns an empty registry.
func NewHealthRegistry() *HealthRegistry {
	return &HealthRegistry{
		checks: make(map[string]HealthChecker),
		last:   make(map[string]HealthCheckResult),
	}
}

// Register adds or replaces the checker for a component.
func (r *HealthRegistry) Register(name string, check HealthChecker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = check
}

// Check probes every registered component in parallel, stamps each result,
// and caches the set.
func (r *HealthRegistry) Check(ctx context.Context) map[string]HealthCheckResult {
	r.mu.RLock()
	snapshot := make(map[string]HealthChecker, len(r.checks))
	for name, check := range r.checks {
		snapshot[name] = check
	}
	r.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		resMu   sync.Mutex
		results = make(map[string]HealthCheckResult, len(snapshot))
	)
	for name, check := range snapshot {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started := time.Now()
			res := check(ctx)
			res.Duration = time.Since(started)
			res.Timestamp = time.Now()
			resMu.Lock()
			results[name] = res
			resMu.Unlock()
		}()
	}
	wg.Wait()

	r.mu.Lock()
	r.last = results
	r.mu.Unlock()

	return results
}

// OverallStatus folds the cached results into a single grade; the worst
// individual result wins. A registry with no results reports healthy.
func (r *HealthRegistry) OverallStatus() HealthStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	overall := HealthStatusHealthy
	for _, res := range r.last {
		if res.Status.severity() > overall.severity() {
			overall = res.Status
		}
	}
	return overall
}

// OverallHealth bundles the aggregate grade with the per-component results.
type OverallHealth struct {
	Status    HealthStatus                 `json:"status"`
	Timestamp time.Time                    `json:"timestamp"`
	Checks    map[string]HealthCheckResult `json:"checks"`
}

// GetOverallHealth runs all probes and returns the aggregate view.
func (r *HealthRegistry) GetOverallHealth(ctx context.Context) OverallHealth {
	checks := r.Check(ctx)
	return OverallHealth{
		Status:    r.OverallStatus(),
		Timestamp: time.Now(),
		Checks:    checks,
	}
}

// ToJSON renders the report for HTTP handlers.
func (h OverallHealth) ToJSON() ([]byte, error) {
	return json.Marshal(h)
}

// probeChecker adapts a ping function into a HealthChecker that reports
// failStatus when the probe fails.
func probeChecker(component string, failStatus HealthStatus, probe func(ctx context.Context) error) HealthChecker {
	return func(ctx context.Context) HealthCheckResult {
		if err := probe(ctx); err != nil {
			return HealthCheckResult{
				Status:  failStatus,
				Message: component + " unreachable: " + err.Error(),
			}
		}
		return HealthCheckResult{
			Status:  HealthStatusHealthy,
			Message: component + " reachable",
		}
	}
}

// DatabaseHealthChecker probes the install-state database. Losing it takes
// the platform down.
func DatabaseHealthChecker(ping func(ctx context.Context) error) HealthChecker {
	return probeChecker("database", HealthStatusUnhealthy, ping)
}

// RedisHealthChecker probes the descriptor cache. A cache outage only
// degrades the service; reads fall back to disk.
func RedisHealthChecker(ping func(ctx context.Context) error) HealthChecker {
	return probeChecker("redis", HealthStatusDegraded, ping)
}

// RabbitMQHealthChecker probes the event broker. Events are best-effort, so
// an outage degrades rather than fails.
func RabbitMQHealthChecker(ping func(ctx context.Context) error) HealthChecker {
	return probeChecker("rabbitmq", HealthStatusDegraded, ping)
}
