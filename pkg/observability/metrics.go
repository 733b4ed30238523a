package observability

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// Metrics records application metrics. The platform ships a no-op and an
// in-memory collector; a real exporter can be dropped in behind the same
// interface.
type Metrics interface {
	// Counter adds value to a running total.
	Counter(name string, value int64, tags ...Tag)

	// Gauge overwrites a point-in-time value.
	Gauge(name string, value float64, tags ...Tag)

	// Timing records one duration sample.
	Timing(name string, duration time.Duration, tags ...Tag)
}

// Tag labels a metric with a key-value pair.
type Tag struct {
	Key   string
	Value string
}

// T is shorthand for building a Tag.
func T(key, value string) Tag {
	return Tag{Key: key, Value: value}
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) Counter(name string, value int64, tags ...Tag)           {}
func (NoopMetrics) Gauge(name string, value float64, tags ...Tag)           {}
func (NoopMetrics) Timing(name string, duration time.Duration, tags ...Tag) {}

// InMemoryMetrics keeps everything in process memory. Used by tests and by
// the admin API's extension gauge in development.
type InMemoryMetrics struct {
	mu       sync.RWMutex
	counters map[string]int64
	gauges   map[string]float64
	timings  map[string][]time.Duration
}

// NewInMemoryMetrics returns an empty collector.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
		timings:  make(map[string][]time.Duration),
	}
}

func (m *InMemoryMetrics) Counter(name string, value int64, tags ...Tag) {
	key := formatKey(name, tags)
	m.mu.Lock()
	m.counters[key] += value
	m.mu.Unlock()
}

func (m *InMemoryMetrics) Gauge(name string, value float64, tags ...Tag) {
	key := formatKey(name, tags)
	m.mu.Lock()
	m.gauges[key] = value
	m.mu.Unlock()
}

func (m *InMemoryMetrics) Timing(name string, duration time.Duration, tags ...Tag) {
	key := formatKey(name, tags)
	m.mu.Lock()
	m.timings[key] = append(m.timings[key], duration)
	m.mu.Unlock()
}

// GetCounter returns the running total for a counter.
func (m *InMemoryMetrics) GetCounter(name string, tags ...Tag) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[formatKey(name, tags)]
}

// GetGauge returns the last value set for a gauge.
func (m *InMemoryMetrics) GetGauge(name string, tags ...Tag) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gauges[formatKey(name, tags)]
}

// GetTimings returns a copy of all samples recorded for a timing.
func (m *InMemoryMetrics) GetTimings(name string, tags ...Tag) []time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.timings[formatKey(name, tags)])
}

// Reset drops all recorded values.
func (m *InMemoryMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = make(map[string]int64)
	m.gauges = make(map[string]float64)
	m.timings = make(map[string][]time.Duration)
}

// formatKey flattens a metric name and its tags into one map key, tags in
// call order.
func formatKey(name string, tags []Tag) string {
	if len(tags) == 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(name)
	for _, t := range tags {
		b.WriteByte(':')
		b.WriteString(t.Key)
		b.WriteByte('=')
		b.WriteString(t.Value)
	}
	return b.String()
}

// Standard metric names used throughout Atrium.
const (
	// Operation metrics
	MetricOperationTotal    = "atrium.operation.total"
	MetricOperationDuration = "atrium.operation.duration"
	MetricOperationErrors   = "atrium.operation.errors"

	// Extension registry metrics
	MetricExtensionsLoaded = "atrium.extensions.loaded"

	// App metrics
	MetricAppsInstalled = "atrium.apps.installed"

	// Admin API metrics
	MetricHTTPRequests        = "atrium.http.requests"
	MetricHTTPRequestDuration = "atrium.http.request_duration"

	// Event bus metrics
	MetricEventsPublished = "atrium.events.published"
)
