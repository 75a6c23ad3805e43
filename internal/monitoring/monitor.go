package monitoring

import (
	"sync"
	"time"
)

// Counter names kept by the service.
const (
	AgentsGenerated    = "agents_generated"
	AgentsDeployed     = "agents_deployed"
	GenerationFailures = "generation_failures"
	FallbackProfiles   = "fallback_profiles"
	BatchesProcessed   = "batches_processed"

	LastGeneratedAgent = "last_generated_agent"
	LastDeployedAgent  = "last_deployed_agent"
)

// Monitor collects and provides in-process stats for the health endpoint
type Monitor struct {
	metrics      map[string]interface{}
	metricsMutex sync.RWMutex
	startTime    time.Time
}

// NewMonitor creates a new monitoring instance
func NewMonitor() *Monitor {
	return &Monitor{
		metrics:   make(map[string]interface{}),
		startTime: time.Now(),
	}
}

// RecordMetric records a metric value
func (m *Monitor) RecordMetric(name string, value interface{}) {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()
	m.metrics[name] = value
}

// Increment adds delta to an integer counter, creating it at zero.
func (m *Monitor) Increment(name string, delta int64) int64 {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()

	current, _ := m.metrics[name].(int64)
	current += delta
	m.metrics[name] = current
	return current
}

// GetMetric returns a specific metric value
func (m *Monitor) GetMetric(name string) (interface{}, bool) {
	m.metricsMutex.RLock()
	defer m.metricsMutex.RUnlock()
	value, exists := m.metrics[name]
	return value, exists
}

// GetMetrics returns all current metrics
func (m *Monitor) GetMetrics() map[string]interface{} {
	m.metricsMutex.RLock()
	defer m.metricsMutex.RUnlock()

	// Create a copy to avoid concurrent map access
	metrics := make(map[string]interface{}, len(m.metrics)+1)
	for k, v := range m.metrics {
		metrics[k] = v
	}

	metrics["uptime_seconds"] = time.Since(m.startTime).Seconds()

	return metrics
}

// RecordBatchResult records the outcome of a batch under last_batch_* keys.
func (m *Monitor) RecordBatchResult(batchID string, total, successful, failed int) {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()

	processed, _ := m.metrics[BatchesProcessed].(int64)
	m.metrics[BatchesProcessed] = processed + 1

	m.metrics["last_batch_id"] = batchID
	m.metrics["last_batch_total"] = total
	m.metrics["last_batch_successful"] = successful
	m.metrics["last_batch_failed"] = failed
	m.metrics["last_batch_at"] = time.Now().Format(time.RFC3339)
}
