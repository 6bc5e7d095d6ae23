// internal/utils/metrics.go
package utils

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// MetricsCollector holds named counters, gauges and histograms. Counters and
// gauges are atomic cells; the maps only grow.
type MetricsCollector struct {
	mu         sync.RWMutex
	counters   map[string]*int64
	gauges     map[string]*int64
	histograms map[string]*histogram
}

type histogram struct {
	mu    sync.Mutex
	count int64
	sum   int64
	min   int64
	max   int64
}

// HistogramSummary is the reported state of one histogram.
type HistogramSummary struct {
	Count int64 `json:"count"`
	Sum   int64 `json:"sum"`
	Min   int64 `json:"min"`
	Max   int64 `json:"max"`
}

// MetricsSnapshot is a point-in-time copy of every metric.
type MetricsSnapshot struct {
	Counters   map[string]int64            `json:"counters"`
	Gauges     map[string]int64            `json:"gauges"`
	Histograms map[string]HistogramSummary `json:"histograms"`
}

var (
	globalMetrics *MetricsCollector
	metricsOnce   sync.Once
)

// GetMetricsCollector returns the global metrics collector
func GetMetricsCollector() *MetricsCollector {
	metricsOnce.Do(func() {
		globalMetrics = newMetricsCollector()
	})
	return globalMetrics
}

func newMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:   make(map[string]*int64),
		gauges:     make(map[string]*int64),
		histograms: make(map[string]*histogram),
	}
}

// cell returns the named slot of set, creating it on first use.
func (m *MetricsCollector) cell(set map[string]*int64, name string) *int64 {
	m.mu.RLock()
	v, ok := set[name]
	m.mu.RUnlock()
	if ok {
		return v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok = set[name]; !ok {
		v = new(int64)
		set[name] = v
	}
	return v
}

// IncrementCounter adds one to a counter.
func (m *MetricsCollector) IncrementCounter(name string) {
	atomic.AddInt64(m.cell(m.counters, name), 1)
}

// AddGauge moves a gauge by delta.
func (m *MetricsCollector) AddGauge(name string, delta int64) {
	atomic.AddInt64(m.cell(m.gauges, name), delta)
}

// RecordHistogram records a value in a histogram
func (m *MetricsCollector) RecordHistogram(name string, value int64) {
	m.mu.RLock()
	h, ok := m.histograms[name]
	m.mu.RUnlock()
	if !ok {
		m.mu.Lock()
		if h, ok = m.histograms[name]; !ok {
			h = &histogram{min: value, max: value}
			m.histograms[name] = h
		}
		m.mu.Unlock()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	h.min = min(h.min, value)
	h.max = max(h.max, value)
}

// Snapshot copies every metric.
func (m *MetricsCollector) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		Counters:   make(map[string]int64, len(m.counters)),
		Gauges:     make(map[string]int64, len(m.gauges)),
		Histograms: make(map[string]HistogramSummary, len(m.histograms)),
	}
	for name, v := range m.counters {
		snap.Counters[name] = atomic.LoadInt64(v)
	}
	for name, v := range m.gauges {
		snap.Gauges[name] = atomic.LoadInt64(v)
	}
	for name, h := range m.histograms {
		h.mu.Lock()
		snap.Histograms[name] = HistogramSummary{Count: h.count, Sum: h.sum, Min: h.min, Max: h.max}
		h.mu.Unlock()
	}
	return snap
}

// Metric names shared by the services and the API.
const (
	MetricInterpretationsTotal  = "interpretations_total"
	MetricInterpretationsFailed = "interpretations_failed"
	MetricInterpretationTimeMs  = "interpretation_time_ms"
	MetricSharesTotal           = "shares_total"
	MetricExportsTotal          = "exports_total"
	MetricFramesTotal           = "frames_total"
	MetricLiveRenderLoops       = "render_loops_live"
	MetricRenderFailures        = "render_failures"
)

// DreamMetrics records application metrics and mirrors notable ones to the log.
type DreamMetrics struct {
	metrics *MetricsCollector
	logger  *Logger
}

// NewDreamMetrics creates a recorder on the global collector.
func NewDreamMetrics() *DreamMetrics {
	return &DreamMetrics{
		metrics: GetMetricsCollector(),
		logger:  GetLogger().WithComponent("metrics"),
	}
}

// Collector exposes the underlying collector.
func (dm *DreamMetrics) Collector() *MetricsCollector {
	return dm.metrics
}

// RecordAPIRequest records metrics for an API request
func (dm *DreamMetrics) RecordAPIRequest(endpoint, method string, statusCode int, duration time.Duration) {
	dm.metrics.IncrementCounter("api_requests_total")
	dm.metrics.IncrementCounter("api_requests_" + method + "_" + endpoint)
	dm.metrics.RecordHistogram("api_response_time_ms", duration.Milliseconds())
	dm.metrics.IncrementCounter("api_responses_" + strconv.Itoa(statusCode/100) + "xx")

	dm.logger.Debug("API request completed", map[string]interface{}{
		"endpoint": endpoint,
		"method":   method,
		"status":   statusCode,
		"duration": duration.Milliseconds(),
	})
}

// RecordInterpretation records one interpretation attempt.
func (dm *DreamMetrics) RecordInterpretation(provider string, elements int, duration time.Duration, err error) {
	dm.metrics.IncrementCounter(MetricInterpretationsTotal)
	dm.metrics.IncrementCounter("interpretations_" + provider)
	dm.metrics.RecordHistogram(MetricInterpretationTimeMs, duration.Milliseconds())
	if err != nil {
		dm.metrics.IncrementCounter(MetricInterpretationsFailed)
		return
	}
	dm.metrics.RecordHistogram("interpretation_elements", int64(elements))
}

// RecordFrame counts one rendered frame for a render mode.
func (dm *DreamMetrics) RecordFrame(mode string) {
	dm.metrics.IncrementCounter(MetricFramesTotal)
	dm.metrics.IncrementCounter("frames_" + mode)
}

// LoopStarted increments the live render loop gauge.
func (dm *DreamMetrics) LoopStarted() {
	dm.metrics.AddGauge(MetricLiveRenderLoops, 1)
}

// LoopStopped decrements the live render loop gauge.
func (dm *DreamMetrics) LoopStopped() {
	dm.metrics.AddGauge(MetricLiveRenderLoops, -1)
}

// StartMetricsCollection logs a metrics summary every interval until ctx ends.
func (dm *DreamMetrics) StartMetricsCollection(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				dm.logger.Info("Periodic metrics report", map[string]interface{}{
					"metrics": dm.metrics.Snapshot(),
				})
			}
		}
	}()
}
