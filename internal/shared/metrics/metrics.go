// Package metrics exposes process counters in Prometheus text format. The
// registry is an injected value, nothing in here is package-level state.
package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// Metrics is the process metric registry. The zero value is not usable,
// construct with New.
type Metrics struct {
	analysesStartedTotal   atomic.Uint64
	analysesCompletedTotal atomic.Uint64
	analysesFailedTotal    atomic.Uint64

	cacheHitsTotal   atomic.Uint64
	cacheMissesTotal atomic.Uint64

	aiRequestsTotal atomic.Uint64
	aiFailuresTotal atomic.Uint64
	aiRetriesTotal  atomic.Uint64

	batchesStartedTotal   atomic.Uint64
	batchesCompletedTotal atomic.Uint64
	batchesFailedTotal    atomic.Uint64

	analysisDuration *histogram
}

// New constructs a registry with the standard duration buckets.
func New() *Metrics {
	return &Metrics{
		analysisDuration: newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000}),
	}
}

// IncAnalysisStarted increments the started counter.
func (m *Metrics) IncAnalysisStarted() { m.analysesStartedTotal.Add(1) }

// IncAnalysisCompleted increments the completed counter.
func (m *Metrics) IncAnalysisCompleted() { m.analysesCompletedTotal.Add(1) }

// IncAnalysisFailed increments the failed counter.
func (m *Metrics) IncAnalysisFailed() { m.analysesFailedTotal.Add(1) }

// IncCacheHit increments the analysis-cache hit counter.
func (m *Metrics) IncCacheHit() { m.cacheHitsTotal.Add(1) }

// IncCacheMiss increments the analysis-cache miss counter.
func (m *Metrics) IncCacheMiss() { m.cacheMissesTotal.Add(1) }

// IncAIRequest increments the provider request counter.
func (m *Metrics) IncAIRequest() { m.aiRequestsTotal.Add(1) }

// IncAIFailure increments the provider failure counter.
func (m *Metrics) IncAIFailure() { m.aiFailuresTotal.Add(1) }

// IncAIRetry increments the provider retry counter.
func (m *Metrics) IncAIRetry() { m.aiRetriesTotal.Add(1) }

// IncBatchStarted increments the batch started counter.
func (m *Metrics) IncBatchStarted() { m.batchesStartedTotal.Add(1) }

// IncBatchCompleted increments the batch completed counter.
func (m *Metrics) IncBatchCompleted() { m.batchesCompletedTotal.Add(1) }

// IncBatchFailed increments the batch failed counter.
func (m *Metrics) IncBatchFailed() { m.batchesFailedTotal.Add(1) }

// ObserveAnalysisDurationMs records a single-profile analysis duration.
func (m *Metrics) ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	m.analysisDuration.Observe(value)
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, m.Render())
	}
}

// Render renders the registry in Prometheus text format.
func (m *Metrics) Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "analyses_started_total", "Total profile analyses started", m.analysesStartedTotal.Load())
	writeCounter(&buf, "analyses_completed_total", "Total profile analyses completed", m.analysesCompletedTotal.Load())
	writeCounter(&buf, "analyses_failed_total", "Total profile analyses failed", m.analysesFailedTotal.Load())
	writeCounter(&buf, "analysis_cache_hits_total", "Total analysis cache hits", m.cacheHitsTotal.Load())
	writeCounter(&buf, "analysis_cache_misses_total", "Total analysis cache misses", m.cacheMissesTotal.Load())
	writeCounter(&buf, "ai_requests_total", "Total AI provider requests", m.aiRequestsTotal.Load())
	writeCounter(&buf, "ai_failures_total", "Total AI provider failures", m.aiFailuresTotal.Load())
	writeCounter(&buf, "ai_retries_total", "Total AI provider retries", m.aiRetriesTotal.Load())
	writeCounter(&buf, "batches_started_total", "Total batch analyses started", m.batchesStartedTotal.Load())
	writeCounter(&buf, "batches_completed_total", "Total batch analyses completed", m.batchesCompletedTotal.Load())
	writeCounter(&buf, "batches_failed_total", "Total batch analyses failed", m.batchesFailedTotal.Load())
	writeHistogram(&buf, "analysis_duration_ms", "Profile analysis duration in milliseconds", m.analysisDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
