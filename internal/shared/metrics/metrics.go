package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	auditStartedTotal        atomic.Uint64
	auditCompletedTotal      atomic.Uint64
	auditFailedTotal         atomic.Uint64
	auditRigorWarningsTotal  atomic.Uint64
	paperTypeDetectionsTotal atomic.Uint64

	auditJobsReceivedTotal            atomic.Uint64
	auditJobsCompletedTotal           atomic.Uint64
	auditJobsFailedTotal              atomic.Uint64
	auditJobsDeletedUnrecoverableTotal atomic.Uint64

	auditDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncAuditStarted increments the started counter.
func IncAuditStarted() {
	auditStartedTotal.Add(1)
}

// IncAuditCompleted increments the completed counter.
func IncAuditCompleted() {
	auditCompletedTotal.Add(1)
}

// IncAuditFailed increments the failed counter.
func IncAuditFailed() {
	auditFailedTotal.Add(1)
}

// AddAuditRigorWarnings adds the number of rigor warnings raised by one audit.
func AddAuditRigorWarnings(n int) {
	if n <= 0 {
		return
	}
	auditRigorWarningsTotal.Add(uint64(n))
}

// IncPaperTypeDetection increments the detector invocation counter.
func IncPaperTypeDetection() {
	paperTypeDetectionsTotal.Add(1)
}

// IncAuditJobsReceived increments the queue jobs received counter.
func IncAuditJobsReceived() {
	auditJobsReceivedTotal.Add(1)
}

// IncAuditJobsCompleted increments the queue jobs completed counter.
func IncAuditJobsCompleted() {
	auditJobsCompletedTotal.Add(1)
}

// IncAuditJobsFailed increments the queue jobs failed counter.
func IncAuditJobsFailed() {
	auditJobsFailedTotal.Add(1)
}

// IncAuditJobsDeletedUnrecoverable counts malformed messages deleted without processing.
func IncAuditJobsDeletedUnrecoverable() {
	auditJobsDeletedUnrecoverableTotal.Add(1)
}

// ObserveAuditDurationMs records an audit duration in milliseconds.
func ObserveAuditDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	auditDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "audit_started_total", "Total audits started", auditStartedTotal.Load())
	writeCounter(&buf, "audit_completed_total", "Total audits completed", auditCompletedTotal.Load())
	writeCounter(&buf, "audit_failed_total", "Total audits failed", auditFailedTotal.Load())
	writeCounter(&buf, "audit_rigor_warnings_total", "Total rigor warnings raised by completed audits", auditRigorWarningsTotal.Load())
	writeCounter(&buf, "paper_type_detections_total", "Total paper type detector runs", paperTypeDetectionsTotal.Load())
	writeCounter(&buf, "audit_jobs_received_total", "Total queue jobs received", auditJobsReceivedTotal.Load())
	writeCounter(&buf, "audit_jobs_completed_total", "Total queue jobs completed", auditJobsCompletedTotal.Load())
	writeCounter(&buf, "audit_jobs_failed_total", "Total queue jobs failed", auditJobsFailedTotal.Load())
	writeCounter(&buf, "audit_jobs_deleted_unrecoverable_total", "Total malformed queue jobs deleted", auditJobsDeletedUnrecoverableTotal.Load())
	writeHistogram(&buf, "audit_duration_ms", "Audit duration in milliseconds", auditDuration.Snapshot())
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

// NowMillis returns current time in milliseconds, useful for callers without time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
