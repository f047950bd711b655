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

var (
	jobsSubmittedTotal atomic.Uint64
	jobsCompletedTotal atomic.Uint64
	jobsFailedTotal    atomic.Uint64
	jobsExpiredTotal   atomic.Uint64

	queueMessagesReceived      atomic.Uint64
	queueMessagesCompleted     atomic.Uint64
	queueMessagesFailed        atomic.Uint64
	queueMessagesUnrecoverable atomic.Uint64

	matchRequestsTotal atomic.Uint64
	matchResultsTotal  atomic.Uint64

	jobDuration    = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
	stageDurations = newHistogramVec([]float64{50, 100, 250, 500, 1000, 5000, 15000, 60000})
)

func IncJobSubmitted() { jobsSubmittedTotal.Add(1) }
func IncJobCompleted() { jobsCompletedTotal.Add(1) }
func IncJobFailed()    { jobsFailedTotal.Add(1) }
func IncJobExpired()   { jobsExpiredTotal.Add(1) }

func IncQueueReceived()      { queueMessagesReceived.Add(1) }
func IncQueueCompleted()     { queueMessagesCompleted.Add(1) }
func IncQueueFailed()        { queueMessagesFailed.Add(1) }
func IncQueueUnrecoverable() { queueMessagesUnrecoverable.Add(1) }

// ObserveMatch records one match request and how many results it returned.
func ObserveMatch(results int) {
	matchRequestsTotal.Add(1)
	if results > 0 {
		matchResultsTotal.Add(uint64(results))
	}
}

// ObserveJobDurationMs records an end-to-end job duration in milliseconds.
func ObserveJobDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	jobDuration.Observe(value)
}

// ObserveStageDurationMs records the duration of one pipeline stage.
func ObserveStageDurationMs(stage string, value float64) {
	if value < 0 {
		value = 0
	}
	stageDurations.Observe(stage, value)
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
	writeCounter(&buf, "jobs_submitted_total", "Total processing jobs submitted", jobsSubmittedTotal.Load())
	writeCounter(&buf, "jobs_completed_total", "Total processing jobs completed", jobsCompletedTotal.Load())
	writeCounter(&buf, "jobs_failed_total", "Total processing jobs moved to error", jobsFailedTotal.Load())
	writeCounter(&buf, "jobs_expired_total", "Total processing jobs expired by the sweeper", jobsExpiredTotal.Load())
	writeCounter(&buf, "queue_messages_received_total", "Total queue messages received", queueMessagesReceived.Load())
	writeCounter(&buf, "queue_messages_completed_total", "Total queue messages processed and deleted", queueMessagesCompleted.Load())
	writeCounter(&buf, "queue_messages_failed_total", "Total queue messages left for redelivery", queueMessagesFailed.Load())
	writeCounter(&buf, "queue_messages_unrecoverable_total", "Total malformed queue messages deleted", queueMessagesUnrecoverable.Load())
	writeCounter(&buf, "match_requests_total", "Total match requests served", matchRequestsTotal.Load())
	writeCounter(&buf, "match_results_total", "Total match results returned", matchResultsTotal.Load())
	writeHistogram(&buf, "job_duration_ms", "Processing job duration in milliseconds", "", jobDuration.Snapshot())
	for _, stage := range stageDurations.Labels() {
		writeHistogram(&buf, "job_stage_duration_ms", "Pipeline stage duration in milliseconds", stage, stageDurations.Snapshot(stage))
	}
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
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

// histogramVec keys histograms by a single "stage" label.
type histogramVec struct {
	mu      sync.Mutex
	buckets []float64
	byLabel map[string]*histogram
	order   []string
}

func newHistogramVec(buckets []float64) *histogramVec {
	return &histogramVec{buckets: buckets, byLabel: map[string]*histogram{}}
}

func (v *histogramVec) Observe(label string, value float64) {
	v.mu.Lock()
	h, ok := v.byLabel[label]
	if !ok {
		h = newHistogram(v.buckets)
		v.byLabel[label] = h
		v.order = append(v.order, label)
	}
	v.mu.Unlock()
	h.Observe(value)
}

func (v *histogramVec) Labels() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.order...)
}

func (v *histogramVec) Snapshot(label string) histogramSnapshot {
	v.mu.Lock()
	h := v.byLabel[label]
	v.mu.Unlock()
	if h == nil {
		return histogramSnapshot{}
	}
	return h.Snapshot()
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help, stage string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	label := ""
	if stage != "" {
		label = fmt.Sprintf("stage=%q,", stage)
	}
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{%sle=\"%s\"} %d\n", name, label, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{%sle=\"+Inf\"} %d\n", name, label, snap.count)
	if stage != "" {
		fmt.Fprintf(buf, "%s_sum{stage=%q} %s\n", name, stage, formatFloat(snap.sum))
		fmt.Fprintf(buf, "%s_count{stage=%q} %d\n", name, stage, snap.count)
		return
	}
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
