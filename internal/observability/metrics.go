package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Label values for frame accounting.
const (
	OutcomeValid       = "valid"
	OutcomeIntegrity   = "integrity"
	OutcomeDecodeError = "decode_error"

	FrameDirect = "direct"
	FrameBatch  = "batch"
)

var (
	registerOnce sync.Once

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "seqwire",
			Subsystem: "gateway",
			Name:      "sessions_active",
			Help:      "Currently connected sessions.",
		},
	)
	sessionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "seqwire",
			Subsystem: "gateway",
			Name:      "sessions_total",
			Help:      "Sessions accepted since start.",
		},
	)
	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seqwire",
			Subsystem: "gateway",
			Name:      "frames_received_total",
			Help:      "Inbound packets by validation outcome.",
		},
		[]string{"outcome"},
	)
	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seqwire",
			Subsystem: "gateway",
			Name:      "frames_sent_total",
			Help:      "Outbound frames by kind.",
		},
		[]string{"kind"},
	)
	batchFlushSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "seqwire",
			Subsystem: "gateway",
			Name:      "batch_flush_size",
			Help:      "Commands per tick flush.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		},
	)
	digestSearchDepth = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "seqwire",
			Subsystem: "gateway",
			Name:      "digest_search_depth",
			Help:      "Counter offsets probed before a digest matched.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seqwire",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "seqwire",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			sessionsActive,
			sessionsTotal,
			framesReceived,
			framesSent,
			batchFlushSize,
			digestSearchDepth,
			httpRequests,
			httpDuration,
		)
	})
}

func RecordSessionOpened() {
	RegisterMetrics()
	sessionsActive.Inc()
	sessionsTotal.Inc()
}

func RecordSessionClosed() {
	RegisterMetrics()
	sessionsActive.Dec()
}

func RecordFrameReceived(outcome string) {
	RegisterMetrics()
	framesReceived.WithLabelValues(outcome).Inc()
}

func RecordFrameSent(kind string) {
	RegisterMetrics()
	framesSent.WithLabelValues(kind).Inc()
}

func RecordBatchFlush(size float64) {
	RegisterMetrics()
	batchFlushSize.Observe(size)
}

func RecordDigestSearchDepth(depth float64) {
	RegisterMetrics()
	digestSearchDepth.Observe(depth)
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}
