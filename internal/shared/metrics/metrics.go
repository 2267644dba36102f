package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector exported at /metrics.
var Registry = prometheus.NewRegistry()

var (
	diagnosticStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "diagnostic_started_total",
		Help: "Total diagnostics started",
	})
	diagnosticCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "diagnostic_completed_total",
		Help: "Total diagnostics completed",
	})
	diagnosticFailedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "diagnostic_failed_total",
		Help: "Total diagnostics failed by error code",
	}, []string{"code"})
	diagnosticDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "diagnostic_duration_ms",
		Help:    "Diagnostic duration in milliseconds",
		Buckets: []float64{1000, 5000, 10000, 30000, 60000, 120000, 240000, 480000},
	})
	diagnosticPhaseTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "diagnostic_phase_total",
		Help: "Pipeline phases entered",
	}, []string{"phase"})

	diagnosticJobsReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "diagnostic_jobs_received_total",
		Help: "Queue messages received by the worker",
	})
	diagnosticJobsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "diagnostic_jobs_completed_total",
		Help: "Queue messages processed and deleted",
	})
	diagnosticJobsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "diagnostic_jobs_failed_total",
		Help: "Queue messages that failed processing",
	})
	diagnosticJobsDeletedUnrecoverable = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "diagnostic_jobs_deleted_unrecoverable_total",
		Help: "Queue messages deleted because they could never succeed",
	})

	chatMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Chat replies produced by source",
	}, []string{"source"})
	documentsGeneratedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "documents_generated_total",
		Help: "Exported documents by format",
	}, []string{"format"})
	researchRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "research_requests_total",
		Help: "Outbound research calls by operation and outcome",
	}, []string{"operation", "outcome"})
	eventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Diagnostic update events published",
	}, []string{"status"})
	panicsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "panics_recovered_total",
		Help: "Recovered panics by where they happened",
	}, []string{"where"})
	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func init() {
	Registry.MustRegister(
		diagnosticStartedTotal,
		diagnosticCompletedTotal,
		diagnosticFailedTotal,
		diagnosticDuration,
		diagnosticPhaseTotal,
		diagnosticJobsReceived,
		diagnosticJobsCompleted,
		diagnosticJobsFailed,
		diagnosticJobsDeletedUnrecoverable,
		chatMessagesTotal,
		documentsGeneratedTotal,
		researchRequestsTotal,
		eventsPublishedTotal,
		panicsTotal,
		httpRequestDuration,
	)
}

// IncPanic counts a recovered panic; where is "http" or "diagnostic".
func IncPanic(where string) { panicsTotal.WithLabelValues(where).Inc() }

// IncDiagnosticStarted increments the started counter.
func IncDiagnosticStarted() { diagnosticStartedTotal.Inc() }

// IncDiagnosticCompleted increments the completed counter.
func IncDiagnosticCompleted() { diagnosticCompletedTotal.Inc() }

// IncDiagnosticFailed increments the failed counter for an error code.
func IncDiagnosticFailed(code string) { diagnosticFailedTotal.WithLabelValues(code).Inc() }

// ObserveDiagnosticDurationMs records a diagnostic duration in milliseconds.
func ObserveDiagnosticDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	diagnosticDuration.Observe(value)
}

// IncDiagnosticPhase counts entry into a named pipeline phase.
func IncDiagnosticPhase(phase string) { diagnosticPhaseTotal.WithLabelValues(phase).Inc() }

func IncDiagnosticJobsReceived()             { diagnosticJobsReceived.Inc() }
func IncDiagnosticJobsCompleted()            { diagnosticJobsCompleted.Inc() }
func IncDiagnosticJobsFailed()               { diagnosticJobsFailed.Inc() }
func IncDiagnosticJobsDeletedUnrecoverable() { diagnosticJobsDeletedUnrecoverable.Inc() }

// IncChatMessages counts a chat reply; source is llm, placeholder or error.
func IncChatMessages(source string) { chatMessagesTotal.WithLabelValues(source).Inc() }

// IncDocumentsGenerated counts an exported document.
func IncDocumentsGenerated(format string) { documentsGeneratedTotal.WithLabelValues(format).Inc() }

// IncResearchRequest counts an outbound scrape or search call.
func IncResearchRequest(operation string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	researchRequestsTotal.WithLabelValues(operation, outcome).Inc()
}

// IncEventsPublished counts a published diagnostic update.
func IncEventsPublished(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	eventsPublishedTotal.WithLabelValues(status).Inc()
}

// ObserveHTTPRequest records a served request.
func ObserveHTTPRequest(method, route, status string, d time.Duration) {
	httpRequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// NowMillis returns current time in milliseconds.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
