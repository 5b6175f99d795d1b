package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels with dedicated counters.
const (
	OutcomeCanned    = "canned"
	OutcomeSanitized = "llm_sanitized"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ChatRequests     *prometheus.CounterVec
	CannedHits       prometheus.Counter
	SanitizedReplies prometheus.Counter
	ProviderErrors   *prometheus.CounterVec
	GateDenials      *prometheus.CounterVec
	LLMLatency       prometheus.Histogram
	ActiveSessions   prometheus.Gauge
	SessionEvents    *prometheus.CounterVec
	WSMessages       *prometheus.CounterVec
	latency          *latencyWindow
}

// NewMetricsWith registers the instruments on reg instead of the default registry.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ChatRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat requests by dispatcher outcome.",
		}, []string{"outcome"}),
		CannedHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "canned_hits_total",
			Help:      "Messages answered from the canned-answer table.",
		}),
		SanitizedReplies: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sanitized_replies_total",
			Help:      "Provider replies replaced by the sanitization fallback.",
		}),
		ProviderErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider errors by provider and code.",
		}, []string{"provider", "code"}),
		GateDenials: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_denials_total",
			Help:      "Requests rejected before dispatch, by reason.",
		}, []string{"reason"}),
		LLMLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_latency_ms",
			Help:      "Latency of provider completion calls in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2000, 4000, 8000, 16000, 32000},
		}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active chat sessions.",
		}),
		SessionEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		WSMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		latency: newLatencyWindow(256),
	}
}

// ObserveStage records a per-request stage duration for the latency window.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	ms := float64(d.Microseconds()) / 1000
	m.latency.observe(stage, ms)
	if stage == StageLLMCall {
		m.LLMLatency.Observe(ms)
	}
}

// ObserveIndicator counts a notable per-request event in the latency window.
func (m *Metrics) ObserveIndicator(name string) {
	if m == nil {
		return
	}
	m.latency.count(name)
}

// ObserveOutcome counts one dispatched chat request.
func (m *Metrics) ObserveOutcome(outcome string) {
	if m == nil || outcome == "" {
		return
	}
	m.ChatRequests.WithLabelValues(outcome).Inc()
	switch outcome {
	case OutcomeCanned:
		m.CannedHits.Inc()
	case OutcomeSanitized:
		m.SanitizedReplies.Inc()
	}
}

func (m *Metrics) ObserveProviderError(provider, code string) {
	if m == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(provider, code).Inc()
}

func (m *Metrics) ObserveGateDenial(reason string) {
	if m == nil {
		return
	}
	m.GateDenials.WithLabelValues(reason).Inc()
}

// ObserveSessionEvent counts a session lifecycle event and refreshes the
// active-session gauge.
func (m *Metrics) ObserveSessionEvent(event string, active int) {
	if m == nil {
		return
	}
	m.SessionEvents.WithLabelValues(event).Inc()
	m.ActiveSessions.Set(float64(active))
}

func (m *Metrics) ObserveWSMessage(direction, messageType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, messageType).Inc()
}

func (m *Metrics) SnapshotStages() LatencySnapshot {
	if m == nil {
		return LatencySnapshot{GeneratedAt: time.Now().UTC(), Stages: []StageLatency{}}
	}
	return m.latency.snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
