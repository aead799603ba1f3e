package metrics

import "github.com/prometheus/client_golang/prometheus"

// DialogMetrics exposes counters/histograms for the conversation flow.
type DialogMetrics struct {
	messagesTotal  *prometheus.CounterVec
	handoffsTotal  *prometheus.CounterVec
	evictionsTotal prometheus.Counter
	turnLatency    *prometheus.HistogramVec
}

func NewDialogMetrics(reg prometheus.Registerer) *DialogMetrics {
	m := &DialogMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "dialog",
			Name:      "messages_total",
			Help:      "Total processed patient messages",
		}, []string{"action", "stage"}),
		handoffsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "dialog",
			Name:      "handoffs_total",
			Help:      "Total conversations routed to a human operator",
		}, []string{"category"}),
		evictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "session",
			Name:      "evictions_total",
			Help:      "Total sessions removed by the TTL sweeper",
		}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "dialog",
			Name:      "turn_latency_seconds",
			Help:      "Latency of one message round trip through the dialog engine",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.messagesTotal, m.handoffsTotal, m.evictionsTotal, m.turnLatency)
	return m
}

func (m *DialogMetrics) ObserveMessage(action, stage string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(action, stage).Inc()
}

func (m *DialogMetrics) ObserveHandoff(category string) {
	if m == nil {
		return
	}
	m.handoffsTotal.WithLabelValues(category).Inc()
}

func (m *DialogMetrics) ObserveEvictions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.evictionsTotal.Add(float64(n))
}

func (m *DialogMetrics) ObserveTurnLatency(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(stage).Observe(seconds)
}
