package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestDialogMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDialogMetrics(reg)
	m.ObserveMessage("need_info", "info_collection")
	m.ObserveHandoff("sensitive_health")
	m.ObserveEvictions(3)
	m.ObserveTurnLatency("info_collection", 0.02)
}

func TestDialogMetricsNilSafe(t *testing.T) {
	var m *DialogMetrics
	m.ObserveMessage("need_info", "info_collection")
	m.ObserveHandoff("sensitive_health")
	m.ObserveEvictions(1)
	m.ObserveTurnLatency("welcome", 0.1)
}

func TestDialogMetricsIgnoresNonPositiveEvictions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDialogMetrics(reg)
	m.ObserveEvictions(0)
	m.ObserveEvictions(-2)
}
