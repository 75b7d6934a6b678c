// Package prom exposes the tracker's internal counters as Prometheus
// metrics through a custom collector.
package prom

import (
	"encoding/json"
	"net/http"

	"github.com/Kevin-DeBruyne/expense-tracker/enhance"
	"github.com/Kevin-DeBruyne/expense-tracker/extract"
	"github.com/Kevin-DeBruyne/expense-tracker/gemini"
	"github.com/Kevin-DeBruyne/expense-tracker/sms"
	"github.com/Kevin-DeBruyne/expense-tracker/syncer"
	"github.com/prometheus/client_golang/prometheus"
)

func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	e.CollectStore(ch) // Record store gauges
	e.CollectSys(ch)   // Program counters (API calls, tier hits, etc...)
}

func (e *Exporter) CollectStore(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		e.Records,
		prometheus.GaugeValue,
		float64(len(e.store.Pending())),
		"pending",
	)
	ch <- prometheus.MustNewConstMetric(
		e.Records,
		prometheus.GaugeValue,
		float64(len(e.store.Processed())),
		"processed",
	)
	ch <- prometheus.MustNewConstMetric(
		e.EnhancementQueue,
		prometheus.GaugeValue,
		float64(len(e.store.EnhancementQueue())),
	)
	ch <- prometheus.MustNewConstMetric(
		e.WatermarkTimestamp,
		prometheus.GaugeValue,
		float64(e.watermark.Get()),
	)
}

// CollectSys collects the package-level program counters.
func (e *Exporter) CollectSys(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		e.APICalls,
		prometheus.CounterValue,
		gemini.APICalls.Value(),
		"gemini",
	)
	ch <- prometheus.MustNewConstMetric(
		e.APICalls,
		prometheus.CounterValue,
		extract.OpenAICalls.Value(),
		"openai",
	)
	ch <- prometheus.MustNewConstMetric(
		e.APICalls,
		prometheus.CounterValue,
		sms.APICalls.Value(),
		"sms_gateway",
	)
	ch <- prometheus.MustNewConstMetric(
		e.APIErrors,
		prometheus.CounterValue,
		gemini.APIErrors.Value(),
		"gemini",
	)
	ch <- prometheus.MustNewConstMetric(
		e.APIErrors,
		prometheus.CounterValue,
		extract.OpenAIErrors.Value(),
		"openai",
	)
	ch <- prometheus.MustNewConstMetric(
		e.APIErrors,
		prometheus.CounterValue,
		sms.APIErrors.Value(),
		"sms_gateway",
	)
	ch <- prometheus.MustNewConstMetric(
		e.Messages,
		prometheus.CounterValue,
		extract.Processed.Value(),
		"accepted",
	)
	ch <- prometheus.MustNewConstMetric(
		e.Messages,
		prometheus.CounterValue,
		extract.Dropped.Value(),
		"dropped",
	)
	ch <- prometheus.MustNewConstMetric(
		e.TierHits,
		prometheus.CounterValue,
		extract.AITierHits.Value(),
		"ai",
	)
	ch <- prometheus.MustNewConstMetric(
		e.TierHits,
		prometheus.CounterValue,
		extract.RegexFallbacks.Value(),
		"regex",
	)
	ch <- prometheus.MustNewConstMetric(
		e.ReconcileRuns,
		prometheus.CounterValue,
		syncer.Runs.Value(),
	)
	ch <- prometheus.MustNewConstMetric(
		e.ReconcileFailures,
		prometheus.CounterValue,
		syncer.Failures.Value(),
	)
	ch <- prometheus.MustNewConstMetric(
		e.EnhanceSweeps,
		prometheus.CounterValue,
		enhance.Sweeps.Value(),
	)
	ch <- prometheus.MustNewConstMetric(
		e.EnhancedRecords,
		prometheus.CounterValue,
		enhance.Enhanced.Value(),
	)
}

// HealthHandler reports process liveness for the /health endpoint.
func HealthHandler(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
