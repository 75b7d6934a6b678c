package prom

import (
	"github.com/Kevin-DeBruyne/expense-tracker/store"
	"github.com/Kevin-DeBruyne/expense-tracker/syncer"
	"github.com/prometheus/client_golang/prometheus"
)

type Exporter struct {
	Records            *prometheus.Desc
	EnhancementQueue   *prometheus.Desc
	WatermarkTimestamp *prometheus.Desc
	APICalls           *prometheus.Desc
	APIErrors          *prometheus.Desc
	Messages           *prometheus.Desc
	TierHits           *prometheus.Desc
	ReconcileRuns      *prometheus.Desc
	ReconcileFailures  *prometheus.Desc
	EnhanceSweeps      *prometheus.Desc
	EnhancedRecords    *prometheus.Desc

	store     *store.Store
	watermark *syncer.Watermark
}

func NewExporter(namespace string, st *store.Store, wm *syncer.Watermark) *Exporter {
	return &Exporter{
		Records: prometheus.NewDesc(
			prometheus.BuildFQName(
				namespace,
				"records",
				"total",
			),
			"Expense records currently held by the store",
			[]string{"state"},
			nil,
		),
		EnhancementQueue: prometheus.NewDesc(
			prometheus.BuildFQName(
				namespace,
				"enhancement",
				"queue_length",
			),
			"Records waiting for an AI retry",
			[]string{},
			nil,
		),
		WatermarkTimestamp: prometheus.NewDesc(
			prometheus.BuildFQName(
				namespace,
				"sync",
				"watermark_timestamp",
			),
			"Last-processed watermark (epoch milliseconds)",
			[]string{},
			nil,
		),
		APICalls: prometheus.NewDesc(
			prometheus.BuildFQName(
				namespace,
				"status",
				"api_calls",
			),
			"Count of API calls",
			[]string{"type"},
			nil,
		),
		APIErrors: prometheus.NewDesc(
			prometheus.BuildFQName(
				namespace,
				"status",
				"api_errors",
			),
			"Count of API Errors",
			[]string{"type"},
			nil,
		),
		Messages: prometheus.NewDesc(
			prometheus.BuildFQName(
				namespace,
				"extraction",
				"messages",
			),
			"Messages seen by the extraction pipeline",
			[]string{"outcome"},
			nil,
		),
		TierHits: prometheus.NewDesc(
			prometheus.BuildFQName(
				namespace,
				"extraction",
				"tier_hits",
			),
			"Extractions resolved by each tier",
			[]string{"tier"},
			nil,
		),
		ReconcileRuns: prometheus.NewDesc(
			prometheus.BuildFQName(
				namespace,
				"reconcile",
				"runs",
			),
			"Reconciliation passes started",
			[]string{},
			nil,
		),
		ReconcileFailures: prometheus.NewDesc(
			prometheus.BuildFQName(
				namespace,
				"reconcile",
				"failures",
			),
			"Reconciliation passes that failed before advancing the watermark",
			[]string{},
			nil,
		),
		EnhanceSweeps: prometheus.NewDesc(
			prometheus.BuildFQName(
				namespace,
				"enhancement",
				"sweeps",
			),
			"Enhancement sweeps started",
			[]string{},
			nil,
		),
		EnhancedRecords: prometheus.NewDesc(
			prometheus.BuildFQName(
				namespace,
				"enhancement",
				"records",
			),
			"Records successfully enhanced",
			[]string{},
			nil,
		),
		store:     st,
		watermark: wm,
	}
}

func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.Records
	ch <- e.EnhancementQueue
	ch <- e.WatermarkTimestamp
	ch <- e.APICalls
	ch <- e.APIErrors
	ch <- e.Messages
	ch <- e.TierHits
	ch <- e.ReconcileRuns
	ch <- e.ReconcileFailures
	ch <- e.EnhanceSweeps
	ch <- e.EnhancedRecords
}
