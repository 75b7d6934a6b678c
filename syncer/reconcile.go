package syncer

import (
	"context"

	"github.com/Kevin-DeBruyne/expense-tracker/counter"
	"github.com/Kevin-DeBruyne/expense-tracker/expense"
	"github.com/Kevin-DeBruyne/expense-tracker/extract"
	"github.com/Kevin-DeBruyne/expense-tracker/sms"
	"github.com/rs/zerolog/log"
)

var (
	Runs         counter.Counter
	Failures     counter.Counter
	MessagesSeen counter.Counter
	RecordsFound counter.Counter
)

// Reconciler fetches every message newer than the watermark and runs it
// through the extraction pipeline. Delivery is at-least-once: a failure
// leaves the watermark alone so the same window is retried next time, and
// the deterministic record ids absorb the resulting duplicates downstream.
type Reconciler struct {
	source    sms.Source
	pipeline  *extract.Pipeline
	watermark *Watermark
}

func NewReconciler(source sms.Source, pipeline *extract.Pipeline, watermark *Watermark) *Reconciler {
	return &Reconciler{
		source:    source,
		pipeline:  pipeline,
		watermark: watermark,
	}
}

// Reconcile runs one catch-up pass, handing each extracted record to
// onFound. Messages are processed in the order the source returned them.
func (r *Reconciler) Reconcile(ctx context.Context, onFound func(expense.Record)) error {
	Runs.Inc()
	since := r.watermark.Get()

	messages, err := r.source.ListSince(ctx, since)
	if err != nil {
		Failures.Inc()
		log.Error().Err(err).Int64("since", since).Msg("Could not list missed messages")
		return err
	}

	now := r.watermark.now().UnixMilli()
	if len(messages) == 0 {
		r.watermark.Advance(now)
		return nil
	}

	log.Info().Int("count", len(messages)).Int64("since", since).Msg("📨 Found missed messages")

	found := 0
	for _, msg := range messages {
		MessagesSeen.Inc()
		rec := r.pipeline.Process(ctx, msg)
		if rec == nil {
			continue
		}
		RecordsFound.Inc()
		found++
		onFound(*rec)
	}

	log.Info().Int("messages", len(messages)).Int("records", found).Msg("Reconciliation pass complete")
	r.watermark.Advance(now)
	return nil
}
