package main

import (
	"context"

	"github.com/Kevin-DeBruyne/expense-tracker/expense"
	"github.com/rs/zerolog/log"
)

// runSync runs one reconciliation pass over the messages missed since the
// watermark, then sweeps the enhancement queue. Invoked at startup, on every
// ticker fire, and on demand through the sync API.
func (a *App) runSync() {
	log.Debug().Msg("Starting SMS catch-up pass")
	ctx := context.Background()

	if err := a.reconciler.Reconcile(ctx, a.saveRecord); err != nil {
		// Already logged; the watermark was not advanced, so the same
		// window is retried on the next pass.
		return
	}

	// Connectivity was just proven good, so retry degraded records now.
	a.sweeper.EnhanceAll(ctx)
}

// saveRecord merges an extracted record into the store. Records re-discovered
// by both capture paths share an id and collapse here.
func (a *App) saveRecord(rec expense.Record) {
	if cli.DryRun {
		log.Info().
			Str("Type", "Expense").
			Str("Title", rec.Title).
			Str("ID", rec.ID).
			Float64("Amount", rec.Amount.InexactFloat64()).
			Msg("📜 Found Expense (Debug Mode) - Not Persisting")
		return
	}

	if !a.store.Add(rec) {
		log.Debug().Str("ID", rec.ID).Msg("Record already captured, skipping duplicate")
		return
	}

	log.Info().
		Str("Type", "Expense").
		Str("Title", rec.Title).
		Str("ID", rec.ID).
		Str("Source", rec.Source).
		Str("Category", rec.Category).
		Bool("RequiresEnhancement", rec.RequiresEnhancement).
		Float64("Amount", rec.Amount.InexactFloat64()).
		Msg("➕ Successfully added expense")
}
