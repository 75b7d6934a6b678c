// Package syncer tracks the last-processed watermark and runs the batch
// catch-up pass over messages missed while the live listener was down.
package syncer

import (
	"strconv"
	"time"

	"github.com/Kevin-DeBruyne/expense-tracker/store"
	"github.com/rs/zerolog/log"
)

const watermarkKey = "last_sms_sync_timestamp"

// firstRunWindow bounds the very first scan instead of walking unbounded
// message history.
const firstRunWindow = 24 * time.Hour

// Watermark is the persisted cursor marking the point in time up to which
// missed messages have been scanned. Values are epoch milliseconds.
type Watermark struct {
	kv  store.KV
	now func() time.Time
}

func NewWatermark(kv store.KV) *Watermark {
	return &Watermark{
		kv:  kv,
		now: time.Now,
	}
}

// Get returns the persisted watermark, or now minus 24 hours if it was never
// set or cannot be read.
func (w *Watermark) Get() int64 {
	fallback := w.now().Add(-firstRunWindow).UnixMilli()

	raw, ok, err := w.kv.Get(watermarkKey)
	if err != nil {
		log.Error().Err(err).Msg("Could not read sync watermark, using first-run window")
		return fallback
	}
	if !ok {
		return fallback
	}

	t, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Error().Err(err).Str("value", raw).Msg("Sync watermark held garbage, using first-run window")
		return fallback
	}
	return t
}

// Advance persists t only if it is newer than the current value, so a slow
// reconciliation pass cannot overwrite a watermark the live path already
// moved forward.
func (w *Watermark) Advance(t int64) {
	if t <= w.Get() {
		return
	}
	if err := w.kv.Set(watermarkKey, strconv.FormatInt(t, 10)); err != nil {
		log.Error().Err(err).Msg("Could not persist sync watermark")
	}
}

// Rewind forces the watermark back to now minus the given number of minutes,
// so the next reconciliation re-scans that window. Operator-invoked recovery
// for messages believed to have been mis-extracted.
func (w *Watermark) Rewind(minutes int) int64 {
	t := w.now().Add(-time.Duration(minutes) * time.Minute).UnixMilli()
	if err := w.kv.Set(watermarkKey, strconv.FormatInt(t, 10)); err != nil {
		log.Error().Err(err).Msg("Could not rewind sync watermark")
	}
	log.Info().Int("minutes", minutes).Int64("watermark", t).Msg("⏪ Sync watermark rewound")
	return t
}
