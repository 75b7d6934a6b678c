package syncer

import (
	"testing"
	"time"

	"github.com/Kevin-DeBruyne/expense-tracker/store"
)

func fixedNow() time.Time {
	return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
}

func testWatermark(kv store.KV) *Watermark {
	w := NewWatermark(kv)
	w.now = fixedNow
	return w
}

func TestWatermark_FirstRunWindow(t *testing.T) {
	w := testWatermark(store.NewMemKV())

	want := fixedNow().Add(-24 * time.Hour).UnixMilli()
	if got := w.Get(); got != want {
		t.Errorf("Get on empty store = %d, want now-24h %d", got, want)
	}
}

func TestWatermark_GarbageFallsBackToWindow(t *testing.T) {
	kv := store.NewMemKV()
	_ = kv.Set("last_sms_sync_timestamp", "not-a-number")
	w := testWatermark(kv)

	want := fixedNow().Add(-24 * time.Hour).UnixMilli()
	if got := w.Get(); got != want {
		t.Errorf("Get with garbage = %d, want fallback %d", got, want)
	}
}

func TestWatermark_AdvanceIsMonotonic(t *testing.T) {
	w := testWatermark(store.NewMemKV())
	base := fixedNow().Add(-time.Hour).UnixMilli()

	w.Advance(base)
	if got := w.Get(); got != base {
		t.Fatalf("Get after first Advance = %d, want %d", got, base)
	}

	// An older timestamp must not move the cursor backwards.
	w.Advance(base - 1000)
	if got := w.Get(); got != base {
		t.Errorf("Get after stale Advance = %d, want %d kept", got, base)
	}

	w.Advance(base + 1000)
	if got := w.Get(); got != base+1000 {
		t.Errorf("Get after newer Advance = %d, want %d", got, base+1000)
	}
}

func TestWatermark_Rewind(t *testing.T) {
	w := testWatermark(store.NewMemKV())
	w.Advance(fixedNow().UnixMilli())

	got := w.Rewind(60)
	want := fixedNow().Add(-60 * time.Minute).UnixMilli()
	if got != want {
		t.Errorf("Rewind(60) = %d, want %d", got, want)
	}
	if w.Get() != want {
		t.Errorf("Get after rewind = %d, want %d", w.Get(), want)
	}
}
