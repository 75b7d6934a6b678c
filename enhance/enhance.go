// Package enhance re-runs AI extraction for records captured while the AI
// tier was unreachable, upgrading their merchant and category in place.
package enhance

import (
	"context"
	"strings"

	"github.com/Kevin-DeBruyne/expense-tracker/counter"
	"github.com/Kevin-DeBruyne/expense-tracker/expense"
	"github.com/Kevin-DeBruyne/expense-tracker/extract"
	"github.com/rs/zerolog/log"
)

// Store is the slice of the record store the sweep needs.
type Store interface {
	EnhancementQueue() []string
	Get(id string) (expense.Record, bool)
	Replace(rec expense.Record) bool
	CategoryForMerchant(merchant string) (string, bool)
}

var (
	Sweeps   counter.Counter
	Enhanced counter.Counter
	Retried  counter.Counter
)

// Sweeper walks the enhancement queue. Safe to invoke repeatedly: records
// whose retry fails stay queued, already-enhanced records are untouched.
type Sweeper struct {
	classifiers []extract.Classifier
	store       Store
}

func NewSweeper(classifiers []extract.Classifier, store Store) *Sweeper {
	return &Sweeper{
		classifiers: classifiers,
		store:       store,
	}
}

// EnhanceAll retries AI extraction for every flagged record. Identity,
// amount, date, and source are immutable across the operation; only the
// title, category, and the flag itself change.
func (s *Sweeper) EnhanceAll(ctx context.Context) {
	Sweeps.Inc()
	queue := s.store.EnhancementQueue()
	if len(queue) == 0 {
		return
	}
	log.Info().Int("count", len(queue)).Msg("Starting enhancement sweep")

	for _, id := range queue {
		rec, ok := s.store.Get(id)
		if !ok {
			continue
		}
		if !rec.RequiresEnhancement {
			// Stale queue entry; replacing with the flag clear prunes it.
			s.store.Replace(rec)
			continue
		}
		Retried.Inc()

		cand, ok := s.classify(ctx, rec.OriginalBody)
		if !ok {
			// Still unreachable or still no candidate. The record stays
			// flagged for the next sweep.
			continue
		}

		rec.Title = expense.TitleCase(cand.Merchant)
		category := strings.TrimSpace(cand.Category)
		if category == "" {
			category = expense.CategoryUncategorized
		}
		if prior, found := s.store.CategoryForMerchant(rec.Title); found {
			category = prior
		}
		rec.Category = category
		rec.RequiresEnhancement = false
		rec.OriginalBody = ""

		if s.store.Replace(rec) {
			Enhanced.Inc()
			log.Info().Str("id", rec.ID).Str("title", rec.Title).Str("category", rec.Category).Msg("✨ Enhanced record")
		}
	}
}

func (s *Sweeper) classify(ctx context.Context, body string) (expense.Candidate, bool) {
	for _, c := range s.classifiers {
		cand, err := c.Classify(ctx, body)
		if err != nil {
			log.Debug().Err(err).Str("classifier", c.Name()).Msg("Enhancement retry miss")
			continue
		}
		if cand.Valid() {
			return cand, true
		}
	}
	return expense.Candidate{}, false
}
