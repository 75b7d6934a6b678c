package store

import (
	"strings"

	"github.com/Kevin-DeBruyne/expense-tracker/expense"
	"github.com/forPelevin/gomoji"
)

// CategoryForMerchant returns the category of the most recently recorded
// record for the given merchant. Processed records are consulted first since
// they carry the most user-confirmed data, then pending ones. Uncategorized
// entries never win: the index exists to replay deliberate choices.
func (s *Store) CategoryForMerchant(merchant string) (string, bool) {
	key := normalizeMerchant(merchant)
	if key == "" {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()

	if cat, ok := latestCategory(s.processed, key); ok {
		return cat, true
	}
	return latestCategory(s.pending, key)
}

func latestCategory(recs []expense.Record, key string) (string, bool) {
	for i := len(recs) - 1; i >= 0; i-- {
		rec := recs[i]
		if rec.Category == "" || rec.Category == expense.CategoryUncategorized {
			continue
		}
		if normalizeMerchant(rec.Title) == key {
			return rec.Category, true
		}
	}
	return "", false
}

// normalizeMerchant makes merchant names comparable: emoji removed, case
// folded, whitespace trimmed.
func normalizeMerchant(name string) string {
	return strings.ToLower(strings.TrimSpace(gomoji.RemoveEmojis(name)))
}
