package store

import (
	"github.com/Kevin-DeBruyne/expense-tracker/expense"
	"golang.org/x/exp/slices"
)

// Categories returns the known category list: the configured seed plus every
// category a record has been filed under.
func (s *Store) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	return slices.Clone(s.categories)
}

// SeedCategories merges the configured starter categories into the persisted
// list. Runs once at startup; categories learned from records are kept.
func (s *Store) SeedCategories(seed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()

	added := false
	for _, cat := range seed {
		if cat != "" && !slices.Contains(s.categories, cat) {
			s.categories = append(s.categories, cat)
			added = true
		}
	}
	if added {
		s.save(categoriesKey, s.categories)
	}
}

// learnCategory records a category the first time a record is filed under it.
// The caller is responsible for locking the mutex.
func (s *Store) learnCategory(category string) {
	if category == "" || category == expense.CategoryUncategorized {
		return
	}
	if slices.Contains(s.categories, category) {
		return
	}
	s.categories = append(s.categories, category)
	s.save(categoriesKey, s.categories)
}
