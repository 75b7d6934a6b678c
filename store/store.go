// Package store persists expense records in an opaque key/value store under
// fixed keys, with a mutex-guarded in-memory cache in front.
//
// Store reads can fail without stopping the pipeline: the cache keeps the
// working state and the next successful write retries naturally.
package store

import (
	"encoding/json"
	"sync"

	"github.com/Kevin-DeBruyne/expense-tracker/expense"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
)

const (
	pendingKey    = "pending_expenses_data"
	processedKey  = "processed_expenses_data"
	queueKey      = "enhancement_queue_data"
	categoriesKey = "categories_data"
)

type Store struct {
	kv KV

	mu         sync.Mutex // protects the cached data
	pending    []expense.Record
	processed  []expense.Record
	queue      []string // record ids awaiting enhancement
	categories []string
	loaded     bool
}

func New(kv KV) *Store {
	return &Store{kv: kv}
}

// load populates the cache from the durable store. The caller is responsible
// for locking the mutex. A read failure is logged and leaves the cache
// empty; the store keeps operating in memory.
func (s *Store) load() {
	if s.loaded {
		return
	}
	s.loadKey(pendingKey, &s.pending)
	s.loadKey(processedKey, &s.processed)
	s.loadKey(queueKey, &s.queue)
	s.loadKey(categoriesKey, &s.categories)
	s.loaded = true
}

func (s *Store) loadKey(key string, into any) {
	raw, ok, err := s.kv.Get(key)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Store read failed, proceeding with in-memory state")
		return
	}
	if !ok {
		return
	}
	if err := json.Unmarshal([]byte(raw), into); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Store held invalid JSON, proceeding with in-memory state")
	}
}

// save writes one key back. Write failures are logged, not returned: the
// cache already holds the new state and the next save retries.
func (s *Store) save(key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Could not encode records")
		return
	}
	if err := s.kv.Set(key, string(raw)); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Store write failed, state kept in memory")
	}
}

func (s *Store) Pending() []expense.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	return slices.Clone(s.pending)
}

func (s *Store) Processed() []expense.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	return slices.Clone(s.processed)
}

// Get looks a record up by id across both lifecycle lists.
func (s *Store) Get(id string) (expense.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	if i := indexByID(s.pending, id); i >= 0 {
		return s.pending[i], true
	}
	if i := indexByID(s.processed, id); i >= 0 {
		return s.processed[i], true
	}
	return expense.Record{}, false
}

// Add appends a new pending record unless a record with the same id already
// exists anywhere. The id is the dedup key across the live and
// reconciliation capture paths: the second discovery of the same underlying
// message is a no-op.
func (s *Store) Add(rec expense.Record) (created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()

	if indexByID(s.pending, rec.ID) >= 0 || indexByID(s.processed, rec.ID) >= 0 {
		return false
	}

	s.pending = append(s.pending, rec)
	s.save(pendingKey, s.pending)
	s.learnCategory(rec.Category)

	if rec.RequiresEnhancement && !slices.Contains(s.queue, rec.ID) {
		s.queue = append(s.queue, rec.ID)
		s.save(queueKey, s.queue)
	}
	return true
}

// Replace updates a record in place, keyed by id. Used by the enhancement
// sweep and by user category edits; callers must not change the id.
func (s *Store) Replace(rec expense.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()

	if i := indexByID(s.pending, rec.ID); i >= 0 {
		s.pending[i] = rec
		s.save(pendingKey, s.pending)
	} else if i := indexByID(s.processed, rec.ID); i >= 0 {
		s.processed[i] = rec
		s.save(processedKey, s.processed)
	} else {
		return false
	}
	s.learnCategory(rec.Category)

	if !rec.RequiresEnhancement {
		s.dropFromQueue(rec.ID)
	}
	return true
}

// SetCategory applies a user category edit. The history index learns from
// these edits on its next lookup.
func (s *Store) SetCategory(id, category string) bool {
	rec, ok := s.Get(id)
	if !ok {
		return false
	}
	rec.Category = category
	return s.Replace(rec)
}

// MarkProcessed moves a pending record to the processed list with the user's
// settlement note.
func (s *Store) MarkProcessed(id, note string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()

	i := indexByID(s.pending, id)
	if i < 0 {
		return false
	}
	rec := s.pending[i]
	rec.Processed = note
	s.pending = slices.Delete(s.pending, i, i+1)
	s.processed = append(s.processed, rec)
	s.save(pendingKey, s.pending)
	s.save(processedKey, s.processed)
	return true
}

// Delete removes a pending record.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()

	i := indexByID(s.pending, id)
	if i < 0 {
		return false
	}
	s.pending = slices.Delete(s.pending, i, i+1)
	s.save(pendingKey, s.pending)
	s.dropFromQueue(id)
	return true
}

// EnhancementQueue returns the ids of records awaiting an AI retry.
func (s *Store) EnhancementQueue() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	return slices.Clone(s.queue)
}

// dropFromQueue removes an id from the enhancement queue. The caller is
// responsible for locking the mutex.
func (s *Store) dropFromQueue(id string) {
	if i := slices.Index(s.queue, id); i >= 0 {
		s.queue = slices.Delete(s.queue, i, i+1)
		s.save(queueKey, s.queue)
	}
}

func indexByID(recs []expense.Record, id string) int {
	return slices.IndexFunc(recs, func(r expense.Record) bool { return r.ID == id })
}
