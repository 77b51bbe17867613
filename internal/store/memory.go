// Package store owns the trade record set: an in-memory primary keyed by id
// with explicit seed/reset lifecycle, optionally backed by a write-through
// SQLite database for durability across restarts.
package store

import (
	"sort"
	"sync"

	"tradevault/internal/logging"
	"tradevault/internal/types"
)

// MemoryStore is the canonical record set. It keeps records keyed by id plus
// an explicit insertion order; Upsert of an existing id moves the record to
// the front of that order, which callers use as a recency proxy. All reads
// hand out deep copies.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*types.TradeRecord
	order   []string // front = most recently written

	keyMu sync.Mutex
	keys  map[string]*sync.Mutex
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*types.TradeRecord),
		keys:    make(map[string]*sync.Mutex),
	}
}

// Lock acquires the per-record write lock for id, creating it on first use.
// Callers hold it across their read-merge-write cycle so concurrent notes
// targeting the same position cannot lose updates.
func (s *MemoryStore) Lock(id string) func() {
	s.keyMu.Lock()
	m, ok := s.keys[id]
	if !ok {
		m = &sync.Mutex{}
		s.keys[id] = m
	}
	s.keyMu.Unlock()

	m.Lock()
	return m.Unlock
}

// Upsert stores a deep copy of rec, replacing any record with the same id,
// and moves the id to the front of insertion order.
func (s *MemoryStore) Upsert(rec *types.TradeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.records[rec.ID]
	s.records[rec.ID] = rec.Clone()
	if existed {
		s.order = removeID(s.order, rec.ID)
	}
	s.order = append([]string{rec.ID}, s.order...)

	logging.StoreDebug("upsert %s (existing=%v, total=%d)", rec.ID, existed, len(s.order))
}

// Delete removes the record with the given id; it reports whether anything
// was removed.
func (s *MemoryStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return false
	}
	delete(s.records, id)
	s.order = removeID(s.order, id)
	logging.StoreDebug("delete %s (total=%d)", id, len(s.order))
	return true
}

// Get returns a deep copy of the record with the given id, or nil.
func (s *MemoryStore) Get(id string) *types.TradeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[id].Clone()
}

// Snapshot returns deep copies of every record in insertion order (most
// recently written first). Each call observes a consistent point in time.
func (s *MemoryStore) Snapshot() []*types.TradeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.TradeRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id].Clone())
	}
	return out
}

// OpenRecords returns deep copies of every open record, most recently
// updated first. This is the candidate set for update-target inference.
func (s *MemoryStore) OpenRecords() []*types.TradeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.TradeRecord, 0, len(s.order))
	for _, id := range s.order {
		if rec := s.records[id]; rec.Status == types.StatusOpen {
			out = append(out, rec.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Count returns the number of records.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Seed replaces the entire record set. Slice order becomes insertion order
// with the first element frontmost. Used for initial load and tests.
func (s *MemoryStore) Seed(records []*types.TradeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*types.TradeRecord, len(records))
	s.order = s.order[:0]
	for _, rec := range records {
		if _, dup := s.records[rec.ID]; dup {
			continue
		}
		s.records[rec.ID] = rec.Clone()
		s.order = append(s.order, rec.ID)
	}
	logging.Store("seeded %d records", len(s.order))
}

// Reset drops every record.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*types.TradeRecord)
	s.order = nil
	logging.Store("store reset")
}

func removeID(order []string, id string) []string {
	for i, v := range order {
		if v == id {
			return append(order[:i:i], order[i+1:]...)
		}
	}
	return order
}
