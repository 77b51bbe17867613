package store

import "tradevault/internal/types"

// Store is the record-set surface the journal service depends on. MemoryStore
// satisfies it directly; DurableStore layers SQLite persistence underneath.
type Store interface {
	// Lock serializes writers for one record id; the returned func releases.
	Lock(id string) func()

	Upsert(rec *types.TradeRecord)
	Delete(id string) bool
	Get(id string) *types.TradeRecord

	Snapshot() []*types.TradeRecord
	OpenRecords() []*types.TradeRecord
	Count() int

	Seed(records []*types.TradeRecord)
	Reset()
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*DurableStore)(nil)
)
