package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"tradevault/internal/logging"
	"tradevault/internal/types"
)

// DurableStore is a MemoryStore backed by a write-through SQLite database.
// Reads are served from memory; every mutation is persisted before it
// returns, so a restart reloads the exact record set. Records are stored as
// JSON documents with a monotonic write sequence that reconstructs the
// recency order on load.
type DurableStore struct {
	*MemoryStore

	db     *sql.DB
	dbPath string

	seqMu sync.Mutex
	seq   int64
}

const tradesSchema = `
CREATE TABLE IF NOT EXISTS trades (
	id   TEXT PRIMARY KEY,
	seq  INTEGER NOT NULL,
	data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_seq ON trades(seq);
`

// OpenDurableStore opens (creating if needed) the database at path and loads
// every persisted record into memory.
func OpenDurableStore(path string) (*DurableStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "OpenDurableStore")
	defer timer.Stop()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("failed to set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("failed to set journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("failed to set synchronous=NORMAL: %v", err)
	}

	if _, err := db.Exec(tradesSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &DurableStore{
		MemoryStore: NewMemoryStore(),
		db:          db,
		dbPath:      path,
	}
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("durable store open at %s (%d records)", path, s.Count())
	return s, nil
}

func (s *DurableStore) load() error {
	rows, err := s.db.Query("SELECT data, seq FROM trades ORDER BY seq DESC")
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}
	defer rows.Close()

	var records []*types.TradeRecord
	var maxSeq int64
	for rows.Next() {
		var data string
		var seq int64
		if err := rows.Scan(&data, &seq); err != nil {
			return fmt.Errorf("failed to scan record: %w", err)
		}
		var rec types.TradeRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			logging.Store("skipping undecodable record (seq=%d): %v", seq, err)
			continue
		}
		records = append(records, &rec)
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate records: %w", err)
	}

	s.MemoryStore.Seed(records)
	s.seq = maxSeq
	return nil
}

func (s *DurableStore) nextSeq() int64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.seq++
	return s.seq
}

// Upsert writes through to SQLite, then updates memory. Persistence failures
// are logged, not propagated; memory stays authoritative so a disk error
// never half-applies a mutation.
func (s *DurableStore) Upsert(rec *types.TradeRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		logging.Store("failed to encode record %s: %v", rec.ID, err)
	} else {
		_, err = s.db.Exec(
			"INSERT INTO trades (id, seq, data) VALUES (?, ?, ?) ON CONFLICT(id) DO UPDATE SET seq = excluded.seq, data = excluded.data",
			rec.ID, s.nextSeq(), string(data),
		)
		if err != nil {
			logging.Store("failed to persist record %s: %v", rec.ID, err)
		}
	}
	s.MemoryStore.Upsert(rec)
}

// Delete removes the record from SQLite and memory.
func (s *DurableStore) Delete(id string) bool {
	if _, err := s.db.Exec("DELETE FROM trades WHERE id = ?", id); err != nil {
		logging.Store("failed to delete record %s: %v", id, err)
	}
	return s.MemoryStore.Delete(id)
}

// Seed replaces both the database contents and the in-memory set.
func (s *DurableStore) Seed(records []*types.TradeRecord) {
	tx, err := s.db.Begin()
	if err != nil {
		logging.Store("failed to begin seed transaction: %v", err)
		s.MemoryStore.Seed(records)
		return
	}
	if _, err := tx.Exec("DELETE FROM trades"); err != nil {
		logging.Store("failed to clear trades: %v", err)
	}
	// First element is frontmost, so it gets the highest sequence.
	for i := len(records) - 1; i >= 0; i-- {
		data, err := json.Marshal(records[i])
		if err != nil {
			continue
		}
		if _, err := tx.Exec("INSERT OR REPLACE INTO trades (id, seq, data) VALUES (?, ?, ?)",
			records[i].ID, s.nextSeq(), string(data)); err != nil {
			logging.Store("failed to persist seed record %s: %v", records[i].ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		logging.Store("failed to commit seed: %v", err)
	}
	s.MemoryStore.Seed(records)
}

// Reset drops every record from the database and memory.
func (s *DurableStore) Reset() {
	if _, err := s.db.Exec("DELETE FROM trades"); err != nil {
		logging.Store("failed to clear trades on reset: %v", err)
	}
	s.MemoryStore.Reset()
}

// Close closes the underlying database.
func (s *DurableStore) Close() error {
	return s.db.Close()
}
