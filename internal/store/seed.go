package store

import (
	"encoding/json"
	"fmt"
	"os"

	"tradevault/internal/logging"
	"tradevault/internal/types"
)

// LoadSeedFile reads a JSON array of trade records. Used for the initial
// record-set load and by the reset lifecycle.
func LoadSeedFile(path string) ([]*types.TradeRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var records []*types.TradeRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	logging.Store("loaded %d seed records from %s", len(records), path)
	return records, nil
}
