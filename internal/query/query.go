package query

import (
	"sort"
	"strings"

	"tradevault/internal/logging"
	"tradevault/internal/types"
)

// =============================================================================
// LISTING
// =============================================================================

// Options controls sorting and pagination for a listing.
type Options struct {
	// SortBy is a filterable field name; empty defaults to created_at.
	SortBy string
	// Descending reverses the sort; equal keys stay in input order.
	Descending bool
	// Limit truncates the result when > 0.
	Limit int
}

// Apply filters, sorts, and paginates the candidate records. The result is
// deep copies; callers cannot mutate store state through it. Sort keys use
// the same normalization as range conditions, so timestamps and numeric
// strings order naturally; records whose key is incomparable with a
// neighbor's keep their input order.
func Apply(records []*types.TradeRecord, f Filter, opts Options) []*types.TradeRecord {
	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}

	matched := make([]*types.TradeRecord, 0, len(records))
	for _, rec := range records {
		if f.Matches(rec) {
			matched = append(matched, rec)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		cmp, ok := compare(fieldValue(matched[i], sortBy), fieldValue(matched[j], sortBy))
		if !ok {
			return false
		}
		if opts.Descending {
			return cmp > 0
		}
		return cmp < 0
	})

	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}

	out := make([]*types.TradeRecord, len(matched))
	for i, rec := range matched {
		out[i] = rec.Clone()
	}

	logging.Query("list: %d/%d matched, sort=%s desc=%v limit=%d",
		len(out), len(records), sortBy, opts.Descending, opts.Limit)
	return out
}

// =============================================================================
// SEARCH CRITERIA MAPPING
// =============================================================================

// Criteria is the user-facing search surface. Zero values mean "no
// restriction"; the mapping into a Filter is pure.
type Criteria struct {
	Status     string   `json:"status,omitempty"`
	Tickers    []string `json:"tickers,omitempty"`
	Sentiments []string `json:"sentiments,omitempty"`
	DateFrom   string   `json:"date_from,omitempty"`
	DateTo     string   `json:"date_to,omitempty"`
	PnlMin     *float64 `json:"pnl_min,omitempty"`
	PnlMax     *float64 `json:"pnl_max,omitempty"`
}

// FromCriteria maps user-supplied search criteria into a validated Filter.
// The date range applies to the record's creation time.
func FromCriteria(c Criteria) (Filter, error) {
	conditions := make(map[string]Condition)

	if s := strings.TrimSpace(c.Status); s != "" {
		conditions["status"] = Equals{Value: s}
	}
	if len(c.Tickers) > 0 {
		conditions["ticker"] = OneOf{Values: toValues(c.Tickers)}
	}
	if len(c.Sentiments) > 0 {
		conditions["sentiment"] = OneOf{Values: toValues(c.Sentiments)}
	}
	if c.DateFrom != "" || c.DateTo != "" {
		r := Range{}
		if c.DateFrom != "" {
			r.GTE = c.DateFrom
		}
		if c.DateTo != "" {
			r.LTE = c.DateTo
		}
		conditions["created_at"] = r
	}
	if c.PnlMin != nil || c.PnlMax != nil {
		r := Range{}
		if c.PnlMin != nil {
			r.GTE = *c.PnlMin
		}
		if c.PnlMax != nil {
			r.LTE = *c.PnlMax
		}
		conditions["pnl_usd"] = r
	}

	return NewFilter(conditions)
}

func toValues(strs []string) []interface{} {
	values := make([]interface{}, len(strs))
	for i, s := range strs {
		values[i] = s
	}
	return values
}
