// Package query evaluates declarative filters against the record set, sorts,
// and paginates. Conditions are tagged variants validated at construction
// time rather than duck-typed maps interpreted at match time.
package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tradevault/internal/types"
)

// =============================================================================
// FILTER EXPRESSIONS
// =============================================================================

// Condition is one field constraint. The three variants are Equals, OneOf,
// and Range; all fields in a filter are AND-ed.
type Condition interface {
	validate(field string) error
	matches(value interface{}) bool
}

// Equals matches a literal. String comparison is case-insensitive; a nil
// Value is vacuously true.
type Equals struct {
	Value interface{}
}

// OneOf matches membership in a set, case-insensitively for strings. An
// empty set is vacuously true.
type OneOf struct {
	Values []interface{}
}

// Range matches >= GTE and <= LTE; a nil bound is unbounded. At least one
// bound must be set.
type Range struct {
	GTE interface{}
	LTE interface{}
}

// Filter maps a record field name to its condition. Valid field names are
// the record's scalar fields (ticker, kind, status, sentiment, the numeric
// fields, and the timestamps).
type Filter map[string]Condition

var filterableFields = map[string]bool{
	"id": true, "ticker": true, "kind": true, "status": true, "sentiment": true,
	"size": true, "entry_price": true, "exit_price": true,
	"pnl_usd": true, "pnl_percent": true, "duration_minutes": true, "risk_reward": true,
	"opened_at": true, "closed_at": true, "created_at": true, "updated_at": true,
}

// NewFilter validates the given conditions and returns them as a Filter.
// Unknown field names and malformed conditions fail here, once, instead of
// surfacing per record during matching.
func NewFilter(conditions map[string]Condition) (Filter, error) {
	f := make(Filter, len(conditions))
	for field, cond := range conditions {
		if !filterableFields[field] {
			return nil, fmt.Errorf("unknown filter field %q", field)
		}
		if cond == nil {
			continue // vacuous
		}
		if err := cond.validate(field); err != nil {
			return nil, err
		}
		f[field] = cond
	}
	return f, nil
}

// Matches reports whether every condition in the filter holds for the record.
// An empty filter matches everything.
func (f Filter) Matches(rec *types.TradeRecord) bool {
	for field, cond := range f {
		if !cond.matches(fieldValue(rec, field)) {
			return false
		}
	}
	return true
}

func (e Equals) validate(string) error { return nil }

func (e Equals) matches(value interface{}) bool {
	if e.Value == nil {
		return true
	}
	cmp, ok := compare(value, e.Value)
	return ok && cmp == 0
}

func (o OneOf) validate(string) error { return nil }

func (o OneOf) matches(value interface{}) bool {
	if len(o.Values) == 0 {
		return true
	}
	for _, v := range o.Values {
		if cmp, ok := compare(value, v); ok && cmp == 0 {
			return true
		}
	}
	return false
}

func (r Range) validate(field string) error {
	if r.GTE == nil && r.LTE == nil {
		return fmt.Errorf("range on %q needs at least one bound", field)
	}
	return nil
}

func (r Range) matches(value interface{}) bool {
	if r.GTE != nil {
		cmp, ok := compare(value, r.GTE)
		if !ok || cmp < 0 {
			return false
		}
	}
	if r.LTE != nil {
		cmp, ok := compare(value, r.LTE)
		if !ok || cmp > 0 {
			return false
		}
	}
	return true
}

// =============================================================================
// VALUE NORMALIZATION
// =============================================================================

// compare normalizes both sides and returns their ordering. Numbers stay
// numbers, numeric-looking strings parse to numbers, date-like strings parse
// to timestamps, everything else lowercases for ordinal comparison. ok is
// false when the sides are incomparable (a failed condition, never an error).
func compare(a, b interface{}) (int, bool) {
	an, as, aNum := normalize(a)
	bn, bs, bNum := normalize(b)
	switch {
	case aNum && bNum:
		switch {
		case an < bn:
			return -1, true
		case an > bn:
			return 1, true
		default:
			return 0, true
		}
	case !aNum && !bNum:
		return strings.Compare(as, bs), true
	default:
		return 0, false
	}
}

// normalize reduces any field value to a number or a lowercased string. nil
// pointers (unset fields) normalize to the empty string, so they compare
// against strings but are incomparable with numeric bounds.
func normalize(v interface{}) (num float64, str string, isNum bool) {
	switch t := v.(type) {
	case nil:
		return 0, "", false
	case float64:
		return t, "", true
	case float32:
		return float64(t), "", true
	case int:
		return float64(t), "", true
	case int64:
		return float64(t), "", true
	case *float64:
		if t == nil {
			return 0, "", false
		}
		return *t, "", true
	case time.Time:
		return float64(t.UnixNano()), "", true
	case *time.Time:
		if t == nil {
			return 0, "", false
		}
		return float64(t.UnixNano()), "", true
	case types.TradeKind:
		return 0, strings.ToLower(string(t)), false
	case types.TradeStatus:
		return 0, strings.ToLower(string(t)), false
	case *string:
		if t == nil {
			return 0, "", false
		}
		return normalizeString(*t)
	case string:
		return normalizeString(t)
	default:
		return 0, strings.ToLower(fmt.Sprint(t)), false
	}
}

func normalizeString(s string) (float64, string, bool) {
	trimmed := strings.TrimSpace(s)
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return n, "", true
	}
	if ts := types.ParseFlexTime(trimmed); !ts.IsZero() {
		return float64(ts.UnixNano()), "", true
	}
	return 0, strings.ToLower(trimmed), false
}

// fieldValue resolves a filterable field name on a record. Unset pointer
// fields resolve to nil.
func fieldValue(rec *types.TradeRecord, field string) interface{} {
	switch field {
	case "id":
		return rec.ID
	case "ticker":
		return rec.Ticker
	case "kind":
		return rec.Kind
	case "status":
		return rec.Status
	case "sentiment":
		return rec.Sentiment
	case "size":
		return rec.Size
	case "entry_price":
		return rec.EntryPrice
	case "exit_price":
		return rec.ExitPrice
	case "pnl_usd":
		return rec.PnlUSD
	case "pnl_percent":
		return rec.PnlPercent
	case "duration_minutes":
		return rec.DurationMinutes
	case "risk_reward":
		return rec.RiskReward
	case "opened_at":
		return rec.OpenedAt
	case "closed_at":
		return rec.ClosedAt
	case "created_at":
		return rec.CreatedAt
	case "updated_at":
		return rec.UpdatedAt
	default:
		return nil
	}
}
