package types

import (
	"encoding/json"
	"strconv"
	"strings"
)

// =============================================================================
// FIELD SANITIZERS
// =============================================================================
// Pure functions that normalize loosely-typed input into canonical trade
// fields. None of them can fail: every branch has a default.

// UnknownTicker is the sentinel for records whose ticker could not be
// determined from the note.
const UnknownTicker = "UNKNOWN"

// SanitizeTicker trims and upper-cases a raw ticker. Empty or missing input
// yields the UNKNOWN sentinel.
func SanitizeTicker(raw string) string {
	t := strings.ToUpper(strings.TrimSpace(raw))
	if t == "" {
		return UnknownTicker
	}
	return t
}

// SanitizeKind matches raw case-insensitively against the closed kind set.
// Unmatched or missing input defaults to long.
func SanitizeKind(raw string) TradeKind {
	switch TradeKind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindLong:
		return KindLong
	case KindShort:
		return KindShort
	case KindCall:
		return KindCall
	case KindPut:
		return KindPut
	default:
		return KindLong
	}
}

// SanitizeStatus returns closed only on an exact case-insensitive match of
// "closed"; everything else, including missing input, is open.
func SanitizeStatus(raw string) TradeStatus {
	if strings.EqualFold(strings.TrimSpace(raw), string(StatusClosed)) {
		return StatusClosed
	}
	return StatusOpen
}

// CoerceNumber accepts numeric-like input of any JSON-ish type and returns a
// float pointer, or nil for non-numeric/missing input. Never errors.
func CoerceNumber(raw interface{}) *float64 {
	switch v := raw.(type) {
	case nil:
		return nil
	case float64:
		return Float(v)
	case float32:
		return Float(float64(v))
	case int:
		return Float(float64(v))
	case int64:
		return Float(float64(v))
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return Float(f)
		}
		return nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Float(f)
		}
		return nil
	default:
		return nil
	}
}
