package types

import (
	"encoding/json"
	"testing"
)

func TestSanitizeTicker(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"Lowercase", "aapl", "AAPL"},
		{"Padded", "  tsla ", "TSLA"},
		{"AlreadyUpper", "NVDA", "NVDA"},
		{"Empty", "", UnknownTicker},
		{"Whitespace", "   ", UnknownTicker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeTicker(tt.raw); got != tt.want {
				t.Errorf("SanitizeTicker(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSanitizeKind(t *testing.T) {
	tests := []struct {
		raw  string
		want TradeKind
	}{
		{"long", KindLong},
		{"SHORT", KindShort},
		{" Call ", KindCall},
		{"put", KindPut},
		{"straddle", KindLong},
		{"", KindLong},
	}

	for _, tt := range tests {
		if got := SanitizeKind(tt.raw); got != tt.want {
			t.Errorf("SanitizeKind(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestSanitizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want TradeStatus
	}{
		{"closed", StatusClosed},
		{"CLOSED", StatusClosed},
		{" Closed ", StatusClosed},
		{"closing", StatusOpen},
		{"open", StatusOpen},
		{"", StatusOpen},
	}

	for _, tt := range tests {
		if got := SanitizeStatus(tt.raw); got != tt.want {
			t.Errorf("SanitizeStatus(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
		want *float64 // nil means expect nil
	}{
		{"Float", 5.2, Float(5.2)},
		{"Int", 100, Float(100)},
		{"NumericString", "42.5", Float(42.5)},
		{"PaddedString", " 7 ", Float(7)},
		{"JSONNumber", json.Number("3.14"), Float(3.14)},
		{"Negative", "-50", Float(-50)},
		{"NonNumericString", "a lot", nil},
		{"DollarString", "$5.20", nil},
		{"EmptyString", "", nil},
		{"Nil", nil, nil},
		{"Bool", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CoerceNumber(tt.raw)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("CoerceNumber(%v) = %v, want %v", tt.raw, got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("CoerceNumber(%v) = %v, want %v", tt.raw, *got, *tt.want)
			}
		})
	}
}

func TestTradeRecordCloneIsDeep(t *testing.T) {
	rec := &TradeRecord{
		ID:         "t-1",
		Ticker:     "AAPL",
		Kind:       KindCall,
		Status:     StatusOpen,
		EntryPrice: Float(5.2),
		Sentiment:  String("bullish"),
		Notes:      []Note{{ID: "n-1", Text: "opened"}},
	}

	cp := rec.Clone()
	*cp.EntryPrice = 9.9
	*cp.Sentiment = "bearish"
	cp.Notes[0].Text = "mutated"

	if *rec.EntryPrice != 5.2 {
		t.Errorf("Clone shares EntryPrice pointer")
	}
	if *rec.Sentiment != "bullish" {
		t.Errorf("Clone shares Sentiment pointer")
	}
	if rec.Notes[0].Text != "opened" {
		t.Errorf("Clone shares Notes backing array")
	}
}

func TestFlexTimeUnmarshal(t *testing.T) {
	var payload TradePayload
	data := []byte(`{"closed_at": "2026-03-01", "opened_at": "2026-02-27T14:30:00Z", "bogus_field": 1}`)
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if payload.ClosedAt == nil || payload.ClosedAt.Time.IsZero() {
		t.Fatalf("date-only ClosedAt not parsed")
	}
	if got := payload.ClosedAt.Time.Format("2006-01-02"); got != "2026-03-01" {
		t.Errorf("ClosedAt = %s, want 2026-03-01", got)
	}
	if payload.OpenedAt == nil || payload.OpenedAt.Time.IsZero() {
		t.Fatalf("RFC3339 OpenedAt not parsed")
	}

	// Garbage timestamps decode to unset instead of failing the draft.
	var p2 TradePayload
	if err := json.Unmarshal([]byte(`{"closed_at": "next tuesday"}`), &p2); err != nil {
		t.Fatalf("garbage timestamp should not error: %v", err)
	}
	if p2.ClosedAt.TimePtr() != nil {
		t.Errorf("garbage timestamp should map to nil, got %v", p2.ClosedAt.Time)
	}
}
