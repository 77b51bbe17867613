package types

import (
	"encoding/json"
	"strings"
	"time"
)

// =============================================================================
// EXTRACTION DRAFT
// =============================================================================

// TradePayload is the partial, fully-nullable trade shape an extraction
// produces. Absent or null fields mean "keep the existing value" on the update
// path. Unknown keys in the source JSON are dropped by json.Unmarshal; that
// drop-not-reject policy is uniform for every extraction source.
type TradePayload struct {
	Ticker    *string `json:"ticker,omitempty"`
	Kind      *string `json:"kind,omitempty"`
	Status    *string `json:"status,omitempty"`
	Sentiment *string `json:"sentiment,omitempty"`

	Size            *float64 `json:"size,omitempty"`
	EntryPrice      *float64 `json:"entry_price,omitempty"`
	ExitPrice       *float64 `json:"exit_price,omitempty"`
	PnlUSD          *float64 `json:"pnl_usd,omitempty"`
	PnlPercent      *float64 `json:"pnl_percent,omitempty"`
	DurationMinutes *float64 `json:"duration_minutes,omitempty"`
	RiskReward      *float64 `json:"risk_reward,omitempty"`

	OpenedAt *FlexTime `json:"opened_at,omitempty"`
	ClosedAt *FlexTime `json:"closed_at,omitempty"`

	// Summary is a one-line digest of the note, used as the record's AI
	// summary when present.
	Summary *string `json:"summary,omitempty"`

	// RemoveAttachmentIDs lists existing attachments the note asked to drop.
	RemoveAttachmentIDs []string `json:"remove_attachment_ids,omitempty"`
}

// ExtractionDraft is the transient result of interpreting one note. It is
// produced by the extraction coordinator, consumed by the create/update paths,
// then discarded; it is never persisted.
type ExtractionDraft struct {
	Action    DraftAction  `json:"action"`
	TargetID  string       `json:"target_id,omitempty"`
	Trade     TradePayload `json:"trade"`
	Rationale string       `json:"rationale,omitempty"`
}

// =============================================================================
// FLEXIBLE TIMESTAMPS
// =============================================================================

// FlexTime is a time.Time that unmarshals from the timestamp shapes LLMs
// actually emit: RFC 3339, date-only, and a couple of common variants.
// An unparseable value decodes to the zero time rather than failing the
// whole draft.
type FlexTime struct {
	time.Time
}

var flexLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// UnmarshalJSON accepts a JSON string in any supported layout, or null.
func (t *FlexTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		// Not a string (e.g. a number or object); treat as unset.
		t.Time = time.Time{}
		return nil
	}
	t.Time = ParseFlexTime(raw)
	return nil
}

// MarshalJSON emits RFC 3339 or null for the zero time.
func (t FlexTime) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// ParseFlexTime parses raw against the supported layouts, returning the zero
// time when nothing matches.
func ParseFlexTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range flexLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// TimePtr converts a FlexTime to *time.Time, mapping unset/zero to nil.
func (t *FlexTime) TimePtr() *time.Time {
	if t == nil || t.Time.IsZero() {
		return nil
	}
	cp := t.Time
	return &cp
}
