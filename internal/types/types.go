// Package types provides the shared record model used across tradevault packages.
// This package exists to break import cycles between extract, merge, query, and
// analytics. Types in this package are foundational data structures with no
// complex dependencies.
package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ENUMERATIONS
// =============================================================================

// TradeKind is the closed set of trade directions/instruments.
type TradeKind string

const (
	KindLong  TradeKind = "long"
	KindShort TradeKind = "short"
	KindCall  TradeKind = "call"
	KindPut   TradeKind = "put"
)

// TradeStatus is the open/closed lifecycle state of a record.
type TradeStatus string

const (
	StatusOpen   TradeStatus = "open"
	StatusClosed TradeStatus = "closed"
)

// DraftAction says whether an extraction describes a new position or an
// update to an existing one.
type DraftAction string

const (
	ActionCreate DraftAction = "create"
	ActionUpdate DraftAction = "update"
)

// =============================================================================
// TRADE RECORD
// =============================================================================

// Note is a single journal entry attached to a trade. Immutable once created;
// ordering within a record is by CreatedAt ascending.
type Note struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Attachment is an inline artifact (chart screenshot, broker confirmation)
// attached to a trade. Identity is by ID; re-adding the same ID replaces the
// prior value.
type Attachment struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Content   string `json:"content"` // inline content reference (data URI or path)
}

// TradeRecord is the unit of persistence: one position's structured journal
// entry. Numeric fields are pointers so "not extracted yet" is distinguishable
// from zero.
//
// Invariants:
//   - ID and CreatedAt are immutable after first write.
//   - Status == closed implies ClosedAt != nil; status == open implies nil.
//   - Notes only grow and stay sorted by CreatedAt ascending.
//   - Attachment IDs are unique within a record.
type TradeRecord struct {
	ID     string      `json:"id"`
	Ticker string      `json:"ticker"`
	Kind   TradeKind   `json:"kind"`
	Status TradeStatus `json:"status"`

	Size            *float64 `json:"size,omitempty"`
	EntryPrice      *float64 `json:"entry_price,omitempty"`
	ExitPrice       *float64 `json:"exit_price,omitempty"`
	PnlUSD          *float64 `json:"pnl_usd,omitempty"`
	PnlPercent      *float64 `json:"pnl_percent,omitempty"`
	DurationMinutes *float64 `json:"duration_minutes,omitempty"`
	RiskReward      *float64 `json:"risk_reward,omitempty"`

	Sentiment *string `json:"sentiment,omitempty"`

	Notes       []Note       `json:"notes"`
	Attachments []Attachment `json:"attachments"`

	OpenedAt *time.Time `json:"opened_at,omitempty"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`

	AISummary *string `json:"ai_summary,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers cannot mutate store state through a
// returned record.
func (r *TradeRecord) Clone() *TradeRecord {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Size = cloneFloat(r.Size)
	cp.EntryPrice = cloneFloat(r.EntryPrice)
	cp.ExitPrice = cloneFloat(r.ExitPrice)
	cp.PnlUSD = cloneFloat(r.PnlUSD)
	cp.PnlPercent = cloneFloat(r.PnlPercent)
	cp.DurationMinutes = cloneFloat(r.DurationMinutes)
	cp.RiskReward = cloneFloat(r.RiskReward)
	cp.Sentiment = cloneString(r.Sentiment)
	cp.AISummary = cloneString(r.AISummary)
	cp.OpenedAt = cloneTime(r.OpenedAt)
	cp.ClosedAt = cloneTime(r.ClosedAt)
	cp.Notes = append([]Note(nil), r.Notes...)
	cp.Attachments = append([]Attachment(nil), r.Attachments...)
	return &cp
}

// LatestNote returns the text of the most recent note, or "" when the record
// has none.
func (r *TradeRecord) LatestNote() string {
	if len(r.Notes) == 0 {
		return ""
	}
	return r.Notes[len(r.Notes)-1].Text
}

// Describe builds the one-line descriptive text used for embeddings and as
// part of the searchable corpus. Every human-readable metadata field appears.
func (r *TradeRecord) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s position on %s, status %s", r.Kind, instrumentWord(r.Kind), r.Ticker, r.Status)
	if r.EntryPrice != nil {
		fmt.Fprintf(&b, ", entry %g", *r.EntryPrice)
	}
	if r.ExitPrice != nil {
		fmt.Fprintf(&b, ", exit %g", *r.ExitPrice)
	}
	if r.Size != nil {
		fmt.Fprintf(&b, ", size %g", *r.Size)
	}
	if r.PnlUSD != nil {
		fmt.Fprintf(&b, ", pnl $%g", *r.PnlUSD)
	}
	if r.PnlPercent != nil {
		fmt.Fprintf(&b, ", pnl %g%%", *r.PnlPercent)
	}
	if r.Sentiment != nil {
		fmt.Fprintf(&b, ", sentiment %s", *r.Sentiment)
	}
	if r.AISummary != nil {
		b.WriteString(". ")
		b.WriteString(*r.AISummary)
	}
	return b.String()
}

func instrumentWord(k TradeKind) string {
	switch k {
	case KindCall, KindPut:
		return "option"
	default:
		return "equity"
	}
}

// NewID mints a record/note/attachment identifier.
func NewID() string {
	return uuid.NewString()
}

// NewNote creates an immutable note from raw text.
func NewNote(text string, at time.Time) Note {
	return Note{ID: NewID(), Text: text, CreatedAt: at}
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

// Float returns a pointer to v; convenience for building records in code.
func Float(v float64) *float64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }

// Time returns a pointer to v.
func Time(v time.Time) *time.Time { return &v }
