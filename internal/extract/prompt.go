package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tradevault/internal/types"
)

// extractionSystemPrompt instructs the model to emit exactly one draft JSON
// object. Schema enforcement happens here rather than via provider-specific
// schema APIs so every OpenAI-compatible endpoint behaves the same.
const extractionSystemPrompt = `You are the note-interpretation engine of a trading journal.
Given one free-form trade note and a list of the user's currently open positions,
decide whether the note describes a brand-new position or an update to one of the
open positions, and extract structured fields from the text.

Respond with a single JSON object and nothing else:

{
  "action": "create" | "update",
  "target_id": "<id of the open position being updated, omit for create>",
  "trade": {
    "ticker": "<symbol, upper-case>",
    "kind": "long" | "short" | "call" | "put",
    "status": "open" | "closed",
    "size": <number>,
    "entry_price": <number>,
    "exit_price": <number>,
    "pnl_usd": <number>,
    "pnl_percent": <number>,
    "duration_minutes": <number>,
    "risk_reward": <number>,
    "sentiment": "<short mood word>",
    "closed_at": "<RFC 3339 timestamp>",
    "summary": "<one-line digest of the note>"
  },
  "rationale": "<one sentence explaining the create/update decision>"
}

Rules:
- Omit (or set null) every field the note does not supply. Never invent numbers.
- "update" requires a target_id taken from the open positions list.
- A note that closes, exits, trims or stops out an open position is an update
  with status "closed".
- pnl_usd is negative for losses.`

// openRecordContext is the condensed view of an open position handed to the
// model. Keep it small: the full record would blow the prompt up for no gain.
type openRecordContext struct {
	ID         string     `json:"id"`
	Ticker     string     `json:"ticker"`
	Kind       string     `json:"kind"`
	EntryPrice *float64   `json:"entry_price,omitempty"`
	OpenedAt   *time.Time `json:"opened_at,omitempty"`
	Sentiment  *string    `json:"sentiment,omitempty"`
	LatestNote string     `json:"latest_note,omitempty"`
}

// buildUserPrompt renders the note, the optional forced target, and the open
// position context as the user message.
func buildUserPrompt(noteText, forcedTarget string, open []*types.TradeRecord) string {
	contexts := make([]openRecordContext, 0, len(open))
	for _, rec := range open {
		contexts = append(contexts, openRecordContext{
			ID:         rec.ID,
			Ticker:     rec.Ticker,
			Kind:       string(rec.Kind),
			EntryPrice: rec.EntryPrice,
			OpenedAt:   rec.OpenedAt,
			Sentiment:  rec.Sentiment,
			LatestNote: truncate(rec.LatestNote(), 140),
		})
	}
	contextJSON, err := json.MarshalIndent(contexts, "", "  ")
	if err != nil {
		contextJSON = []byte("[]")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Open positions:\n%s\n\n", contextJSON)
	if forcedTarget != "" {
		fmt.Fprintf(&b, "The caller explicitly targets position %s; action MUST be \"update\" for that id.\n\n", forcedTarget)
	}
	fmt.Fprintf(&b, "Note:\n%s\n", noteText)
	return b.String()
}

// parseDraftJSON extracts the first JSON object from a completion, tolerating
// markdown fences and prose around it, and decodes it as a draft. Unknown
// keys are dropped by json.Unmarshal (uniform drop-not-reject policy).
func parseDraftJSON(raw string) (*types.ExtractionDraft, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in completion")
	}

	var draft types.ExtractionDraft
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &draft); err != nil {
		return nil, fmt.Errorf("draft JSON invalid: %w", err)
	}
	return &draft, nil
}
