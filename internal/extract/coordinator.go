package extract

import (
	"context"
	"time"

	"tradevault/internal/llm"
	"tradevault/internal/logging"
	"tradevault/internal/types"
)

// =============================================================================
// EXTRACTION COORDINATOR
// =============================================================================

// Coordinator routes each note through the configured language model when one
// exists and falls back to the heuristic extractor on any failure: transport
// errors, timeouts, unparseable completions. The fallback is silent from the
// caller's perspective; extraction always yields a draft.
type Coordinator struct {
	client    llm.Client // nil means heuristic-only
	heuristic *Heuristic
	timeout   time.Duration
	openLimit int
}

// NewCoordinator wires the optional model client and the mandatory heuristic
// fallback. openLimit caps how many open records are serialized into the
// prompt context (most recently updated first is the caller's job).
func NewCoordinator(client llm.Client, heuristic *Heuristic, timeout time.Duration, openLimit int) *Coordinator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if openLimit <= 0 {
		openLimit = 12
	}
	return &Coordinator{
		client:    client,
		heuristic: heuristic,
		timeout:   timeout,
		openLimit: openLimit,
	}
}

// Extract interprets one note against the open-record candidate set. The
// returned draft always has an action; a forced target id overrides whatever
// the extraction source decided.
func (c *Coordinator) Extract(ctx context.Context, text, forcedTarget string, open []*types.TradeRecord) *types.ExtractionDraft {
	if c.client != nil {
		if draft, err := c.extractLLM(ctx, text, forcedTarget, open); err == nil {
			return draft
		} else {
			logging.Extract("LLM extraction failed, using heuristic: %v", err)
		}
	}
	return c.heuristic.Extract(text, forcedTarget, open)
}

func (c *Coordinator) extractLLM(ctx context.Context, text, forcedTarget string, open []*types.TradeRecord) (*types.ExtractionDraft, error) {
	timer := logging.StartTimer(logging.CategoryExtract, "llm_extract")
	defer timer.Stop()

	if len(open) > c.openLimit {
		open = open[:c.openLimit]
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.client.CompleteWithSystem(ctx, extractionSystemPrompt, buildUserPrompt(text, forcedTarget, open))
	if err != nil {
		return nil, err
	}

	draft, err := parseDraftJSON(raw)
	if err != nil {
		logging.ExtractDebug("unparseable completion from %s: %q", c.client.Name(), truncate(raw, 200))
		return nil, err
	}

	c.normalize(draft, text, forcedTarget, open)
	logging.Extract("LLM draft: action=%s target=%s rationale=%q", draft.Action, draft.TargetID, draft.Rationale)
	return draft, nil
}

// normalize enforces the decision rules the model cannot be trusted with: the
// forced target always wins, an update must point at a known open record, and
// anything else degrades to create.
func (c *Coordinator) normalize(draft *types.ExtractionDraft, text, forcedTarget string, open []*types.TradeRecord) {
	if forcedTarget != "" {
		draft.Action = types.ActionUpdate
		draft.TargetID = forcedTarget
	}

	switch draft.Action {
	case types.ActionUpdate:
		if forcedTarget == "" && !knownOpenID(open, draft.TargetID) {
			logging.ExtractDebug("model targeted unknown record %q, degrading to create", draft.TargetID)
			draft.Action = types.ActionCreate
			draft.TargetID = ""
		}
	case types.ActionCreate:
		draft.TargetID = ""
	default:
		draft.Action = types.ActionCreate
		draft.TargetID = ""
	}

	if draft.Trade.Summary == nil || *draft.Trade.Summary == "" {
		draft.Trade.Summary = types.String(truncate(text, summaryLimit))
	}
}

func knownOpenID(open []*types.TradeRecord, id string) bool {
	if id == "" {
		return false
	}
	for _, rec := range open {
		if rec.ID == id {
			return true
		}
	}
	return false
}
