package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tradevault/internal/config"
	"tradevault/internal/llm"
	"tradevault/internal/types"
)

// fakeClient returns a canned completion or error.
type fakeClient struct {
	response string
	err      error
	lastSys  string
	lastUser string
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	return f.CompleteWithSystem(ctx, "", prompt)
}

func (f *fakeClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.lastSys = systemPrompt
	f.lastUser = userPrompt
	return f.response, f.err
}

func (f *fakeClient) Name() string { return "fake" }

func newTestCoordinator(client llm.Client) *Coordinator {
	return NewCoordinator(client, newTestHeuristic(), 5*time.Second, config.DefaultHeuristics().OpenContextLimit)
}

func TestCoordinatorUsesLLMDraft(t *testing.T) {
	client := &fakeClient{response: `{
		"action": "update",
		"target_id": "t-1",
		"trade": {"ticker": "AAPL", "status": "closed", "pnl_usd": 350},
		"rationale": "note closes the open AAPL position"
	}`}
	coord := newTestCoordinator(client)
	open := []*types.TradeRecord{openRecord("t-1", "AAPL")}

	draft := coord.Extract(context.Background(), "Closed AAPL for $350 profit", "", open)

	if draft.Action != types.ActionUpdate || draft.TargetID != "t-1" {
		t.Fatalf("action=%s target=%s, want update t-1", draft.Action, draft.TargetID)
	}
	if draft.Trade.PnlUSD == nil || *draft.Trade.PnlUSD != 350 {
		t.Fatalf("pnl = %v, want 350", draft.Trade.PnlUSD)
	}
	if draft.Rationale == HeuristicRationale {
		t.Fatal("expected LLM rationale, got heuristic fallback")
	}
	if draft.Trade.Summary == nil || *draft.Trade.Summary == "" {
		t.Fatal("summary should be backfilled from the note text")
	}
}

func TestCoordinatorFencedCompletion(t *testing.T) {
	client := &fakeClient{response: "```json\n{\"action\": \"create\", \"trade\": {\"ticker\": \"NVDA\"}}\n```"}
	coord := newTestCoordinator(client)

	draft := coord.Extract(context.Background(), "watching NVDA", "", nil)

	if draft.Action != types.ActionCreate {
		t.Fatalf("action = %s, want create", draft.Action)
	}
	if draft.Trade.Ticker == nil || *draft.Trade.Ticker != "NVDA" {
		t.Fatalf("ticker = %v, want NVDA", draft.Trade.Ticker)
	}
}

func TestCoordinatorFallsBackOnError(t *testing.T) {
	client := &fakeClient{err: errors.New("rate limited")}
	coord := newTestCoordinator(client)

	draft := coord.Extract(context.Background(), "Bought 100 AAPL calls @ 5.20", "", nil)

	if draft.Rationale != HeuristicRationale {
		t.Fatalf("rationale = %q, want heuristic fallback", draft.Rationale)
	}
	if draft.Trade.Ticker == nil || *draft.Trade.Ticker != "AAPL" {
		t.Fatalf("ticker = %v, want AAPL from heuristic", draft.Trade.Ticker)
	}
}

func TestCoordinatorFallsBackOnGarbageCompletion(t *testing.T) {
	client := &fakeClient{response: "I cannot help with that."}
	coord := newTestCoordinator(client)

	draft := coord.Extract(context.Background(), "Bought 50 TSLA", "", nil)

	if draft.Rationale != HeuristicRationale {
		t.Fatalf("rationale = %q, want heuristic fallback", draft.Rationale)
	}
}

func TestCoordinatorNilClientIsHeuristicOnly(t *testing.T) {
	coord := newTestCoordinator(nil)

	draft := coord.Extract(context.Background(), "Bought 50 TSLA", "", nil)

	if draft.Rationale != HeuristicRationale {
		t.Fatalf("rationale = %q, want heuristic", draft.Rationale)
	}
}

func TestCoordinatorForcedTargetOverridesModel(t *testing.T) {
	client := &fakeClient{response: `{"action": "create", "trade": {"ticker": "AAPL"}}`}
	coord := newTestCoordinator(client)

	draft := coord.Extract(context.Background(), "adding to the position", "t-7", nil)

	if draft.Action != types.ActionUpdate || draft.TargetID != "t-7" {
		t.Fatalf("action=%s target=%s, want forced update t-7", draft.Action, draft.TargetID)
	}
}

func TestCoordinatorUnknownTargetDegradesToCreate(t *testing.T) {
	client := &fakeClient{response: `{"action": "update", "target_id": "ghost", "trade": {"ticker": "AAPL"}}`}
	coord := newTestCoordinator(client)
	open := []*types.TradeRecord{openRecord("t-1", "AAPL")}

	draft := coord.Extract(context.Background(), "some note", "", open)

	if draft.Action != types.ActionCreate || draft.TargetID != "" {
		t.Fatalf("action=%s target=%s, want create with no target", draft.Action, draft.TargetID)
	}
}

func TestCoordinatorUnknownDraftFieldsDropped(t *testing.T) {
	client := &fakeClient{response: `{"action": "create", "confidence": 0.9, "trade": {"ticker": "SPY", "broker": "acme"}}`}
	coord := newTestCoordinator(client)

	draft := coord.Extract(context.Background(), "SPY scalp", "", nil)

	if draft.Trade.Ticker == nil || *draft.Trade.Ticker != "SPY" {
		t.Fatalf("ticker = %v, want SPY (unknown keys dropped, not rejected)", draft.Trade.Ticker)
	}
}

func TestCoordinatorPromptCarriesOpenContext(t *testing.T) {
	client := &fakeClient{response: `{"action": "create", "trade": {}}`}
	coord := newTestCoordinator(client)
	rec := openRecord("t-1", "AAPL")
	rec.Notes = []types.Note{{ID: "n-1", Text: "initial entry note", CreatedAt: time.Now()}}

	coord.Extract(context.Background(), "thinking about adding", "", []*types.TradeRecord{rec})

	for _, want := range []string{"t-1", "AAPL", "initial entry note", "thinking about adding"} {
		if !strings.Contains(client.lastUser, want) {
			t.Fatalf("prompt missing %q:\n%s", want, client.lastUser)
		}
	}
}
