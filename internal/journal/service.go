// Package journal is the public surface of the trade journal core: it wires
// the extraction coordinator, merge engine, store, query, ranking, and
// analytics behind one service type.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tradevault/internal/analytics"
	"tradevault/internal/extract"
	"tradevault/internal/llm"
	"tradevault/internal/logging"
	"tradevault/internal/merge"
	"tradevault/internal/query"
	"tradevault/internal/rank"
	"tradevault/internal/store"
	"tradevault/internal/types"
)

var (
	// ErrNoteRequired rejects empty or whitespace-only note text before any
	// extraction attempt.
	ErrNoteRequired = errors.New("note text required")

	// ErrRecordNotFound surfaces a caller-forced target id that does not
	// resolve to a stored record.
	ErrRecordNotFound = errors.New("trade record not found")
)

// Service is the journal core. All public operations are safe for concurrent
// use; writes to the same record are serialized through the store's
// per-record locks.
type Service struct {
	store   store.Store
	coord   *extract.Coordinator
	ranker  *rank.Ranker
	llm     llm.Client // optional, used for summary refresh
	timeout time.Duration

	now func() time.Time // injectable clock for tests
}

// New wires a Service. llmClient may be nil; summary refresh then reports
// itself unavailable.
func New(st store.Store, coord *extract.Coordinator, ranker *rank.Ranker, llmClient llm.Client, llmTimeout time.Duration) *Service {
	if llmTimeout <= 0 {
		llmTimeout = 30 * time.Second
	}
	return &Service{
		store:   st,
		coord:   coord,
		ranker:  ranker,
		llm:     llmClient,
		timeout: llmTimeout,
		now:     time.Now,
	}
}

// InterpretResult is the outcome of one note interpretation.
type InterpretResult struct {
	Action    types.DraftAction  `json:"action"`
	Record    *types.TradeRecord `json:"record"`
	Rationale string             `json:"rationale,omitempty"`
}

// InterpretNote runs the full note pipeline: extraction (model or heuristic),
// create-vs-update resolution, merge, and store write. A forced target id
// that does not resolve returns ErrRecordNotFound; a model-inferred target
// that has vanished degrades to create instead.
func (s *Service) InterpretNote(ctx context.Context, noteText string, attachments []types.Attachment, forcedTarget string) (*InterpretResult, error) {
	if strings.TrimSpace(noteText) == "" {
		return nil, ErrNoteRequired
	}

	if forcedTarget != "" && s.store.Get(forcedTarget) == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, forcedTarget)
	}

	draft := s.coord.Extract(ctx, noteText, forcedTarget, s.store.OpenRecords())

	if draft.Action == types.ActionUpdate {
		rec, err := s.applyUpdate(draft, noteText, attachments, forcedTarget != "")
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return &InterpretResult{Action: types.ActionUpdate, Record: rec, Rationale: draft.Rationale}, nil
		}
		// Inferred target vanished between extraction and merge.
		logging.Merge("inferred target %s no longer exists, creating instead", draft.TargetID)
	}

	now := s.now()
	rec := merge.NewRecord(draft.Trade, noteText, attachments, now)
	s.store.Upsert(rec)
	return &InterpretResult{Action: types.ActionCreate, Record: rec, Rationale: draft.Rationale}, nil
}

// applyUpdate merges the draft into the target under the record's write lock.
// A nil record with nil error means the target disappeared and the caller
// should fall back to the create path (only possible for inferred targets).
func (s *Service) applyUpdate(draft *types.ExtractionDraft, noteText string, attachments []types.Attachment, forced bool) (*types.TradeRecord, error) {
	unlock := s.store.Lock(draft.TargetID)
	defer unlock()

	existing := s.store.Get(draft.TargetID)
	if existing == nil {
		if forced {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, draft.TargetID)
		}
		return nil, nil
	}

	rec := merge.Apply(existing, draft.Trade, noteText, attachments, s.now())
	s.store.Upsert(rec)
	return rec, nil
}

// ListTrades filters and sorts the record set. sortBy defaults to creation
// time; limit <= 0 means no truncation.
func (s *Service) ListTrades(criteria query.Criteria, sortBy string, descending bool, limit int) ([]*types.TradeRecord, error) {
	f, err := query.FromCriteria(criteria)
	if err != nil {
		return nil, err
	}
	return query.Apply(s.store.Snapshot(), f, query.Options{
		SortBy:     sortBy,
		Descending: descending,
		Limit:      limit,
	}), nil
}

// Search ranks records against a free-text query, restricted by criteria.
func (s *Service) Search(ctx context.Context, queryText string, criteria query.Criteria, limit int) ([]*types.TradeRecord, error) {
	f, err := query.FromCriteria(criteria)
	if err != nil {
		return nil, err
	}
	return s.ranker.Search(ctx, s.store.Snapshot(), queryText, f, limit), nil
}

// Narrative renders search results as a short digest.
func (s *Service) Narrative(records []*types.TradeRecord) string {
	return rank.Narrative(records)
}

// Analytics computes the aggregate summary over the criteria-filtered set.
func (s *Service) Analytics(criteria query.Criteria) (*analytics.Summary, error) {
	f, err := query.FromCriteria(criteria)
	if err != nil {
		return nil, err
	}
	return analytics.Compute(query.Apply(s.store.Snapshot(), f, query.Options{})), nil
}

// GetTrade returns the record with the given id or ErrRecordNotFound.
func (s *Service) GetTrade(id string) (*types.TradeRecord, error) {
	rec := s.store.Get(id)
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return rec, nil
}

// DeleteTrade removes a record; ErrRecordNotFound when the id is unknown.
func (s *Service) DeleteTrade(id string) error {
	if !s.store.Delete(id) {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return nil
}

// RefreshSummary regenerates a record's AI summary from its note history via
// the configured language model and persists it.
func (s *Service) RefreshSummary(ctx context.Context, id string) (*types.TradeRecord, error) {
	if s.llm == nil {
		return nil, errors.New("no language model configured")
	}

	unlock := s.store.Lock(id)
	defer unlock()

	rec := s.store.Get(id)
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	summary, err := s.llm.CompleteWithSystem(ctx,
		"Summarize this trade's journal history in one or two sentences. Respond with the summary text only.",
		summaryPrompt(rec))
	if err != nil {
		return nil, fmt.Errorf("summary generation failed: %w", err)
	}

	rec.AISummary = types.String(strings.TrimSpace(summary))
	rec.UpdatedAt = s.now()
	s.store.Upsert(rec)
	return rec, nil
}

func summaryPrompt(rec *types.TradeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nNotes:\n", rec.Describe())
	for _, n := range rec.Notes {
		fmt.Fprintf(&b, "- [%s] %s\n", n.CreatedAt.Format("2006-01-02 15:04"), n.Text)
	}
	return b.String()
}

// Seed replaces the record set; used by initial load and tests.
func (s *Service) Seed(records []*types.TradeRecord) { s.store.Seed(records) }

// Reset drops every record.
func (s *Service) Reset() { s.store.Reset() }

// Count returns the record count.
func (s *Service) Count() int { return s.store.Count() }
