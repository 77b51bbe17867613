// Package merge combines extraction drafts with trade records: building a
// fresh record on the create path and overlaying a draft onto a stored record
// on the update path, without ever losing note history.
package merge

import (
	"sort"
	"time"

	"tradevault/internal/logging"
	"tradevault/internal/types"
)

// =============================================================================
// NOTE / ATTACHMENT MERGING
// =============================================================================

// MergeNotes appends incoming notes whose ids are not already present, then
// re-sorts the whole set by creation time ascending. Merging a set with
// itself is a no-op (modulo the re-sort). The existing slice is not mutated.
func MergeNotes(existing, incoming []types.Note) []types.Note {
	if len(incoming) == 0 {
		return existing
	}

	seen := make(map[string]bool, len(existing))
	merged := make([]types.Note, 0, len(existing)+len(incoming))
	for _, n := range existing {
		seen[n.ID] = true
		merged = append(merged, n)
	}
	for _, n := range incoming {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		merged = append(merged, n)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})
	return merged
}

// MergeAttachments overlays incoming onto existing keyed by id: untouched ids
// keep their position, touched ids are replaced in place, new ids append in
// incoming order. Last write wins for duplicate incoming ids.
func MergeAttachments(existing, incoming []types.Attachment) []types.Attachment {
	merged := append([]types.Attachment(nil), existing...)
	index := make(map[string]int, len(merged))
	for i, a := range merged {
		index[a.ID] = i
	}
	for _, a := range incoming {
		if i, ok := index[a.ID]; ok {
			merged[i] = a
			continue
		}
		index[a.ID] = len(merged)
		merged = append(merged, a)
	}
	return merged
}

func removeAttachments(list []types.Attachment, ids []string) []types.Attachment {
	if len(ids) == 0 {
		return list
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := list[:0:0]
	for _, a := range list {
		if !drop[a.ID] {
			kept = append(kept, a)
		}
	}
	return kept
}

// =============================================================================
// RECORD CONSTRUCTION (CREATE PATH)
// =============================================================================

// NewRecord builds a fresh record from a draft payload, the triggering note
// text, and any normalized attachments. Sanitizers supply the defaults for
// missing enums; now stamps every timestamp.
func NewRecord(payload types.TradePayload, noteText string, attachments []types.Attachment, now time.Time) *types.TradeRecord {
	rec := &types.TradeRecord{
		ID:     types.NewID(),
		Ticker: types.SanitizeTicker(deref(payload.Ticker)),
		Kind:   types.SanitizeKind(deref(payload.Kind)),
		Status: types.SanitizeStatus(deref(payload.Status)),

		Size:            payload.Size,
		EntryPrice:      payload.EntryPrice,
		ExitPrice:       payload.ExitPrice,
		PnlUSD:          payload.PnlUSD,
		PnlPercent:      payload.PnlPercent,
		DurationMinutes: payload.DurationMinutes,
		RiskReward:      payload.RiskReward,

		Sentiment:   payload.Sentiment,
		Attachments: MergeAttachments(nil, attachments),

		CreatedAt: now,
		UpdatedAt: now,
	}

	rec.Notes = []types.Note{types.NewNote(noteText, now)}

	if at := payload.OpenedAt.TimePtr(); at != nil {
		rec.OpenedAt = at
	} else {
		rec.OpenedAt = types.Time(now)
	}

	if rec.Status == types.StatusClosed {
		if at := payload.ClosedAt.TimePtr(); at != nil {
			rec.ClosedAt = at
		} else {
			rec.ClosedAt = types.Time(now)
		}
	}

	if payload.Summary != nil && *payload.Summary != "" {
		rec.AISummary = payload.Summary
	}

	logging.Merge("created record %s: %s %s", rec.ID, rec.Ticker, rec.Kind)
	return rec
}

// =============================================================================
// RECORD MERGE (UPDATE PATH)
// =============================================================================

// Apply overlays a draft payload onto a stored record: absent or null payload
// fields keep the existing value. A status transition to closed forces the
// close time to the payload's value, then the existing value, then now;
// moving back to open clears it. CreatedAt is never touched; UpdatedAt is
// always refreshed. The input record is not mutated.
func Apply(existing *types.TradeRecord, payload types.TradePayload, noteText string, attachments []types.Attachment, now time.Time) *types.TradeRecord {
	rec := existing.Clone()

	if payload.Ticker != nil && *payload.Ticker != "" {
		rec.Ticker = types.SanitizeTicker(*payload.Ticker)
	}
	if payload.Kind != nil && *payload.Kind != "" {
		rec.Kind = types.SanitizeKind(*payload.Kind)
	}

	overlayFloat(&rec.Size, payload.Size)
	overlayFloat(&rec.EntryPrice, payload.EntryPrice)
	overlayFloat(&rec.ExitPrice, payload.ExitPrice)
	overlayFloat(&rec.PnlUSD, payload.PnlUSD)
	overlayFloat(&rec.PnlPercent, payload.PnlPercent)
	overlayFloat(&rec.DurationMinutes, payload.DurationMinutes)
	overlayFloat(&rec.RiskReward, payload.RiskReward)

	if payload.Sentiment != nil && *payload.Sentiment != "" {
		rec.Sentiment = payload.Sentiment
	}
	if at := payload.OpenedAt.TimePtr(); at != nil {
		rec.OpenedAt = at
	}
	if payload.Summary != nil && *payload.Summary != "" {
		rec.AISummary = payload.Summary
	}

	if payload.Status != nil && *payload.Status != "" {
		status := types.SanitizeStatus(*payload.Status)
		rec.Status = status
		switch status {
		case types.StatusClosed:
			if at := payload.ClosedAt.TimePtr(); at != nil {
				rec.ClosedAt = at
			} else if rec.ClosedAt == nil {
				rec.ClosedAt = types.Time(now)
			}
		case types.StatusOpen:
			rec.ClosedAt = nil
		}
	} else if at := payload.ClosedAt.TimePtr(); at != nil && rec.Status == types.StatusClosed {
		rec.ClosedAt = at
	}

	if noteText != "" {
		rec.Notes = MergeNotes(rec.Notes, []types.Note{types.NewNote(noteText, now)})
	}

	rec.Attachments = removeAttachments(rec.Attachments, payload.RemoveAttachmentIDs)
	rec.Attachments = MergeAttachments(rec.Attachments, attachments)

	rec.UpdatedAt = now

	logging.Merge("updated record %s: status=%s notes=%d", rec.ID, rec.Status, len(rec.Notes))
	return rec
}

func overlayFloat(dst **float64, src *float64) {
	if src != nil {
		*dst = src
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
