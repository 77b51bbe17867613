// Package analytics aggregates a record set into summary performance
// statistics. Everything here is a pure function of its input; no state is
// kept between calls.
package analytics

import (
	"sort"
	"strings"
	"time"

	"tradevault/internal/logging"
	"tradevault/internal/types"
)

// UnspecifiedSentiment labels the rollup group for records without a
// sentiment.
const UnspecifiedSentiment = "unspecified"

// Summary is the aggregate view over a (possibly filtered) record set.
type Summary struct {
	TotalTrades  int `json:"total_trades"`
	OpenTrades   int `json:"open_trades"`
	ClosedTrades int `json:"closed_trades"`
	Wins         int `json:"wins"`
	Losses       int `json:"losses"`

	WinRate     float64  `json:"win_rate"`
	TotalPnlUSD float64  `json:"total_pnl_usd"`
	AvgRR       *float64 `json:"avg_risk_reward,omitempty"`
	AvgHoldMins *float64 `json:"avg_hold_minutes,omitempty"`

	CurrentWinStreak int `json:"current_win_streak"`
	LongestWinStreak int `json:"longest_win_streak"`

	BestTrade  *TradeRef `json:"best_trade,omitempty"`
	WorstTrade *TradeRef `json:"worst_trade,omitempty"`

	ByTicker    map[string]*GroupStats `json:"by_ticker"`
	BySentiment map[string]*GroupStats `json:"by_sentiment"`

	Timeline []TimelinePoint `json:"timeline"`
}

// TradeRef identifies a best/worst trade along with the pnl that won it the
// slot.
type TradeRef struct {
	ID     string   `json:"id"`
	Ticker string   `json:"ticker"`
	PnlUSD *float64 `json:"pnl_usd,omitempty"`
	PnlPct *float64 `json:"pnl_percent,omitempty"`
}

// GroupStats is one per-ticker or per-sentiment rollup bucket.
type GroupStats struct {
	Trades    int     `json:"trades"`
	Wins      int     `json:"wins"`
	WinRate   float64 `json:"win_rate"`
	SumPnlUSD float64 `json:"sum_pnl_usd"`
	AvgPnlUSD float64 `json:"avg_pnl_usd"`
}

// TimelinePoint is one step of the cumulative pnl walk.
type TimelinePoint struct {
	Date       time.Time `json:"date"`
	Cumulative float64   `json:"cumulative_pnl_usd"`
	RecordID   string    `json:"record_id"`
	Label      string    `json:"label"`
}

// isWin prefers currency pnl, then percent pnl; a record with neither is not
// a win (and is excluded from win accounting entirely).
func isWin(rec *types.TradeRecord) bool {
	if rec.PnlUSD != nil {
		return *rec.PnlUSD > 0
	}
	if rec.PnlPercent != nil {
		return *rec.PnlPercent > 0
	}
	return false
}

func hasPnl(rec *types.TradeRecord) bool {
	return rec.PnlUSD != nil || rec.PnlPercent != nil
}

// pnlMeasure reduces a record to the comparable pnl used for best/worst
// selection: currency first, else percent. ok is false when the record has
// neither and must never win the reduction.
func pnlMeasure(rec *types.TradeRecord) (float64, bool) {
	if rec.PnlUSD != nil {
		return *rec.PnlUSD, true
	}
	if rec.PnlPercent != nil {
		return *rec.PnlPercent, true
	}
	return 0, false
}

// Compute builds the full summary over the given records.
func Compute(records []*types.TradeRecord) *Summary {
	timer := logging.StartTimer(logging.CategoryAnalytics, "Compute")
	defer timer.Stop()

	s := &Summary{
		TotalTrades: len(records),
		ByTicker:    make(map[string]*GroupStats),
		BySentiment: make(map[string]*GroupStats),
	}

	var closed []*types.TradeRecord
	var rrSum, holdSum float64
	var rrN, holdN int

	for _, rec := range records {
		if rec.Status == types.StatusClosed {
			s.ClosedTrades++
			closed = append(closed, rec)
		} else {
			s.OpenTrades++
		}
		if rec.PnlUSD != nil {
			s.TotalPnlUSD += *rec.PnlUSD
		}
		if rec.RiskReward != nil {
			rrSum += *rec.RiskReward
			rrN++
		}
		if rec.DurationMinutes != nil {
			holdSum += *rec.DurationMinutes
			holdN++
		}

		accumulate(s.ByTicker, strings.ToUpper(rec.Ticker), rec)
		accumulate(s.BySentiment, sentimentKey(rec), rec)
	}

	for _, g := range s.ByTicker {
		finalize(g)
	}
	for _, g := range s.BySentiment {
		finalize(g)
	}

	if rrN > 0 {
		s.AvgRR = types.Float(rrSum / float64(rrN))
	}
	if holdN > 0 {
		s.AvgHoldMins = types.Float(holdSum / float64(holdN))
	}

	for _, rec := range closed {
		if !hasPnl(rec) {
			continue
		}
		if isWin(rec) {
			s.Wins++
		} else {
			s.Losses++
		}
	}
	if s.ClosedTrades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.ClosedTrades) * 100
	}

	s.CurrentWinStreak, s.LongestWinStreak = streaks(closed)
	s.BestTrade, s.WorstTrade = bestWorst(closed)
	s.Timeline = timeline(records)

	return s
}

func sentimentKey(rec *types.TradeRecord) string {
	if rec.Sentiment == nil || strings.TrimSpace(*rec.Sentiment) == "" {
		return UnspecifiedSentiment
	}
	return strings.ToLower(strings.TrimSpace(*rec.Sentiment))
}

func accumulate(groups map[string]*GroupStats, key string, rec *types.TradeRecord) {
	g, ok := groups[key]
	if !ok {
		g = &GroupStats{}
		groups[key] = g
	}
	g.Trades++
	if rec.PnlUSD != nil {
		g.SumPnlUSD += *rec.PnlUSD
	}
	if isWin(rec) {
		g.Wins++
	}
}

func finalize(g *GroupStats) {
	g.WinRate = float64(g.Wins) / float64(g.Trades) * 100
	g.AvgPnlUSD = g.SumPnlUSD / float64(g.Trades)
}

// closeTime orders closed records; a missing close time sorts as the zero
// time, i.e. before everything real.
func closeTime(rec *types.TradeRecord) time.Time {
	if rec.ClosedAt != nil {
		return *rec.ClosedAt
	}
	return time.Time{}
}

// streaks walks closed records in close-time order, counting consecutive
// wins. Any non-win resets the running streak.
func streaks(closed []*types.TradeRecord) (current, longest int) {
	ordered := append([]*types.TradeRecord(nil), closed...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return closeTime(ordered[i]).Before(closeTime(ordered[j]))
	})

	for _, rec := range ordered {
		if isWin(rec) {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	return current, longest
}

// bestWorst reduces closed records by pnl; records without any pnl can never
// win either slot, and ties keep the first-seen record.
func bestWorst(closed []*types.TradeRecord) (best, worst *TradeRef) {
	var bestVal, worstVal float64
	for _, rec := range closed {
		v, ok := pnlMeasure(rec)
		if !ok {
			continue
		}
		if best == nil || v > bestVal {
			best = newTradeRef(rec)
			bestVal = v
		}
		if worst == nil || v < worstVal {
			worst = newTradeRef(rec)
			worstVal = v
		}
	}
	return best, worst
}

func newTradeRef(rec *types.TradeRecord) *TradeRef {
	return &TradeRef{ID: rec.ID, Ticker: rec.Ticker, PnlUSD: rec.PnlUSD, PnlPct: rec.PnlPercent}
}

// timeline sorts all records by close time (creation time when never closed)
// and walks a cumulative currency-pnl sum; records without pnl contribute 0
// but still appear.
func timeline(records []*types.TradeRecord) []TimelinePoint {
	ordered := append([]*types.TradeRecord(nil), records...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return timelineTime(ordered[i]).Before(timelineTime(ordered[j]))
	})

	points := make([]TimelinePoint, 0, len(ordered))
	var cumulative float64
	for _, rec := range ordered {
		if rec.PnlUSD != nil {
			cumulative += *rec.PnlUSD
		}
		points = append(points, TimelinePoint{
			Date:       timelineTime(rec),
			Cumulative: cumulative,
			RecordID:   rec.ID,
			Label:      rec.Ticker + " " + strings.ToUpper(string(rec.Kind)),
		})
	}
	return points
}

func timelineTime(rec *types.TradeRecord) time.Time {
	if rec.ClosedAt != nil {
		return *rec.ClosedAt
	}
	return rec.CreatedAt
}
