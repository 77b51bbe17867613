package analytics

import (
	"math"
	"testing"
	"time"

	"tradevault/internal/types"
)

var day = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func closedTrade(id, ticker string, pnl float64, closedOffset time.Duration) *types.TradeRecord {
	return &types.TradeRecord{
		ID:        id,
		Ticker:    ticker,
		Kind:      types.KindLong,
		Status:    types.StatusClosed,
		PnlUSD:    types.Float(pnl),
		ClosedAt:  types.Time(day.Add(closedOffset)),
		CreatedAt: day.Add(closedOffset - time.Hour),
		UpdatedAt: day.Add(closedOffset),
	}
}

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestComputeWinLossSequence(t *testing.T) {
	records := []*types.TradeRecord{
		closedTrade("t-1", "AAPL", 100, 0),
		closedTrade("t-2", "TSLA", -50, time.Hour),
		closedTrade("t-3", "NVDA", 75, 2*time.Hour),
	}

	s := Compute(records)

	if s.TotalTrades != 3 || s.ClosedTrades != 3 || s.OpenTrades != 0 {
		t.Fatalf("counts wrong: %+v", s)
	}
	if s.Wins != 2 || s.Losses != 1 {
		t.Fatalf("wins/losses = %d/%d, want 2/1", s.Wins, s.Losses)
	}
	if !almost(s.WinRate, 200.0/3.0) {
		t.Fatalf("win rate = %v, want 66.67", s.WinRate)
	}
	if s.LongestWinStreak != 1 || s.CurrentWinStreak != 1 {
		t.Fatalf("streaks = %d/%d, want longest 1, current 1", s.LongestWinStreak, s.CurrentWinStreak)
	}
	if s.BestTrade == nil || s.BestTrade.ID != "t-1" {
		t.Fatalf("best = %+v, want t-1", s.BestTrade)
	}
	if s.WorstTrade == nil || s.WorstTrade.ID != "t-2" {
		t.Fatalf("worst = %+v, want t-2", s.WorstTrade)
	}
	if !almost(s.TotalPnlUSD, 125) {
		t.Fatalf("total pnl = %v", s.TotalPnlUSD)
	}

	wantCumulative := []float64{100, 50, 125}
	if len(s.Timeline) != 3 {
		t.Fatalf("timeline len = %d", len(s.Timeline))
	}
	for i, want := range wantCumulative {
		if !almost(s.Timeline[i].Cumulative, want) {
			t.Fatalf("timeline[%d] = %v, want %v", i, s.Timeline[i].Cumulative, want)
		}
	}
	if s.Timeline[0].Label != "AAPL LONG" {
		t.Fatalf("label = %q", s.Timeline[0].Label)
	}
}

func TestComputeStreakRunsForward(t *testing.T) {
	// loss, win, win: longest and current both end at 2.
	records := []*types.TradeRecord{
		closedTrade("t-1", "SPY", -10, 0),
		closedTrade("t-2", "SPY", 20, time.Hour),
		closedTrade("t-3", "SPY", 30, 2*time.Hour),
	}

	s := Compute(records)

	if s.LongestWinStreak != 2 || s.CurrentWinStreak != 2 {
		t.Fatalf("streaks = %d/%d, want 2/2", s.LongestWinStreak, s.CurrentWinStreak)
	}
}

func TestComputeStreakOrderIsCloseTimeNotInput(t *testing.T) {
	// Input order win-win-loss but close times put the loss in the middle.
	records := []*types.TradeRecord{
		closedTrade("t-1", "SPY", 20, 0),
		closedTrade("t-2", "SPY", 30, 2*time.Hour),
		closedTrade("t-3", "SPY", -10, time.Hour),
	}

	s := Compute(records)

	if s.LongestWinStreak != 1 || s.CurrentWinStreak != 1 {
		t.Fatalf("streaks = %d/%d, want 1/1 (win, loss, win by close time)", s.LongestWinStreak, s.CurrentWinStreak)
	}
}

func TestComputePercentFallbackForWins(t *testing.T) {
	rec := closedTrade("t-1", "AAPL", 0, 0)
	rec.PnlUSD = nil
	rec.PnlPercent = types.Float(4.2)

	s := Compute([]*types.TradeRecord{rec})

	if s.Wins != 1 {
		t.Fatalf("wins = %d, want percent-based win", s.Wins)
	}
	if s.BestTrade == nil || s.BestTrade.ID != "t-1" {
		t.Fatalf("best = %+v", s.BestTrade)
	}
}

func TestComputeNoPnlExcludedFromWinAccounting(t *testing.T) {
	rec := closedTrade("t-1", "AAPL", 0, 0)
	rec.PnlUSD = nil

	s := Compute([]*types.TradeRecord{rec})

	if s.Wins != 0 || s.Losses != 0 {
		t.Fatalf("wins/losses = %d/%d, want excluded", s.Wins, s.Losses)
	}
	if s.BestTrade != nil || s.WorstTrade != nil {
		t.Fatal("pnl-less record must never win best/worst")
	}
	if s.ClosedTrades != 1 {
		t.Fatalf("closed = %d, still counted in totals", s.ClosedTrades)
	}
}

func TestComputeRollups(t *testing.T) {
	bullish := closedTrade("t-1", "aapl", 100, 0)
	bullish.Sentiment = types.String("Bullish")
	noSentiment := closedTrade("t-2", "AAPL", -40, time.Hour)

	s := Compute([]*types.TradeRecord{bullish, noSentiment})

	g, ok := s.ByTicker["AAPL"]
	if !ok {
		t.Fatalf("ticker groups = %v, want upper-cased AAPL", s.ByTicker)
	}
	if g.Trades != 2 || g.Wins != 1 || !almost(g.SumPnlUSD, 60) || !almost(g.WinRate, 50) {
		t.Fatalf("AAPL group = %+v", g)
	}

	if _, ok := s.BySentiment["bullish"]; !ok {
		t.Fatalf("sentiment groups = %v, want lower-cased bullish", s.BySentiment)
	}
	u, ok := s.BySentiment[UnspecifiedSentiment]
	if !ok {
		t.Fatalf("missing %q group", UnspecifiedSentiment)
	}
	if u.Trades != 1 || !almost(u.AvgPnlUSD, -40) {
		t.Fatalf("unspecified group = %+v", u)
	}
}

func TestComputeAveragesNilWhenUnset(t *testing.T) {
	s := Compute([]*types.TradeRecord{closedTrade("t-1", "AAPL", 10, 0)})
	if s.AvgRR != nil || s.AvgHoldMins != nil {
		t.Fatalf("averages = %v/%v, want nil when no record has the field", s.AvgRR, s.AvgHoldMins)
	}

	withRR := closedTrade("t-2", "AAPL", 10, 0)
	withRR.RiskReward = types.Float(2)
	withRR.DurationMinutes = types.Float(90)
	s = Compute([]*types.TradeRecord{closedTrade("t-1", "AAPL", 10, 0), withRR})
	if s.AvgRR == nil || !almost(*s.AvgRR, 2) {
		t.Fatalf("avg rr = %v", s.AvgRR)
	}
	if s.AvgHoldMins == nil || !almost(*s.AvgHoldMins, 90) {
		t.Fatalf("avg hold = %v", s.AvgHoldMins)
	}
}

func TestComputeEmptySet(t *testing.T) {
	s := Compute(nil)
	if s.TotalTrades != 0 || s.WinRate != 0 || len(s.Timeline) != 0 {
		t.Fatalf("empty summary wrong: %+v", s)
	}
}
