package rank

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"tradevault/internal/query"
	"tradevault/internal/types"
)

var day = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func journalRecord(id, ticker, noteText string, sentiment string, offset time.Duration) *types.TradeRecord {
	rec := &types.TradeRecord{
		ID:        id,
		Ticker:    ticker,
		Kind:      types.KindLong,
		Status:    types.StatusClosed,
		Notes:     []types.Note{{ID: id + "-n", Text: noteText, CreatedAt: day.Add(offset)}},
		CreatedAt: day.Add(offset),
		UpdatedAt: day.Add(offset),
	}
	if sentiment != "" {
		rec.Sentiment = types.String(sentiment)
	}
	return rec
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Fearful LOSING trades", []string{"fearful", "losing", "trades"}},
		{"AAPL, aapl; AAPL!", []string{"aapl"}},
		{"  ", nil},
		{"r/r 2.5", []string{"r", "2", "5"}},
	}
	for _, tt := range tests {
		if got := Tokenize(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBuildCorpusContainsEveryReadableField(t *testing.T) {
	rec := journalRecord("t-1", "AAPL", "stopped out, felt fearful", "bearish", 0)
	rec.AISummary = types.String("Quick loss on a failed breakout")

	corpus := BuildCorpus(rec)

	for _, want := range []string{"aapl", "long", "closed", "bearish", "fearful", "failed breakout"} {
		if !strings.Contains(corpus, want) {
			t.Fatalf("corpus missing %q:\n%s", want, corpus)
		}
	}
	if corpus != strings.ToLower(corpus) {
		t.Fatal("corpus must be lower-cased")
	}
}

func TestSearchRanksTickerMatchFirst(t *testing.T) {
	records := []*types.TradeRecord{
		journalRecord("t-1", "TSLA", "mentions aapl in passing", "", 2*time.Hour),
		journalRecord("t-2", "AAPL", "clean breakout entry", "", 0),
	}
	r := NewRanker(nil, 0)

	got := r.Search(context.Background(), records, "aapl", query.Filter{}, 0)

	if len(got) != 2 || got[0].ID != "t-2" {
		t.Fatalf("order = %v, want t-2 first (ticker bonus)", idsOf(got))
	}
}

func TestSearchNoTokenOverlapReturnsEmpty(t *testing.T) {
	records := []*types.TradeRecord{
		journalRecord("t-1", "AAPL", "clean breakout entry", "happy", 0),
		journalRecord("t-2", "TSLA", "solid winner", "bullish", time.Hour),
	}
	r := NewRanker(nil, 0)

	got := r.Search(context.Background(), records, "fearful losing trades", query.Filter{}, 0)

	if len(got) != 0 {
		t.Fatalf("got %v, want empty", idsOf(got))
	}
	if msg := Narrative(got); msg != EmptyResultMessage {
		t.Fatalf("narrative = %q, want %q", msg, EmptyResultMessage)
	}
}

func TestSearchEmptyQueryKeepsCandidatesByRecency(t *testing.T) {
	records := []*types.TradeRecord{
		journalRecord("t-1", "AAPL", "older", "", 0),
		journalRecord("t-2", "TSLA", "newer", "", time.Hour),
	}
	r := NewRanker(nil, 0)

	got := r.Search(context.Background(), records, "", query.Filter{}, 0)

	if !reflect.DeepEqual(idsOf(got), []string{"t-2", "t-1"}) {
		t.Fatalf("order = %v, want [t-2 t-1]", idsOf(got))
	}
}

func TestSearchTieBreaksByUpdateRecency(t *testing.T) {
	records := []*types.TradeRecord{
		journalRecord("t-1", "AAPL", "breakout trade", "", 0),
		journalRecord("t-2", "MSFT", "breakout trade", "", time.Hour),
	}
	r := NewRanker(nil, 0)

	got := r.Search(context.Background(), records, "breakout", query.Filter{}, 0)

	if !reflect.DeepEqual(idsOf(got), []string{"t-2", "t-1"}) {
		t.Fatalf("order = %v, want newer first on equal score", idsOf(got))
	}
}

func TestSearchLimit(t *testing.T) {
	var records []*types.TradeRecord
	for i := 0; i < 20; i++ {
		records = append(records, journalRecord(
			"t-"+string(rune('a'+i)), "SPY", "scalp trade", "", time.Duration(i)*time.Minute))
	}
	r := NewRanker(nil, 0)

	if got := r.Search(context.Background(), records, "scalp", query.Filter{}, 0); len(got) != DefaultLimit {
		t.Fatalf("len = %d, want default limit %d", len(got), DefaultLimit)
	}
	if got := r.Search(context.Background(), records, "scalp", query.Filter{}, 3); len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
}

// failingEmbedder always errors; ranking must silently stay lexical.
type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embedding backend down")
}

func (failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("embedding backend down")
}

func (failingEmbedder) Dimensions() int { return 768 }
func (failingEmbedder) Name() string    { return "failing" }

func TestSearchEmbeddingFailureFallsBackToLexical(t *testing.T) {
	records := []*types.TradeRecord{
		journalRecord("t-1", "AAPL", "clean breakout", "", 0),
	}
	r := NewRanker(failingEmbedder{}, time.Second)

	got := r.Search(context.Background(), records, "breakout", query.Filter{}, 0)

	if len(got) != 1 || got[0].ID != "t-1" {
		t.Fatalf("got %v, want lexical result despite embedding failure", idsOf(got))
	}
}

func TestNarrativeDigest(t *testing.T) {
	rec := journalRecord("t-1", "AAPL", "stopped out at the lows", "frustrated", 0)
	rec.PnlUSD = types.Float(-120)

	msg := Narrative([]*types.TradeRecord{rec})

	for _, want := range []string{"AAPL", "LONG", "closed", "-120.00", "frustrated", "stopped out"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("narrative missing %q:\n%s", want, msg)
		}
	}
}

func idsOf(records []*types.TradeRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
