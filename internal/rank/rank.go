// Package rank scores records against a free-text query by lexical relevance
// over each record's searchable corpus, with an optional embedding-similarity
// boost when an embedding engine is configured.
package rank

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"tradevault/internal/embedding"
	"tradevault/internal/logging"
	"tradevault/internal/query"
	"tradevault/internal/types"
)

// DefaultLimit caps search results when the caller does not say otherwise.
const DefaultLimit = 15

// tickerBonus is added once per query token that exactly equals the ticker.
const tickerBonus = 3

// embeddingWeight scales the cosine similarity added on top of the lexical
// score when embeddings are available.
const embeddingWeight = 5

// Tokenize lower-cases the query, splits on runs of non-alphanumeric
// characters, drops empties, and dedups. Order of first appearance is kept.
func Tokenize(q string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, tok := range strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if !seen[tok] {
			seen[tok] = true
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// BuildCorpus concatenates every human-readable field of a record into one
// lower-cased searchable blob: metadata, all note text, the AI summary, and
// the same descriptive text used for embeddings.
func BuildCorpus(rec *types.TradeRecord) string {
	var b strings.Builder
	b.WriteString(rec.Ticker)
	b.WriteByte(' ')
	b.WriteString(string(rec.Kind))
	b.WriteByte(' ')
	b.WriteString(string(rec.Status))
	if rec.Sentiment != nil {
		b.WriteByte(' ')
		b.WriteString(*rec.Sentiment)
	}
	for _, n := range rec.Notes {
		b.WriteByte(' ')
		b.WriteString(n.Text)
	}
	if rec.AISummary != nil {
		b.WriteByte(' ')
		b.WriteString(*rec.AISummary)
	}
	b.WriteByte(' ')
	b.WriteString(rec.Describe())
	return strings.ToLower(b.String())
}

// lexicalScore sums, per token, a ticker bonus for an exact ticker match plus
// the token's occurrence count in the corpus. An empty token set scores 0 for
// every candidate.
func lexicalScore(rec *types.TradeRecord, corpus string, tokens []string) float64 {
	ticker := strings.ToLower(rec.Ticker)
	var score float64
	for _, tok := range tokens {
		if tok == ticker {
			score += tickerBonus
		}
		if n := strings.Count(corpus, tok); n > 0 {
			score += float64(n)
		}
	}
	return score
}

// =============================================================================
// RANKER
// =============================================================================

// Ranker runs free-text search over the record set. The embedding engine is
// optional; nil means lexical-only ranking.
type Ranker struct {
	embedder embedding.Engine
	timeout  time.Duration
}

// NewRanker wires the optional embedding engine. timeout bounds the embedding
// calls; lexical scoring never blocks.
func NewRanker(embedder embedding.Engine, timeout time.Duration) *Ranker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Ranker{embedder: embedder, timeout: timeout}
}

// Search filters candidates via the query engine (sorted by last update
// descending, no limit), scores them against the query text, and returns the
// top results. The update-recency candidate order doubles as the tie-break,
// since the final sort is stable. limit <= 0 means DefaultLimit.
func (r *Ranker) Search(ctx context.Context, records []*types.TradeRecord, queryText string, f query.Filter, limit int) []*types.TradeRecord {
	if limit <= 0 {
		limit = DefaultLimit
	}

	candidates := query.Apply(records, f, query.Options{SortBy: "updated_at", Descending: true})
	tokens := Tokenize(queryText)

	scores := make([]float64, len(candidates))
	for i, rec := range candidates {
		scores[i] = lexicalScore(rec, BuildCorpus(rec), tokens)
	}
	r.boost(ctx, queryText, candidates, scores)

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return scores[order[i]] > scores[order[j]] })

	// Drop zero-score results only when the query actually discriminates.
	out := make([]*types.TradeRecord, 0, limit)
	for _, i := range order {
		if len(tokens) > 0 && scores[i] <= 0 {
			continue
		}
		out = append(out, candidates[i])
		if len(out) == limit {
			break
		}
	}

	logging.Rank("search %q: %d candidates, %d returned", queryText, len(candidates), len(out))
	return out
}

// boost adds embeddingWeight x cosine similarity between the query and each
// candidate's descriptive text. Any embedding failure leaves the lexical
// scores untouched.
func (r *Ranker) boost(ctx context.Context, queryText string, candidates []*types.TradeRecord, scores []float64) {
	if r.embedder == nil || len(candidates) == 0 || strings.TrimSpace(queryText) == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// Query and candidate embeddings are independent calls; overlap them.
	var qvec []float32
	var vecs [][]float32
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		qvec, err = r.embedder.Embed(gctx, queryText)
		return err
	})
	g.Go(func() error {
		texts := make([]string, len(candidates))
		for i, rec := range candidates {
			texts[i] = rec.Describe()
		}
		var err error
		vecs, err = r.embedder.EmbedBatch(gctx, texts)
		return err
	})
	if err := g.Wait(); err != nil || len(vecs) != len(candidates) {
		logging.Embedding("embedding failed, lexical-only ranking: %v", err)
		return
	}

	for i, vec := range vecs {
		sim, err := embedding.CosineSimilarity(qvec, vec)
		if err != nil {
			continue
		}
		scores[i] += embeddingWeight * sim
	}
}

// =============================================================================
// NARRATIVE DIGEST
// =============================================================================

// EmptyResultMessage is returned when a search matches nothing.
const EmptyResultMessage = "No matching trades found."

// Narrative renders ranked results as a short human-readable digest, one line
// per record. It is a formatting helper; ranking correctness lives above.
func Narrative(records []*types.TradeRecord) string {
	if len(records) == 0 {
		return EmptyResultMessage
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d matching trade(s):\n", len(records))
	for i, rec := range records {
		fmt.Fprintf(&b, "%d. %s %s (%s)", i+1, rec.Ticker, strings.ToUpper(string(rec.Kind)), rec.Status)
		if rec.PnlUSD != nil {
			fmt.Fprintf(&b, " pnl $%.2f", *rec.PnlUSD)
		} else if rec.PnlPercent != nil {
			fmt.Fprintf(&b, " pnl %.2f%%", *rec.PnlPercent)
		}
		if rec.Sentiment != nil {
			fmt.Fprintf(&b, " [%s]", *rec.Sentiment)
		}
		if summary := digestLine(rec); summary != "" {
			fmt.Fprintf(&b, " - %s", summary)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func digestLine(rec *types.TradeRecord) string {
	if rec.AISummary != nil && *rec.AISummary != "" {
		return firstLine(*rec.AISummary)
	}
	return firstLine(rec.LatestNote())
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	const max = 100
	runes := []rune(s)
	if len(runes) > max {
		return string(runes[:max]) + "..."
	}
	return s
}
