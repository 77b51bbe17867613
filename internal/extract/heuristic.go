// Package extract turns free-form trade notes into structured extraction
// drafts. The coordinator prefers the configured LLM; the heuristic extractor
// is the deterministic fallback that can never fail.
package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"tradevault/internal/config"
	"tradevault/internal/logging"
	"tradevault/internal/types"
)

// HeuristicRationale is the fixed rationale attached to every heuristic draft.
const HeuristicRationale = "heuristic extraction: language model unavailable or failed"

// summaryLimit truncates the raw-text summary carried on every draft.
const summaryLimit = 280

// =============================================================================
// NUMERIC FIELD PATTERNS
// =============================================================================
// Each numeric field has a priority-ordered pattern list; the first pattern
// that matches and parses wins. Sign carries the pattern's semantics (a
// "$120 loss" is -120 even though the note has no minus sign).

type numPattern struct {
	re   *regexp.Regexp
	sign float64
}

func pat(expr string) numPattern    { return numPattern{re: regexp.MustCompile(expr), sign: 1} }
func negPat(expr string) numPattern { return numPattern{re: regexp.MustCompile(expr), sign: -1} }

var (
	entryPricePatterns = []numPattern{
		pat(`(?i)entry(?:\s+price)?\s*(?:at|@|:|=|of)?\s*\$?(-?\d+(?:\.\d+)?)`),
		pat(`(?i)\b(?:bought|buy|long(?:ed)?)\b[^.\n]*?\b(?:at|for)\b\s*\$?(\d+(?:\.\d+)?)`),
		pat(`@\s*\$?(\d+(?:\.\d+)?)`),
	}

	exitPricePatterns = []numPattern{
		pat(`(?i)exit(?:\s+price)?\s*(?:at|@|:|=|of)?\s*\$?(-?\d+(?:\.\d+)?)`),
		pat(`(?i)\b(?:sold|closed|exited)\b[^.\n]*?(?:\bat\b|@)\s*\$?(\d+(?:\.\d+)?)`),
	}

	sizePatterns = []numPattern{
		pat(`(?i)\bsize\s*(?:of|:|=)?\s*(\d+(?:\.\d+)?)`),
		pat(`(?i)\b(\d+(?:\.\d+)?)\s*(?:shares|contracts|units|lots)\b`),
		pat(`(?i)\b(?:bought|buy|sold|sell|add(?:ed)?|trimmed)\s+(\d+(?:\.\d+)?)\b`),
	}

	pnlUSDPatterns = []numPattern{
		pat(`(?i)\b(?:pnl|p/l|p&l)\s*(?:of|:|=)?\s*\$?(-?\d+(?:\.\d+)?)`),
		pat(`(?i)\$(\d+(?:\.\d+)?)\s*(?:profit|gain|win)\b`),
		negPat(`(?i)\$(\d+(?:\.\d+)?)\s*loss\b`),
		pat(`(?i)\b(?:made|profited|up)\s*\$(\d+(?:\.\d+)?)`),
		negPat(`(?i)\b(?:lost|down)\s*\$(\d+(?:\.\d+)?)`),
	}

	pnlPercentPatterns = []numPattern{
		pat(`(?i)\b(?:up|gained|made)\s*(\d+(?:\.\d+)?)\s*%`),
		negPat(`(?i)\b(?:down|lost|dropped)\s*(\d+(?:\.\d+)?)\s*%`),
		pat(`(-?\d+(?:\.\d+)?)\s*%`),
	}

	riskRewardPatterns = []numPattern{
		pat(`(?i)\b(?:r[:/]r|rr|risk[\s/-]*reward)\s*(?:of|:|=)?\s*(\d+(?:\.\d+)?)`),
		pat(`(?i)\b(\d+(?:\.\d+)?)\s*r\b`),
	}

	durationMinutePatterns = []numPattern{
		pat(`(?i)\b(\d+(?:\.\d+)?)\s*(?:minutes|mins|min)\b`),
	}
	durationHourPatterns = []numPattern{
		pat(`(?i)\b(\d+(?:\.\d+)?)\s*(?:hours|hrs|hr|h)\b`),
	}

	dollarTickerRe = regexp.MustCompile(`\$([A-Za-z]{1,6})\b`)
	tokenSplitRe   = regexp.MustCompile(`[^A-Za-z0-9]+`)

	putRe   = regexp.MustCompile(`(?i)\bputs?\b`)
	callRe  = regexp.MustCompile(`(?i)\bcalls?\b`)
	shortRe = regexp.MustCompile(`(?i)\bshort(?:ed|ing)?\b`)
)

func firstNumber(text string, patterns []numPattern) *float64 {
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return types.Float(v * p.sign)
	}
	return nil
}

// =============================================================================
// HEURISTIC EXTRACTOR
// =============================================================================

// Heuristic derives an extraction draft from raw note text using ordered
// pattern rules. The keyword lists it matches against are configuration data
// and can be swapped at runtime (hot reload).
type Heuristic struct {
	mu  sync.RWMutex
	cfg config.HeuristicsConfig
}

// NewHeuristic creates an extractor over the given heuristics data.
func NewHeuristic(cfg config.HeuristicsConfig) *Heuristic {
	return &Heuristic{cfg: cfg}
}

// SetConfig swaps the heuristics data; wired to the config hot-reload watcher.
func (h *Heuristic) SetConfig(cfg config.HeuristicsConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cfg = cfg
}

func (h *Heuristic) snapshot() config.HeuristicsConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// Extract derives a draft from the note. It cannot fail: every branch has a
// default. open is the candidate set for update-target inference.
func (h *Heuristic) Extract(text, forcedTarget string, open []*types.TradeRecord) *types.ExtractionDraft {
	cfg := h.snapshot()
	lower := strings.ToLower(text)

	draft := &types.ExtractionDraft{
		Action:    types.ActionCreate,
		Rationale: HeuristicRationale,
	}

	draft.Trade.EntryPrice = firstNumber(text, entryPricePatterns)
	draft.Trade.ExitPrice = firstNumber(text, exitPricePatterns)
	draft.Trade.Size = firstNumber(text, sizePatterns)
	draft.Trade.PnlUSD = firstNumber(text, pnlUSDPatterns)
	draft.Trade.PnlPercent = firstNumber(text, pnlPercentPatterns)
	draft.Trade.RiskReward = firstNumber(text, riskRewardPatterns)
	draft.Trade.DurationMinutes = extractDuration(text)

	if ticker := detectTicker(text, cfg.TickerExclusions); ticker != "" {
		draft.Trade.Ticker = types.String(ticker)
	}
	if kind := detectKind(text); kind != "" {
		draft.Trade.Kind = types.String(kind)
	}

	closing := containsAny(lower, cfg.ClosingVerbs)
	if closing {
		// Only ever assert "closed"; the absence of a closing verb is not
		// evidence the position reopened.
		draft.Trade.Status = types.String(string(types.StatusClosed))
	}

	if sentiment := detectSentiment(lower, cfg.SentimentClasses); sentiment != "" {
		draft.Trade.Sentiment = types.String(sentiment)
	}

	draft.Trade.Summary = types.String(truncate(text, summaryLimit))

	// Update-target inference: a note about an already-open position. A
	// closing verb counts as an update hint when an open record with the
	// same ticker exists, otherwise "Closed AAPL" would mint a duplicate.
	if forcedTarget != "" {
		draft.Action = types.ActionUpdate
		draft.TargetID = forcedTarget
	} else if draft.Trade.Ticker != nil && (closing || containsAny(lower, cfg.UpdateHints)) {
		if target := findOpenByTicker(open, *draft.Trade.Ticker); target != "" {
			draft.Action = types.ActionUpdate
			draft.TargetID = target
		}
	}

	logging.Heuristic("extracted draft: action=%s target=%s ticker=%v",
		draft.Action, draft.TargetID, deref(draft.Trade.Ticker))
	return draft
}

// extractDuration parses minutes and hours, normalizing to minutes. Hours are
// rounded to the nearest minute after multiplying by 60.
func extractDuration(text string) *float64 {
	if v := firstNumber(text, durationMinutePatterns); v != nil {
		return v
	}
	if v := firstNumber(text, durationHourPatterns); v != nil {
		return types.Float(math.Round(*v * 60))
	}
	return nil
}

// detectTicker prefers a dollar-sign-prefixed token, then scans upper-case
// tokens of length 2-5, skipping the configured jargon set and pure-digit
// tokens. First surviving candidate wins; "" when nothing qualifies.
func detectTicker(text string, exclusions []string) string {
	if m := dollarTickerRe.FindStringSubmatch(text); len(m) == 2 {
		return strings.ToUpper(m[1])
	}

	excluded := make(map[string]bool, len(exclusions))
	for _, w := range exclusions {
		excluded[strings.ToUpper(w)] = true
	}

	for _, tok := range tokenSplitRe.Split(text, -1) {
		if len(tok) < 2 || len(tok) > 5 {
			continue
		}
		if tok != strings.ToUpper(tok) {
			continue
		}
		if !strings.ContainsFunc(tok, func(r rune) bool { return r >= 'A' && r <= 'Z' }) {
			continue // pure digits
		}
		if excluded[tok] {
			continue
		}
		return tok
	}
	return ""
}

// detectKind applies the keyword precedence put > call > short; "" when no
// keyword appears (the create path defaults to long).
func detectKind(text string) string {
	switch {
	case putRe.MatchString(text):
		return string(types.KindPut)
	case callRe.MatchString(text):
		return string(types.KindCall)
	case shortRe.MatchString(text):
		return string(types.KindShort)
	default:
		return ""
	}
}

// detectSentiment tests the mutually exclusive classes in configured order;
// first match wins.
func detectSentiment(lower string, classes []config.SentimentClass) string {
	for _, class := range classes {
		if containsAny(lower, class.Keywords) {
			return class.Name
		}
	}
	return ""
}

func findOpenByTicker(open []*types.TradeRecord, ticker string) string {
	for _, rec := range open {
		if rec.Status == types.StatusOpen && strings.EqualFold(rec.Ticker, ticker) {
			return rec.ID
		}
	}
	return ""
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
