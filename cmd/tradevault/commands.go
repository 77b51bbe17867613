package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"tradevault/internal/analytics"
	"tradevault/internal/query"
	"tradevault/internal/store"
	"tradevault/internal/types"
)

var (
	// note flags
	noteTarget     string
	noteAttachment []string

	// list/search/stats flags
	filterStatus    string
	filterTickers   []string
	filterSentiment []string
	filterDateFrom  string
	filterDateTo    string
	sortBy          string
	sortDesc        bool
	limit           int
	asJSON          bool
)

func criteriaFromFlags() query.Criteria {
	return query.Criteria{
		Status:     filterStatus,
		Tickers:    filterTickers,
		Sentiments: filterSentiment,
		DateFrom:   filterDateFrom,
		DateTo:     filterDateTo,
	}
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&filterStatus, "status", "", "filter by status (open|closed)")
	cmd.Flags().StringSliceVar(&filterTickers, "ticker", nil, "filter by ticker (repeatable)")
	cmd.Flags().StringSliceVar(&filterSentiment, "sentiment", nil, "filter by sentiment (repeatable)")
	cmd.Flags().StringVar(&filterDateFrom, "from", "", "earliest creation date (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&filterDateTo, "to", "", "latest creation date")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of text")
}

// noteCmd interprets one free-form trade note.
var noteCmd = &cobra.Command{
	Use:   "note [text]",
	Short: "Record a trade note (creates or updates a position)",
	Long: `Interprets a free-form trade note and merges it into the journal.

Examples:
  tradevault note "Bought 100 AAPL calls @ 5.20, feeling bullish"
  tradevault note "Closed AAPL for $350 profit"
  tradevault note --target 3f2a... "adding context to this trade"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		attachments, err := loadAttachments(noteAttachment)
		if err != nil {
			return err
		}

		res, err := app.service.InterpretNote(cmd.Context(), strings.Join(args, " "), attachments, noteTarget)
		if err != nil {
			return err
		}

		if asJSON {
			return printJSON(res)
		}
		word := "created"
		if res.Action == types.ActionUpdate {
			word = "updated"
		}
		fmt.Printf("%s %s\n", word, res.Record.ID)
		printRecord(res.Record)
		if res.Rationale != "" {
			fmt.Printf("  rationale: %s\n", res.Rationale)
		}
		return nil
	},
}

// listCmd lists trades with filtering and sorting.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List trades, filtered and sorted",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := app.service.ListTrades(criteriaFromFlags(), sortBy, sortDesc, limit)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(records)
		}
		if len(records) == 0 {
			fmt.Println("No trades recorded.")
			return nil
		}
		for _, rec := range records {
			printRecordLine(rec)
		}
		return nil
	},
}

// searchCmd ranks trades against a free-text query.
var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search trades by free text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := app.service.Search(cmd.Context(), strings.Join(args, " "), criteriaFromFlags(), limit)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(records)
		}
		fmt.Println(app.service.Narrative(records))
		return nil
	},
}

// statsCmd prints the aggregate analytics summary.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Aggregate performance statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := app.service.Analytics(criteriaFromFlags())
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(summary)
		}
		printSummary(summary)
		return nil
	},
}

// showCmd prints one record in full.
var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one trade record in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := app.service.GetTrade(args[0])
		if err != nil {
			return err
		}
		return printJSON(rec)
	},
}

// deleteCmd removes a record.
var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a trade record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.service.DeleteTrade(args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

// summarizeCmd regenerates a record's AI summary from its note history.
var summarizeCmd = &cobra.Command{
	Use:   "summarize [id]",
	Short: "Regenerate a trade's AI summary from its notes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := app.service.RefreshSummary(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", rec.Ticker, *rec.AISummary)
		return nil
	},
}

var resetConfirm bool

// resetCmd drops all records, reloading seed data when configured.
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop all trade records (reloads seed data if configured)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetConfirm {
			return fmt.Errorf("refusing to drop %d records without --yes", app.service.Count())
		}
		app.service.Reset()
		if path := app.cfg.Store.SeedPath; path != "" {
			records, err := store.LoadSeedFile(path)
			if err != nil {
				return err
			}
			app.service.Seed(records)
			fmt.Printf("reset complete, %d seed records loaded\n", len(records))
			return nil
		}
		fmt.Println("reset complete")
		return nil
	},
}

func init() {
	noteCmd.Flags().StringVarP(&noteTarget, "target", "t", "", "force the update target record id")
	noteCmd.Flags().StringSliceVar(&noteAttachment, "attach", nil, "attach a file (repeatable)")
	noteCmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of text")

	addFilterFlags(listCmd)
	listCmd.Flags().StringVar(&sortBy, "sort", "", "sort field (default created_at)")
	listCmd.Flags().BoolVar(&sortDesc, "desc", false, "sort descending")
	listCmd.Flags().IntVar(&limit, "limit", 0, "maximum results (0 = all)")

	addFilterFlags(searchCmd)
	searchCmd.Flags().IntVar(&limit, "limit", 0, "maximum results (0 = default 15)")

	addFilterFlags(statsCmd)

	resetCmd.Flags().BoolVar(&resetConfirm, "yes", false, "confirm the reset")
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRecordLine(rec *types.TradeRecord) {
	line := fmt.Sprintf("%s  %-6s %-5s %-6s", rec.ID, rec.Ticker, rec.Kind, rec.Status)
	if rec.PnlUSD != nil {
		line += fmt.Sprintf("  pnl $%.2f", *rec.PnlUSD)
	}
	if rec.Sentiment != nil {
		line += fmt.Sprintf("  [%s]", *rec.Sentiment)
	}
	fmt.Println(line)
}

func printRecord(rec *types.TradeRecord) {
	fmt.Printf("  %s %s, status %s\n", rec.Ticker, rec.Kind, rec.Status)
	if rec.EntryPrice != nil {
		fmt.Printf("  entry: %g\n", *rec.EntryPrice)
	}
	if rec.ExitPrice != nil {
		fmt.Printf("  exit: %g\n", *rec.ExitPrice)
	}
	if rec.Size != nil {
		fmt.Printf("  size: %g\n", *rec.Size)
	}
	if rec.PnlUSD != nil {
		fmt.Printf("  pnl: $%.2f\n", *rec.PnlUSD)
	}
	if rec.Sentiment != nil {
		fmt.Printf("  sentiment: %s\n", *rec.Sentiment)
	}
	fmt.Printf("  notes: %d\n", len(rec.Notes))
}

func printSummary(s *analytics.Summary) {
	fmt.Printf("Trades: %d total, %d open, %d closed\n", s.TotalTrades, s.OpenTrades, s.ClosedTrades)
	fmt.Printf("Win rate: %.2f%% (%d wins, %d losses)\n", s.WinRate, s.Wins, s.Losses)
	fmt.Printf("Total pnl: $%.2f\n", s.TotalPnlUSD)
	if s.AvgRR != nil {
		fmt.Printf("Avg R:R: %.2f\n", *s.AvgRR)
	}
	if s.AvgHoldMins != nil {
		fmt.Printf("Avg hold: %.0f min\n", *s.AvgHoldMins)
	}
	fmt.Printf("Streaks: current %d, longest %d\n", s.CurrentWinStreak, s.LongestWinStreak)
	if s.BestTrade != nil {
		fmt.Printf("Best:  %s %s\n", s.BestTrade.Ticker, pnlString(s.BestTrade))
	}
	if s.WorstTrade != nil {
		fmt.Printf("Worst: %s %s\n", s.WorstTrade.Ticker, pnlString(s.WorstTrade))
	}

	if len(s.ByTicker) > 0 {
		fmt.Println("\nBy ticker:")
		for _, name := range sortedKeys(s.ByTicker) {
			g := s.ByTicker[name]
			fmt.Printf("  %-6s %d trades, %.2f%% wins, $%.2f\n", name, g.Trades, g.WinRate, g.SumPnlUSD)
		}
	}
	if len(s.BySentiment) > 0 {
		fmt.Println("\nBy sentiment:")
		for _, name := range sortedKeys(s.BySentiment) {
			g := s.BySentiment[name]
			fmt.Printf("  %-12s %d trades, avg $%.2f\n", name, g.Trades, g.AvgPnlUSD)
		}
	}
}

func pnlString(ref *analytics.TradeRef) string {
	if ref.PnlUSD != nil {
		return fmt.Sprintf("$%.2f", *ref.PnlUSD)
	}
	if ref.PnlPct != nil {
		return fmt.Sprintf("%.2f%%", *ref.PnlPct)
	}
	return ""
}

func sortedKeys(m map[string]*analytics.GroupStats) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// loadAttachments reads each path into an inline attachment. Media type is
// guessed from the extension; content is stored as a data path reference.
func loadAttachments(paths []string) ([]types.Attachment, error) {
	attachments := make([]types.Attachment, 0, len(paths))
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("attachment %s: %w", path, err)
		}
		mediaType := mime.TypeByExtension(filepath.Ext(path))
		if mediaType == "" {
			mediaType = "application/octet-stream"
		}
		attachments = append(attachments, types.Attachment{
			ID:        types.NewID(),
			Name:      filepath.Base(path),
			MediaType: mediaType,
			Content:   path,
		})
	}
	return attachments, nil
}
