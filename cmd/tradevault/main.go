package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tradevault/internal/config"
	"tradevault/internal/embedding"
	"tradevault/internal/extract"
	"tradevault/internal/journal"
	"tradevault/internal/llm"
	"tradevault/internal/logging"
	"tradevault/internal/rank"
	"tradevault/internal/store"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var (
	// Global flags
	verbose    bool
	configPath string

	// Logger
	logger *zap.Logger

	// Wired during PersistentPreRunE
	app *application
)

// application holds everything a command needs after wiring.
type application struct {
	cfg       *config.Config
	service   *journal.Service
	heuristic *extract.Heuristic
	watcher   *config.Watcher
	closer    func()
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tradevault",
	Short: "tradevault - AI-assisted trade journal",
	Long: `tradevault turns free-form trade notes into structured, queryable records.

Describe a trade in plain prose and tradevault decides whether it opens a new
position or updates an existing one, extracts prices, sizes, and pnl from the
text, and keeps the full note history. Later, filter, search, and aggregate
the journal from the same CLI.

A language model (Gemini or any OpenAI-compatible endpoint) improves the
extraction when configured; without one, a deterministic heuristic parser
handles every note.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		app, err = wire(configPath)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil {
			app.closer()
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// wire loads configuration and assembles the journal service.
func wire(path string) (*application, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logSettings := logging.Settings{
		DebugMode:  verbose || cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		Categories: cfg.Logging.Categories,
	}
	if err := logging.Initialize(cfg.Store.DataDir, logSettings); err != nil {
		logger.Warn("category logging unavailable", zap.Error(err))
	}
	logging.Boot("tradevault %s starting", Version)

	var st store.Store
	var closeStore func()
	if dbPath := cfg.ResolveDatabasePath(); dbPath != "" {
		durable, err := store.OpenDurableStore(dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open trade database: %w", err)
		}
		st = durable
		closeStore = func() { _ = durable.Close() }
	} else {
		st = store.NewMemoryStore()
		closeStore = func() {}
	}

	if cfg.Store.SeedPath != "" && st.Count() == 0 {
		if records, err := store.LoadSeedFile(cfg.Store.SeedPath); err != nil {
			logger.Warn("seed load failed", zap.Error(err))
		} else {
			st.Seed(records)
		}
	}

	llmClient, err := llm.NewFromConfig(cfg.LLM)
	if err != nil {
		logger.Warn("language model unavailable, heuristic extraction only", zap.Error(err))
	}

	embedder, err := embedding.NewEngine(embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
	})
	if err != nil {
		logger.Warn("embedding engine unavailable, lexical search only", zap.Error(err))
	}

	heuristic := extract.NewHeuristic(cfg.Heuristics)
	coord := extract.NewCoordinator(llmClient, heuristic, cfg.LLMTimeout(), cfg.Heuristics.OpenContextLimit)
	ranker := rank.NewRanker(embedder, cfg.EmbeddingTimeout())
	service := journal.New(st, coord, ranker, llmClient, cfg.LLMTimeout())

	// Heuristic keyword lists hot-reload when the config file changes.
	watcher, err := config.NewWatcher(path, func(h config.HeuristicsConfig) {
		heuristic.SetConfig(h)
	})
	if err != nil {
		logger.Debug("config watcher disabled", zap.Error(err))
	}

	return &application{
		cfg:       cfg,
		service:   service,
		heuristic: heuristic,
		watcher:   watcher,
		closer: func() {
			if watcher != nil {
				watcher.Close()
			}
			closeStore()
			logging.CloseAll()
		},
	}, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "path to config file")

	rootCmd.AddCommand(noteCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tradevault version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tradevault %s\n", Version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
