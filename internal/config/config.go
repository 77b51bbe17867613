// Package config holds all tradevault configuration: LLM and embedding
// providers, store paths, logging, and the heuristics data the fallback
// extractor runs on. Heuristics lists are configuration, not code, so jargon
// exclusions and keyword classes can be extended without touching the
// algorithm.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all tradevault configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM configures the structured-extraction capability.
	LLM LLMConfig `yaml:"llm"`

	// Embedding configures the optional embedding capability.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Store configures record persistence and seed data.
	Store StoreConfig `yaml:"store"`

	// Heuristics is the data the fallback extractor matches against.
	Heuristics HeuristicsConfig `yaml:"heuristics"`

	// Logging controls the category file logger.
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the LLM extraction client.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, openai, none
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"` // OpenAI-compatible endpoints only
	Timeout  string `yaml:"timeout"`  // Go duration string, default 30s
}

// EmbeddingConfig configures the embedding capability.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // ollama, genai, none
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
	GenAIAPIKey    string `yaml:"genai_api_key"`
	GenAIModel     string `yaml:"genai_model"`
	Timeout        string `yaml:"timeout"` // default 10s
}

// StoreConfig configures record persistence.
type StoreConfig struct {
	// DataDir is the root for logs and the database. Default ~/.tradevault.
	DataDir string `yaml:"data_dir"`

	// DatabasePath is the SQLite file; empty disables persistence (records
	// live in memory only). Relative paths resolve under DataDir.
	DatabasePath string `yaml:"database_path"`

	// SeedPath optionally points to a JSON file of records loaded at startup
	// and restored by Reset.
	SeedPath string `yaml:"seed_path"`
}

// SentimentClass is one mutually exclusive sentiment bucket with its trigger
// keywords. Classes are tested in slice order; the first match wins.
type SentimentClass struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// HeuristicsConfig is the data the heuristic extractor pattern-matches
// against. All lists extend without touching extraction code.
type HeuristicsConfig struct {
	// TickerExclusions are upper-case jargon tokens never treated as tickers.
	TickerExclusions []string `yaml:"ticker_exclusions"`

	// UpdateHints mark a note as an update to an existing open position.
	UpdateHints []string `yaml:"update_hints"`

	// ClosingVerbs mark a note as closing (fully or partially) a position.
	ClosingVerbs []string `yaml:"closing_verbs"`

	// SentimentClasses in test order; first matching class wins.
	SentimentClasses []SentimentClass `yaml:"sentiment_classes"`

	// OpenContextLimit bounds how many open records are handed to the
	// extraction capability as context.
	OpenContextLimit int `yaml:"open_context_limit"`
}

// LoggingConfig controls the category file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Name:    "tradevault",
		Version: "0.3.0",
		LLM: LLMConfig{
			Provider: "none",
			Model:    "gemini-2.0-flash",
			Timeout:  "30s",
		},
		Embedding: EmbeddingConfig{
			Provider:       "none",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
			Timeout:        "10s",
		},
		Store: StoreConfig{
			DataDir:      filepath.Join(home, ".tradevault"),
			DatabasePath: "trades.db",
		},
		Heuristics: DefaultHeuristics(),
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// DefaultHeuristics returns the built-in heuristics data.
func DefaultHeuristics() HeuristicsConfig {
	return HeuristicsConfig{
		TickerExclusions: []string{
			"LONG", "SHORT", "CALL", "CALLS", "PUT", "PUTS",
			"OPEN", "CLOSE", "CLOSED", "STOP", "LOSS", "PNL",
			"USD", "ITM", "OTM", "ATM", "YOLO", "FOMO", "EOD",
			"ATH", "DCA", "IPO", "ETF", "CEO", "FED", "CPI",
		},
		UpdateHints: []string{
			"update", "add note", "still in", "holding",
			"trim", "scale", "reduce", "adding",
		},
		ClosingVerbs: []string{
			"close", "closed", "closing", "exit", "exited",
			"trim", "trimmed", "stop", "stopped out",
			"take profit", "took profit", "sold",
		},
		SentimentClasses: []SentimentClass{
			{Name: "bearish", Keywords: []string{"bearish", "fear", "fearful", "worried", "nervous", "dump", "crash"}},
			{Name: "bullish", Keywords: []string{"bullish", "confident", "conviction", "optimistic", "strong", "moon"}},
			{Name: "neutral", Keywords: []string{"neutral", "flat", "sideways", "unsure", "wait and see"}},
			{Name: "frustrated", Keywords: []string{"frustrated", "frustrating", "annoyed", "angry", "tilted", "stupid"}},
			{Name: "happy", Keywords: []string{"happy", "great", "excited", "glad", "relieved"}},
		},
		OpenContextLimit: 12,
	}
}

// DefaultPath is the config file location used when --config is not given:
// ~/.tradevault/config.yaml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tradevault", "config.yaml")
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.normalize()
	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// normalize fills holes a hand-edited file commonly leaves.
func (c *Config) normalize() {
	def := DefaultHeuristics()
	if len(c.Heuristics.TickerExclusions) == 0 {
		c.Heuristics.TickerExclusions = def.TickerExclusions
	}
	if len(c.Heuristics.UpdateHints) == 0 {
		c.Heuristics.UpdateHints = def.UpdateHints
	}
	if len(c.Heuristics.ClosingVerbs) == 0 {
		c.Heuristics.ClosingVerbs = def.ClosingVerbs
	}
	if len(c.Heuristics.SentimentClasses) == 0 {
		c.Heuristics.SentimentClasses = def.SentimentClasses
	}
	if c.Heuristics.OpenContextLimit <= 0 {
		c.Heuristics.OpenContextLimit = def.OpenContextLimit
	}
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" || c.LLM.Provider == "none" {
			c.LLM.Provider = "openai"
		}
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		if c.LLM.Provider == "" || c.LLM.Provider == "none" {
			c.LLM.Provider = "gemini"
		}
		// Never clobber the key of an explicitly configured other provider.
		if c.LLM.Provider == "gemini" {
			c.LLM.APIKey = key
		}
		if c.Embedding.GenAIAPIKey == "" {
			c.Embedding.GenAIAPIKey = key
		}
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		c.Embedding.OllamaEndpoint = host
	}
	if dir := os.Getenv("TRADEVAULT_DATA"); dir != "" {
		c.Store.DataDir = dir
	}
	if path := os.Getenv("TRADEVAULT_DB"); path != "" {
		c.Store.DatabasePath = path
	}
}

// LLMTimeout parses the completion timeout, defaulting to 30s.
func (c *Config) LLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 30*time.Second)
}

// EmbeddingTimeout parses the embedding timeout, defaulting to 10s.
func (c *Config) EmbeddingTimeout() time.Duration {
	return parseDuration(c.Embedding.Timeout, 10*time.Second)
}

// ResolveDatabasePath resolves the SQLite path under DataDir; "" means
// persistence is disabled.
func (c *Config) ResolveDatabasePath() string {
	p := c.Store.DatabasePath
	if p == "" {
		return ""
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(c.Store.DataDir, p)
	}
	return p
}

func parseDuration(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
