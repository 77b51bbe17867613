package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "tradevault", cfg.Name)
	assert.Equal(t, "none", cfg.LLM.Provider)
	assert.NotEmpty(t, cfg.Heuristics.TickerExclusions)
	assert.Equal(t, 12, cfg.Heuristics.OpenContextLimit)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout())
	assert.Equal(t, 10*time.Second, cfg.EmbeddingTimeout())
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Provider = "openai"
	cfg.LLM.Model = "gpt-4o-mini"
	cfg.LLM.Timeout = "45s"
	cfg.Heuristics.TickerExclusions = append(cfg.Heuristics.TickerExclusions, "HODL")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", loaded.LLM.Model)
	assert.Equal(t, 45*time.Second, loaded.LLMTimeout())
	assert.Contains(t, loaded.Heuristics.TickerExclusions, "HODL")
}

func TestNormalizeFillsEmptyHeuristics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: custom\nllm:\n  provider: none\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.Name)
	// A sparse file still gets the full heuristics data set.
	assert.NotEmpty(t, cfg.Heuristics.SentimentClasses)
	assert.NotEmpty(t, cfg.Heuristics.ClosingVerbs)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "test-key-123")
	t.Setenv("TRADEVAULT_DB", "/tmp/override.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "test-key-123", cfg.LLM.APIKey)
	assert.Equal(t, "test-key-123", cfg.Embedding.GenAIAPIKey)
	assert.Equal(t, "/tmp/override.db", cfg.ResolveDatabasePath())
}

func TestGeminiKeyKeepsConfiguredProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gem-key")

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.LLM.Provider = "openai"
	cfg.LLM.APIKey = "file-key"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", loaded.LLM.Provider)
	assert.Equal(t, "file-key", loaded.LLM.APIKey)
	// The embedding capability still picks up the key.
	assert.Equal(t, "gem-key", loaded.Embedding.GenAIAPIKey)
}

func TestWatcherReloadsHeuristics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, DefaultConfig().Save(path))

	reloaded := make(chan HeuristicsConfig, 1)
	w, err := NewWatcher(path, func(h HeuristicsConfig) {
		select {
		case reloaded <- h:
		default:
		}
	})
	require.NoError(t, err)
	defer w.Close()

	cfg := DefaultConfig()
	cfg.Heuristics.TickerExclusions = append(cfg.Heuristics.TickerExclusions, "GME")
	require.NoError(t, cfg.Save(path))

	select {
	case h := <-reloaded:
		assert.Contains(t, h.TickerExclusions, "GME")
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not fire within 3s")
	}
}
