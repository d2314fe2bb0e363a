package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/vidrag/ai"
	"github.com/poiesic/vidrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	assert.Equal(t, 400, cfg.Chunking.Size)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.Equal(t, 4, cfg.QA.TopK)
	assert.Equal(t, 3, cfg.QA.Window)
	assert.Equal(t, ai.DefaultDimension, cfg.AI.Dimension)
	assert.True(t, cfg.Quiz.Structured)
}

func TestDecode(t *testing.T) {
	cfg := Default()
	err := cfg.Decode([]byte(`
[ai]
provider = "gemini"
api_key = "secret"
embedding_model = "text-embedding-004"
generation_model = "gemini-1.5-flash-latest"
dimension = 768

[storage]
backend = "sqlite"
path = "/var/lib/vidrag"

[chunking]
size = 800
overlap = 200

[ingestion]
retry_delay = "250ms"

[quiz]
structured = false
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ai.ProviderGemini, cfg.AI.Provider)
	assert.Equal(t, 768, cfg.AI.Dimension)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, 800, cfg.Chunking.Size)
	assert.Equal(t, 250*time.Millisecond, cfg.Ingestion.RetryDelay.Std())
	assert.False(t, cfg.Quiz.Structured)
	// untouched sections keep their defaults
	assert.Equal(t, 5, cfg.Quiz.Count)
	assert.Equal(t, 3, cfg.Ingestion.MaxRetries)
}

func TestEncode_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Server.Addr = "127.0.0.1:9000"

	data, err := cfg.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), "shutdown_timeout")
	assert.Contains(t, string(data), "10s")

	decoded := &Config{}
	require.NoError(t, decoded.Decode(data))
	assert.Equal(t, cfg.Server, decoded.Server)
	assert.Equal(t, cfg.Ingestion, decoded.Ingestion)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(lookupFrom(map[string]string{
		"VIDRAG_HOST":             "http://ollama:11434",
		"VIDRAG_GENERATION_MODEL": "llama3.2",
		"VIDRAG_STORAGE_BACKEND":  "SQLite",
		"VIDRAG_CHUNK_SIZE":       "500",
		"VIDRAG_TEMPERATURE":      "0.7",
		"VIDRAG_RETRY_DELAY":      "2s",
		"VIDRAG_TOP_K":            " ",
		"VIDRAG_MIN_SCORE":        "0.25",
		"OPENAI_API_KEY":          "sk-test",
	}))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://ollama:11434/v1", cfg.AI.EmbeddingHost)
	assert.Equal(t, "http://ollama:11434/v1", cfg.AI.GenerationHost)
	assert.Equal(t, "llama3.2", cfg.AI.GenerationModel)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.InDelta(t, 0.7, cfg.AI.Temperature, 1e-9)
	assert.Equal(t, 2*time.Second, cfg.Ingestion.RetryDelay.Std())
	assert.Equal(t, 4, cfg.QA.TopK, "blank values are ignored")
	assert.InDelta(t, 0.25, cfg.QA.MinScore, 1e-9)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
}

func TestApplyEnv_GeminiKeyFallback(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookupFrom(map[string]string{
		"VIDRAG_PROVIDER": "gemini",
		"OPENAI_API_KEY":  "wrong",
		"GEMINI_API_KEY":  "right",
	})))
	assert.Equal(t, "right", cfg.AI.APIKey)
}

func TestApplyEnv_Invalid(t *testing.T) {
	for _, env := range []map[string]string{
		{"VIDRAG_CHUNK_SIZE": "big"},
		{"VIDRAG_TEMPERATURE": "warm"},
		{"VIDRAG_RETRY_DELAY": "soon"},
		{"VIDRAG_MIN_SCORE": "high"},
	} {
		err := Default().ApplyEnv(lookupFrom(env))
		assert.ErrorIs(t, err, core.ErrConfiguration, "%v", env)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"overlap not below size", func(c *Config) { c.Chunking.Overlap = c.Chunking.Size }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "postgres" }},
		{"missing path", func(c *Config) { c.Storage.Path = "" }},
		{"missing index name", func(c *Config) { c.Storage.IndexName = "" }},
		{"zero top k", func(c *Config) { c.QA.TopK = 0 }},
		{"negative window", func(c *Config) { c.QA.Window = -1 }},
		{"min score above one", func(c *Config) { c.QA.MinScore = 1.5 }},
		{"min score below minus one", func(c *Config) { c.QA.MinScore = -2 }},
		{"zero quiz count", func(c *Config) { c.Quiz.Count = 0 }},
		{"unknown provider", func(c *Config) { c.AI.Provider = "acme" }},
		{"missing server addr", func(c *Config) { c.Server.Addr = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), core.ErrConfiguration)
		})
	}

	t.Run("in-memory storage needs no path", func(t *testing.T) {
		cfg := Default()
		cfg.Storage.Path = ""
		cfg.Storage.InMemory = true
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "vidrag.toml")
	require.NoError(t, os.WriteFile(path, []byte("[qa]\ntop_k = 6\nwindow = 5\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("VIDRAG_HISTORY_WINDOW=2\n"), 0o600))
	t.Setenv("VIDRAG_TOP_K", "8")
	t.Cleanup(func() { os.Unsetenv("VIDRAG_HISTORY_WINDOW") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.QA.TopK, "environment overrides the file")
	assert.Equal(t, 2, cfg.QA.Window, ".env overrides the file")

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}
