// Package config loads vidrag settings from defaults, an optional TOML file,
// a .env file and VIDRAG_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/poiesic/vidrag/ai"
	"github.com/poiesic/vidrag/chunking"
	"github.com/poiesic/vidrag/core"
	"github.com/poiesic/vidrag/storage"
)

// Storage backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "VIDRAG_"

// Duration is a time.Duration written as a string such as "1s" in TOML.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// StorageConfig selects where transcripts and vectors are kept.
type StorageConfig struct {
	Backend   string `toml:"backend"`
	Path      string `toml:"path"`
	InMemory  bool   `toml:"in_memory"`
	IndexName string `toml:"index_name"`
}

// ChunkingConfig sets chunk size and overlap in characters.
type ChunkingConfig struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
}

// IngestionConfig tunes the embedding workers and caller-side retry.
type IngestionConfig struct {
	PoolSize   int      `toml:"pool_size"`
	BatchSize  int      `toml:"batch_size"`
	MaxRetries int      `toml:"max_retries"`
	RetryDelay Duration `toml:"retry_delay"`
}

// QAConfig tunes retrieval and the conversation window.
// MinScore drops retrieved chunks whose cosine similarity is below it;
// -1 keeps every match.
type QAConfig struct {
	TopK        int     `toml:"top_k"`
	MinScore    float64 `toml:"min_score"`
	Window      int     `toml:"window"`
	Temperature float64 `toml:"temperature"`
}

// QuizConfig tunes quiz generation.
type QuizConfig struct {
	Count       int     `toml:"count"`
	Temperature float64 `toml:"temperature"`
	Structured  bool    `toml:"structured"`
}

// SummaryConfig tunes summaries.
type SummaryConfig struct {
	Temperature float64 `toml:"temperature"`
}

// KeywordsConfig tunes keyword extraction.
type KeywordsConfig struct {
	Count int `toml:"count"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string   `toml:"addr"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// Config is the complete application configuration.
type Config struct {
	AI        ai.Config       `toml:"ai"`
	Storage   StorageConfig   `toml:"storage"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Ingestion IngestionConfig `toml:"ingestion"`
	QA        QAConfig        `toml:"qa"`
	Quiz      QuizConfig      `toml:"quiz"`
	Summary   SummaryConfig   `toml:"summary"`
	Keywords  KeywordsConfig  `toml:"keywords"`
	Server    ServerConfig    `toml:"server"`
}

// DefaultDataDir returns ~/.vidrag, or .vidrag when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vidrag"
	}
	return filepath.Join(home, ".vidrag")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		AI: *ai.DefaultConfig(),
		Storage: StorageConfig{
			Backend:   BackendBadger,
			Path:      DefaultDataDir(),
			IndexName: storage.DefaultIndexName,
		},
		Chunking: ChunkingConfig{
			Size:    chunking.DefaultSize,
			Overlap: chunking.DefaultOverlap,
		},
		Ingestion: IngestionConfig{
			PoolSize:   4,
			BatchSize:  32,
			MaxRetries: 3,
			RetryDelay: Duration(time.Second),
		},
		QA: QAConfig{
			TopK:     4,
			MinScore: -1,
			Window:   3,
		},
		Quiz: QuizConfig{
			Count:       5,
			Temperature: 0.3,
			Structured:  true,
		},
		Summary: SummaryConfig{
			Temperature: 0.4,
		},
		Keywords: KeywordsConfig{
			Count: 5,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: Duration(10 * time.Second),
		},
	}
}

// Load builds the configuration.
//
// Values come from Default, then the TOML file at path (skipped when path is
// empty), then variables from a .env file in the working directory, then the
// process environment. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := cfg.Decode(data); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// godotenv never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode overlays TOML data onto the configuration.
func (c *Config) Decode(data []byte) error {
	return toml.Unmarshal(data, c)
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// ApplyEnv overlays VIDRAG_* variables found through lookup.
// OPENAI_API_KEY and GEMINI_API_KEY are honored when VIDRAG_API_KEY is unset.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	env := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	strs := map[string]*string{
		"PROVIDER":         &c.AI.Provider,
		"EMBEDDING_HOST":   &c.AI.EmbeddingHost,
		"GENERATION_HOST":  &c.AI.GenerationHost,
		"EMBEDDING_MODEL":  &c.AI.EmbeddingModel,
		"GENERATION_MODEL": &c.AI.GenerationModel,
		"API_KEY":          &c.AI.APIKey,
		"STORAGE_BACKEND":  &c.Storage.Backend,
		"DATA_DIR":         &c.Storage.Path,
		"INDEX_NAME":       &c.Storage.IndexName,
		"SERVER_ADDR":      &c.Server.Addr,
	}
	if v, ok := env("HOST"); ok {
		c.AI.EmbeddingHost = v
		c.AI.GenerationHost = v
	}
	for name, dst := range strs {
		if v, ok := env(name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"DIMENSION":      &c.AI.Dimension,
		"CHUNK_SIZE":     &c.Chunking.Size,
		"CHUNK_OVERLAP":  &c.Chunking.Overlap,
		"POOL_SIZE":      &c.Ingestion.PoolSize,
		"BATCH_SIZE":     &c.Ingestion.BatchSize,
		"MAX_RETRIES":    &c.Ingestion.MaxRetries,
		"TOP_K":          &c.QA.TopK,
		"HISTORY_WINDOW": &c.QA.Window,
	}
	for name, dst := range ints {
		v, ok := env(name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s: %w", core.ErrConfiguration, EnvPrefix, name, err)
		}
		*dst = n
	}

	if v, ok := env("TEMPERATURE"); ok {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %sTEMPERATURE: %w", core.ErrConfiguration, EnvPrefix, err)
		}
		c.AI.Temperature = t
	}
	if v, ok := env("MIN_SCORE"); ok {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %sMIN_SCORE: %w", core.ErrConfiguration, EnvPrefix, err)
		}
		c.QA.MinScore = m
	}
	if v, ok := env("RETRY_DELAY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sRETRY_DELAY: %w", core.ErrConfiguration, EnvPrefix, err)
		}
		c.Ingestion.RetryDelay = Duration(d)
	}

	if c.AI.APIKey == "" {
		name := "OPENAI_API_KEY"
		if strings.EqualFold(c.AI.Provider, ai.ProviderGemini) {
			name = "GEMINI_API_KEY"
		}
		if v, ok := lookup(name); ok {
			c.AI.APIKey = strings.TrimSpace(v)
		}
	}
	return nil
}

// Validate checks every section. Errors wrap core.ErrConfiguration.
func (c *Config) Validate() error {
	if err := c.AI.Validate(); err != nil {
		return err
	}
	if _, err := chunking.New(c.Chunking.Size, c.Chunking.Overlap); err != nil {
		return err
	}

	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case BackendBadger, BackendSQLite:
	default:
		return fmt.Errorf("%w: unknown storage backend %q", core.ErrConfiguration, c.Storage.Backend)
	}
	if c.Storage.Path == "" && !c.Storage.InMemory {
		return fmt.Errorf("%w: storage path is required", core.ErrConfiguration)
	}
	if c.Storage.IndexName == "" {
		return storage.ErrIndexNameRequired
	}

	positive := []struct {
		name  string
		value int
	}{
		{"ingestion.pool_size", c.Ingestion.PoolSize},
		{"ingestion.batch_size", c.Ingestion.BatchSize},
		{"ingestion.max_retries", c.Ingestion.MaxRetries},
		{"qa.top_k", c.QA.TopK},
		{"quiz.count", c.Quiz.Count},
		{"keywords.count", c.Keywords.Count},
	}
	for _, p := range positive {
		if p.value < 1 {
			return fmt.Errorf("%w: %s must be positive, got %d", core.ErrConfiguration, p.name, p.value)
		}
	}
	if c.QA.MinScore < -1 || c.QA.MinScore > 1 {
		return fmt.Errorf("%w: qa.min_score must be within [-1, 1], got %g", core.ErrConfiguration, c.QA.MinScore)
	}
	if c.QA.Window < 0 {
		return fmt.Errorf("%w: qa.window must not be negative, got %d", core.ErrConfiguration, c.QA.Window)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is required", core.ErrConfiguration)
	}
	return nil
}
