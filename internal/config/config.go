// Package config loads Forager's runtime configuration.
//
// Values are resolved in order of precedence: environment variables,
// then config.toml in the config directory, then built-in defaults.
// Provider credentials keep their conventional unprefixed names
// (REDDIT_CLIENT_ID, OPENAI_API_KEY); everything else uses the FORAGER_ prefix.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/oliverbatey/forager/internal/core/domain"
)

// Store backends.
const (
	StoreSQLite  = "sqlite"
	StoreChromem = "chromem"
	StoreMemory  = "memory"
)

// AI providers. Ollama is reached through its OpenAI-compatible endpoint.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config holds all configuration for Forager.
type Config struct {
	Reddit  RedditConfig  `mapstructure:"reddit"`
	AI      AIConfig      `mapstructure:"ai"`
	Store   StoreConfig   `mapstructure:"store"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Chunker ChunkerConfig `mapstructure:"chunker"`
	Server  ServerConfig  `mapstructure:"server"`

	// Dir is the directory config.toml and prompts/ are read from.
	Dir string `mapstructure:"-"`
}

// RedditConfig contains Reddit API credentials and client settings.
type RedditConfig struct {
	ClientID          string  `mapstructure:"client_id"`
	ClientSecret      string  `mapstructure:"client_secret"`
	UserAgent         string  `mapstructure:"user_agent"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// AIConfig contains language model and embedding settings.
type AIConfig struct {
	Provider       string        `mapstructure:"provider"`
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Model          string        `mapstructure:"model"`
	EmbeddingModel string        `mapstructure:"embedding_model"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// StoreConfig selects and locates the knowledge store.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	DataDir string `mapstructure:"data_dir"`
}

// AgentConfig bounds the agent loop.
type AgentConfig struct {
	MaxIterations int `mapstructure:"max_iterations"`
	HistoryLimit  int `mapstructure:"history_limit"`
}

// ChunkerConfig sizes the sliding window used during ingestion.
type ChunkerConfig struct {
	Size    int `mapstructure:"size"`
	Overlap int `mapstructure:"overlap"`
}

// ServerConfig configures the HTTP chat front-end.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// DefaultDir returns ~/.forager, or .forager if the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".forager"
	}
	return filepath.Join(home, ".forager")
}

// Load reads configuration from dir/config.toml and the environment.
// A missing config file is not an error. If dir is empty, DefaultDir is used.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = DefaultDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)
	setDefaults(v, dir)

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("binding environment: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Dir = dir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key with its built-in value.
func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("reddit.client_id", "")
	v.SetDefault("reddit.client_secret", "")
	v.SetDefault("reddit.user_agent", "go:forager:v0.3")
	v.SetDefault("reddit.requests_per_second", 1.0)

	v.SetDefault("ai.provider", ProviderOpenAI)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.embedding_model", "text-embedding-3-small")
	v.SetDefault("ai.timeout", 120*time.Second)

	v.SetDefault("store.backend", StoreSQLite)
	v.SetDefault("store.data_dir", filepath.Join(dir, "data"))

	v.SetDefault("agent.max_iterations", 6)
	v.SetDefault("agent.history_limit", 50)

	v.SetDefault("chunker.size", 2000)
	v.SetDefault("chunker.overlap", 200)

	v.SetDefault("server.addr", ":8080")
}

// Keys returns every recognised configuration key in dotted form, sorted.
func Keys() []string {
	keys := []string{
		"agent.history_limit",
		"agent.max_iterations",
		"ai.api_key",
		"ai.base_url",
		"ai.embedding_model",
		"ai.model",
		"ai.provider",
		"ai.timeout",
		"chunker.overlap",
		"chunker.size",
		"reddit.client_id",
		"reddit.client_secret",
		"reddit.requests_per_second",
		"reddit.user_agent",
		"server.addr",
		"store.backend",
		"store.data_dir",
	}
	return keys
}

// IsKey reports whether key is a recognised configuration key.
func IsKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// envPrefix prefixes the derived variable name of every key.
const envPrefix = "FORAGER"

// envAliases are short or conventional names checked before the derived
// FORAGER_<SECTION>_<KEY> name.
var envAliases = map[string][]string{
	"reddit.client_id":     {"REDDIT_CLIENT_ID"},
	"reddit.client_secret": {"REDDIT_CLIENT_SECRET"},
	"ai.api_key":           {"OPENAI_API_KEY"},
	"ai.base_url":          {"OPENAI_BASE_URL"},
	"ai.model":             {"FORAGER_LLM_MODEL"},
	"ai.embedding_model":   {"FORAGER_EMBEDDING_MODEL"},
	"store.backend":        {"FORAGER_STORE"},
	"store.data_dir":       {"FORAGER_DATA_DIR", "CHROMA_DATA_DIR"},
	"agent.max_iterations": {"FORAGER_MAX_ITERATIONS"},
	"chunker.size":         {"FORAGER_CHUNK_SIZE"},
	"chunker.overlap":      {"FORAGER_CHUNK_OVERLAP"},
	"server.addr":          {"FORAGER_SERVE_ADDR"},
}

// EnvNames returns the variables read for key, in lookup order.
func EnvNames(key string) []string {
	names := append([]string(nil), envAliases[key]...)
	return append(names, envPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
}

// bindEnv binds every key explicitly. Automatic env lookup is not used:
// it would let FORAGER_STORE shadow the whole [store] section.
func bindEnv(v *viper.Viper) error {
	for _, key := range Keys() {
		if err := v.BindEnv(append([]string{key}, EnvNames(key)...)...); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks values that would otherwise fail deep inside a component.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case StoreSQLite, StoreChromem, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("store.backend %q: %w", c.Store.Backend, domain.ErrConfig))
	}

	switch c.AI.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		errs = append(errs, fmt.Errorf("ai.provider %q: %w", c.AI.Provider, domain.ErrConfig))
	}

	if c.Chunker.Size <= 0 || c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.Size {
		errs = append(errs, fmt.Errorf("chunker overlap %d must be smaller than size %d: %w",
			c.Chunker.Overlap, c.Chunker.Size, domain.ErrConfig))
	}

	if c.Agent.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("agent.max_iterations must be positive: %w", domain.ErrConfig))
	}

	return errors.Join(errs...)
}

// RequireReddit reports missing Reddit credentials.
func (c *Config) RequireReddit() error {
	if c.Reddit.ClientID == "" || c.Reddit.ClientSecret == "" {
		return fmt.Errorf("REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET must be set: %w", domain.ErrConfig)
	}
	return nil
}

// RequireAI reports a missing API key. Ollama does not need one.
func (c *Config) RequireAI() error {
	if c.AI.Provider == ProviderOpenAI && c.AI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY must be set: %w", domain.ErrConfig)
	}
	return nil
}

// PromptDir returns the directory of user-editable prompts.
func (c *Config) PromptDir() string {
	return filepath.Join(c.Dir, "prompts")
}
