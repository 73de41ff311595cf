// Package config loads cwa's configuration from a TOML file layered under
// environment variables: env vars always win, the config file is entirely
// optional, and every field has a usable default.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds all configuration for the cwa coordination core.
type Config struct {
	Project   ProjectConfig   `toml:"project"`
	Primary   PrimaryConfig   `toml:"primary"`
	Graph     GraphConfig     `toml:"graph"`
	Vector    VectorConfig    `toml:"vector"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Server    ServerConfig    `toml:"server"`
	Transport TransportConfig `toml:"transport"`
	Web       WebConfig       `toml:"web"`
	Log       LogConfig       `toml:"log"`
	Memory    MemoryConfig    `toml:"memory"`
}

// ProjectConfig identifies which namespace this process serves.
type ProjectConfig struct {
	ID string `toml:"id"`
}

// PrimaryConfig configures the primary KV + pub/sub store.
type PrimaryConfig struct {
	URL string `toml:"url"`
}

// GraphConfig configures the graph-store projection.
type GraphConfig struct {
	URL      string `toml:"url"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// VectorConfig configures the vector indexer's local substrate.
type VectorConfig struct {
	Path       string `toml:"path"`
	Dimensions int    `toml:"dimensions"`
}

// EmbeddingConfig configures the embedding HTTP client.
type EmbeddingConfig struct {
	URL       string `toml:"url"`
	ModelID   string `toml:"model_id"`
	BatchSize int    `toml:"batch_size"`
}

// ServerConfig holds protocol server metadata.
type ServerConfig struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// TransportConfig holds JSON-RPC transport settings.
type TransportConfig struct {
	// Mode selects "stdio" (default) or "http".
	Mode        string `toml:"mode"`
	Port        string `toml:"port"`
	Host        string `toml:"host"`
	CORSOrigins string `toml:"cors_origins"`
}

// WebConfig holds the dashboard HTTP+WS facade settings.
type WebConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `toml:"level"`
}

// MemoryConfig holds memory/observation lifecycle tuning.
type MemoryConfig struct {
	DecayFactor      float64 `toml:"decay_factor"`
	CompactThreshold float64 `toml:"compact_threshold"`
	HybridAlpha      float64 `toml:"hybrid_alpha"`
	DecayIntervalMin int     `toml:"decay_interval_minutes"`
}

// Load reads configuration from a TOML file (if any) and applies
// environment-variable overrides. Precedence: env vars > config file >
// defaults.
//
// Config file search order (first found wins):
//  1. configPath parameter (from --config flag)
//  2. CWA_CONFIG environment variable
//  3. ./cwa.toml (current directory)
//  4. ~/.config/cwa/cwa.toml (XDG-style)
func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Project: ProjectConfig{ID: "default"},
		Primary: PrimaryConfig{URL: "redis://localhost:6379/0"},
		Graph: GraphConfig{
			URL:      "bolt://localhost:7687",
			Username: "neo4j",
			Password: "neo4j",
		},
		Vector: VectorConfig{
			Path:       "./cwa-vectors.db",
			Dimensions: 768,
		},
		Embedding: EmbeddingConfig{
			URL:       "http://localhost:11434/api/embeddings",
			ModelID:   "cl100k_base",
			BatchSize: 32,
		},
		Server: ServerConfig{
			Name:    "cwa",
			Version: "0.1.0",
		},
		Transport: TransportConfig{
			Mode:        "stdio",
			Port:        "21452",
			Host:        "0.0.0.0",
			CORSOrigins: "*",
		},
		Web: WebConfig{
			Enabled: true,
			Addr:    ":8787",
		},
		Log: LogConfig{Level: "info"},
		Memory: MemoryConfig{
			DecayFactor:      0.98,
			CompactThreshold: 0.3,
			HybridAlpha:      0.7,
			DecayIntervalMin: 60,
		},
	}

	if err := cfg.loadFile(configPath); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(configPath string) error {
	path := resolveConfigPath(configPath)
	if path == "" {
		return nil
	}
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv("CWA_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("cwa.toml"); err == nil {
		return "cwa.toml"
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := home + "/.config/cwa/cwa.toml"
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) applyEnv() {
	envOverride("CWA_PROJECT_ID", &c.Project.ID)
	envOverride("PRIMARY_STORE_URL", &c.Primary.URL)
	envOverride("GRAPH_STORE_URL", &c.Graph.URL)
	envOverride("GRAPH_STORE_USERNAME", &c.Graph.Username)
	envOverride("GRAPH_STORE_PASSWORD", &c.Graph.Password)
	envOverride("VECTOR_STORE_URL", &c.Vector.Path)
	envOverride("EMBEDDING_URL", &c.Embedding.URL)
	envOverride("EMBEDDING_MODEL_ID", &c.Embedding.ModelID)
	envOverride("WEB_URL", &c.Web.Addr)
	envOverride("CWA_TRANSPORT", &c.Transport.Mode)
	envOverride("CWA_PORT", &c.Transport.Port)
	envOverride("CWA_HOST", &c.Transport.Host)
	envOverride("CWA_LOG_LEVEL", &c.Log.Level)
}

// Validate checks that required fields are present and internally
// consistent.
func (c *Config) Validate() error {
	switch c.Transport.Mode {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport mode: %q (must be \"stdio\" or \"http\")", c.Transport.Mode)
	}
	if c.Memory.DecayFactor <= 0 || c.Memory.DecayFactor > 1 {
		return fmt.Errorf("memory.decay_factor must be in (0,1], got %v", c.Memory.DecayFactor)
	}
	if c.Memory.HybridAlpha < 0 || c.Memory.HybridAlpha > 1 {
		return fmt.Errorf("memory.hybrid_alpha must be in [0,1], got %v", c.Memory.HybridAlpha)
	}
	return nil
}

func envOverride(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
