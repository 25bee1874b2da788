package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for cyclora.
type Config struct {
	BaseDir string        `toml:"base_dir"`
	LogDir  string        `toml:"log_dir"`
	Local   LocalConfig   `toml:"local"`
	Remote  RemoteConfig  `toml:"remote"`
	Auth    AuthConfig    `toml:"auth"`
	Summary SummaryConfig `toml:"summary"`
}

// LocalConfig configures the on-device ride store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type LocalConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// RemoteConfig configures the archive tier.
type RemoteConfig struct {
	URL            string `toml:"url"`             // postgres connection string
	RequestTimeout int    `toml:"request_timeout"` // seconds per remote call; defaults to 10
	PageSize       int    `toml:"page_size"`       // archive page size; defaults to 10
}

// Timeout returns the per-call remote timeout with its default applied.
func (c RemoteConfig) Timeout() int {
	if c.RequestTimeout <= 0 {
		return 10
	}
	return c.RequestTimeout
}

// AuthConfig holds the bearer token location and the verification secret.
type AuthConfig struct {
	TokenPath string `toml:"token_path"`
	JWTSecret string `toml:"jwt_secret"`
}

// SummaryConfig configures the ride summary generator.
type SummaryConfig struct {
	Enabled           bool   `toml:"enabled"`
	Model             string `toml:"model,omitempty"`   // defaults inside the generator
	APIKeyEnv         string `toml:"api_key_env"`       // env var holding the API key
	RequestsPerMinute int    `toml:"requests_per_minute"` // defaults to 6
}

// NewConfig creates a Config with the provided base directory and defaults.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Local: LocalConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
		Auth: AuthConfig{
			TokenPath: filepath.Join(baseDir, "token"),
		},
		Summary: SummaryConfig{
			APIKeyEnv:         "GEMINI_API_KEY",
			RequestsPerMinute: 6,
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
