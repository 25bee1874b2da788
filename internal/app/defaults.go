package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults holds the resolved application paths for one invocation.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// GetDefaults resolves application paths, checking environment variables first.
// Environment variables:
//   - CYCLORA_CONFIG_PATH: config file location (default: ~/.config/cyclora.toml)
//   - CYCLORA_HOME: base directory for cyclora data (default: ~/.local/share/cyclora)
func GetDefaults() (Defaults, error) {
	configPath := os.Getenv("CYCLORA_CONFIG_PATH")
	baseDir := os.Getenv("CYCLORA_HOME")

	if configPath == "" || baseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return Defaults{}, fmt.Errorf("cannot determine home directory: %w", err)
		}
		if configPath == "" {
			configPath = filepath.Join(homeDir, ".config", "cyclora.toml")
		}
		if baseDir == "" {
			baseDir = filepath.Join(homeDir, ".local", "share", "cyclora")
		}
	}

	return Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}
