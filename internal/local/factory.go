package local

import (
	"fmt"
	"path/filepath"

	"github.com/danmcgrath10/cyclora/internal/config"
	"github.com/danmcgrath10/cyclora/internal/ride"
)

// NewStoreFromConfig creates a local store based on the config type.
func NewStoreFromConfig(cfg config.LocalConfig) (ride.LocalStore, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite store")
		}
		return NewSQLiteStore(filepath.Join(cfg.DataDir, "rides.db"), nil, nil)
	case "memory":
		return NewSQLiteStore(":memory:", nil, nil)
	default:
		return nil, fmt.Errorf("unknown local store type: %s", cfg.Type)
	}
}
