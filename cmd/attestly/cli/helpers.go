package cli

import (
	"os"

	"github.com/spf13/viper"

	"github.com/attestly/attestly/internal/store"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from the --data-dir flag,
// ATTESTLY_DATA_DIR env var, or ~/.attestly as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("ATTESTLY_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.attestly"
}

// openStore opens the configured store backend: postgres when
// store.driver/store.dsn are set, SQLite in the data directory otherwise.
func openStore() (*store.Store, error) {
	cfg := store.Config{
		Driver:  viper.GetString("store.driver"),
		DSN:     viper.GetString("store.dsn"),
		DataDir: resolveDataDir(),
	}
	if cfg.Driver == "postgres" {
		cfg.DataDir = ""
	}
	return store.New(cfg)
}
