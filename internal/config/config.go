// Package config defines the attestly.yaml file format. Values may also be
// supplied through flags or ATTESTLY_* environment variables; viper merges
// the three sources in the CLI layer.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration file.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host              string   `yaml:"host"`
	Port              int      `yaml:"port"`
	CORSOrigins       []string `yaml:"cors_origins"`
	PublicRatePerMin  int      `yaml:"public_rate_per_min"`
	ShutdownTimeoutMS int      `yaml:"shutdown_timeout_ms"`
}

// AuthConfig controls the authentication layer. BootstrapSecret has no
// default: the server refuses to start without one.
type AuthConfig struct {
	BootstrapSecret string `yaml:"bootstrap_secret"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver  string `yaml:"driver"`   // "sqlite" (default) or "postgres"
	DSN     string `yaml:"dsn"`      // postgres only
	DataDir string `yaml:"data_dir"` // sqlite only; default ~/.attestly
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			CORSOrigins:       []string{"*"},
			PublicRatePerMin:  60,
			ShutdownTimeoutMS: 30000,
		},
		Store: StoreConfig{
			Driver: "sqlite",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// exampleHeader documents the file for operators; WriteExample prepends it
// to the marshalled defaults.
const exampleHeader = `# attestly.yaml - Attestly server configuration.
#
# Every value may also be set through the environment with the ATTESTLY_
# prefix, e.g. ATTESTLY_AUTH_BOOTSTRAP_SECRET. The bootstrap secret is
# mandatory and has no default.

`

// WriteExample writes a commented example configuration to path. It refuses
// to overwrite an existing file.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal example config: %w", err)
	}
	return os.WriteFile(path, append([]byte(exampleHeader), data...), 0644)
}
