package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/attestly/attestly/internal/config"
)

var cfgFile string

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attestly",
		Short: "Issue and validate event-participation certificates",
		Long: `Attestly: a small REST API for issuing, validating, and revoking
event-participation certificates, gated by role-scoped API keys (admin,
issuer, reader) with a bootstrap credential for self-service onboarding
of read-only keys.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./attestly.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for the SQLite store (default: ~/.attestly)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newKeyCmd())
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("attestly")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.attestly")
	}

	// Nested keys map to env vars with dots replaced, so
	// auth.bootstrap_secret reads ATTESTLY_AUTH_BOOTSTRAP_SECRET.
	viper.SetEnvPrefix("ATTESTLY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for key, value := range configDefaults() {
		viper.SetDefault(key, value)
	}

	viper.ReadInConfig() // config file is optional
}

// configDefaults flattens the typed defaults into viper keys, so flag/env/
// file lookups fall back to the same values the config package documents.
func configDefaults() map[string]interface{} {
	d := config.Default()
	return map[string]interface{}{
		"server.host":                d.Server.Host,
		"server.port":                d.Server.Port,
		"server.cors_origins":        d.Server.CORSOrigins,
		"server.public_rate_per_min": d.Server.PublicRatePerMin,
		"server.shutdown_timeout_ms": d.Server.ShutdownTimeoutMS,
		"store.driver":               d.Store.Driver,
		"logging.level":              d.Logging.Level,
	}
}
