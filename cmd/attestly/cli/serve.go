package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/attestly/attestly/internal/auth"
	"github.com/attestly/attestly/internal/keys"
	"github.com/attestly/attestly/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Attestly API server",
		Long:  "Start the HTTP server exposing the key-management and certificate APIs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int, dev bool) error {
	logLevel := slog.LevelInfo
	if dev {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	// The bootstrap secret is mandatory. There is deliberately no
	// compiled-in fallback.
	bootstrapSecret := viper.GetString("auth.bootstrap_secret")
	if bootstrapSecret == "" {
		return fmt.Errorf("bootstrap secret is not configured: set auth.bootstrap_secret in attestly.yaml or the ATTESTLY_AUTH_BOOTSTRAP_SECRET environment variable")
	}

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()
	logger.Info("store initialized", "driver", storeDriverName())

	authn := auth.New(st, bootstrapSecret)
	manager := keys.NewManager(st)

	cfg := server.DefaultConfig()
	cfg.Host = host
	cfg.Port = port
	if origins := viper.GetStringSlice("server.cors_origins"); len(origins) > 0 {
		cfg.CORSOrigins = origins
	}
	if rate := viper.GetInt("server.public_rate_per_min"); rate > 0 {
		cfg.PublicRatePerMin = rate
	}
	if ms := viper.GetInt("server.shutdown_timeout_ms"); ms > 0 {
		cfg.ShutdownTimeout = time.Duration(ms) * time.Millisecond
	}

	srv := server.New(cfg, st, authn, manager, logger)

	fmt.Printf("→ Attestly\n")
	fmt.Printf("→ Listening on http://%s:%d\n", host, port)
	fmt.Printf("→ OpenAPI:  http://%s:%d/openapi.json\n", host, port)
	fmt.Printf("→ Health:   http://%s:%d/healthz\n", host, port)
	fmt.Println()

	return srv.ListenAndServe()
}

func storeDriverName() string {
	if viper.GetString("store.driver") == "postgres" {
		return "postgres"
	}
	return "sqlite"
}
