package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshdurbin/hashlink/internal/config"
	"github.com/joshdurbin/hashlink/internal/metrics"
	"github.com/joshdurbin/hashlink/internal/repository"
	"github.com/joshdurbin/hashlink/internal/repository/postgres"
	"github.com/joshdurbin/hashlink/internal/repository/redis"
	"github.com/joshdurbin/hashlink/internal/repository/sqlite"
	"github.com/joshdurbin/hashlink/internal/service"
	"github.com/joshdurbin/hashlink/internal/shortener"
	"github.com/joshdurbin/hashlink/internal/transport/client"
	httpTransport "github.com/joshdurbin/hashlink/internal/transport/http"
)

var rootCmd = &cobra.Command{
	Use:          "hashlink",
	Short:        "A URL shortening service written in Go",
	Long:         "A URL shortening service with visit tracking, token-authorized removal and SQLite, PostgreSQL or Redis storage",
	SilenceUsage: true,
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the URL shortening server",
	RunE:  runServer,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations for the configured store",
	RunE:  runMigrate,
}

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Client commands for interacting with the server",
}

var createCmd = &cobra.Command{
	Use:   "create [URL]",
	Short: "Shorten a URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCommands(cmd, func(ctx context.Context, c *client.Commands) error {
			return c.Create(ctx, args[0])
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get [HASH]",
	Short: "Show the record of a short URL (counts as a visit)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCommands(cmd, func(ctx context.Context, c *client.Commands) error {
			return c.Get(ctx, args[0])
		})
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [HASH]",
	Short: "Print the original URL of a short URL (counts as a visit)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCommands(cmd, func(ctx context.Context, c *client.Commands) error {
			return c.Resolve(ctx, args[0])
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [HASH] [REMOVE_TOKEN]",
	Short: "Remove a short URL",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCommands(cmd, func(ctx context.Context, c *client.Commands) error {
			return c.Delete(ctx, args[0], args[1])
		})
	},
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "Optional dotenv file with SHORTENER_* variables")

	// Server and migrate flags override the environment only when set
	for _, cmd := range []*cobra.Command{serverCmd, migrateCmd} {
		cmd.Flags().String("driver", "", "Store driver: sqlite, postgres or redis")
		cmd.Flags().String("db-path", "", "SQLite database file path")
		cmd.Flags().String("postgres-dsn", "", "PostgreSQL connection string")
		cmd.Flags().String("redis-url", "", "Redis connection URL")
	}

	serverCmd.Flags().StringP("port", "p", "", "Server port")
	serverCmd.Flags().String("public-host", "", "Host (and port) used in generated URLs")
	serverCmd.Flags().String("public-protocol", "", "Protocol used in generated URLs: http or https")
	serverCmd.Flags().Int("suffix-length", 0, "Random characters after the timestamp in hashes and tokens")
	serverCmd.Flags().String("log-level", "", "Log level: debug, info, warn or error")
	serverCmd.Flags().String("log-format", "", "Log format: text or json")
	serverCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging (request and error response bodies)")
	serverCmd.Flags().Bool("metrics", true, "Expose Prometheus metrics on /metrics")

	clientCmd.PersistentFlags().StringP("server-url", "u", "http://localhost:8080", "Server URL")
	clientCmd.PersistentFlags().Duration("timeout", 10*time.Second, "Request timeout")

	clientCmd.AddCommand(createCmd, getCmd, resolveCmd, deleteCmd)
	rootCmd.AddCommand(serverCmd, migrateCmd, clientCmd)
}

// loadConfig reads the environment (and the optional dotenv file) and then
// applies any flags the user set explicitly
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")

	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	setString := func(name string, dst *string) {
		if flags.Lookup(name) != nil && flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}

	setString("driver", &cfg.Store.Driver)
	setString("db-path", &cfg.Store.SQLitePath)
	setString("postgres-dsn", &cfg.Store.PostgresDSN)
	setString("redis-url", &cfg.Store.RedisURL)
	setString("port", &cfg.Server.Port)
	setString("public-host", &cfg.Server.PublicHost)
	setString("public-protocol", &cfg.Server.PublicProtocol)
	setString("log-level", &cfg.Logging.Level)
	setString("log-format", &cfg.Logging.Format)

	if flags.Lookup("suffix-length") != nil && flags.Changed("suffix-length") {
		cfg.Generator.SuffixLength, _ = flags.GetInt("suffix-length")
	}
	if flags.Lookup("verbose") != nil && flags.Changed("verbose") {
		cfg.Logging.Verbose, _ = flags.GetBool("verbose")
	}
	if flags.Lookup("metrics") != nil && flags.Changed("metrics") {
		cfg.Metrics.Enabled, _ = flags.GetBool("metrics")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from the logging configuration
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// openRepository connects to the configured store, applying migrations where
// the store has a schema
func openRepository(ctx context.Context, cfg config.StoreConfig) (repository.LinkRepository, error) {
	switch cfg.Driver {
	case repository.DriverSQLite:
		return sqlite.New(cfg.SQLitePath)
	case repository.DriverPostgres:
		opts := postgres.DefaultOptions()
		opts.MaxConns = cfg.PostgresMaxConns
		return postgres.New(ctx, cfg.PostgresDSN, opts)
	case repository.DriverRedis:
		return redis.New(ctx, cfg.RedisURL, cfg.RedisKeyPrefix)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting hashlink server",
		"port", cfg.Server.Port,
		"public_url", cfg.Server.PublicURL(),
		"store", cfg.Store.Driver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	repo, err := openRepository(connectCtx, cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to initialize %s store: %w", cfg.Store.Driver, err)
	}

	generator, err := shortener.NewGenerator(cfg.Generator)
	if err != nil {
		_ = repo.Close()
		return fmt.Errorf("failed to create shortener generator: %w", err)
	}
	logger.Info("using shortener generator", "type", generator.Type())

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	links := service.NewLinkService(repo, generator, cfg.Server.PublicURL(), m)
	defer func() {
		if err := links.Close(); err != nil {
			logger.Error("error closing link service", "error", err)
		}
	}()

	server := httpTransport.NewServer(links, cfg, logger, m)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("received shutdown signal, shutting down gracefully")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging)

	switch cfg.Store.Driver {
	case repository.DriverSQLite:
		repo, err := sqlite.New(cfg.Store.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to migrate sqlite store: %w", err)
		}
		defer repo.Close()

		version, err := repo.SchemaVersion()
		if err != nil {
			return err
		}
		logger.Info("sqlite store migrated", "path", cfg.Store.SQLitePath, "version", version)
	case repository.DriverPostgres:
		if err := postgres.Migrate(cfg.Store.PostgresDSN); err != nil {
			return fmt.Errorf("failed to migrate postgres store: %w", err)
		}
		logger.Info("postgres store migrated")
	default:
		logger.Info("store has no schema to migrate", "store", cfg.Store.Driver)
	}
	return nil
}

func withCommands(cmd *cobra.Command, fn func(context.Context, *client.Commands) error) error {
	serverURL, _ := cmd.Flags().GetString("server-url")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	commands := client.NewCommands(client.NewClient(serverURL))

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	return fn(ctx, commands)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
