// Command hranad runs the local Hrana v2 database server over a SQLite file.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kimaki/hranad/internal/config"
	"github.com/kimaki/hranad/internal/evict"
	"github.com/kimaki/hranad/internal/server"
	"github.com/kimaki/hranad/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	flagDBPath string
	flagPort   int
)

var rootCmd = &cobra.Command{
	Use:           "hranad",
	Short:         "Local Hrana v2 database server backed by a SQLite file",
	Long:          "hranad serves the Hrana v2 pipeline protocol over HTTP on a fixed local port,\nbacked by one SQLite file, evicting any prior instance on startup.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the hranad version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hranad %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "path to the SQLite database file (overrides HRANAD_DB_PATH)")
	rootCmd.PersistentFlags().IntVar(&flagPort, "port", 0, "port to bind (overrides HRANAD_PORT)")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flagDBPath != "" {
		cfg.DBPath = flagDBPath
	}
	if flagPort != 0 {
		cfg.Port = flagPort
	}
	if cfg.DBPath == "" {
		return fmt.Errorf("no database path: set HRANAD_DB_PATH or pass --db")
	}

	level := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("hranad starting", "version", version, "port", cfg.Port, "db", cfg.DBPath)

	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	evictor := evict.New(logger, cfg.EvictGrace, cfg.ProbeTimeout)
	srv := server.New(server.Config{
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		SessionTTL:          cfg.SessionTTL,
	}, evictor, logger, version)

	url, err := srv.Start(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	logger.Info("hranad ready", "url", url)

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := srv.Stop(stopCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("hranad stopped")
	return nil
}
