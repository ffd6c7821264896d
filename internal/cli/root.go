package cli

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/epicmint/internal/control"
	"github.com/vietddude/epicmint/internal/core/config"
)

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "epicmint",
	Short: "EpicNFT wallet session and mint service",
	Long: `epicmint tracks a wallet session against the expected network and mints
EpicNFT tokens through the connected account.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Assigned here rather than in the literal to break the
	// rootCmd -> runServe -> setup -> rootCmd initialization cycle.
	rootCmd.Run = runServe
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

// setup loads .env and the configuration, installs the logger and builds
// the app. Logs go to logOut when set, otherwise to the console. It exits on
// failure.
func setup(logOut io.Writer) (*config.AppConfig, *control.App) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) && !rootCmd.PersistentFlags().Changed("config") {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logging
	slogLevel := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}
	switch {
	case logOut != nil:
		slog.SetDefault(slog.New(tint.NewHandler(logOut, &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})))
	case cfg.Logging.Format == "json":
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})))
	default:
		stylelog.InitDefault(&tint.Options{
			Level:      slogLevel,
			TimeFormat: time.RFC3339,
		})
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	app, err := control.NewApp(cfg, slog.Default())
	if err != nil {
		slog.Error("Failed to initialize app", "error", err)
		os.Exit(1)
	}
	return cfg, app
}

// stopper is the part of control.App the commands shut down.
type stopper interface {
	Stop(ctx context.Context) error
}

func stop(app stopper, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		return err
	}
	return nil
}

// withApp runs fn and stops app afterwards, whatever fn returns. The first
// error wins.
func withApp(app stopper, timeout time.Duration, fn func() error) (err error) {
	defer func() {
		if stopErr := stop(app, timeout); err == nil {
			err = stopErr
		}
	}()
	return fn()
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, app := setup(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := app.Start(ctx); err != nil {
		slog.Error("Failed to start", "error", err)
		_ = stop(app, 15*time.Second)
		os.Exit(1)
	}

	go func() {
		if err := app.Serve(); err != nil {
			slog.Error("API server failed", "error", err)
			sigChan <- syscall.SIGTERM
		}
	}()

	slog.Info("epicmint started", "config", cfgPath, "port", cfg.Server.Port)

	sig := <-sigChan
	slog.Info("Received signal, shutting down...", "signal", sig)

	if err := stop(app, 15*time.Second); err != nil {
		os.Exit(1)
	}
	slog.Info("epicmint stopped gracefully")
}
