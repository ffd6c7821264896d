package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/epicmint/internal/tui"
)

var tuiLogPath string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive terminal view of the wallet session and minting",
	RunE:  runTUI,

	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	tuiCmd.Flags().StringVar(&tuiLogPath, "log-file", "epicmint.log", "file receiving logs while the TUI runs")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	logFile, err := os.OpenFile(tuiLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		slog.Error("Failed to open log file", "error", err)
		return err
	}
	defer logFile.Close()

	_, app := setup(logFile)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return withApp(app, 5*time.Second, func() error {
		// Initialize runs in the background so the view shows "connecting".
		go func() {
			if err := app.Start(ctx); err != nil {
				slog.Error("Failed to check session", "error", err)
			}
		}()

		if err := tui.Run(ctx, app); err != nil {
			slog.Error("TUI failed", "error", err)
			return err
		}
		return nil
	})
}
