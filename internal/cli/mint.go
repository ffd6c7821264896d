package cli

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/epicmint/internal/core/domain"
)

var errMintFailed = errors.New("mint failed")

var mintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Connect the wallet if needed and mint one token",
	RunE:  runMint,

	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(mintCmd)
}

func runMint(cmd *cobra.Command, args []string) error {
	_, app := setup(nil)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return withApp(app, 5*time.Second, func() error {
		if err := app.Start(ctx); err != nil {
			slog.Error("Failed to check session", "error", err)
			return err
		}
		if app.Snapshot().View.CanConnect {
			if err := app.Connect(ctx); err != nil {
				slog.Error("Failed to connect", "error", err)
				return err
			}
		}

		if err := app.Mint(ctx); err != nil {
			printSnapshot(app.Snapshot())
			slog.Error("Cannot mint", "error", err)
			return err
		}

		snap := app.Snapshot()
		printSnapshot(snap)
		if snap.View.State == domain.ViewError {
			return errMintFailed
		}
		return nil
	})
}
