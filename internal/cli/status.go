package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/epicmint/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the wallet session and show the current state",
	RunE:  runStatus,

	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	_, app := setup(nil)
	return withApp(app, 5*time.Second, func() error {
		if err := app.Start(context.Background()); err != nil {
			slog.Error("Failed to check session", "error", err)
			return err
		}
		printSnapshot(app.Snapshot())
		return nil
	})
}

func printSnapshot(s domain.Snapshot) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "FIELD\tVALUE")
	_, _ = fmt.Fprintf(w, "state\t%s\n", s.View.State)
	if s.View.Message != "" {
		_, _ = fmt.Fprintf(w, "message\t%s\n", s.View.Message)
	}
	_, _ = fmt.Fprintf(w, "account\t%s\n", orDash(s.Session.Account))
	_, _ = fmt.Fprintf(w, "network\t%s\n", orDash(string(s.Session.Network)))
	_, _ = fmt.Fprintf(w, "expected\t%s\n", s.ExpectedNetwork)
	_, _ = fmt.Fprintf(w, "mint\t%s\n", s.Mint.Status)
	if s.Mint.MintedTokenID != nil {
		_, _ = fmt.Fprintf(w, "token\t%d\n", *s.Mint.MintedTokenID)
	}
	if s.TokenURL != "" {
		_, _ = fmt.Fprintf(w, "token url\t%s\n", s.TokenURL)
	}
	if s.TxURL != "" {
		_, _ = fmt.Fprintf(w, "tx url\t%s\n", s.TxURL)
	}
	if s.CollectionURL != "" {
		_, _ = fmt.Fprintf(w, "collection\t%s\n", s.CollectionURL)
	}
	_ = w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
