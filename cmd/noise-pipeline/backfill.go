package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quietcity/noise-data-pipeline/internal/noise"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill <start-date> <end-date>",
	Short: "Ingest an inclusive local date range (YYYY-MM-DD)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Argument problems must fail before any network call.
		start, err := time.Parse("2006-01-02", args[0])
		if err != nil {
			return fmt.Errorf("invalid start date %q: use YYYY-MM-DD", args[0])
		}
		end, err := time.Parse("2006-01-02", args[1])
		if err != nil {
			return fmt.Errorf("invalid end date %q: use YYYY-MM-DD", args[1])
		}
		if end.Before(start) {
			return fmt.Errorf("invalid range: %w", noise.ErrInvalidRange)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.pipe.RunBackfill(ctx, start, end)
		if err != nil {
			return err
		}
		return report(summary)
	},
}

var backfillAllCmd = &cobra.Command{
	Use:   "backfill-all",
	Short: "Walk backwards from yesterday until the data runs out",
	Long: `Walk backwards from yesterday one local day at a time, ingesting each
day for every station. The walk stops after EMPTY_DAYS_TO_STOP consecutive
days that change zero rows, or when it reaches the BACKFILL_MAX_YEARS
horizon.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.pipe.RunBackfillAll(ctx)
		if err != nil {
			return err
		}
		return report(summary)
	},
}
