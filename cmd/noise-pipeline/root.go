package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/quietcity/noise-data-pipeline/internal/catalog"
	"github.com/quietcity/noise-data-pipeline/internal/config"
	"github.com/quietcity/noise-data-pipeline/internal/noise"
	"github.com/quietcity/noise-data-pipeline/internal/noise/source"
	"github.com/quietcity/noise-data-pipeline/internal/pipeline"
	"github.com/quietcity/noise-data-pipeline/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "noise-pipeline",
	Short: "Ingest per-minute noise-meter readings into the relational store",
	Long: `noise-pipeline fetches per-minute noise readings from the meter-sound
API, one local calendar day per station per request, normalizes timestamps
to UTC, and upserts them under (location_id, reading_datetime) so every run
is safe to repeat.

MODES:

  noise-pipeline daily                      ingest yesterday (sensor-local)
  noise-pipeline backfill 2024-03-01 2024-03-03
                                            ingest an inclusive date range
  noise-pipeline backfill-all               walk back from yesterday until
                                            the data runs out
  noise-pipeline serve                      read-only query API + scheduled
                                            daily ingestion

Configuration comes from the environment (see .env support):
DATABASE_URL and API_BASE_URL are required; everything else has defaults.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(dailyCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(backfillAllCmd)
	rootCmd.AddCommand(serveCmd)
}

// app bundles the wired components a command needs.
type app struct {
	cfg      *config.AppConfig
	store    *store.Postgres
	stations []noise.Station
	pipe     *pipeline.Pipeline
}

// newApp loads configuration and wires catalog, fetcher, store, and
// pipeline. Configuration problems abort here, before any unit starts.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	stations := catalog.Default()
	if cfg.Stations != "" {
		stations, err = catalog.Parse(cfg.Stations)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	st, err := store.NewPostgres(ctx, cfg.DatabaseURL, cfg.MeterTable, cfg.UpsertChunkSize)
	if err != nil {
		return nil, err
	}

	fetcher := source.NewClient(
		&http.Client{Timeout: cfg.FetchTimeout},
		cfg.APIBaseURL,
		source.BackoffConfig{
			MaxRetries:      cfg.FetchMaxRetries,
			InitialInterval: cfg.FetchBackoffInitial,
			MaxInterval:     cfg.FetchBackoffMax,
		},
	)

	pipe := pipeline.New(fetcher, st, stations, cfg.SensorZone(), pipeline.Options{
		Workers:          cfg.Workers,
		FetchDelay:       cfg.FetchDelay,
		FetchTimeout:     cfg.FetchTimeout,
		WriteTimeout:     cfg.WriteTimeout,
		EmptyDaysToStop:  cfg.EmptyDaysToStop,
		BackfillMaxYears: cfg.BackfillMaxYears,
	})

	return &app{cfg: cfg, store: st, stations: stations, pipe: pipe}, nil
}

func (a *app) Close() {
	a.store.Close()
}

// report logs the summary and failed units, and returns an error when any
// unit failed so the process exits nonzero.
func report(summary *pipeline.Summary) error {
	log.Printf("pipeline: %s", summary)
	for _, f := range summary.Failures {
		log.Printf("pipeline: failed unit station=%s day=%s: %s", f.StationID, f.Day, f.Reason)
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d of %d units failed; rerun the failed window to recover", summary.Failed, summary.Attempted)
	}
	return nil
}
