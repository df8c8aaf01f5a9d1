package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/quietcity/noise-data-pipeline/internal/pipeline"
)

// Scheduler runs the daily ingestion job while serve mode is up. The job
// fires at a fixed local sensor time, after the previous local day has
// fully elapsed.
type Scheduler struct {
	scheduler *gocron.Scheduler
	pipe      *pipeline.Pipeline
	runAt     string
}

// New creates a Scheduler firing daily at runAt (HH:MM) in the sensor zone.
func New(pipe *pipeline.Pipeline, zone *time.Location, runAt string) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(zone),
		pipe:      pipe,
		runAt:     runAt,
	}
}

// Start schedules the daily job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(1).Day().At(s.runAt).Do(func() {
		log.Println("scheduler: running daily ingestion")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		summary, err := s.pipe.RunDaily(ctx)
		if err != nil {
			log.Printf("scheduler: daily run failed: %v", err)
			return
		}
		log.Printf("scheduler: %s", summary)
		for _, f := range summary.Failures {
			log.Printf("scheduler: failed unit station=%s day=%s: %s", f.StationID, f.Day, f.Reason)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
