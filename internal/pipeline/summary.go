package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quietcity/noise-data-pipeline/internal/noise"
)

// UnitStatus is the lifecycle state of one (station, local day) unit.
type UnitStatus string

const (
	StatusPending     UnitStatus = "pending"
	StatusFetching    UnitStatus = "fetching"
	StatusNormalizing UnitStatus = "normalizing"
	StatusWriting     UnitStatus = "writing"
	StatusDone        UnitStatus = "done"
	StatusFailed      UnitStatus = "failed"
)

// Unit is one (station, local calendar day) ingestion task, the atomic
// granularity of orchestration.
type Unit struct {
	Station noise.Station
	Day     time.Time
	Status  UnitStatus
	Rows    int64
	Err     error
}

func (u *Unit) fail(err error) {
	u.Status = StatusFailed
	u.Err = err
}

// UnitFailure identifies a failed unit in the run summary, so the operator
// can rerun exactly that window.
type UnitFailure struct {
	StationID string `json:"station_id"`
	Day       string `json:"day"`
	Reason    string `json:"reason"`
}

// Summary is the explicit result object for one run. It is owned by the
// caller; nothing about a run lives in package state, so repeated or
// concurrent runs cannot interfere.
type Summary struct {
	RunID       uuid.UUID     `json:"run_id"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Attempted   int           `json:"attempted"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"` // units never started because the run was cancelled
	RowsWritten int64         `json:"rows_written"`
	Failures    []UnitFailure `json:"failures,omitempty"`
}

func newSummary() *Summary {
	return &Summary{
		RunID:     uuid.New(),
		StartedAt: time.Now().UTC(),
	}
}

func (s *Summary) record(units []*Unit) {
	for _, u := range units {
		switch u.Status {
		case StatusDone:
			s.Attempted++
			s.Succeeded++
			s.RowsWritten += u.Rows
		case StatusFailed:
			s.Attempted++
			s.Failed++
			s.Failures = append(s.Failures, UnitFailure{
				StationID: u.Station.ID,
				Day:       u.Day.Format("2006-01-02"),
				Reason:    u.Err.Error(),
			})
		default:
			s.Skipped++
		}
	}
}

func (s *Summary) finish(now time.Time) {
	s.FinishedAt = now.UTC()
}

// HasFailures reports whether any unit failed; callers use it to exit
// nonzero so failed windows can be rerun selectively.
func (s *Summary) HasFailures() bool { return s.Failed > 0 }

// String renders the one-line operator summary.
func (s *Summary) String() string {
	return fmt.Sprintf("run %s: units attempted=%d succeeded=%d failed=%d skipped=%d rows_written=%d",
		s.RunID, s.Attempted, s.Succeeded, s.Failed, s.Skipped, s.RowsWritten)
}
