package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quietcity/noise-data-pipeline/internal/noise"
)

var (
	// ErrNotFound is returned when no readings exist for a query.
	ErrNotFound = errors.New("no readings for location")
)

// WriteError reports a failed batch write. The (station, day) unit it
// belongs to is recoverable by re-running the same window; the upsert key
// makes the rerun idempotent.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write readings: %v", e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// ReadingStore is the contract the relational store (and the in-memory
// test double) must satisfy. UpsertReadings must be atomic per call and
// keyed on (location_id, reading_datetime): insert if absent, overwrite
// non-key columns if present. It returns the number of rows actually
// changed, so a rerun over identical data reports zero.
type ReadingStore interface {
	UpsertReadings(ctx context.Context, readings []noise.Reading) (int64, error)
	Latest(ctx context.Context, locationID string) (noise.Reading, error)
	Range(ctx context.Context, locationID string, from, to time.Time) ([]noise.Reading, error)
	Ping(ctx context.Context) error
}
