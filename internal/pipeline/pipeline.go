// Package pipeline sequences the ingestion run: time window → stations ×
// days → fetch → normalize → upsert. Each (station, local day) unit is
// independent; one unit failing never blocks its siblings, and re-running a
// window is the documented recovery path because writes are idempotent.
package pipeline

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/quietcity/noise-data-pipeline/internal/noise"
	"github.com/quietcity/noise-data-pipeline/internal/store"
)

// Fetcher is the slice of the source client the pipeline needs.
type Fetcher interface {
	FetchDay(ctx context.Context, stationID string, day time.Time) ([]noise.RawSample, error)
}

// Options tune a Pipeline. Zero values fall back to conservative defaults.
type Options struct {
	Workers      int           // bounded parallelism across units
	FetchDelay   time.Duration // pause between successive fetches on a worker
	FetchTimeout time.Duration
	WriteTimeout time.Duration

	// backfill-all walk
	EmptyDaysToStop  int // consecutive zero-row days before stopping
	BackfillMaxYears int // horizon: never walk back past now - this many years

	// Now is the clock; tests inject a fixed one.
	Now func() time.Time
}

func (o *Options) applyDefaults() {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 30 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 30 * time.Second
	}
	if o.EmptyDaysToStop <= 0 {
		o.EmptyDaysToStop = 2
	}
	if o.BackfillMaxYears <= 0 {
		o.BackfillMaxYears = 5
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Pipeline runs ingestion over a window of local calendar days for a fixed
// station catalog. The catalog is read-only during a run.
type Pipeline struct {
	fetcher    Fetcher
	store      store.ReadingStore
	normalizer *noise.Normalizer
	stations   []noise.Station
	zone       *time.Location
	opts       Options
}

// New creates a Pipeline over the given fetcher, store, and catalog.
func New(fetcher Fetcher, st store.ReadingStore, stations []noise.Station, zone *time.Location, opts Options) *Pipeline {
	opts.applyDefaults()
	return &Pipeline{
		fetcher:    fetcher,
		store:      st,
		normalizer: noise.NewNormalizer(zone),
		stations:   stations,
		zone:       zone,
		opts:       opts,
	}
}

// RunDaily ingests yesterday's local calendar day for every station.
func (p *Pipeline) RunDaily(ctx context.Context) (*Summary, error) {
	days := noise.DailyWindow(p.opts.Now(), p.zone)
	summary := newSummary()
	p.runDays(ctx, days, summary)
	summary.finish(p.opts.Now())
	return summary, nil
}

// RunBackfill ingests every local day in [start, end] inclusive, clamped at
// yesterday. It fails before any network call if the range is inverted.
func (p *Pipeline) RunBackfill(ctx context.Context, start, end time.Time) (*Summary, error) {
	days, err := noise.BackfillWindow(start, end, p.opts.Now(), p.zone)
	if err != nil {
		return nil, err
	}
	summary := newSummary()
	p.runDays(ctx, days, summary)
	summary.finish(p.opts.Now())
	return summary, nil
}

// RunBackfillAll walks backwards from yesterday one local day at a time,
// stopping after EmptyDaysToStop consecutive days that change zero rows or
// when the walk reaches the BackfillMaxYears horizon.
func (p *Pipeline) RunBackfillAll(ctx context.Context) (*Summary, error) {
	now := p.opts.Now()
	days := noise.DailyWindow(now, p.zone)
	day := days[0]
	stopBefore := day.AddDate(-p.opts.BackfillMaxYears, 0, 0)

	summary := newSummary()
	emptyStreak := 0

	log.Printf("pipeline: backfill-all starting at %s, stopping before %s, empty threshold %d",
		day.Format("2006-01-02"), stopBefore.Format("2006-01-02"), p.opts.EmptyDaysToStop)

	for !day.Before(stopBefore) {
		if ctx.Err() != nil {
			break
		}

		before := summary.RowsWritten
		p.runDays(ctx, []time.Time{day}, summary)
		wrote := summary.RowsWritten - before

		if wrote == 0 {
			emptyStreak++
			log.Printf("pipeline: %s: no data (empty streak %d/%d)",
				day.Format("2006-01-02"), emptyStreak, p.opts.EmptyDaysToStop)
			if emptyStreak >= p.opts.EmptyDaysToStop {
				log.Printf("pipeline: stopping backfill-all, empty-day threshold reached")
				break
			}
		} else {
			emptyStreak = 0
			log.Printf("pipeline: %s: wrote %d rows", day.Format("2006-01-02"), wrote)
		}

		day = day.AddDate(0, 0, -1)
	}

	summary.finish(p.opts.Now())
	return summary, nil
}

// runDays fans the stations × days unit grid out over a bounded worker
// pool and folds the results into summary. Cancellation takes effect
// between units: a unit already in flight finishes and its write stays
// durable; untaken units are recorded as skipped.
func (p *Pipeline) runDays(ctx context.Context, days []time.Time, summary *Summary) {
	units := make([]*Unit, 0, len(days)*len(p.stations))
	for _, day := range days {
		for _, st := range p.stations {
			units = append(units, &Unit{Station: st, Day: day, Status: StatusPending})
		}
	}

	unitCh := make(chan *Unit)
	var wg sync.WaitGroup

	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range unitCh {
				if ctx.Err() != nil {
					continue // drain; unit stays Pending and is reported skipped
				}
				p.processUnit(ctx, u)
				if p.opts.FetchDelay > 0 {
					select {
					case <-ctx.Done():
					case <-time.After(p.opts.FetchDelay):
					}
				}
			}
		}()
	}

	for _, u := range units {
		unitCh <- u
	}
	close(unitCh)
	wg.Wait()

	summary.record(units)
}

// processUnit drives one unit through its states. Failures are recorded on
// the unit, never propagated: sibling units must keep running.
func (p *Pipeline) processUnit(ctx context.Context, u *Unit) {
	u.Status = StatusFetching
	fetchCtx, cancel := context.WithTimeout(ctx, p.opts.FetchTimeout)
	samples, err := p.fetcher.FetchDay(fetchCtx, u.Station.ID, u.Day)
	cancel()
	if err != nil {
		u.fail(err)
		log.Printf("pipeline: unit %s/%s fetch failed: %v", u.Station.ID, u.Day.Format("2006-01-02"), err)
		return
	}

	u.Status = StatusNormalizing
	fetchedAt := p.opts.Now().UTC()
	readings := make([]noise.Reading, 0, len(samples))
	for _, s := range samples {
		if r, ok := p.normalizer.Normalize(s, u.Station, fetchedAt); ok {
			readings = append(readings, r)
		}
	}

	u.Status = StatusWriting
	writeCtx, cancel := context.WithTimeout(ctx, p.opts.WriteTimeout)
	rows, err := p.store.UpsertReadings(writeCtx, readings)
	cancel()
	if err != nil {
		u.fail(err)
		log.Printf("pipeline: unit %s/%s write failed: %v", u.Station.ID, u.Day.Format("2006-01-02"), err)
		return
	}

	u.Rows = rows
	u.Status = StatusDone
}
