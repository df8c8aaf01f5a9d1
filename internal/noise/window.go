package noise

import (
	"errors"
	"time"
)

// ErrInvalidRange is returned when a backfill range ends before it starts.
var ErrInvalidRange = errors.New("end date is before start date")

// DailyWindow returns the single local calendar day a routine daily run
// covers: the day immediately preceding now in the sensor zone.
func DailyWindow(now time.Time, zone *time.Location) []time.Time {
	return []time.Time{localDate(now, zone).AddDate(0, 0, -1)}
}

// BackfillWindow returns every local calendar day in [start, end] ascending.
// start and end are taken as calendar dates in the sensor zone regardless of
// the location they were parsed in. Days that are still in progress or in
// the future are never fetched, so the range is clamped at yesterday
// relative to now in the sensor zone. The result may be empty if the whole
// range lies beyond that.
func BackfillWindow(start, end, now time.Time, zone *time.Location) ([]time.Time, error) {
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, zone)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, zone)
	if endDay.Before(startDay) {
		return nil, ErrInvalidRange
	}

	yesterday := localDate(now, zone).AddDate(0, 0, -1)
	if endDay.After(yesterday) {
		endDay = yesterday
	}

	var days []time.Time
	for d := startDay; !d.After(endDay); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days, nil
}

// localDate truncates an instant to midnight of its calendar day in zone.
func localDate(t time.Time, zone *time.Location) time.Time {
	local := t.In(zone)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, zone)
}
