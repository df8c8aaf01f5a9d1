package noise

import (
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"time"
)

// sampleLayouts are the local-time formats the meter-sound API has been
// observed to use for the per-minute "time" field.
var sampleLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
}

// Normalizer converts raw API samples into store-ready Readings. The sensor
// network sits in a single fixed-offset zone, so local-to-UTC conversion is
// a plain offset shift with no DST ambiguity.
type Normalizer struct {
	zone *time.Location
}

func NewNormalizer(zone *time.Location) *Normalizer {
	return &Normalizer{zone: zone}
}

// Normalize turns one raw sample into a Reading keyed by (station,
// UTC minute). It returns ok=false when the sample must be dropped:
// unparseable timestamps are logged and skipped (one bad minute must not
// abort the day), and samples that would land after fetchedAt are discarded
// so a clock-skewed or placeholder row can never be stored in the future.
// A missing or non-numeric value keeps its timestamp slot with a nil Value.
func (n *Normalizer) Normalize(raw RawSample, st Station, fetchedAt time.Time) (Reading, bool) {
	ts, err := n.parseLocalTime(raw.Time)
	if err != nil {
		log.Printf("normalize: station %s: dropping sample with bad timestamp %q: %v", st.ID, raw.Time, err)
		return Reading{}, false
	}

	utc := ts.UTC().Truncate(time.Minute)
	if utc.After(fetchedAt) {
		return Reading{}, false
	}

	return Reading{
		LocationID:   st.ID,
		LocationName: st.Name,
		Value:        parseValue(raw.Reading),
		Timestamp:    utc,
		CreatedAt:    time.Now().UTC(),
	}, true
}

func (n *Normalizer) parseLocalTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range sampleLayouts {
		ts, err := time.ParseInLocation(layout, s, n.zone)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// parseValue coerces the loose "reading" field to a float. The API emits
// numbers, quoted numbers, or null depending on the device firmware; anything
// that is not a usable number becomes nil so the minute slot is preserved.
func parseValue(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return &f
		}
	}
	return nil
}
