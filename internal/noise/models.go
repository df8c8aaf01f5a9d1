package noise

import (
	"encoding/json"
	"time"
)

// Station represents one monitoring station in the sensor network.
// ID is the device identifier used by the meter-sound API; Name is a
// human-readable label carried into the store for dashboards.
type Station struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RawSample is one element of the API response for a (station, day) fetch:
// a per-minute sound level reading stamped in local sensor time.
// Reading is kept raw because the API is loose about the value type
// (number, quoted number, or null).
type RawSample struct {
	Time    string          `json:"time"`
	Reading json.RawMessage `json:"reading"`
}

// Reading is the normalized, persisted unit: one per-minute noise
// measurement for one station at one UTC instant.
// (LocationID, Timestamp) is the identity; re-ingesting the same logical
// sample overwrites Value and LocationName rather than duplicating the row.
type Reading struct {
	LocationID   string    `json:"location_id"`
	LocationName string    `json:"location_name"`
	Value        *float64  `json:"reading_value"` // nil when the source omitted or mangled the minute's value
	Timestamp    time.Time `json:"reading_datetime"` // always UTC, minute granularity
	CreatedAt    time.Time `json:"created_at"`
}
