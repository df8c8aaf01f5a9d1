// Package catalog holds the monitoring-station list the pipeline iterates
// over. The catalog is read-only during a run.
package catalog

import (
	"fmt"
	"strings"

	"github.com/quietcity/noise-data-pipeline/internal/noise"
)

// defaultStations is the deployed sensor network: 13 noise meters across
// Singapore, keyed by the device ID the meter-sound API expects.
var defaultStations = []noise.Station{
	{ID: "15490", Name: "Singapore Sports School"},
	{ID: "16034", Name: "BLK 120 Serangoon North Ave 1"},
	{ID: "16041", Name: "BLK 838 Hougang Central"},
	{ID: "14542", Name: "BLK 558 Jurong West Street 42"},
	{ID: "15725", Name: "Jurong Safra, Block C"},
	{ID: "16032", Name: "AMA KENG SITE"},
	{ID: "16045", Name: "BLK 19 Balam Road"},
	{ID: "15820", Name: "Norcom II Tower 4"},
	{ID: "15821", Name: "Blk 444 Choa Chu Kang Avenue 4"},
	{ID: "15999", Name: "BLK 654B Punggol Drive"},
	{ID: "16026", Name: "BLK 132B Tengah Garden Avenue"},
	{ID: "16004", Name: "BLK 206A Punggol Place"},
	{ID: "16005", Name: "Woodlands 11"},
}

// Default returns a copy of the built-in station list.
func Default() []noise.Station {
	stations := make([]noise.Station, len(defaultStations))
	copy(stations, defaultStations)
	return stations
}

// Parse builds a catalog from a "id:name,id:name" spec (the STATIONS env
// variable). Names may contain colons; only the first one separates the ID.
func Parse(spec string) ([]noise.Station, error) {
	var stations []noise.Station
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, name, ok := strings.Cut(entry, ":")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("invalid station entry %q, want id:name", entry)
		}
		stations = append(stations, noise.Station{
			ID:   strings.TrimSpace(id),
			Name: strings.TrimSpace(name),
		})
	}
	if len(stations) == 0 {
		return nil, fmt.Errorf("station spec %q contains no stations", spec)
	}
	return stations, nil
}
