package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/quietcity/noise-data-pipeline/internal/noise"
	"github.com/quietcity/noise-data-pipeline/internal/store"
)

func testApp(t *testing.T) (*fiber.App, *store.MemoryStore) {
	t.Helper()

	app := fiber.New()
	mem := store.NewMemoryStore()
	stations := []noise.Station{{ID: "loc-01", Name: "Test Station"}}
	RegisterRoutes(app, mem, stations)
	return app, mem
}

func seed(t *testing.T, mem *store.MemoryStore, locationID string, ts time.Time, value float64) {
	t.Helper()

	_, err := mem.UpsertReadings(context.Background(), []noise.Reading{{
		LocationID:   locationID,
		LocationName: "Test Station",
		Value:        &value,
		Timestamp:    ts,
		CreatedAt:    time.Now().UTC(),
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLatestRequiresLocationID(t *testing.T) {
	app, _ := testApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/readings/latest", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestLatestUnknownLocationIs404(t *testing.T) {
	app, _ := testApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/readings/latest?location_id=loc-99", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestLatestReturnsMostRecentReading(t *testing.T) {
	app, mem := testApp(t)

	base := time.Date(2024, 4, 15, 10, 0, 0, 0, time.UTC)
	seed(t, mem, "loc-01", base, 50)
	seed(t, mem, "loc-01", base.Add(time.Minute), 61.2)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/readings/latest?location_id=loc-01", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var got noise.Reading
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Value == nil || *got.Value != 61.2 {
		t.Fatalf("expected latest value 61.2, got %v", got.Value)
	}
}

func TestRangeValidation(t *testing.T) {
	app, mem := testApp(t)
	seed(t, mem, "loc-01", time.Date(2024, 4, 15, 10, 0, 0, 0, time.UTC), 50)

	// Missing from/to.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/readings?location_id=loc-01", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	// to before from.
	req = httptest.NewRequest(http.MethodGet,
		"/api/v1/readings?location_id=loc-01&from=2024-04-15T12:00:00Z&to=2024-04-15T10:00:00Z", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestRangeReturnsReadings(t *testing.T) {
	app, mem := testApp(t)

	base := time.Date(2024, 4, 15, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seed(t, mem, "loc-01", base.Add(time.Duration(i)*time.Minute), float64(50+i))
	}

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/readings?location_id=loc-01&from=2024-04-15T10:00:00Z&to=2024-04-15T10:02:00Z", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var payload struct {
		Readings []noise.Reading `json:"readings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Readings) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(payload.Readings))
	}
}

func TestStationsEndpoint(t *testing.T) {
	app, _ := testApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stations", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var payload struct {
		Stations []noise.Station `json:"stations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Stations) != 1 || payload.Stations[0].ID != "loc-01" {
		t.Fatalf("unexpected stations payload: %+v", payload.Stations)
	}
}
