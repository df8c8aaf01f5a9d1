// Package source talks to the remote meter-sound API. One request covers
// one (station, local calendar day) coverage window.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/quietcity/noise-data-pipeline/internal/noise"
)

// FetchError reports a failed (station, day) fetch. The unit it belongs to
// is recoverable by re-running the same window.
type FetchError struct {
	StationID string
	Day       time.Time
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch station %s day %s: %v", e.StationID, e.Day.Format("2006-01-02"), e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client fetches per-minute samples from the meter-sound API.
type Client struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewClient creates a Client for the given API base URL. The backoff policy
// is injected so callers (and tests) control the retry budget.
func NewClient(httpClient *http.Client, baseURL string, backoff BackoffConfig) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "meter-sound",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client:  httpClient,
			Backoff: backoff,
		},
		circuit: cb,
	}
}

// FetchDay returns all per-minute samples for the station's coverage window
// starting at the given local calendar day. A day the API has no data for
// decodes to an empty slice; that is a valid result, not an error.
func (c *Client) FetchDay(ctx context.Context, stationID string, day time.Time) ([]noise.RawSample, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("start", day.Format("2006-01-02"))

		u := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(stationID), values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, &FetchError{StationID: stationID, Day: day, Err: err}
	}
	defer resp.Body.Close()

	var samples []noise.RawSample
	if err := json.NewDecoder(resp.Body).Decode(&samples); err != nil {
		return nil, &FetchError{StationID: stationID, Day: day, Err: fmt.Errorf("decode response: %w", err)}
	}

	return samples, nil
}
