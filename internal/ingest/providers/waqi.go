package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/paulmach/orb"
	"github.com/sony/gobreaker"

	"github.com/i474232898/aqi-traffic-ingestion/internal/ingest"
)

const defaultWAQIBaseURL = "https://api.waqi.info"

// WAQIProvider implements ingest.AQIProvider for the World Air Quality Index map API.
type WAQIProvider struct {
	name    string
	token   string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewWAQIProvider(cfg HTTPClientConfig, token string) *WAQIProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultWAQIBaseURL
	}
	return &WAQIProvider{
		name:    "waqi",
		token:   token,
		baseURL: baseURL,
		client:  cfg.Client,
		circuit: newCircuitBreaker("waqi", cfg.BreakerThreshold),
	}
}

func (p *WAQIProvider) Name() string {
	return p.name
}

// FetchStations lists every station inside bounds with one GET request.
func (p *WAQIProvider) FetchStations(ctx context.Context, bounds orb.Bound) ([]ingest.RawStation, error) {
	if p.token == "" {
		return nil, fmt.Errorf("waqi token is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latlng", ingest.FormatBounds(bounds))
		values.Set("token", p.token)

		u := fmt.Sprintf("%s/map/bounds/?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, p.client, p.circuit, status2xx, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode waqi response: %w", err)
	}

	// On failure the API answers 200 with {"status":"error","data":"<message>"}.
	if envelope.Status != "" && envelope.Status != "ok" {
		var msg string
		_ = json.Unmarshal(envelope.Data, &msg)
		return nil, fmt.Errorf("waqi status %q: %s", envelope.Status, msg)
	}

	var entries []struct {
		Lat     float64         `json:"lat"`
		Lon     float64         `json:"lon"`
		AQI     json.RawMessage `json:"aqi"`
		Station struct {
			Name string `json:"name"`
		} `json:"station"`
	}
	if err := json.Unmarshal(envelope.Data, &entries); err != nil {
		return nil, fmt.Errorf("decode waqi stations: %w", err)
	}

	stations := make([]ingest.RawStation, 0, len(entries))
	for _, e := range entries {
		stations = append(stations, ingest.RawStation{
			Lat:  e.Lat,
			Lon:  e.Lon,
			AQI:  e.AQI,
			Name: e.Station.Name,
		})
	}
	return stations, nil
}
