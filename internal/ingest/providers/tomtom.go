package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/aqi-traffic-ingestion/internal/ingest"
)

const (
	defaultTomTomBaseURL = "https://api.tomtom.com"
	defaultTomTomZoom    = 10
)

// TomTomProvider implements ingest.TrafficProvider for the TomTom flow segment API.
type TomTomProvider struct {
	name    string
	apiKey  string
	baseURL string
	zoom    int
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewTomTomProvider(cfg HTTPClientConfig, apiKey string, zoom int) *TomTomProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultTomTomBaseURL
	}
	if zoom <= 0 {
		zoom = defaultTomTomZoom
	}
	return &TomTomProvider{
		name:    "tomtom",
		apiKey:  apiKey,
		baseURL: baseURL,
		zoom:    zoom,
		client:  cfg.Client,
		circuit: newCircuitBreaker("tomtom", cfg.BreakerThreshold),
	}
}

func (p *TomTomProvider) Name() string {
	return p.name
}

// FetchFlow returns the flow segment closest to (lat, lon) within radius meters.
func (p *TomTomProvider) FetchFlow(ctx context.Context, lat, lon float64, radius int) (ingest.TrafficSample, error) {
	if p.apiKey == "" {
		return ingest.TrafficSample{}, fmt.Errorf("tomtom api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("point", ingest.StationKey(lat, lon))
		values.Set("radius", strconv.Itoa(radius))
		values.Set("key", p.apiKey)

		u := fmt.Sprintf("%s/traffic/services/4/flowSegmentData/absolute/%d/json?%s", p.baseURL, p.zoom, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, p.client, p.circuit, statusOK, buildRequest)
	if err != nil {
		return ingest.TrafficSample{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		FlowSegmentData struct {
			FRC                *string  `json:"frc"`
			CurrentSpeed       *float64 `json:"currentSpeed"`
			FreeFlowSpeed      *float64 `json:"freeFlowSpeed"`
			CurrentTravelTime  *float64 `json:"currentTravelTime"`
			FreeFlowTravelTime *float64 `json:"freeFlowTravelTime"`
			Confidence         *float64 `json:"confidence"`
			RoadClosure        *bool    `json:"roadClosure"`
		} `json:"flowSegmentData"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ingest.TrafficSample{}, fmt.Errorf("decode tomtom response: %w", err)
	}

	d := payload.FlowSegmentData
	return ingest.TrafficSample{
		Lat:                lat,
		Lon:                lon,
		FRC:                d.FRC,
		CurrentSpeed:       d.CurrentSpeed,
		FreeFlowSpeed:      d.FreeFlowSpeed,
		CurrentTravelTime:  d.CurrentTravelTime,
		FreeFlowTravelTime: d.FreeFlowTravelTime,
		Confidence:         d.Confidence,
		RoadClosure:        d.RoadClosure,
	}, nil
}
