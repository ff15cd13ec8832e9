package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/paulmach/orb"
)

var (
	// ErrUpstreamStatus wraps non-2xx responses from a provider.
	ErrUpstreamStatus = errors.New("upstream returned non-success status")
	// ErrUnavailable is returned while a provider's circuit breaker is open.
	ErrUnavailable = errors.New("provider unavailable")
)

// RawStation is a station entry as reported by the AQI provider.
// AQI is kept undecoded because providers send numbers, numeric strings or "-".
type RawStation struct {
	Lat  float64
	Lon  float64
	AQI  json.RawMessage
	Name string
}

// AQIProvider abstracts the air-quality data source (e.g. WAQI).
type AQIProvider interface {
	Name() string
	FetchStations(ctx context.Context, bounds orb.Bound) ([]RawStation, error)
}

// TrafficProvider abstracts the traffic flow data source (e.g. TomTom).
// Implementations wrap ErrUpstreamStatus or ErrUnavailable when no sample
// could be obtained; any other error is fatal to the cycle.
type TrafficProvider interface {
	Name() string
	FetchFlow(ctx context.Context, lat, lon float64, radius int) (TrafficSample, error)
}

// Sink receives every merged batch. The spreadsheet is one sink among several.
type Sink interface {
	Name() string
	Write(ctx context.Context, batch Batch) error
}

// Store is the contract the in-memory store must satisfy to back the query API.
type Store interface {
	Sink
	GetLatest(key string) (MergedRecord, error)
	GetRange(key string, from, to time.Time) ([]MergedRecord, error)
}
