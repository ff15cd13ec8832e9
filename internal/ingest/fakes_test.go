package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb"
)

type fakeAQI struct {
	stations []RawStation
	err      error
}

func (f *fakeAQI) Name() string { return "fake-aqi" }

func (f *fakeAQI) FetchStations(context.Context, orb.Bound) ([]RawStation, error) {
	return f.stations, f.err
}

// fakeTraffic answers from a per-key table; unknown keys get a default sample.
type fakeTraffic struct {
	mu     sync.Mutex
	errs   map[string]error
	calls  []string
	delays map[string]time.Duration
}

func (f *fakeTraffic) Name() string { return "fake-traffic" }

func (f *fakeTraffic) FetchFlow(ctx context.Context, lat, lon float64, radius int) (TrafficSample, error) {
	key := StationKey(lat, lon)

	f.mu.Lock()
	f.calls = append(f.calls, key)
	err := f.errs[key]
	delay := f.delays[key]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return TrafficSample{}, ctx.Err()
		}
	}
	if err != nil {
		return TrafficSample{}, err
	}
	frc := "FRC" + key
	speed := float64(radius)
	// Coordinates deliberately differ from the request.
	return TrafficSample{Lat: lat + 0.5, Lon: lon + 0.5, FRC: &frc, CurrentSpeed: &speed}, nil
}

type recordingSink struct {
	name    string
	err     error
	batches []Batch
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Write(_ context.Context, b Batch) error {
	s.batches = append(s.batches, b)
	return s.err
}

var stationCoords = [][2]float64{
	{28, 77}, {28.1, 77.1}, {28.2, 77.2}, {28.3, 77.3}, {28.4, 77.4}, {28.5, 77.5},
}

func rawStations(n int) []RawStation {
	out := make([]RawStation, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, RawStation{
			Lat:  stationCoords[i][0],
			Lon:  stationCoords[i][1],
			AQI:  json.RawMessage(fmt.Sprintf("%d", 50+i)),
			Name: fmt.Sprintf("S%d", i),
		})
	}
	return out
}

var errBoom = errors.New("boom")
