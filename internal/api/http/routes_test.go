package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/i474232898/aqi-traffic-ingestion/internal/ingest"
	"github.com/i474232898/aqi-traffic-ingestion/internal/store"
)

type stubAQI struct{}

func (stubAQI) Name() string { return "stub" }

func (stubAQI) FetchStations(context.Context, orb.Bound) ([]ingest.RawStation, error) {
	return []ingest.RawStation{{Lat: 28.5, Lon: 77, AQI: json.RawMessage(`"55"`), Name: "S1"}}, nil
}

type stubTraffic struct{}

func (stubTraffic) Name() string { return "stub" }

func (stubTraffic) FetchFlow(_ context.Context, lat, lon float64, _ int) (ingest.TrafficSample, error) {
	return ingest.MissingSample(lat, lon), nil
}

var cycleTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestService(withStore bool) *ingest.Service {
	var st ingest.Store
	if withStore {
		st = store.NewMemoryStore(10, 0)
	}
	return ingest.NewService(stubAQI{}, stubTraffic{}, st, nil, ingest.Options{
		Now: func() time.Time { return cycleTime },
	})
}

func get(t *testing.T, svc *ingest.Service, target string) *http.Response {
	t.Helper()
	app := NewApp(svc)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return resp
}

// TestStationQueryValidation verifies that lat and lon are required and range-checked.
func TestStationQueryValidation(t *testing.T) {
	svc := newTestService(true)

	for _, target := range []string{
		"/api/v1/readings/latest?lon=77",
		"/api/v1/readings/latest?lat=abc&lon=77",
		"/api/v1/readings/latest?lat=91&lon=77",
		"/api/v1/readings/history?lat=28.5&lon=77",
		"/api/v1/readings/history?lat=28.5&lon=77&from=2024-05-02T00:00:00Z&to=2024-05-01T00:00:00Z",
	} {
		resp := get(t, svc, target)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected status %d, got %d", target, http.StatusBadRequest, resp.StatusCode)
		}
	}
}

func TestLatestReading(t *testing.T) {
	svc := newTestService(true)

	resp := get(t, svc, "/api/v1/readings/latest?lat=28.5&lon=77")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d before any cycle, got %d", http.StatusNotFound, resp.StatusCode)
	}

	if _, err := svc.RunCycle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp = get(t, svc, "/api/v1/readings/latest?lat=28.5&lon=77")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	var rec ingest.MergedRecord
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &rec); err != nil {
		t.Fatalf("decode body %s: %v", body, err)
	}
	if rec.Name != "S1" || rec.AQI == nil || *rec.AQI != 55 || rec.FRC != nil {
		t.Fatalf("unexpected record: %+v", rec)
	}

	resp = get(t, svc, "/api/v1/readings/history?lat=28.5&lon=77&from=1714557600&to=2024-05-01T11:00:00Z")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected history status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func TestQueriesWithoutStore(t *testing.T) {
	resp := get(t, newTestService(false), "/api/v1/readings/latest?lat=28.5&lon=77")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, resp.StatusCode)
	}
}

func TestLastCycle(t *testing.T) {
	svc := newTestService(true)

	if resp := get(t, svc, "/api/v1/cycles/last"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}

	report, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp := get(t, svc, "/api/v1/cycles/last")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	var got ingest.CycleReport
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.CycleID != report.CycleID || got.Records != 1 || got.TrafficMisses != 0 {
		t.Fatalf("unexpected report: %+v", got)
	}
}

func TestHealth(t *testing.T) {
	resp := get(t, newTestService(false), "/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}
