package ingest

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// StationReading is one AQI station observation captured during a cycle.
// AQI is nil when the provider reported a non-numeric value.
type StationReading struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	AQI       *float64  `json:"aqi"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"` // identical for every row of a cycle
}

// Point returns the reading coordinates as an orb point (lon, lat order).
func (r StationReading) Point() orb.Point {
	return orb.Point{r.Lon, r.Lat}
}

// TrafficSample holds the flow segment metrics for one station position.
// Every metric is nil when the traffic request did not succeed.
type TrafficSample struct {
	Lat                float64  `json:"lat"`
	Lon                float64  `json:"lon"`
	FRC                *string  `json:"frc"`
	CurrentSpeed       *float64 `json:"currentSpeed"`
	FreeFlowSpeed      *float64 `json:"freeFlowSpeed"`
	CurrentTravelTime  *float64 `json:"currentTravelTime"`
	FreeFlowTravelTime *float64 `json:"freeFlowTravelTime"`
	Confidence         *float64 `json:"confidence"`
	RoadClosure        *bool    `json:"roadClosure"`
}

// Point returns the sample coordinates as an orb point (lon, lat order).
func (s TrafficSample) Point() orb.Point {
	return orb.Point{s.Lon, s.Lat}
}

// Missing reports whether every metric of the sample is absent.
func (s TrafficSample) Missing() bool {
	return s.FRC == nil && s.CurrentSpeed == nil && s.FreeFlowSpeed == nil &&
		s.CurrentTravelTime == nil && s.FreeFlowTravelTime == nil &&
		s.Confidence == nil && s.RoadClosure == nil
}

// MissingSample returns a sample at (lat, lon) with all metrics absent.
func MissingSample(lat, lon float64) TrafficSample {
	return TrafficSample{Lat: lat, Lon: lon}
}

// MergedRecord is a station reading joined with its traffic sample.
// It maps to exactly one spreadsheet row; field order is column order.
type MergedRecord struct {
	Lat                float64   `json:"lat"`
	Lon                float64   `json:"lon"`
	AQI                *float64  `json:"aqi"`
	Name               string    `json:"name"`
	Timestamp          time.Time `json:"timestamp"`
	FRC                *string   `json:"frc"`
	CurrentSpeed       *float64  `json:"currentSpeed"`
	FreeFlowSpeed      *float64  `json:"freeFlowSpeed"`
	CurrentTravelTime  *float64  `json:"currentTravelTime"`
	FreeFlowTravelTime *float64  `json:"freeFlowTravelTime"`
	Confidence         *float64  `json:"confidence"`
	RoadClosure        *bool     `json:"roadClosure"`
}

func newMergedRecord(r StationReading, s TrafficSample) MergedRecord {
	return MergedRecord{
		Lat:                r.Lat,
		Lon:                r.Lon,
		AQI:                r.AQI,
		Name:               r.Name,
		Timestamp:          r.Timestamp,
		FRC:                s.FRC,
		CurrentSpeed:       s.CurrentSpeed,
		FreeFlowSpeed:      s.FreeFlowSpeed,
		CurrentTravelTime:  s.CurrentTravelTime,
		FreeFlowTravelTime: s.FreeFlowTravelTime,
		Confidence:         s.Confidence,
		RoadClosure:        s.RoadClosure,
	}
}

// Key returns a canonical "lat,lon" string for indexing records in stores.
func (m MergedRecord) Key() string {
	return StationKey(m.Lat, m.Lon)
}

// StationKey formats coordinates the same way cells do.
func StationKey(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64)
}

// Batch is the set of merged records produced by one pipeline cycle.
type Batch struct {
	CycleID    uuid.UUID      `json:"cycleId"`
	CapturedAt time.Time      `json:"capturedAt"`
	Records    []MergedRecord `json:"records"`
}

// CycleReport summarizes a finished cycle.
type CycleReport struct {
	CycleID       uuid.UUID `json:"cycleId"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
	Stations      int       `json:"stations"`
	TrafficMisses int       `json:"trafficMisses"`
	Records       int       `json:"records"`
	Dropped       int       `json:"dropped"`
	Err           string    `json:"error,omitempty"`
}

func (r CycleReport) String() string {
	return fmt.Sprintf("cycle %s: stations=%d records=%d traffic_misses=%d dropped=%d",
		r.CycleID, r.Stations, r.Records, r.TrafficMisses, r.Dropped)
}
