package sink

import (
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/aqi-traffic-ingestion/internal/ingest"
)

func f64(v float64) *float64 { return &v }

func testBatch() ingest.Batch {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	frc := "FRC2"
	closed := false
	return ingest.Batch{
		CycleID:    uuid.MustParse("6f1c1d7e-3a55-4c57-8f0e-3c1d1a2b3c4d"),
		CapturedAt: ts,
		Records: []ingest.MergedRecord{
			{
				Lat: 28.5, Lon: 77, AQI: f64(55), Name: "S1", Timestamp: ts,
				FRC: &frc, CurrentSpeed: f64(31), FreeFlowSpeed: f64(45),
				CurrentTravelTime: f64(120), FreeFlowTravelTime: f64(90),
				Confidence: f64(0.95), RoadClosure: &closed,
			},
			{Lat: 28.6, Lon: 77.1, Name: "S2", Timestamp: ts},
		},
	}
}
