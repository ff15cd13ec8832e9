package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/i474232898/aqi-traffic-ingestion/internal/ingest"
)

func recordAt(ts time.Time, name string) ingest.MergedRecord {
	return ingest.MergedRecord{Lat: 28.5, Lon: 77, Name: name, Timestamp: ts}
}

func write(t *testing.T, s *MemoryStore, recs ...ingest.MergedRecord) {
	t.Helper()
	if err := s.Write(context.Background(), ingest.Batch{Records: recs}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMemoryStore_LatestAndRange(t *testing.T) {
	s := NewMemoryStore(0, 0)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	write(t, s, recordAt(base, "a"))
	write(t, s, recordAt(base.Add(time.Hour), "b"))
	write(t, s, recordAt(base.Add(2*time.Hour), "c"))

	latest, err := s.GetLatest("28.5,77")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.Name != "c" {
		t.Fatalf("expected latest record c, got %q", latest.Name)
	}

	got, err := s.GetRange("28.5,77", base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "b" {
		t.Fatalf("expected inclusive range [a b], got %+v", got)
	}

	if _, err := s.GetRange("28.5,77", base.Add(3*time.Hour), base.Add(4*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty range, got %v", err)
	}
}

func TestMemoryStore_UnknownStation(t *testing.T) {
	s := NewMemoryStore(10, time.Hour)

	if _, err := s.GetLatest("1,1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_RetentionByCount(t *testing.T) {
	s := NewMemoryStore(2, 0)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	write(t, s, recordAt(base, "a"), recordAt(base.Add(time.Minute), "b"), recordAt(base.Add(2*time.Minute), "c"))

	got, err := s.GetRange("28.5,77", base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Name != "b" {
		t.Fatalf("expected the two newest records, got %+v", got)
	}
}

func TestMemoryStore_RetentionByAgeKeepsNewest(t *testing.T) {
	now := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0, time.Hour)
	s.now = func() time.Time { return now }

	write(t, s, recordAt(now.Add(-3*time.Hour), "old"), recordAt(now.Add(-2*time.Hour), "older-but-newest"))

	latest, err := s.GetLatest("28.5,77")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.Name != "older-but-newest" {
		t.Fatalf("expected newest record to survive, got %q", latest.Name)
	}
	got, _ := s.GetRange("28.5,77", now.Add(-24*time.Hour), now)
	if len(got) != 1 {
		t.Fatalf("expected expired records to be evicted, got %d", len(got))
	}
}
