package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/i474232898/aqi-traffic-ingestion/internal/ingest"
)

var (
	// ErrNotFound is returned when no records are available for a station.
	ErrNotFound = errors.New("no records for station")
)

// RecordHistory holds a time-ordered list of merged records for a station.
type RecordHistory struct {
	Records []ingest.MergedRecord
}

// MemoryStore is a concurrency-safe in-memory record store.
// It is written to as a sink and read by the HTTP API.
type MemoryStore struct {
	mu sync.RWMutex

	// key: station key ("lat,lon"), value: history
	data map[string]*RecordHistory

	// retention configuration
	maxHistory int           // max number of records per station
	maxAge     time.Duration // optional max age for records

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*RecordHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

func (s *MemoryStore) Name() string {
	return "memory"
}

// Write appends every record of the batch to its station history.
func (s *MemoryStore) Write(_ context.Context, batch ingest.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range batch.Records {
		s.save(rec)
	}
	return nil
}

func (s *MemoryStore) save(rec ingest.MergedRecord) {
	key := rec.Key()

	history, ok := s.data[key]
	if !ok {
		history = &RecordHistory{}
		s.data[key] = history
	}

	history.Records = append(history.Records, rec)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Records) > s.maxHistory {
		over := len(history.Records) - s.maxHistory
		history.Records = history.Records[over:]
	}

	// Enforce retention by age; the newest record is always kept.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Records)-1; i++ {
			if !history.Records[i].Timestamp.Before(cutoff) {
				break
			}
		}
		history.Records = history.Records[i:]
	}
}

// GetLatest returns the most recent record for a station.
func (s *MemoryStore) GetLatest(key string) (ingest.MergedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.Records) == 0 {
		return ingest.MergedRecord{}, ErrNotFound
	}
	return history.Records[len(history.Records)-1], nil
}

// GetRange returns all records for a station between from and to (inclusive).
func (s *MemoryStore) GetRange(key string, from, to time.Time) ([]ingest.MergedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.Records) == 0 {
		return nil, ErrNotFound
	}

	var result []ingest.MergedRecord
	for _, rec := range history.Records {
		if !rec.Timestamp.Before(from) && !rec.Timestamp.After(to) {
			result = append(result, rec)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}
