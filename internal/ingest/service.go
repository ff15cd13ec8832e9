package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/i474232898/aqi-traffic-ingestion/internal/metrics"
)

// ErrNoStore is returned by queries when the service runs without a store.
var ErrNoStore = errors.New("no record store configured")

// Options configures a Service.
type Options struct {
	Bounds  orb.Bound
	Traffic TrafficOptions
	Logger  *slog.Logger

	// Now overrides the wall clock; used by tests.
	Now func() time.Time
}

// Service runs the fetch → build → traffic → merge → write pipeline.
type Service struct {
	aqi     AQIProvider
	traffic TrafficProvider
	store   Store
	sinks   []Sink
	opts    Options
	logger  *slog.Logger

	mu   sync.RWMutex
	last *CycleReport
}

// NewService creates a new Service. Sinks are written in the given order;
// a non-nil store is written last and also serves queries.
func NewService(aqi AQIProvider, traffic TrafficProvider, store Store, sinks []Sink, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Traffic.Logger == nil {
		opts.Traffic.Logger = opts.Logger
	}
	all := append([]Sink(nil), sinks...)
	if store != nil {
		all = append(all, store)
	}
	return &Service{
		aqi:     aqi,
		traffic: traffic,
		store:   store,
		sinks:   all,
		opts:    opts,
		logger:  opts.Logger,
	}
}

// RunCycle executes one full pipeline pass. Any error other than a failed
// traffic lookup aborts the cycle; sink errors are collected after every
// sink has been tried.
func (s *Service) RunCycle(ctx context.Context) (CycleReport, error) {
	report := CycleReport{
		CycleID:   uuid.New(),
		StartedAt: s.opts.Now().UTC(),
	}
	logger := s.logger.With("cycle_id", report.CycleID.String())

	err := s.runCycle(ctx, logger, &report)

	report.FinishedAt = s.opts.Now().UTC()
	result := "ok"
	if err != nil {
		result = "error"
		report.Err = err.Error()
	}
	metrics.CyclesTotal.WithLabelValues(result).Inc()
	metrics.CycleDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())

	s.mu.Lock()
	r := report
	s.last = &r
	s.mu.Unlock()

	if err != nil {
		logger.Error("cycle failed", "err", err)
		return report, err
	}
	logger.Info("cycle completed",
		"stations", report.Stations,
		"records", report.Records,
		"traffic_misses", report.TrafficMisses,
		"dropped", report.Dropped,
	)
	return report, nil
}

func (s *Service) runCycle(ctx context.Context, logger *slog.Logger, report *CycleReport) error {
	stations, err := s.aqi.FetchStations(ctx, s.opts.Bounds)
	if err != nil {
		return fmt.Errorf("fetch stations from %s: %w", s.aqi.Name(), err)
	}

	now := s.opts.Now().UTC()
	readings := BuildTable(stations, now)
	report.Stations = len(readings)
	metrics.StationsFetched.Set(float64(len(readings)))
	logger.Debug("station table built", "stations", len(readings))

	samples, misses, err := FetchTraffic(ctx, s.traffic, readings, s.opts.Traffic)
	if err != nil {
		return fmt.Errorf("fetch traffic from %s: %w", s.traffic.Name(), err)
	}
	report.TrafficMisses = misses
	metrics.TrafficMisses.Add(float64(misses))

	merged, dropped := Merge(readings, samples)
	report.Records = len(merged)
	report.Dropped = dropped
	if dropped > 0 {
		logger.Warn("readings without traffic sample dropped", "dropped", dropped)
	}

	batch := Batch{
		CycleID:    report.CycleID,
		CapturedAt: now,
		Records:    merged,
	}

	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Write(ctx, batch); err != nil {
			metrics.SinkErrors.WithLabelValues(sink.Name()).Inc()
			logger.Error("sink write failed", "sink", sink.Name(), "err", err)
			errs = append(errs, fmt.Errorf("sink %s: %w", sink.Name(), err))
			continue
		}
		metrics.RowsWritten.WithLabelValues(sink.Name()).Add(float64(len(merged)))
		logger.Debug("batch written", "sink", sink.Name(), "rows", len(merged))
	}
	return errors.Join(errs...)
}

// LastCycle returns the report of the most recent cycle, if any ran.
func (s *Service) LastCycle() (CycleReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return CycleReport{}, false
	}
	return *s.last, true
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest(key string) (MergedRecord, error) {
	if s.store == nil {
		return MergedRecord{}, ErrNoStore
	}
	return s.store.GetLatest(key)
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(key string, from, to time.Time) ([]MergedRecord, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.GetRange(key, from, to)
}
