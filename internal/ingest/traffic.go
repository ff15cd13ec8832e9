package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// TrafficOptions controls the per-station traffic lookups.
type TrafficOptions struct {
	Radius int // meters

	// Concurrency bounds the number of in-flight lookups. Values <= 1 keep
	// the lookups strictly sequential.
	Concurrency int

	Logger *slog.Logger
}

// FetchTraffic issues one traffic lookup per reading and returns the samples
// in input order together with the number of null-filled samples.
// Non-success responses produce a missing sample carrying the reading's
// coordinates; any other provider error aborts the whole fetch.
func FetchTraffic(ctx context.Context, p TrafficProvider, readings []StationReading, opts TrafficOptions) ([]TrafficSample, int, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	samples := make([]TrafficSample, len(readings))
	missed := make([]bool, len(readings))

	lookup := func(ctx context.Context, i int) error {
		r := readings[i]
		s, err := p.FetchFlow(ctx, r.Lat, r.Lon, opts.Radius)
		switch {
		case err == nil:
		case errors.Is(err, ErrUpstreamStatus), errors.Is(err, ErrUnavailable):
			logger.Warn("traffic lookup failed; filling with missing values",
				"provider", p.Name(), "lat", r.Lat, "lon", r.Lon, "err", err)
			s = MissingSample(r.Lat, r.Lon)
			missed[i] = true
		default:
			return fmt.Errorf("traffic lookup at %s: %w", StationKey(r.Lat, r.Lon), err)
		}
		// The join key always comes from the reading, never from the provider.
		s.Lat, s.Lon = r.Lat, r.Lon
		samples[i] = s
		return nil
	}

	if opts.Concurrency <= 1 {
		for i := range readings {
			if err := lookup(ctx, i); err != nil {
				return nil, 0, err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Concurrency)
		for i := range readings {
			i := i
			g.Go(func() error { return lookup(gctx, i) })
		}
		if err := g.Wait(); err != nil {
			return nil, 0, err
		}
	}

	misses := 0
	for _, m := range missed {
		if m {
			misses++
		}
	}
	return samples, misses, nil
}
