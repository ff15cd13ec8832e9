package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	httpapi "github.com/i474232898/aqi-traffic-ingestion/internal/api/http"
	"github.com/i474232898/aqi-traffic-ingestion/internal/config"
	"github.com/i474232898/aqi-traffic-ingestion/internal/ingest"
	"github.com/i474232898/aqi-traffic-ingestion/internal/ingest/providers"
	"github.com/i474232898/aqi-traffic-ingestion/internal/metrics"
	"github.com/i474232898/aqi-traffic-ingestion/internal/scheduler"
	"github.com/i474232898/aqi-traffic-ingestion/internal/sink"
	"github.com/i474232898/aqi-traffic-ingestion/internal/store"
)

// Run wires providers, sinks and the scheduler from cfg and blocks until all
// repetitions are done, a cycle fails or ctx is cancelled.
func Run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"boundingBox", ingest.FormatBounds(cfg.BoundingBox),
		"trafficRadius", cfg.TrafficRadius,
		"trafficConcurrency", cfg.TrafficWorkers,
		"cycleDelay", cfg.CycleDelay,
		"cycleRepetitions", cfg.CycleRepetitions,
		"scheduleCron", cfg.ScheduleCron,
		"httpAddr", cfg.HTTPAddr,
	)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	aqi := providers.NewWAQIProvider(providers.HTTPClientConfig{
		Client:           httpClient,
		BaseURL:          cfg.WAQIBaseURL,
		BreakerThreshold: uint32(cfg.BreakerThreshold),
	}, cfg.WAQIToken)
	traffic := providers.NewTomTomProvider(providers.HTTPClientConfig{
		Client:           httpClient,
		BaseURL:          cfg.TomTomBaseURL,
		BreakerThreshold: uint32(cfg.BreakerThreshold),
	}, cfg.TomTomAPIKey, cfg.TrafficZoom)

	sinks, closers, err := openSinks(ctx, cfg, logger)
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Error("sink close", "err", err)
			}
		}
	}()
	if err != nil {
		return err
	}

	// In-memory store with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	service := ingest.NewService(aqi, traffic, memStore, sinks, ingest.Options{
		Bounds: cfg.BoundingBox,
		Traffic: ingest.TrafficOptions{
			Radius:      cfg.TrafficRadius,
			Concurrency: cfg.TrafficWorkers,
		},
		Logger: logger,
	})

	var errCh chan error
	if cfg.HTTPAddr != "" {
		srv := httpapi.NewApp(service)
		errCh = make(chan error, 1)
		go func() {
			logger.Info("http listening", "addr", cfg.HTTPAddr)
			errCh <- srv.Listen(cfg.HTTPAddr)
		}()
		defer func() {
			if err := srv.ShutdownWithTimeout(10 * time.Second); err != nil {
				logger.Error("error during shutdown", "err", err)
			}
		}()
	}

	task := func(ctx context.Context) error {
		_, err := service.RunCycle(ctx)
		return err
	}

	var runner scheduler.Runner
	if cfg.ScheduleCron != "" {
		runner = scheduler.NewCron(cfg.ScheduleCron, cfg.CycleRepetitions, task, logger)
	} else {
		runner = scheduler.NewLoop(cfg.CycleRepetitions, cfg.CycleDelay, task, logger)
	}

	return supervise(ctx, runner, errCh, logger)
}

// supervise runs the scheduler until it finishes or the HTTP server stops.
// In the second case the scheduler is cancelled and awaited, so no cycle is
// still writing when the caller closes the sinks.
func supervise(ctx context.Context, runner scheduler.Runner, serverErr <-chan error, logger *slog.Logger) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runs, err := runner.Run(runCtx)
		logger.Info("scheduler stopped", "runs", runs)
		runErr <- err
	}()

	select {
	case err := <-runErr:
		return err
	case err := <-serverErr:
		cancel()
		<-runErr
		if err != nil {
			return err
		}
		return errors.New("http server stopped")
	}
}

func openSinks(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) ([]ingest.Sink, []io.Closer, error) {
	var (
		sinks   []ingest.Sink
		closers []io.Closer
	)

	sheets, err := sink.NewSheetsSink(ctx, sink.SheetsConfig{
		CredentialsFile: cfg.CredentialsFile,
		SpreadsheetID:   cfg.SheetID,
		WriteHeader:     cfg.SheetWriteHeader,
	}, logger)
	if err != nil {
		return nil, closers, err
	}
	sinks = append(sinks, sheets)

	if cfg.ArchiveDSN != "" {
		archive, err := sink.OpenArchive(ctx, sink.ArchiveConfig{Driver: cfg.ArchiveDriver, DSN: cfg.ArchiveDSN})
		if err != nil {
			return nil, closers, err
		}
		sinks = append(sinks, archive)
		closers = append(closers, archive)
	}

	if len(cfg.KafkaBrokers) > 0 {
		k := sink.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		sinks = append(sinks, k)
		closers = append(closers, k)
	}

	if cfg.MQTTBroker != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		m, err := sink.NewMQTTSink(connectCtx, sink.MQTTConfig{
			BrokerURL: cfg.MQTTBroker,
			ClientID:  cfg.MQTTClientID,
			Topic:     cfg.MQTTTopic,
		}, logger)
		cancel()
		if err != nil {
			return nil, closers, err
		}
		sinks = append(sinks, m)
		closers = append(closers, m)
	}

	if cfg.FirestoreProjectID != "" {
		f, err := sink.NewFirestoreSink(ctx, cfg.FirestoreProjectID, cfg.FirestoreCollection, cfg.CredentialsFile, logger)
		if err != nil {
			return nil, closers, err
		}
		sinks = append(sinks, f)
		closers = append(closers, f)
	}

	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	logger.Info("sinks configured", "sinks", names)
	return sinks, closers, nil
}
