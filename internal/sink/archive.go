package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/i474232898/aqi-traffic-ingestion/internal/ingest"
)

const archiveSchema = `
CREATE TABLE IF NOT EXISTS merged_records (
	cycle_id              TEXT NOT NULL,
	row_index             INTEGER NOT NULL,
	lat                   DOUBLE PRECISION NOT NULL,
	lon                   DOUBLE PRECISION NOT NULL,
	aqi                   DOUBLE PRECISION,
	name                  TEXT NOT NULL,
	captured_at           TEXT NOT NULL,
	frc                   TEXT,
	current_speed         DOUBLE PRECISION,
	free_flow_speed       DOUBLE PRECISION,
	current_travel_time   DOUBLE PRECISION,
	free_flow_travel_time DOUBLE PRECISION,
	confidence            DOUBLE PRECISION,
	road_closure          BOOLEAN,
	PRIMARY KEY (cycle_id, row_index)
)`

var archiveColumns = []string{
	"cycle_id", "row_index", "lat", "lon", "aqi", "name", "captured_at",
	"frc", "current_speed", "free_flow_speed", "current_travel_time",
	"free_flow_travel_time", "confidence", "road_closure",
}

// ArchiveConfig selects the SQL backend. Driver is "sqlite3" or "postgres".
type ArchiveConfig struct {
	Driver string
	DSN    string
}

// ArchiveSink mirrors every batch into a SQL table, one transaction per batch.
type ArchiveSink struct {
	db     *sql.DB
	driver string
	insert string
}

func OpenArchive(ctx context.Context, cfg ArchiveConfig) (*ArchiveSink, error) {
	switch cfg.Driver {
	case "sqlite3", "postgres":
	default:
		return nil, fmt.Errorf("unsupported archive driver %q (allowed: sqlite3, postgres)", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("archive open: %w", err)
	}
	if cfg.Driver == "sqlite3" {
		// In-memory databases are per connection.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, archiveSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive migrate: %w", err)
	}

	return &ArchiveSink{
		db:     db,
		driver: cfg.Driver,
		insert: buildInsert(cfg.Driver),
	}, nil
}

func buildInsert(driver string) string {
	marks := make([]string, len(archiveColumns))
	for i := range marks {
		if driver == "postgres" {
			marks[i] = fmt.Sprintf("$%d", i+1)
		} else {
			marks[i] = "?"
		}
	}
	return fmt.Sprintf("INSERT INTO merged_records (%s) VALUES (%s)",
		strings.Join(archiveColumns, ", "), strings.Join(marks, ", "))
}

func (a *ArchiveSink) Name() string {
	return "archive"
}

func (a *ArchiveSink) Write(ctx context.Context, batch ingest.Batch) error {
	if len(batch.Records) == 0 {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, a.insert)
	if err != nil {
		return fmt.Errorf("archive prepare: %w", err)
	}
	defer stmt.Close()

	cycleID := batch.CycleID.String()
	for i, r := range batch.Records {
		_, err := stmt.ExecContext(ctx,
			cycleID, i, r.Lat, r.Lon, r.AQI, r.Name, r.Timestamp.Format(ingest.TimestampLayout),
			r.FRC, r.CurrentSpeed, r.FreeFlowSpeed, r.CurrentTravelTime,
			r.FreeFlowTravelTime, r.Confidence, r.RoadClosure,
		)
		if err != nil {
			return fmt.Errorf("archive insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive commit: %w", err)
	}
	return nil
}

func (a *ArchiveSink) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
