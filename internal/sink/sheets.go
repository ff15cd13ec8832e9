package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/i474232898/aqi-traffic-ingestion/internal/ingest"
)

// Scopes requested for the spreadsheet session.
var SheetsScopes = []string{
	"https://spreadsheets.google.com/feeds",
	"https://www.googleapis.com/auth/drive",
}

// SheetsConfig configures the spreadsheet appender.
type SheetsConfig struct {
	CredentialsFile string
	SpreadsheetID   string
	WriteHeader     bool
}

// SheetsSink appends merged rows to the first sheet of a Google spreadsheet.
type SheetsSink struct {
	svc    *sheets.Service
	cfg    SheetsConfig
	logger *slog.Logger

	mu    sync.Mutex
	title string
}

// NewSheetsSink authenticates with the service-account key file. When the
// file is missing, application default credentials are used instead.
// Extra client options are appended last and win over the defaults.
func NewSheetsSink(ctx context.Context, cfg SheetsConfig, logger *slog.Logger, extra ...option.ClientOption) (*SheetsSink, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("spreadsheet id is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.ClientOption{option.WithScopes(SheetsScopes...)}
	if cfg.CredentialsFile != "" {
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			logger.Warn("credentials file not found, trying default authentication",
				"path", cfg.CredentialsFile, "err", err)
		} else {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
	}
	opts = append(opts, extra...)

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}

	return &SheetsSink{svc: svc, cfg: cfg, logger: logger}, nil
}

func (s *SheetsSink) Name() string {
	return "sheets"
}

// Write appends the whole batch with a single values.append call.
func (s *SheetsSink) Write(ctx context.Context, batch ingest.Batch) error {
	if len(batch.Records) == 0 {
		return nil
	}

	title, err := s.firstSheet(ctx)
	if err != nil {
		return err
	}
	rng := quoteSheetTitle(title)

	rows := make([][]interface{}, 0, len(batch.Records)+1)
	if s.cfg.WriteHeader {
		empty, err := s.isEmpty(ctx, rng)
		if err != nil {
			return err
		}
		if empty {
			rows = append(rows, toRow(ingest.Header()))
		}
	}
	for _, rec := range batch.Records {
		rows = append(rows, toRow(rec.Cells()))
	}

	resp, err := s.svc.Spreadsheets.Values.
		Append(s.cfg.SpreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append rows to %s: %w", s.cfg.SpreadsheetID, err)
	}

	updated := int64(0)
	if resp.Updates != nil {
		updated = resp.Updates.UpdatedRows
	}
	s.logger.Debug("rows appended", "sheet", title, "rows", len(rows), "updated_rows", updated)
	return nil
}

// firstSheet opens the spreadsheet by id and returns the title of its first sheet.
func (s *SheetsSink) firstSheet(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.title != "" {
		return s.title, nil
	}

	ss, err := s.svc.Spreadsheets.Get(s.cfg.SpreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("open spreadsheet %s: %w", s.cfg.SpreadsheetID, err)
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return "", fmt.Errorf("spreadsheet %s has no sheets", s.cfg.SpreadsheetID)
	}

	s.title = ss.Sheets[0].Properties.Title
	return s.title, nil
}

func (s *SheetsSink) isEmpty(ctx context.Context, rng string) (bool, error) {
	vr, err := s.svc.Spreadsheets.Values.Get(s.cfg.SpreadsheetID, rng+"!A1:A1").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("read first cell of %s: %w", s.cfg.SpreadsheetID, err)
	}
	return len(vr.Values) == 0, nil
}

func quoteSheetTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func toRow(cells []string) []interface{} {
	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}
