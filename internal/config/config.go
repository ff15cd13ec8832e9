package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/paulmach/orb"

	"github.com/i474232898/aqi-traffic-ingestion/internal/ingest"
)

const defaultBoundingBox = "28.402,76.838,28.883,77.348"

var validate = validator.New()

type AppConfig struct {
	AppEnv   string     `validate:"oneof=dev prod"`
	LogLevel slog.Level `validate:"-"`

	WAQIToken   string    `validate:"required"`
	WAQIBaseURL string    `validate:"required,url"`
	BoundingBox orb.Bound `validate:"-"`

	TomTomAPIKey     string `validate:"required"`
	TomTomBaseURL    string `validate:"required,url"`
	TrafficRadius    int    `validate:"gt=0"` // meters
	TrafficZoom      int    `validate:"gte=0,lte=22"`
	TrafficWorkers   int    `validate:"gte=1"`
	BreakerThreshold int    `validate:"gte=0"`

	CredentialsFile  string `validate:"required"`
	SheetID          string `validate:"required"`
	SheetWriteHeader bool

	// CycleDelay is the pause between the end of one cycle and the start of the next.
	CycleDelay       time.Duration `validate:"gte=0"`
	CycleRepetitions int           `validate:"gte=1"`
	// ScheduleCron switches the loop to cron mode when set.
	ScheduleCron string

	HTTPTimeout time.Duration `validate:"gte=0"`
	HTTPAddr    string

	// In-memory store retention.
	StoreMaxHistory int           // max number of records per station (0 = unlimited)
	StoreMaxAge     time.Duration // max age of records (0 = unlimited)

	ArchiveDriver string `validate:"oneof=sqlite3 postgres"`
	ArchiveDSN    string

	KafkaBrokers []string
	KafkaTopic   string `validate:"required_with=KafkaBrokers"`

	MQTTBroker   string
	MQTTTopic    string `validate:"required_with=MQTTBroker"`
	MQTTClientID string `validate:"required_with=MQTTBroker"`

	FirestoreProjectID  string
	FirestoreCollection string `validate:"required_with=FirestoreProjectID"`
}

// Load reads configuration from the environment (and .env when present) with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "err", err)
	}
	cfg := &AppConfig{}

	cfg.AppEnv = strings.TrimSpace(getenvDefault("APP_ENV", "dev"))
	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	cfg.WAQIToken = os.Getenv("WAQI_TOKEN")
	cfg.WAQIBaseURL = getenvDefault("WAQI_BASE_URL", "https://api.waqi.info")
	bounds, err := ingest.ParseBounds(getenvDefault("BOUNDING_BOX", defaultBoundingBox))
	if err != nil {
		return nil, fmt.Errorf("invalid BOUNDING_BOX: %w", err)
	}
	cfg.BoundingBox = bounds

	cfg.TomTomAPIKey = os.Getenv("TOMTOM_API_KEY")
	cfg.TomTomBaseURL = getenvDefault("TOMTOM_BASE_URL", "https://api.tomtom.com")
	if cfg.TrafficRadius, err = getenvInt("TRAFFIC_RADIUS", 2000); err != nil {
		return nil, err
	}
	if cfg.TrafficZoom, err = getenvInt("TRAFFIC_ZOOM", 10); err != nil {
		return nil, err
	}
	if cfg.TrafficWorkers, err = getenvInt("TRAFFIC_CONCURRENCY", 1); err != nil {
		return nil, err
	}
	if cfg.BreakerThreshold, err = getenvInt("TRAFFIC_BREAKER_THRESHOLD", 0); err != nil {
		return nil, err
	}

	cfg.CredentialsFile = getenvDefault("GOOGLE_APPLICATION_CREDENTIALS", "cred_file.json")
	cfg.SheetID = os.Getenv("SHEET_ID")
	if cfg.SheetWriteHeader, err = getenvBool("SHEET_WRITE_HEADER", false); err != nil {
		return nil, err
	}

	if cfg.CycleDelay, err = getenvDuration("CYCLE_DELAY", "1h"); err != nil {
		return nil, err
	}
	if cfg.CycleRepetitions, err = getenvInt("CYCLE_REPETITIONS", 24); err != nil {
		return nil, err
	}
	cfg.ScheduleCron = strings.TrimSpace(os.Getenv("SCHEDULE_CRON"))

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	cfg.HTTPAddr = strings.TrimSpace(os.Getenv("HTTP_ADDR"))

	// Store retention: roughly one day at hourly cycles.
	if cfg.StoreMaxHistory, err = getenvInt("STORE_MAX_HISTORY", 96); err != nil {
		return nil, err
	}
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	cfg.ArchiveDriver = getenvDefault("ARCHIVE_DRIVER", "sqlite3")
	cfg.ArchiveDSN = os.Getenv("ARCHIVE_DSN")

	cfg.KafkaBrokers = splitList(os.Getenv("KAFKA_BROKERS"))
	cfg.KafkaTopic = getenvDefault("KAFKA_TOPIC", "aqi-traffic-records")

	cfg.MQTTBroker = os.Getenv("MQTT_BROKER")
	cfg.MQTTTopic = getenvDefault("MQTT_TOPIC", "aqi-traffic/records")
	cfg.MQTTClientID = getenvDefault("MQTT_CLIENT_ID", "aqi-traffic-ingestion")

	cfg.FirestoreProjectID = os.Getenv("FIRESTORE_PROJECT_ID")
	cfg.FirestoreCollection = getenvDefault("FIRESTORE_COLLECTION", "aqiTrafficRecords")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
