package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL           string
	StationSource         string // postgres|csv
	StationTable          string
	StationCSVPath        string
	StationCSVEncoding    string // utf-8|cp932
	StationReloadInterval time.Duration

	GurunaviKey      string
	GurunaviBaseURL  string
	VenueKeyword     string
	VenueRange       int
	VenueConcurrency int
	VenueRatePerSec  float64
	VenueMaxRetries  int
	VenueRetryWait   time.Duration
	VenueTimeout     time.Duration
	VenueCacheTTL    time.Duration
	ImageFillWorkers int // 0 disables photo back-fill
	ImageFillTimeout time.Duration
	CircularLines    []string
	CatalogFile      string

	NATSURL           string
	NATSSubjectPrefix string
	LogNATSSubjects   bool

	HTTPAddr           string
	CORSAllowedOrigins []string
	MetricsAddr        string
	PageSize           int
	LogLevel           string
	LogFormat          string
}

var DefaultCircularLines = []string{"JR山手線", "JR大阪環状線"}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.StationSource = strings.ToLower(getenvDefault("STATION_SOURCE", "postgres"))
	switch cfg.StationSource {
	case "postgres", "csv":
	default:
		return nil, fmt.Errorf("invalid STATION_SOURCE: %q", cfg.StationSource)
	}
	cfg.StationTable = getenvDefault("STATION_TABLE", "station_info")
	cfg.StationCSVPath = getenvDefault("STATION_CSV_PATH", "./station_data/station.csv")
	cfg.StationCSVEncoding = strings.ToLower(getenvDefault("STATION_CSV_ENCODING", "cp932"))

	if cfg.StationSource == "postgres" {
		dsn, err := databaseURL()
		if err != nil {
			return nil, err
		}
		cfg.DatabaseURL = dsn
	}

	// Station reload interval (seconds). 0 disables reloading.
	sec, err := intEnv("STATION_RELOAD_INTERVAL_SEC", 0, 0)
	if err != nil {
		return nil, err
	}
	cfg.StationReloadInterval = time.Duration(sec) * time.Second

	cfg.GurunaviKey = firstNonEmpty(os.Getenv("GURUNAVI_KEY"), os.Getenv("KEY"))
	cfg.GurunaviBaseURL = getenvDefault("GURUNAVI_BASE_URL", "https://api.gnavi.co.jp")
	cfg.VenueKeyword = getenvDefault("VENUE_CATEGORY", "ラーメン")

	if cfg.VenueRange, err = intEnv("VENUE_RANGE", 3, 1); err != nil {
		return nil, err
	}
	if cfg.VenueRange > 5 {
		return nil, fmt.Errorf("invalid VENUE_RANGE: %d (1-5)", cfg.VenueRange)
	}
	if cfg.VenueConcurrency, err = intEnv("VENUE_CONCURRENCY", 4, 1); err != nil {
		return nil, err
	}
	if cfg.VenueMaxRetries, err = intEnv("VENUE_MAX_RETRIES", 3, 1); err != nil {
		return nil, err
	}

	if v := os.Getenv("VENUE_RATE_PER_SEC"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("invalid VENUE_RATE_PER_SEC: %q", v)
		}
		cfg.VenueRatePerSec = f
	} else {
		cfg.VenueRatePerSec = 5
	}

	ms, err := intEnv("VENUE_RETRY_WAIT_MS", 1000, 0)
	if err != nil {
		return nil, err
	}
	cfg.VenueRetryWait = time.Duration(ms) * time.Millisecond

	if ms, err = intEnv("VENUE_TIMEOUT_MS", 10000, 1); err != nil {
		return nil, err
	}
	cfg.VenueTimeout = time.Duration(ms) * time.Millisecond

	if sec, err = intEnv("VENUE_CACHE_TTL_SEC", 600, 0); err != nil {
		return nil, err
	}
	cfg.VenueCacheTTL = time.Duration(sec) * time.Second

	if cfg.ImageFillWorkers, err = intEnv("IMAGE_FILL_WORKERS", 5, 0); err != nil {
		return nil, err
	}
	if ms, err = intEnv("IMAGE_FILL_TIMEOUT_MS", 3000, 1); err != nil {
		return nil, err
	}
	cfg.ImageFillTimeout = time.Duration(ms) * time.Millisecond

	cfg.CircularLines = DefaultCircularLines
	if v := os.Getenv("CIRCULAR_LINES"); v != "" {
		cfg.CircularLines = splitList(v)
	}
	cfg.CatalogFile = os.Getenv("CATALOG_FILE")

	// Empty NATS_URL disables search event publishing.
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.NATSSubjectPrefix = getenvDefault("NATS_SUBJECT_PREFIX", "stopover.search")
	cfg.LogNATSSubjects = parseBool(os.Getenv("LOG_NATS_SUBJECTS"))

	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", ":8080")
	cfg.CORSAllowedOrigins = splitList(getenvDefault("CORS_ALLOWED_ORIGINS", "*"))
	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")
	if cfg.PageSize, err = intEnv("PAGE_SIZE", 10, 1); err != nil {
		return nil, err
	}
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "json")

	return cfg, nil
}

// databaseURL prefers DATABASE_URL / PG_DSN, else builds a DSN from PG* vars.
func databaseURL() (string, error) {
	if dsn := firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN")); dsn != "" {
		return dsn, nil
	}
	host := firstNonEmpty(os.Getenv("PGHOST"), os.Getenv("DB_HOST"), "127.0.0.1")
	port := firstNonEmpty(os.Getenv("PGPORT"), os.Getenv("DB_PORT"), "5432")
	user := firstNonEmpty(os.Getenv("PGUSER"), os.Getenv("DB_USER"), "postgres")
	pass := firstNonEmpty(os.Getenv("PGPASSWORD"), os.Getenv("DB_PASSWORD"))
	db := firstNonEmpty(os.Getenv("PGDATABASE"), os.Getenv("DBNAME"))
	if db == "" {
		return "", errors.New("PGDATABASE or DATABASE_URL must be set when STATION_SOURCE=postgres")
	}
	sslmode := getenvDefault("PGSSLMODE", "disable")
	if pass != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode), nil
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode), nil
}

func intEnv(k string, def, min int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < min {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return n, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
