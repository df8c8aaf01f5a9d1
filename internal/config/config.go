package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// AppConfig is the full process configuration, read from the environment.
// Missing required settings abort startup before any unit runs.
type AppConfig struct {
	// Store connection and target table.
	DatabaseURL string `validate:"required"`
	MeterTable  string `validate:"required"`

	// Remote meter-sound API.
	APIBaseURL string `validate:"required,url"`

	// SensorUTCOffsetMinutes fixes the sensor network's local zone. The
	// network sits in a single fixed-offset zone (default SGT, UTC+8); no
	// DST handling is attempted.
	SensorUTCOffsetMinutes int

	// Fetcher resilience.
	FetchMaxRetries     int           `validate:"min=0"`
	FetchBackoffInitial time.Duration `validate:"gt=0"`
	FetchBackoffMax     time.Duration `validate:"gt=0"`
	FetchTimeout        time.Duration `validate:"gt=0"`
	FetchDelay          time.Duration `validate:"min=0"`

	// Writer.
	UpsertChunkSize int           `validate:"min=1"`
	WriteTimeout    time.Duration `validate:"gt=0"`

	// Orchestration.
	Workers          int `validate:"min=1"`
	EmptyDaysToStop  int `validate:"min=1"`
	BackfillMaxYears int `validate:"min=1"`

	// Serve mode.
	Port       string `validate:"required"`
	DailyRunAt string `validate:"required"` // local sensor time, HH:MM

	// Optional catalog override, "id:name,id:name". Empty = built-in list.
	Stations string
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		MeterTable:  getenvDefault("METER_TABLE", "meter_readings"),
		APIBaseURL:  strings.TrimRight(os.Getenv("API_BASE_URL"), "/"),

		SensorUTCOffsetMinutes: getenvInt("SENSOR_UTC_OFFSET_MINUTES", 480),

		FetchMaxRetries: getenvInt("FETCH_MAX_RETRIES", 3),

		UpsertChunkSize: getenvInt("UPSERT_CHUNK_SIZE", 1000),

		Workers:          getenvInt("PIPELINE_WORKERS", 4),
		EmptyDaysToStop:  getenvInt("EMPTY_DAYS_TO_STOP", 2),
		BackfillMaxYears: getenvInt("BACKFILL_MAX_YEARS", 5),

		Port:       getenvDefault("PORT", "8080"),
		DailyRunAt: getenvDefault("DAILY_RUN_AT", "02:00"),
		Stations:   os.Getenv("STATIONS"),
	}

	var err error
	if cfg.FetchBackoffInitial, err = getenvDuration("FETCH_BACKOFF_INITIAL", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.FetchBackoffMax, err = getenvDuration("FETCH_BACKOFF_MAX", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = getenvDuration("FETCH_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.FetchDelay, err = getenvDuration("FETCH_DELAY", 50*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.WriteTimeout, err = getenvDuration("WRITE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// SensorZone returns the fixed-offset local zone of the sensor network.
func (c *AppConfig) SensorZone() *time.Location {
	name := fmt.Sprintf("UTC%+03d:%02d", c.SensorUTCOffsetMinutes/60, abs(c.SensorUTCOffsetMinutes%60))
	if c.SensorUTCOffsetMinutes == 480 {
		name = "SGT"
	}
	return time.FixedZone(name, c.SensorUTCOffsetMinutes*60)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
