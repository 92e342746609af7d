package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DataSource       string
	DataPath         string
	XLSXSheet        string
	SQLitePath       string
	TimestampLayouts []string
	Location         *time.Location

	// Inclusive year range for the per-year widgets. Zero means observed.
	YearFrom int
	YearTo   int

	ChartDir      string
	RenderTimeout time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Kafka publishing of excluded records.
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaRejectTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	renderTimeout, err := parsePositiveDuration("RENDER_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(envOrDefault("TIMESTAMP_LOCATION", "Asia/Bangkok"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMESTAMP_LOCATION: %w", err)
	}

	yearFrom, err := parseYear("YEAR_FROM")
	if err != nil {
		return nil, err
	}
	yearTo, err := parseYear("YEAR_TO")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataSource:       strings.ToLower(envOrDefault("DATA_SOURCE", "xlsx")),
		DataPath:         envOrDefault("DATA_PATH", "accident.xlsx"),
		XLSXSheet:        os.Getenv("XLSX_SHEET"),
		SQLitePath:       envOrDefault("SQLITE_PATH", "data/accidents.db"),
		TimestampLayouts: splitList(os.Getenv("TIMESTAMP_LAYOUTS"), ";"),
		Location:         loc,
		YearFrom:         yearFrom,
		YearTo:           yearTo,
		ChartDir:         os.Getenv("CHART_DIR"),
		RenderTimeout:    renderTimeout,
		HTTPAddr:         envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,
		KafkaEnabled:     os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:     splitList(envOrDefault("KAFKA_BROKERS", "localhost:9092"), ","),
		KafkaRejectTopic: envOrDefault("KAFKA_REJECT_TOPIC", "accident-rejected-records"),
	}

	switch cfg.DataSource {
	case "xlsx":
		if cfg.DataPath == "" {
			return nil, errors.New("DATA_PATH is required when DATA_SOURCE is xlsx")
		}
	case "sqlite":
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLITE_PATH is required when DATA_SOURCE is sqlite")
		}
	default:
		return nil, fmt.Errorf("invalid DATA_SOURCE %q: must be xlsx or sqlite", cfg.DataSource)
	}
	if cfg.YearFrom != 0 && cfg.YearTo != 0 && cfg.YearFrom > cfg.YearTo {
		return nil, errors.New("YEAR_FROM must not be after YEAR_TO")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaRejectTopic == "" {
			return nil, errors.New("KAFKA_REJECT_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitList splits a separated list, dropping empty entries.
func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseYear(key string) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return 0, nil
	}
	y, err := strconv.Atoi(s)
	if err != nil || y < 1900 || y > 9999 {
		return 0, fmt.Errorf("invalid %s: must be a four-digit year", key)
	}
	return y, nil
}
