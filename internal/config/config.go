package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/i474232898/acis-toolkit/internal/climate"
	"github.com/i474232898/acis-toolkit/internal/common"
)

var validate = validator.New()

type AppConfig struct {
	// BaseURL of the ACIS web services.
	BaseURL     string        `validate:"required,url"`
	HTTPTimeout time.Duration `validate:"gt=0"`

	// Outbound throttling; RateLimit <= 0 disables it.
	RateLimit float64 `validate:"gte=0"`
	RateBurst int     `validate:"gte=0"`

	// FetchInterval controls how often the scheduler runs the jobs.
	FetchInterval time.Duration

	// Jobs to run on every scheduler tick.
	Jobs []climate.Job `validate:"dive"`

	// In-memory store retention.
	StoreMaxHistory int           // max number of snapshots per job (0 = unlimited)
	StoreMaxAge     time.Duration // max age of snapshots (0 = unlimited)

	Port string `validate:"required,numeric"`

	LogLevel  logrus.Level
	LogFormat string `validate:"oneof=json text"`
}

// Load reads configuration from environment with sensible defaults. A .env
// file in the working directory is loaded first when present.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := &AppConfig{}

	cfg.BaseURL = getenvDefault("ACIS_BASE_URL", "https://data.rcc-acis.org")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "60m"); err != nil {
		return nil, err
	}

	cfg.RateLimit, err = strconv.ParseFloat(getenvDefault("RATE_LIMIT", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT: %w", err)
	}
	cfg.RateBurst = getenvInt("RATE_BURST", 10)

	// Store retention.
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 48)
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "48h"); err != nil {
		return nil, err
	}
	cfg.Port = getenvDefault("PORT", "8080")

	cfg.LogLevel, err = logrus.ParseLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "json")

	jobs, err := loadJobs()
	if err != nil {
		return nil, err
	}
	cfg.Jobs = jobs

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadJobs reads the single configured job. No ACIS_JOB_SIDS means no
// scheduled fetching.
func loadJobs() ([]climate.Job, error) {
	sids := common.SplitList(os.Getenv("ACIS_JOB_SIDS"))
	if len(sids) == 0 {
		return nil, nil
	}
	elems := common.SplitList(getenvDefault("ACIS_JOB_ELEMS", "maxt,mint,pcpn"))
	lookback := getenvInt("ACIS_JOB_LOOKBACK_DAYS", 7)
	if lookback < 0 {
		return nil, fmt.Errorf("invalid ACIS_JOB_LOOKBACK_DAYS: %d", lookback)
	}
	return []climate.Job{{
		Name:         getenvDefault("ACIS_JOB_NAME", "default"),
		Sids:         sids,
		Elems:        elems,
		Interval:     getenvDefault("ACIS_JOB_INTERVAL", "dly"),
		LookbackDays: lookback,
	}}, nil
}

// NewLogger builds the application logger from the config.
func (c *AppConfig) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)
	if c.LogFormat == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
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

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
