// cmd/media-sync/config.go
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tendant/drive-media-sync/internal/img"
	"github.com/tendant/drive-media-sync/internal/pipeline"
	"github.com/tendant/drive-media-sync/internal/sheets"
)

var (
	errMissingBucket      = errors.New("STORAGE_BUCKET is required")
	errMissingSpreadsheet = errors.New("SPREADSHEET_ID is required")
	errMissingDatabase    = errors.New("DATABASE_URL is required")
)

type config struct {
	SpreadsheetID string
	SheetName     string
	FirstRow      int

	ServiceAccountFile string
	ImpersonateSubject string

	StorageBackend string
	StorageBucket  string

	DatabaseURL    string
	AutoMigrate    bool
	NATSURL        string
	PushgatewayURL string
	MetricsJob     string

	Pipeline pipeline.Config
}

func LoadConfig() (config, error) {
	cfg := config{
		SpreadsheetID:      getenv("SPREADSHEET_ID", ""),
		SheetName:          getenv("SHEET_NAME", "Sheet1"),
		ServiceAccountFile: getenv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		ImpersonateSubject: getenv("GOOGLE_IMPERSONATE", ""),
		StorageBackend:     getenv("STORAGE_BACKEND", "gcs"),
		StorageBucket:      getenv("STORAGE_BUCKET", ""),
		DatabaseURL:        getenv("DATABASE_URL", ""),
		AutoMigrate:        getenvBool("DB_AUTO_MIGRATE", false),
		NATSURL:            getenv("NATS_URL", ""),
		PushgatewayURL:     getenv("PUSHGATEWAY_URL", ""),
		MetricsJob:         getenv("METRICS_JOB", "media_sync"),
		Pipeline:           pipeline.DefaultConfig(),
	}
	cfg.Pipeline.EventSubject = getenv("EVENT_SUBJECT", cfg.Pipeline.EventSubject)

	switch cfg.StorageBackend {
	case "gcs", "memory":
	default:
		return config{}, fmt.Errorf("unknown STORAGE_BACKEND %q (want gcs or memory)", cfg.StorageBackend)
	}

	var err error
	if cfg.FirstRow, err = parsePositiveInt(getenv("SHEET_FIRST_ROW", "2"), "SHEET_FIRST_ROW"); err != nil {
		return config{}, err
	}

	p := &cfg.Pipeline
	if p.MaxPrimaryPhotos, err = parsePositiveInt(getenv("MAX_PRIMARY_PHOTOS", strconv.Itoa(p.MaxPrimaryPhotos)), "MAX_PRIMARY_PHOTOS"); err != nil {
		return config{}, err
	}
	if p.MaxSecondaryPhotos, err = parseNonNegativeInt(getenv("MAX_SECONDARY_PHOTOS", strconv.Itoa(p.MaxSecondaryPhotos)), "MAX_SECONDARY_PHOTOS"); err != nil {
		return config{}, err
	}
	if p.MaxVideosPerUnit, err = parseNonNegativeInt(getenv("MAX_VIDEOS_PER_UNIT", strconv.Itoa(p.MaxVideosPerUnit)), "MAX_VIDEOS_PER_UNIT"); err != nil {
		return config{}, err
	}
	if p.Workers, err = parsePositiveInt(getenv("WORKERS", strconv.Itoa(p.Workers)), "WORKERS"); err != nil {
		return config{}, err
	}
	if p.UnitDelay, err = parseDuration(getenv("UNIT_DELAY", p.UnitDelay.String()), "UNIT_DELAY"); err != nil {
		return config{}, err
	}

	cover := img.DefaultCover
	if cover.Width, err = parsePositiveInt(getenv("THUMB_WIDTH", strconv.Itoa(cover.Width)), "THUMB_WIDTH"); err != nil {
		return config{}, err
	}
	if cover.Height, err = parsePositiveInt(getenv("THUMB_HEIGHT", strconv.Itoa(cover.Height)), "THUMB_HEIGHT"); err != nil {
		return config{}, err
	}
	if cover.Quality, err = parsePositiveInt(getenv("THUMB_QUALITY", strconv.Itoa(cover.Quality)), "THUMB_QUALITY"); err != nil {
		return config{}, err
	}
	if cover.Quality > 100 {
		return config{}, fmt.Errorf("THUMB_QUALITY must be at most 100 (got %d)", cover.Quality)
	}
	p.Cover = cover

	return cfg, nil
}

// requireSheet is checked by the commands that read the spreadsheet.
func (c config) requireSheet() error {
	if c.SpreadsheetID == "" {
		return errMissingSpreadsheet
	}
	return nil
}

// requireStorage is checked by the commands that touch the bucket and the
// media tables.
func (c config) requireStorage() error {
	if c.StorageBucket == "" {
		return errMissingBucket
	}
	if c.DatabaseURL == "" {
		return errMissingDatabase
	}
	return nil
}

func (c config) sheetsConfig() sheets.Config {
	return sheets.Config{
		SpreadsheetID: c.SpreadsheetID,
		SheetName:     c.SheetName,
		FirstRow:      c.FirstRow,
		Columns:       sheets.DefaultColumns,
	}
}

// publicBaseURL is the prefix every public thumbnail URL starts with.
func (c config) publicBaseURL() string {
	return "https://storage.googleapis.com/" + c.StorageBucket + "/"
}

func parsePositiveInt(value string, name string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero (got %d)", name, v)
	}
	return v, nil
}

func parseNonNegativeInt(value string, name string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative (got %d)", name, v)
	}
	return v, nil
}

func parseDuration(value string, name string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative (got %s)", name, d)
	}
	return d, nil
}

func getenvBool(key string, defaultValue bool) bool {
	val := getenv(key, "")
	if val == "" {
		return defaultValue
	}
	return val == "true"
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
