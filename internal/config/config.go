package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/precip-subset/internal/common"
	"github.com/i474232898/precip-subset/internal/grid"
)

// DefaultListingURL is the CHIRPS daily 0.05 degree archive.
const DefaultListingURL = "https://data.chc.ucsb.edu/products/CHIRPS-2.0/global_daily/netcdf/p05/"

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.3"

var validate = validator.New()

type AppConfig struct {
	ListingURL  string `validate:"required,url"`
	DownloadDir string `validate:"required"`

	OutputDir    string `validate:"required"`
	OutputName   string `validate:"required"`
	OutputFormat string `validate:"oneof=classic netcdf4"`

	Box grid.BoundingBox

	// Link suffixes accepted from the archive listing.
	FileSuffixes   []string `validate:"min=1,dive,required"`
	AcquireEnabled bool

	HTTPTimeout time.Duration `validate:"gte=0"`
	UserAgent   string

	// Serve mode.
	ScheduleInterval time.Duration `validate:"gt=0"`
	RunTimeout       time.Duration `validate:"gte=0"`

	// In-memory run history retention.
	StoreMaxHistory int           // max number of run reports (0 = unlimited)
	StoreMaxAge     time.Duration // max age of run reports (0 = unlimited)

	Port string `validate:"required,numeric"`
}

// OutputPath is the full path of the combined file.
func (c *AppConfig) OutputPath() string {
	return filepath.Join(c.OutputDir, c.OutputName)
}

// Load reads configuration from the environment, and from a .env file if
// present, with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{
		ListingURL:   getenvDefault("LISTING_URL", DefaultListingURL),
		DownloadDir:  getenvDefault("DOWNLOAD_DIR", "CHIRPS_NetCDF_Files"),
		OutputDir:    getenvDefault("OUTPUT_DIR", "CHIRPS_Combined"),
		OutputName:   getenvDefault("OUTPUT_NAME", "CHIRPS_Combined_Subset.nc"),
		OutputFormat: getenvDefault("OUTPUT_FORMAT", "classic"),
		FileSuffixes: common.SplitList(getenvDefault("FILE_SUFFIXES", ".nc,.nc.gz")),
		UserAgent:    getenvDefault("USER_AGENT", defaultUserAgent),
		Port:         getenvDefault("PORT", "8080"),
	}

	var err error
	if cfg.Box.LatMin, err = getenvFloat("BBOX_LAT_MIN", -16); err != nil {
		return nil, err
	}
	if cfg.Box.LatMax, err = getenvFloat("BBOX_LAT_MAX", -13); err != nil {
		return nil, err
	}
	if cfg.Box.LonMin, err = getenvFloat("BBOX_LON_MIN", -71); err != nil {
		return nil, err
	}
	if cfg.Box.LonMax, err = getenvFloat("BBOX_LON_MAX", -69); err != nil {
		return nil, err
	}

	if cfg.AcquireEnabled, err = getenvBool("ACQUIRE_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ScheduleInterval, err = getenvDuration("SCHEDULE_INTERVAL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RunTimeout, err = getenvDuration("RUN_TIMEOUT", 6*time.Hour); err != nil {
		return nil, err
	}

	// Store retention.
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 30) // a month of daily runs
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", 30*24*time.Hour); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", grid.ErrConfiguration, err)
	}
	return cfg, nil
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

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
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
