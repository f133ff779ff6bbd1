package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"campcompass/roompotcrawler/pkg/errors"
)

// Run modes
const (
	RunModeDemo = "demo"
	RunModeAll  = "all"
)

// Crawler modes
const (
	CrawlerModeMock    = "mock"
	CrawlerModeHTTP    = "http"
	CrawlerModeBrowser = "browser"
)

// Config represents the application configuration
type Config struct {
	// What to run
	RunMode     string
	CrawlerMode string

	// Demo target
	TargetCategory      string
	TargetAccommodation string

	// Crawler configuration
	RequestTimeout time.Duration
	BlockTime      time.Duration

	// Browser configuration
	BrowserBin      string
	BrowserHeadless bool

	// Image collection
	DownloadImages bool
	ImageDir       string
	MaxImages      int
	ImageWorkers   int
	ImageRPS       int

	// Memcache configuration
	MemcacheAddr string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int
	PublishResults       bool

	// Logging and metrics
	ErrorLogFile string
	MetricsAddr  string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		RunMode:              getEnv("RUN_MODE", RunModeDemo),
		CrawlerMode:          getEnv("CRAWLER_MODE", CrawlerModeMock),
		TargetCategory:       getEnv("TARGET_CATEGORY", "lodges_water_village"),
		TargetAccommodation:  getEnv("TARGET_ACCOMMODATION", "Lodge 4"),
		RequestTimeout:       time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		BlockTime:            time.Duration(getEnvInt("BLOCK_TIME_SECONDS", 500)) * time.Second,
		BrowserBin:           os.Getenv("BROWSER_BIN"),
		BrowserHeadless:      getEnvBool("BROWSER_HEADLESS", true),
		DownloadImages:       getEnvBool("DOWNLOAD_IMAGES", true),
		ImageDir:             getEnv("IMAGE_DIR", "data/images"),
		MaxImages:            getEnvInt("MAX_IMAGES", 20),
		ImageWorkers:         getEnvInt("IMAGE_WORKERS", 4),
		ImageRPS:             getEnvInt("IMAGE_RPS", 5),
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", "localhost:11211"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "accommodations"),
		RedisStreamCount:     getEnvInt("REDIS_STREAM_COUNT", 1),
		RedisStreamMaxLength: getEnvInt("REDIS_STREAM_MAX_LENGTH", 1000),
		PublishResults:       getEnvBool("PUBLISH_RESULTS", false),
		ErrorLogFile:         getEnv("ERROR_LOG_FILE", "crawler_errors.log"),
		MetricsAddr:          os.Getenv("METRICS_ADDR"),
		Environment:          getEnv("CRAWLER_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for values the application cannot run with
func (c *Config) Validate() error {
	switch c.RunMode {
	case RunModeDemo, RunModeAll:
	default:
		return errors.NewConfiguration(fmt.Sprintf("unsupported RUN_MODE %q", c.RunMode), nil)
	}

	switch c.CrawlerMode {
	case CrawlerModeMock, CrawlerModeHTTP, CrawlerModeBrowser:
	default:
		return errors.NewConfiguration(fmt.Sprintf("unsupported CRAWLER_MODE %q", c.CrawlerMode), nil)
	}

	if c.RunMode == RunModeDemo && (c.TargetCategory == "" || c.TargetAccommodation == "") {
		return errors.NewConfiguration("TARGET_CATEGORY and TARGET_ACCOMMODATION are required in demo mode", nil)
	}
	if c.RequestTimeout <= 0 {
		return errors.NewConfiguration("REQUEST_TIMEOUT_SECONDS must be positive", nil)
	}
	if c.DownloadImages && c.ImageDir == "" {
		return errors.NewConfiguration("IMAGE_DIR is required when DOWNLOAD_IMAGES is enabled", nil)
	}
	if c.MaxImages < 0 || c.ImageWorkers <= 0 || c.ImageRPS <= 0 {
		return errors.NewConfiguration("MAX_IMAGES, IMAGE_WORKERS and IMAGE_RPS must not be negative or zero", nil)
	}
	if c.PublishResults && (c.RedisStream == "" || c.RedisStreamCount <= 0) {
		return errors.NewConfiguration("REDIS_STREAM and a positive REDIS_STREAM_COUNT are required to publish results", nil)
	}

	return nil
}

// IsProduction reports whether the application runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return b
}
