package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"campcompass/roompotcrawler/config"
	"campcompass/roompotcrawler/helpers"
	"campcompass/roompotcrawler/internal"
	"campcompass/roompotcrawler/internal/accommodation"
	"campcompass/roompotcrawler/internal/crawler"
	"campcompass/roompotcrawler/internal/harness"
	"campcompass/roompotcrawler/logger"
	"campcompass/roompotcrawler/services/cache"
	"campcompass/roompotcrawler/services/metrics"
	"campcompass/roompotcrawler/services/publisher"
	"campcompass/roompotcrawler/services/worker"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("run_mode", cfg.RunMode).
		Str("crawler_mode", cfg.CrawlerMode).
		Msg("Starting application")

	// Cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.InitRegistry()
	if srv := metrics.Serve(cfg.MetricsAddr, reg); srv != nil {
		defer srv.Close()
	}

	// Initialize services
	services := initializeServices(ctx, cfg)
	defer services.Cleanup()

	passed, err := run(ctx, cfg, services.Dependencies, os.Stdout)
	if err != nil {
		log.Error().Err(err).Msg("Failed to start crawler")
	}

	if passed {
		fmt.Println("\nAll tests passed!")
		return
	}
	fmt.Println("\nTests failed!")
	services.Cleanup()
	os.Exit(1)
}

// run executes the configured run mode and reports whether it passed
func run(ctx context.Context, cfg *config.Config, deps internal.Dependencies, out io.Writer) (bool, error) {
	registry := accommodation.Default()

	c, err := crawler.New(cfg, deps, registry)
	if err != nil {
		return false, err
	}

	switch cfg.RunMode {
	case config.RunModeAll:
		errLog := helpers.NewLogger(cfg.ErrorLogFile, logger.ForWorker())
		w := worker.NewWorker(registry, c, deps.Publisher, errLog, !cfg.IsProduction())
		summary := w.Run(ctx)
		fmt.Fprintf(out, "Crawled %d accommodations: %d ok, %d failed\n", summary.Total, summary.Succeeded, summary.Failed)
		return summary.Failed == 0 && ctx.Err() == nil, nil
	default:
		fmt.Fprintf(out, "%s Crawler Test (%s)\n", cfg.TargetAccommodation, cfg.TargetCategory)
		fmt.Fprintln(out, strings.Repeat("=", 50))
		h := harness.New(registry, c, deps.Publisher, out)
		outcome := h.Run(ctx, harness.Target{
			Category:      cfg.TargetCategory,
			Accommodation: cfg.TargetAccommodation,
		})
		return outcome.Passed, nil
	}
}

// Services holds all the initialized services
type Services struct {
	internal.Dependencies
	closed bool
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.closed {
		return
	}
	s.closed = true
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}

// initializeServices connects the optional services. An unreachable service
// is left nil and the crawl runs without it.
func initializeServices(ctx context.Context, cfg *config.Config) *Services {
	services := &Services{}
	if cfg.CrawlerMode == config.CrawlerModeMock {
		logger.LogInfo("cache", "Mock crawler selected; skipping Memcache")
	} else {
		cacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := cacheService.Ping(); err != nil {
			logger.Warn("Memcache at %s unavailable (%v); rate limit markers disabled", cfg.MemcacheAddr, err)
		} else {
			services.Cache = cacheService
			logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	}

	if !cfg.PublishResults {
		return services
	}

	redisPublisher := publisher.NewRedisPublisher(
		ctx,
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamCount,
		cfg.RedisStreamMaxLength,
	)
	if err := redisPublisher.Ping(); err != nil {
		logger.LogError("publisher", err, "Redis at %s unavailable; results will not be published", cfg.RedisAddr)
		redisPublisher.Close()
		return services
	}
	services.Publisher = redisPublisher

	logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
		cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)

	return services
}
