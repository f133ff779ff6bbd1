package crawler

import (
	"fmt"

	"campcompass/roompotcrawler/config"
	"campcompass/roompotcrawler/internal"
	"campcompass/roompotcrawler/internal/accommodation"
	"campcompass/roompotcrawler/logger"
	"campcompass/roompotcrawler/pkg/errors"
)

// New creates the crawler selected by cfg.CrawlerMode
func New(cfg *config.Config, deps internal.Dependencies, registry *accommodation.Registry) (Crawler, error) {
	opts := Options{
		Registry:  registry,
		Cache:     deps.Cache,
		BlockTime: cfg.BlockTime,
		Timeout:   cfg.RequestTimeout,
		Images: NewImageDownloader(ImageOptions{
			Enabled:   cfg.DownloadImages,
			Dir:       cfg.ImageDir,
			MaxImages: cfg.MaxImages,
			Workers:   cfg.ImageWorkers,
			RPS:       cfg.ImageRPS,
		}),
		Selectors: DefaultSelectors,
	}

	var (
		c   Crawler
		err error
	)
	switch cfg.CrawlerMode {
	case config.CrawlerModeMock:
		c = NewFixtureCrawler()
	case config.CrawlerModeHTTP:
		c, err = NewPageCrawler(opts)
	case config.CrawlerModeBrowser:
		c, err = NewBrowserCrawler(BrowserOptions{
			Options:  opts,
			Bin:      cfg.BrowserBin,
			Headless: cfg.BrowserHeadless,
		})
	default:
		return nil, errors.NewConfiguration(fmt.Sprintf("unsupported CRAWLER_MODE %q", cfg.CrawlerMode), nil)
	}
	if err != nil {
		return nil, err
	}

	logger.ForCrawler(c.GetName()).Info().Str("mode", cfg.CrawlerMode).Msg("Created crawler")
	return c, nil
}
