package worker

import (
	"context"
	"encoding/json"
	"time"

	"campcompass/roompotcrawler/helpers"
	"campcompass/roompotcrawler/internal/accommodation"
	"campcompass/roompotcrawler/internal/crawler"
	"campcompass/roompotcrawler/pkg/errors"
	"campcompass/roompotcrawler/services/publisher"
)

// Summary counts the outcome of one batch run
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
}

// Worker crawls every registered accommodation within one crawler session
// and publishes the results
type Worker struct {
	registry  *accommodation.Registry
	crawler   crawler.Crawler
	publisher publisher.Publisher
	logger    helpers.LoggerInterface
	verbose   bool
}

// NewWorker creates a new worker. pub may be nil to skip publishing.
// verbose logs the first successful result of the run.
func NewWorker(
	registry *accommodation.Registry,
	c crawler.Crawler,
	pub publisher.Publisher,
	logger helpers.LoggerInterface,
	verbose bool,
) *Worker {
	return &Worker{
		registry:  registry,
		crawler:   c,
		publisher: pub,
		logger:    logger,
		verbose:   verbose,
	}
}

// Run crawls all accommodations in registry order and stops early when ctx is cancelled
func (w *Worker) Run(ctx context.Context) Summary {
	start := time.Now()
	targets := w.registry.ListAll()
	summary := Summary{Total: len(targets)}

	var session *crawler.Session
	defer func() {
		if err := w.crawler.Close(session); err != nil {
			w.logger.LogError(w.crawler.GetName(), err)
		}
	}()

	session, err := w.crawler.Open(ctx)
	if err != nil {
		w.logger.LogError(w.crawler.GetName(), err)
		summary.Failed = summary.Total
		return summary
	}

	for _, target := range targets {
		if ctx.Err() != nil {
			w.logger.LogInfo("Run cancelled after %d of %d accommodations", summary.Succeeded+summary.Failed, summary.Total)
			break
		}

		if w.crawlAndPublish(ctx, session, target) {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	// Trim all streams after crawling
	if w.publisher != nil {
		if err := w.publisher.TrimStreams(); err != nil {
			w.logger.LogError("StreamTrimming", err)
		}
	}

	w.logger.LogInfo("Crawled %d accommodations (%d ok, %d failed) in %s",
		summary.Total, summary.Succeeded, summary.Failed, time.Since(start))
	return summary
}

// crawlAndPublish crawls one accommodation and publishes the result
func (w *Worker) crawlAndPublish(ctx context.Context, session *crawler.Session, target accommodation.Resolved) bool {
	result, err := w.crawler.FetchAccommodationPage(ctx, session, target.FullURL)
	if err != nil {
		w.logger.LogError(target.FullURL, err)
		return false
	}
	if result == nil || !result.Success {
		w.logger.LogError(target.FullURL, errors.NewParsing(target.FullURL, "no accommodation data found", nil))
		return false
	}

	data, err := json.Marshal(result)
	if err != nil {
		w.logger.LogError(target.FullURL, err)
		return false
	}

	if w.publisher != nil {
		if err := w.publisher.Publish(target.Category, data); err != nil {
			w.logger.LogError(target.FullURL, err)
		}
	}

	if w.verbose {
		w.verbose = false
		w.logResult(result)
	}
	return true
}

// logResult logs a result without its gallery
func (w *Worker) logResult(result *crawler.FetchResult) {
	loggable := *result
	loggable.Images.Gallery = nil
	data, err := json.Marshal(loggable)
	if err != nil {
		w.logger.LogError(result.URL, err)
		return
	}
	w.logger.LogInfo("Crawled data: %s", string(data))
}
