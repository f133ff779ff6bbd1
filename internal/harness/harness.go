package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"campcompass/roompotcrawler/internal/accommodation"
	"campcompass/roompotcrawler/internal/crawler"
	"campcompass/roompotcrawler/logger"
	"campcompass/roompotcrawler/pkg/errors"
	"campcompass/roompotcrawler/services/publisher"
)

// Target names the accommodation the harness crawls
type Target struct {
	Category      string
	Accommodation string
}

// Outcome is the result of one harness run
type Outcome struct {
	Passed bool
	URL    string
	Result *crawler.FetchResult
	Err    error
}

// Harness drives one crawler session through open, fetch and close for a single target
type Harness struct {
	registry  *accommodation.Registry
	crawler   crawler.Crawler
	publisher publisher.Publisher
	out       io.Writer
	log       *logger.Logger
}

// New creates a harness. pub may be nil to skip publishing.
func New(registry *accommodation.Registry, c crawler.Crawler, pub publisher.Publisher, out io.Writer) *Harness {
	if out == nil {
		out = io.Discard
	}
	return &Harness{
		registry:  registry,
		crawler:   c,
		publisher: pub,
		out:       out,
		log:       logger.ForHarness(),
	}
}

// Run resolves the target, crawls it once and reports whether the crawl passed.
// Lookup errors abort before a session is opened. Once Open has been attempted
// the close step always runs, even when Open failed.
func (h *Harness) Run(ctx context.Context, target Target) Outcome {
	resolved, err := h.registry.Resolve(target.Category, target.Accommodation)
	if err != nil {
		fmt.Fprintf(h.out, "Configuration error: %v\n", err)
		h.log.WithFields(logger.Fields{
			"category":      target.Category,
			"accommodation": target.Accommodation,
		}).Error().Err(err).Msg("Target lookup failed")
		return Outcome{Err: err}
	}

	outcome := Outcome{URL: resolved.FullURL}
	fmt.Fprintf(h.out, "Target URL: %s\n", resolved.FullURL)

	fmt.Fprintln(h.out, "Starting browser context...")
	var session *crawler.Session
	defer func() { h.release(session) }()

	session, err = h.crawler.Open(ctx)
	if err != nil {
		fmt.Fprintf(h.out, "Crawling error: %v\n", err)
		h.log.Error().Err(err).Str("crawler", h.crawler.GetName()).Msg("Failed to open session")
		outcome.Err = err
		return outcome
	}

	fmt.Fprintf(h.out, "Loading %s page...\n", resolved.Name)
	result, err := h.crawler.FetchAccommodationPage(ctx, session, resolved.FullURL)
	if err != nil {
		if !errors.IsType(err, errors.ErrorTypeSession) {
			err = errors.NewSession(h.crawler.GetName(), "fetch failed", err)
		}
		fmt.Fprintf(h.out, "Crawling error: %v\n", err)
		h.log.Error().Err(err).Str("url", resolved.FullURL).Msg("Fetch failed")
		outcome.Err = err
		return outcome
	}

	outcome.Result = result
	if result == nil || !result.Success {
		fmt.Fprintf(h.out, "%s crawling failed\n", resolved.Name)
		h.log.Warn().Str("url", resolved.FullURL).Msg("Crawl returned no usable result")
		return outcome
	}

	outcome.Passed = true
	fmt.Fprintf(h.out, "%s crawling successful!\n", resolved.Name)
	fmt.Fprintf(h.out, "Data: %s - %d persons\n", result.Name, result.Capacity.MaxPersons)
	fmt.Fprintf(h.out, "Images: %d downloaded\n", result.Images.TotalCount)
	h.log.Info().
		Str("url", resolved.FullURL).
		Str("name", result.Name).
		Int("max_persons", result.Capacity.MaxPersons).
		Int("images", result.Images.TotalCount).
		Msg("Crawl passed")

	h.publish(resolved.Category, result)
	return outcome
}

// release runs the close step for whatever session Open returned, possibly none
func (h *Harness) release(session *crawler.Session) {
	fmt.Fprintln(h.out, "Closing browser context...")
	if err := h.crawler.Close(session); err != nil {
		ev := h.log.Warn().Err(err)
		if session != nil {
			ev = ev.Str("session", session.ID)
		}
		ev.Msg("Failed to close session")
	}
}

// publish sends the result to the stream; failures are logged only
func (h *Harness) publish(key string, result *crawler.FetchResult) {
	if h.publisher == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to encode result")
		return
	}
	if err := h.publisher.Publish(key, data); err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("Failed to publish result")
		return
	}
	h.log.Debug().Str("key", key).Msg("Published result")
}
