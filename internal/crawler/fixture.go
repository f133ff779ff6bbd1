package crawler

import (
	"context"
	"sync/atomic"
	"time"

	"campcompass/roompotcrawler/logger"
	"campcompass/roompotcrawler/pkg/errors"
	"campcompass/roompotcrawler/services/metrics"
)

// LodgeFixture is the canned Lodge 4 Water Village result
var LodgeFixture = FetchResult{
	Success:         true,
	AccommodationID: "lodge-4",
	Name:            "Lodge 4",
	ParkID:          "water-village",
	Type:            "lodge",
	Capacity:        Capacity{MaxPersons: 4},
	Images: Images{
		TotalCount: 4,
		Gallery: []Image{
			{Filename: "lodge_4_exterior_001.jpg", SizeBytes: 122646},
			{Filename: "lodge_4_interior_001.jpg", SizeBytes: 58234},
			{Filename: "lodge_4_interior_002.jpg", SizeBytes: 31456},
			{Filename: "lodge_4_kitchen_001.jpg", SizeBytes: 19874},
		},
	},
}

// FixtureCrawler is a stand-in crawler that never touches the network.
// It returns a canned result and records how often sessions were opened and closed.
type FixtureCrawler struct {
	Result   *FetchResult
	OpenErr  error
	FetchErr error

	opens  atomic.Int32
	closes atomic.Int32
	log    *logger.Logger
}

// NewFixtureCrawler creates a fixture crawler that returns the Lodge 4 result
func NewFixtureCrawler() *FixtureCrawler {
	return &FixtureCrawler{
		Result: LodgeFixture.clone(),
		log:    logger.ForCrawler("FixtureCrawler"),
	}
}

// GetName returns the crawler name
func (c *FixtureCrawler) GetName() string {
	return "FixtureCrawler"
}

// Open starts a fake browser context
func (c *FixtureCrawler) Open(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewSession(c.GetName(), "failed to start browser context", err)
	}
	if c.OpenErr != nil {
		metrics.ObserveSession(c.GetName(), "open_failed")
		return nil, errors.NewSession(c.GetName(), "failed to start browser context", c.OpenErr)
	}

	c.opens.Add(1)
	metrics.ObserveSession(c.GetName(), "open")
	session := newSession(c.GetName(), nil)
	c.logger().Info().Str("session", session.ID).Msg("Starting browser context")
	return session, nil
}

// FetchAccommodationPage returns a copy of the configured result for url
func (c *FixtureCrawler) FetchAccommodationPage(ctx context.Context, session *Session, url string) (*FetchResult, error) {
	if err := checkSession(c.GetName(), session); err != nil {
		return nil, err
	}

	start := time.Now()
	c.logger().Info().Str("session", session.ID).Str("url", url).Msg("Crawling")

	var err error
	switch {
	case ctx.Err() != nil:
		err = errors.NewSession(c.GetName(), "fetch cancelled", ctx.Err())
	case c.FetchErr != nil:
		err = errors.NewSession(c.GetName(), "failed to crawl "+url, c.FetchErr)
	}
	metrics.ObserveFetch(c.GetName(), err, time.Since(start))
	if err != nil {
		return nil, err
	}

	result := c.Result.clone()
	if result == nil {
		return nil, nil
	}
	result.URL = url
	result.CrawledAt = time.Now()
	return result, nil
}

// Close closes the fake browser context
func (c *FixtureCrawler) Close(session *Session) error {
	closed, err := session.release()
	if closed {
		c.closes.Add(1)
		metrics.ObserveSession(c.GetName(), "close")
		c.logger().Info().Str("session", session.ID).Msg("Closing browser context")
	}
	return err
}

// Opens returns the number of sessions opened so far
func (c *FixtureCrawler) Opens() int {
	return int(c.opens.Load())
}

// Closes returns the number of sessions closed so far
func (c *FixtureCrawler) Closes() int {
	return int(c.closes.Load())
}

func (c *FixtureCrawler) logger() *logger.Logger {
	if c.log == nil {
		return logger.Nop()
	}
	return c.log
}
