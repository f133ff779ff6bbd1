package crawler

import (
	"fmt"
	"io"
	"time"

	"campcompass/roompotcrawler/logger"
	"campcompass/roompotcrawler/pkg/errors"
	"campcompass/roompotcrawler/services/cache"

	"github.com/PuerkitoBio/goquery"
)

// BaseCrawler provides common functionality for the network crawlers
type BaseCrawler struct {
	Name      string
	CacheSvc  cache.CacheService
	BlockTime time.Duration
}

// GetName returns the crawler's name for logging
func (c *BaseCrawler) GetName() string {
	return c.Name
}

// checkBlocked fails fast while a rate limit marker exists for domain
func (c *BaseCrawler) checkBlocked(domain string) error {
	if c.CacheSvc == nil || domain == "" {
		return nil
	}
	if _, err := c.CacheSvc.Get(cache.RateLimitKey(domain)); err == nil {
		return errors.NewRateLimit(domain, c.BlockTime)
	}
	return nil
}

// markBlocked stores a rate limit marker for domain when err is a rate limit error
func (c *BaseCrawler) markBlocked(domain string, err error) {
	if c.CacheSvc == nil || domain == "" || !errors.IsType(err, errors.ErrorTypeRateLimit) {
		return
	}
	key := cache.RateLimitKey(domain)
	value := []byte(fmt.Sprintf("%d", c.BlockTime/time.Second))
	if setErr := c.CacheSvc.Set(key, value, c.BlockTime); setErr != nil {
		logger.ForCrawler(c.Name).
			WithError(errors.NewCache(key, "failed to store rate limit marker", setErr)).
			Warn().
			Str("domain", domain).
			Msg("Rate limit marker not stored")
	}
}

// createDocument creates a goquery document from a reader
func (c *BaseCrawler) createDocument(url string, reader io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, errors.NewParsing(url, "failed to parse HTML", err)
	}
	return doc, nil
}
