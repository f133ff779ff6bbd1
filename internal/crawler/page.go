package crawler

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"campcompass/roompotcrawler/helpers"
	"campcompass/roompotcrawler/internal/accommodation"
	"campcompass/roompotcrawler/logger"
	"campcompass/roompotcrawler/pkg/errors"
	"campcompass/roompotcrawler/services/cache"
	"campcompass/roompotcrawler/services/metrics"
)

const defaultLanguage = "de"

// Options configures the network crawlers
type Options struct {
	Registry  *accommodation.Registry
	Cache     cache.CacheService
	BlockTime time.Duration
	Timeout   time.Duration
	Images    *ImageDownloader
	Selectors PageSelectors
}

// PageCrawler fetches accommodation pages over plain HTTP
type PageCrawler struct {
	BaseCrawler
	registry *accommodation.Registry
	timeout  time.Duration
	images   *ImageDownloader
	parser   *pageParser
	log      *logger.Logger
}

// pageState holds the per-session HTTP client and its cookie jar
type pageState struct {
	client *http.Client
}

func (s *pageState) close() error {
	s.client.CloseIdleConnections()
	return nil
}

// NewPageCrawler creates a new HTTP page crawler
func NewPageCrawler(opts Options) (*PageCrawler, error) {
	parser, err := newPageParser(withDefaultSelectors(opts.Selectors))
	if err != nil {
		return nil, errors.NewConfiguration("invalid capacity pattern", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Images == nil {
		opts.Images = NewImageDownloader(ImageOptions{})
	}

	return &PageCrawler{
		BaseCrawler: BaseCrawler{
			Name:      "PageCrawler",
			CacheSvc:  opts.Cache,
			BlockTime: opts.BlockTime,
		},
		registry: opts.Registry,
		timeout:  opts.Timeout,
		images:   opts.Images,
		parser:   parser,
		log:      logger.ForCrawler("PageCrawler"),
	}, nil
}

// Open creates a session with its own cookie jar
func (c *PageCrawler) Open(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		metrics.ObserveSession(c.Name, "open_failed")
		return nil, errors.NewSession(c.Name, "failed to start browser context", err)
	}

	session := newSession(c.Name, &pageState{client: helpers.NewSessionClient(c.timeout)})
	metrics.ObserveSession(c.Name, "open")
	c.log.Info().Str("session", session.ID).Msg("Starting browser context")
	return session, nil
}

// FetchAccommodationPage fetches and parses one accommodation page
func (c *PageCrawler) FetchAccommodationPage(ctx context.Context, session *Session, pageURL string) (*FetchResult, error) {
	if err := checkSession(c.Name, session); err != nil {
		return nil, err
	}
	state, ok := session.state.(*pageState)
	if !ok {
		return nil, errors.NewSession(c.Name, "session "+session.ID+" has no HTTP client", nil)
	}

	start := time.Now()
	c.log.Info().Str("session", session.ID).Str("url", pageURL).Msg("Crawling")

	result, err := c.fetch(ctx, state.client, pageURL)
	metrics.ObserveFetch(c.Name, err, time.Since(start))
	if err != nil {
		return nil, errors.NewSession(c.Name, "failed to crawl "+pageURL, err)
	}
	return result, nil
}

func (c *PageCrawler) fetch(ctx context.Context, client *http.Client, pageURL string) (*FetchResult, error) {
	domain := hostOf(pageURL)
	if err := c.checkBlocked(domain); err != nil {
		return nil, err
	}

	language := defaultLanguage
	known, isKnown := c.lookup(pageURL)
	if isKnown && known.Language != "" {
		language = known.Language
	}

	body, err := helpers.FetchWithRandomHeaders(ctx, client, pageURL, language)
	if err != nil {
		c.markBlocked(domain, err)
		return nil, err
	}

	doc, err := c.createDocument(pageURL, body)
	if err != nil {
		return nil, err
	}

	data := c.parser.parse(doc, pageURL)
	return buildResult(ctx, c.images, client, pageURL, data, known, isKnown)
}

// Close releases the session's HTTP connections
func (c *PageCrawler) Close(session *Session) error {
	closed, err := session.release()
	if closed {
		metrics.ObserveSession(c.Name, "close")
		c.log.Info().Str("session", session.ID).Msg("Closing browser context")
	}
	return err
}

func (c *PageCrawler) lookup(pageURL string) (accommodation.Resolved, bool) {
	if c.registry == nil {
		return accommodation.Resolved{}, false
	}
	return c.registry.Lookup(pageURL)
}

// buildResult turns parsed page data into a FetchResult, falling back to the
// registry entry for the name and capacity and downloading the gallery
func buildResult(ctx context.Context, images *ImageDownloader, client *http.Client, pageURL string, data pageData, known accommodation.Resolved, isKnown bool) (*FetchResult, error) {
	id := helpers.LastPathSegment(pageURL)
	parkID := helpers.SegmentAfter(pageURL, "parks")

	name := data.Name
	capacity := data.Capacity
	if isKnown {
		if name == "" {
			name = known.Name
		}
		if capacity == 0 {
			capacity = known.Capacity
		}
		if parkID == "" {
			parkID = known.ParkID
		}
	}

	gallery, err := images.Download(ctx, client, parkID, id, data.ImageURLs)
	if err != nil {
		return nil, err
	}

	return &FetchResult{
		Success:         name != "",
		AccommodationID: id,
		Name:            name,
		ParkID:          parkID,
		Type:            helpers.AccommodationType(id),
		URL:             pageURL,
		Capacity:        Capacity{MaxPersons: capacity},
		Images: Images{
			TotalCount: len(gallery),
			Gallery:    gallery,
		},
		CrawledAt: time.Now(),
	}, nil
}

func withDefaultSelectors(s PageSelectors) PageSelectors {
	if s.Name == "" {
		s.Name = DefaultSelectors.Name
	}
	if s.Gallery == "" {
		s.Gallery = DefaultSelectors.Gallery
	}
	if s.CapacityRegex == "" {
		s.CapacityRegex = DefaultSelectors.CapacityRegex
	}
	return s
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
