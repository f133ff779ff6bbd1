package crawler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"campcompass/roompotcrawler/helpers"
	"campcompass/roompotcrawler/internal/accommodation"
	"campcompass/roompotcrawler/logger"
	"campcompass/roompotcrawler/pkg/errors"
	"campcompass/roompotcrawler/services/metrics"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserOptions configures the headless browser
type BrowserOptions struct {
	Options
	Bin      string
	Headless bool
}

// BrowserCrawler renders accommodation pages in headless Chromium
type BrowserCrawler struct {
	BaseCrawler
	registry *accommodation.Registry
	timeout  time.Duration
	images   *ImageDownloader
	parser   *pageParser
	bin      string
	headless bool
	log      *logger.Logger
}

// browserState owns one browser process and its user-data dir
type browserState struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	client   *http.Client
}

func (s *browserState) close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	s.launcher.Kill()
	s.launcher.Cleanup()
	s.client.CloseIdleConnections()
	return err
}

// NewBrowserCrawler creates a new rod-backed crawler
func NewBrowserCrawler(opts BrowserOptions) (*BrowserCrawler, error) {
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

	return &BrowserCrawler{
		BaseCrawler: BaseCrawler{
			Name:      "BrowserCrawler",
			CacheSvc:  opts.Cache,
			BlockTime: opts.BlockTime,
		},
		registry: opts.Registry,
		timeout:  opts.Timeout,
		images:   opts.Images,
		parser:   parser,
		bin:      opts.Bin,
		headless: opts.Headless,
		log:      logger.ForCrawler("BrowserCrawler"),
	}, nil
}

// Open launches a browser process for the session
func (c *BrowserCrawler) Open(ctx context.Context) (*Session, error) {
	c.log.Info().Msg("Starting browser context")

	l := launcher.New().Context(ctx).Headless(c.headless).NoSandbox(true)
	if c.bin != "" {
		l = l.Bin(c.bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		l.Cleanup()
		metrics.ObserveSession(c.Name, "open_failed")
		return nil, errors.NewSession(c.Name, "failed to launch browser", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		metrics.ObserveSession(c.Name, "open_failed")
		return nil, errors.NewSession(c.Name, "failed to connect to browser", err)
	}

	session := newSession(c.Name, &browserState{
		launcher: l,
		browser:  browser,
		client:   helpers.NewSessionClient(c.timeout),
	})
	metrics.ObserveSession(c.Name, "open")
	c.log.Info().Str("session", session.ID).Str("control_url", controlURL).Msg("Browser context ready")
	return session, nil
}

// FetchAccommodationPage renders the page in a new tab and parses it
func (c *BrowserCrawler) FetchAccommodationPage(ctx context.Context, session *Session, pageURL string) (*FetchResult, error) {
	if err := checkSession(c.Name, session); err != nil {
		return nil, err
	}
	state, ok := session.state.(*browserState)
	if !ok {
		return nil, errors.NewSession(c.Name, "session "+session.ID+" has no browser", nil)
	}

	start := time.Now()
	c.log.Info().Str("session", session.ID).Str("url", pageURL).Msg("Crawling")

	result, err := c.fetch(ctx, state, pageURL)
	metrics.ObserveFetch(c.Name, err, time.Since(start))
	if err != nil {
		return nil, errors.NewSession(c.Name, "failed to crawl "+pageURL, err)
	}
	return result, nil
}

func (c *BrowserCrawler) fetch(ctx context.Context, state *browserState, pageURL string) (*FetchResult, error) {
	domain := hostOf(pageURL)
	if err := c.checkBlocked(domain); err != nil {
		return nil, err
	}

	language := defaultLanguage
	var known accommodation.Resolved
	isKnown := false
	if c.registry != nil {
		known, isKnown = c.registry.Lookup(pageURL)
		if isKnown && known.Language != "" {
			language = known.Language
		}
	}

	html, err := c.render(ctx, state.browser, pageURL, language)
	if err != nil {
		c.markBlocked(domain, err)
		return nil, err
	}

	doc, err := c.createDocument(pageURL, strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	data := c.parser.parse(doc, pageURL)
	return buildResult(ctx, c.images, state.client, pageURL, data, known, isKnown)
}

// render navigates a fresh tab to pageURL and returns the rendered HTML
func (c *BrowserCrawler) render(ctx context.Context, browser *rod.Browser, pageURL, language string) (string, error) {
	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", errors.NewNetwork(pageURL, "failed to open tab", err)
	}
	defer page.Close()

	err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      helpers.RandomUserAgent(),
		AcceptLanguage: helpers.AcceptLanguage(language),
	})
	if err != nil {
		return "", errors.NewNetwork(pageURL, "error setting user agent", err)
	}

	e := proto.NetworkResponseReceived{}
	wait := page.WaitEvent(&e)
	if err := page.Timeout(c.timeout).Navigate(pageURL); err != nil {
		return "", errors.NewNetwork(pageURL, "navigation failed", err)
	}
	wait()

	if e.Response != nil {
		switch status := e.Response.Status; {
		case status == http.StatusTooManyRequests || status == 430:
			return "", errors.New(errors.ErrorTypeRateLimit, pageURL, "rate limited", nil)
		case status != 0 && (status < 200 || status > 299):
			return "", errors.NewNetwork(pageURL, fmt.Sprintf("unexpected status code: %d", status), nil)
		}
	}

	if err := page.Timeout(c.timeout).WaitLoad(); err != nil {
		return "", errors.NewNetwork(pageURL, "page did not load", err)
	}

	html, err := page.HTML()
	if err != nil {
		return "", errors.NewParsing(pageURL, "failed to read page HTML", err)
	}
	return html, nil
}

// Close shuts the browser down and removes its user-data dir
func (c *BrowserCrawler) Close(session *Session) error {
	closed, err := session.release()
	if closed {
		metrics.ObserveSession(c.Name, "close")
		c.log.Info().Str("session", session.ID).Msg("Closing browser context")
	}
	if err != nil {
		return errors.NewSession(c.Name, "failed to close browser", err)
	}
	return nil
}
