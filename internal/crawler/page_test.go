package crawler

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"campcompass/roompotcrawler/internal/accommodation"
	"campcompass/roompotcrawler/pkg/errors"
	"campcompass/roompotcrawler/services/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSiteServer serves a lodge page under /parks/water-village/unterkuenfte/lodge-4
// whose gallery points back at the server's images
func newSiteServer(t *testing.T, html string) *httptest.Server {
	t.Helper()
	pngData := testPNG(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/parks/water-village/unterkuenfte/lodge-4", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(html))
	})
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) { w.Write(pngData) })
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// registryFor builds a registry whose lodge category points at baseURL
func registryFor(t *testing.T, baseURL string) *accommodation.Registry {
	t.Helper()
	r, err := accommodation.NewRegistry(accommodation.Category{
		Key:      accommodation.LodgesWaterVillage,
		ParkID:   "water-village",
		BaseURL:  baseURL + "/parks/water-village/unterkuenfte/",
		Domain:   "roompot.de",
		Language: "de",
		Accommodations: []accommodation.Descriptor{
			{Name: "Lodge 4", URLSuffix: "lodge-4", Capacity: 4},
		},
	})
	require.NoError(t, err)
	return r
}

func TestPageCrawlerFetch(t *testing.T) {
	html := `<html><body>
		<h1>Lodge 4</h1>
		<p>Für bis zu 4 Personen</p>
		<div class="gallery"><img src="/img/1.png"><img src="/img/2.png"></div>
	</body></html>`
	server := newSiteServer(t, html)
	pageURL := server.URL + "/parks/water-village/unterkuenfte/lodge-4"

	c, err := NewPageCrawler(Options{
		Registry: registryFor(t, server.URL),
		Timeout:  5 * time.Second,
		Images:   NewImageDownloader(ImageOptions{Enabled: true, Dir: t.TempDir(), MaxImages: 10, Workers: 2, RPS: 100}),
	})
	require.NoError(t, err)

	ctx := context.Background()
	session, err := c.Open(ctx)
	require.NoError(t, err)
	defer c.Close(session)

	result, err := c.FetchAccommodationPage(ctx, session, pageURL)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "lodge-4", result.AccommodationID)
	assert.Equal(t, "Lodge 4", result.Name)
	assert.Equal(t, "water-village", result.ParkID)
	assert.Equal(t, "lodge", result.Type)
	assert.Equal(t, 4, result.Capacity.MaxPersons)
	assert.Equal(t, 2, result.Images.TotalCount)
	assert.Equal(t, "lodge_4_gallery_001.png", result.Images.Gallery[0].Filename)
	assert.Positive(t, result.Images.Gallery[0].SizeBytes)
}

func TestPageCrawlerRegistryFallback(t *testing.T) {
	// No h1, no title and no person count on the page
	server := newSiteServer(t, `<html><body><p>Coming soon</p></body></html>`)
	pageURL := server.URL + "/parks/water-village/unterkuenfte/lodge-4"

	c, err := NewPageCrawler(Options{Registry: registryFor(t, server.URL)})
	require.NoError(t, err)

	session, err := c.Open(context.Background())
	require.NoError(t, err)
	defer c.Close(session)

	result, err := c.FetchAccommodationPage(context.Background(), session, pageURL)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Lodge 4", result.Name)
	assert.Equal(t, 4, result.Capacity.MaxPersons)
	assert.Zero(t, result.Images.TotalCount)
}

func TestPageCrawlerUnknownPageWithoutName(t *testing.T) {
	server := newSiteServer(t, `<html><body></body></html>`)

	c, err := NewPageCrawler(Options{})
	require.NoError(t, err)

	session, err := c.Open(context.Background())
	require.NoError(t, err)
	defer c.Close(session)

	result, err := c.FetchAccommodationPage(context.Background(), session, server.URL+"/parks/water-village/unterkuenfte/lodge-4")
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestPageCrawlerSendsLanguage(t *testing.T) {
	var got atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("Accept-Language"))
		w.Write([]byte("<h1>Lodge 4</h1>"))
	}))
	defer server.Close()

	registry, err := accommodation.NewRegistry(accommodation.Category{
		Key:            "nl_lodges",
		BaseURL:        server.URL + "/parken/water-village/accommodaties/",
		Language:       "nl",
		Accommodations: []accommodation.Descriptor{{Name: "Lodge 4", URLSuffix: "lodge-4", Capacity: 4}},
	})
	require.NoError(t, err)

	c, err := NewPageCrawler(Options{Registry: registry})
	require.NoError(t, err)
	session, _ := c.Open(context.Background())
	defer c.Close(session)

	_, err = c.FetchAccommodationPage(context.Background(), session, server.URL+"/parken/water-village/accommodaties/lodge-4")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got.Load().(string), "nl-NL"))
}

func TestPageCrawlerRateLimit(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	mockCache := NewMockCacheService()
	c, err := NewPageCrawler(Options{Cache: mockCache, BlockTime: time.Minute})
	require.NoError(t, err)

	session, _ := c.Open(context.Background())
	defer c.Close(session)
	pageURL := server.URL + "/parks/water-village/unterkuenfte/lodge-4"

	_, err = c.FetchAccommodationPage(context.Background(), session, pageURL)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrSession))
	assert.True(t, stderrors.Is(err, errors.ErrRateLimit))

	_, marked := mockCache.cache[cache.RateLimitKey(hostOf(pageURL))]
	assert.True(t, marked)

	// The marker makes the next fetch fail without a request
	_, err = c.FetchAccommodationPage(context.Background(), session, pageURL)
	assert.True(t, stderrors.Is(err, errors.ErrRateLimit))
	assert.Equal(t, int32(1), hits.Load())
}

func TestPageCrawlerServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	mockCache := NewMockCacheService()
	c, err := NewPageCrawler(Options{Cache: mockCache, BlockTime: time.Minute})
	require.NoError(t, err)
	session, _ := c.Open(context.Background())
	defer c.Close(session)

	_, err = c.FetchAccommodationPage(context.Background(), session, server.URL+"/x")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNetwork))
	assert.Empty(t, mockCache.cache)
}

func TestPageCrawlerSessionChecks(t *testing.T) {
	c, err := NewPageCrawler(Options{})
	require.NoError(t, err)

	_, err = c.FetchAccommodationPage(context.Background(), nil, lodgeURL)
	assert.True(t, stderrors.Is(err, errors.ErrSession))

	fixtureSession, _ := NewFixtureCrawler().Open(context.Background())
	_, err = c.FetchAccommodationPage(context.Background(), fixtureSession, lodgeURL)
	assert.True(t, stderrors.Is(err, errors.ErrSession))

	session, _ := c.Open(context.Background())
	assert.NoError(t, c.Close(session))
	assert.NoError(t, c.Close(session))
	_, err = c.FetchAccommodationPage(context.Background(), session, lodgeURL)
	assert.True(t, stderrors.Is(err, errors.ErrSession))
}

func TestNewPageCrawlerInvalidPattern(t *testing.T) {
	_, err := NewPageCrawler(Options{Selectors: PageSelectors{CapacityRegex: "("}})
	assert.True(t, stderrors.Is(err, errors.ErrConfiguration))
}
