package crawler

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"campcompass/roompotcrawler/logger"
	"campcompass/roompotcrawler/pkg/errors"
	"campcompass/roompotcrawler/services/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBaseCrawler tests the rate limit marker handling
func TestBaseCrawler(t *testing.T) {
	mockCache := NewMockCacheService()
	crawler := BaseCrawler{
		Name:      "TestCrawler",
		CacheSvc:  mockCache,
		BlockTime: 90 * time.Second,
	}
	assert.Equal(t, "TestCrawler", crawler.GetName())

	assert.NoError(t, crawler.checkBlocked("roompot.de"))

	// Non rate limit errors never set the marker
	crawler.markBlocked("roompot.de", errors.NewNetwork("roompot.de", "boom", nil))
	assert.NoError(t, crawler.checkBlocked("roompot.de"))

	crawler.markBlocked("roompot.de", errors.New(errors.ErrorTypeRateLimit, "roompot.de", "rate limited", nil))
	assert.Equal(t, []byte("90"), mockCache.cache[cache.RateLimitKey("roompot.de")])

	err := crawler.checkBlocked("roompot.de")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRateLimit))

	// Other domains are not affected
	assert.NoError(t, crawler.checkBlocked("roompot.nl"))
}

func TestBaseCrawlerWithoutCache(t *testing.T) {
	crawler := BaseCrawler{Name: "TestCrawler"}

	crawler.markBlocked("roompot.de", errors.NewRateLimit("roompot.de", time.Minute))
	assert.NoError(t, crawler.checkBlocked("roompot.de"))
}

func TestBaseCrawlerLogsMarkerWriteFailure(t *testing.T) {
	var buf bytes.Buffer
	previous := logger.Default
	logger.Default = logger.New(&buf)
	defer func() { logger.Default = previous }()

	mockCache := NewMockCacheService()
	mockCache.setErr = &mockError{message: "server unavailable"}
	crawler := BaseCrawler{Name: "TestCrawler", CacheSvc: mockCache, BlockTime: time.Minute}

	crawler.markBlocked("roompot.de", errors.NewRateLimit("roompot.de", time.Minute))

	assert.Empty(t, mockCache.cache)
	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"crawler":"TestCrawler"`)
	assert.Contains(t, out, "[cache] roompot_rate_limited:roompot.de")
	assert.Contains(t, out, "server unavailable")
}

func TestCreateDocument(t *testing.T) {
	crawler := BaseCrawler{}

	doc, err := crawler.createDocument(lodgeURL, strings.NewReader("<html><body><h1>Lodge 4</h1></body></html>"))
	require.NoError(t, err)
	assert.Equal(t, "Lodge 4", doc.Find("h1").Text())
}
