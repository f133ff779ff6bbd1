package crawler

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"campcompass/roompotcrawler/pkg/errors"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBrowserCrawler(t *testing.T) *BrowserCrawler {
	t.Helper()
	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("Skipping test: no Chromium binary found")
	}

	c, err := NewBrowserCrawler(BrowserOptions{
		Options:  Options{Timeout: 20 * time.Second},
		Bin:      bin,
		Headless: true,
	})
	require.NoError(t, err)
	return c
}

func TestBrowserCrawlerFetch(t *testing.T) {
	c := newTestBrowserCrawler(t)

	html := `<html><body>
		<h1>Lodge 4</h1>
		<p>max. 4 Personen</p>
		<div class="gallery"><img src="/img/1.png"></div>
	</body></html>`
	server := newSiteServer(t, html)
	c.registry = registryFor(t, server.URL)

	ctx := context.Background()
	session, err := c.Open(ctx)
	require.NoError(t, err)
	defer c.Close(session)

	result, err := c.FetchAccommodationPage(ctx, session, server.URL+"/parks/water-village/unterkuenfte/lodge-4")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Lodge 4", result.Name)
	assert.Equal(t, 4, result.Capacity.MaxPersons)
	assert.Equal(t, 1, result.Images.TotalCount)
	assert.Equal(t, "lodge_4_gallery_001.png", result.Images.Gallery[0].Filename)

	require.NoError(t, c.Close(session))
	assert.False(t, session.IsOpen())
	assert.NoError(t, c.Close(session))
}

func TestBrowserCrawlerSessionChecks(t *testing.T) {
	c, err := NewBrowserCrawler(BrowserOptions{})
	require.NoError(t, err)

	_, err = c.FetchAccommodationPage(context.Background(), nil, lodgeURL)
	assert.True(t, stderrors.Is(err, errors.ErrSession))
	assert.NoError(t, c.Close(nil))
}

func TestBrowserCrawlerOpenFailure(t *testing.T) {
	c, err := NewBrowserCrawler(BrowserOptions{Bin: "/nonexistent/chromium", Headless: true})
	require.NoError(t, err)

	_, err = c.Open(context.Background())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrSession))
}
