package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"campcompass/roompotcrawler/helpers"
	"campcompass/roompotcrawler/logger"
	"campcompass/roompotcrawler/pkg/errors"
	"campcompass/roompotcrawler/services/metrics"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ImageOptions configures gallery downloads
type ImageOptions struct {
	Enabled   bool
	Dir       string
	MaxImages int
	Workers   int
	RPS       int
}

// ImageDownloader stores gallery images under Dir/<park>/<accommodation>/
type ImageDownloader struct {
	opts    ImageOptions
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewImageDownloader creates a downloader bounded by opts.Workers concurrent
// downloads and opts.RPS requests per second
func NewImageDownloader(opts ImageOptions) *ImageDownloader {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.RPS <= 0 {
		opts.RPS = 1
	}
	return &ImageDownloader{
		opts:    opts,
		sem:     semaphore.NewWeighted(int64(opts.Workers)),
		limiter: rate.NewLimiter(rate.Limit(opts.RPS), opts.RPS),
		log:     logger.ForCrawler("ImageDownloader"),
	}
}

type downloaded struct {
	url         string
	data        []byte
	contentType string
	ext         string
}

// Download fetches the gallery images and returns them numbered in page order.
// Images that fail to download or are not images are skipped.
// When downloads are disabled the planned filenames are returned with zero size.
func (d *ImageDownloader) Download(ctx context.Context, client *http.Client, parkID, accommodationID string, urls []string) ([]Image, error) {
	if d.opts.MaxImages > 0 && len(urls) > d.opts.MaxImages {
		urls = urls[:d.opts.MaxImages]
	}
	slug := helpers.Slug(accommodationID)

	if !d.opts.Enabled {
		gallery := make([]Image, 0, len(urls))
		for i, u := range urls {
			gallery = append(gallery, Image{
				Filename:    galleryFilename(slug, i+1, extFromURL(u)),
				OriginalURL: u,
			})
		}
		return gallery, nil
	}

	for _, seg := range []string{parkID, accommodationID} {
		if seg != "" && (!filepath.IsLocal(seg) || strings.ContainsAny(seg, `/\`)) {
			return nil, errors.NewValidation(seg, "path segment escapes the image directory")
		}
	}
	dir := filepath.Join(d.opts.Dir, parkID, accommodationID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.New(errors.ErrorTypeValidation, dir, "failed to create image directory", err)
	}

	results := make([]*downloaded, len(urls))
	var wg sync.WaitGroup
	for i, u := range urls {
		if err := d.sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			defer d.sem.Release(1)

			img, err := d.fetch(ctx, client, u)
			if err != nil {
				d.log.Warn().Err(err).Str("url", u).Msg("skipping gallery image")
				return
			}
			results[i] = img
		}(i, u)
	}
	wg.Wait()

	var gallery []Image
	for _, img := range results {
		if img == nil {
			continue
		}
		name := galleryFilename(slug, len(gallery)+1, img.ext)
		if err := os.WriteFile(filepath.Join(dir, name), img.data, 0o644); err != nil {
			d.log.Warn().Err(err).Str("file", name).Msg("failed to store gallery image")
			continue
		}
		gallery = append(gallery, Image{
			Filename:    name,
			SizeBytes:   int64(len(img.data)),
			OriginalURL: img.url,
			ContentType: img.contentType,
		})
	}

	metrics.ObserveImages(len(gallery))
	if err := ctx.Err(); err != nil {
		return gallery, err
	}
	return gallery, nil
}

func (d *ImageDownloader) fetch(ctx context.Context, client *http.Client, u string) (*downloaded, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	data, _, err := helpers.FetchBytes(ctx, client, u)
	if err != nil {
		return nil, err
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, errors.NewParsing(u, "not an image: "+mt.String(), nil)
	}
	return &downloaded{url: u, data: data, contentType: mt.String(), ext: mt.Extension()}, nil
}

func galleryFilename(slug string, n int, ext string) string {
	return fmt.Sprintf("%s_gallery_%03d%s", slug, n, ext)
}

func extFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ".jpg"
	}
	switch ext := strings.ToLower(path.Ext(u.Path)); ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif", ".avif":
		return ext
	}
	return ".jpg"
}
