package helpers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"net/http/cookiejar"
	"slices"
	"time"

	"campcompass/roompotcrawler/pkg/errors"

	"golang.org/x/net/html/charset"
)

// HTTP header configurations
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	}

	referers = []string{
		"https://www.google.de/",
		"https://www.google.com/",
		"https://www.roompot.de/",
	}

	acceptLanguages = map[string]string{
		"de": "de-DE,de;q=0.9,en-US;q=0.8,en;q=0.7",
		"nl": "nl-NL,nl;q=0.9,en-US;q=0.8,en;q=0.7",
		"en": "en-US,en;q=0.9",
	}
)

// NewSessionClient creates an HTTP client with its own cookie jar.
// Each crawler session gets one so cookies never leak between sessions.
func NewSessionClient(timeout time.Duration) *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{
		Timeout: timeout,
		Jar:     jar,
	}
}

// RandomUserAgent returns one of the browser user agents
func RandomUserAgent() string {
	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	return userAgents[rnd.Intn(len(userAgents))]
}

// AcceptLanguage returns the Accept-Language header value for a site language
func AcceptLanguage(language string) string {
	if v, ok := acceptLanguages[language]; ok {
		return v
	}
	return acceptLanguages["en"]
}

// FetchBytes sends a plain GET request and returns the raw body with its headers
func FetchBytes(ctx context.Context, client *http.Client, url string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", RandomUserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, errors.NewNetwork(url, "failed to fetch URL", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, errors.NewNetwork(url, fmt.Sprintf("fetchBytes unexpected status code: %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, errors.NewNetwork(url, "failed to read response body", err)
	}

	return data, resp.Header, nil
}

// FetchWithRandomHeaders sends an HTTP GET request with randomized browser headers,
// converts the response body to UTF-8 (if needed), and returns it as an io.Reader.
func FetchWithRandomHeaders(ctx context.Context, client *http.Client, url, language string) (io.Reader, error) {
	// Create a new random number generator for header selection
	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set browser-like headers
	req.Header.Set("User-Agent", userAgents[rnd.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", AcceptLanguage(language))
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("referer", referers[rnd.Intn(len(referers))])
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("upgrade-insecure-requests", "1")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Sec-Fetch-User", "?1")

	// Send the request
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.NewNetwork(url, "failed to fetch URL", err)
	}
	defer resp.Body.Close()

	// Check for rate limiting
	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode) {
		retryAfter := resp.Header.Get("Retry-After")
		return nil, errors.New(errors.ErrorTypeRateLimit, url, "rate limited; retry after "+retryAfter, nil)
	}

	// Check for other error status codes
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewNetwork(url, fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
	}

	// Read the entire response body
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewNetwork(url, "failed to read response body", err)
	}

	return ToUTF8(bodyBytes, resp.Header.Get("Content-Type"))
}

// ToUTF8 converts an HTML body to UTF-8 based on its Content-Type and content
func ToUTF8(body []byte, contentType string) (io.Reader, error) {
	// Determine the encoding from Content-Type header and body content
	encoding, name, _ := charset.DetermineEncoding(body, contentType)

	// If already UTF-8, return as is
	if name == "utf-8" || name == "UTF-8" {
		return bytes.NewReader(body), nil
	}

	// Convert to UTF-8 if necessary
	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(body))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, fmt.Errorf("failed to read converted UTF-8 body: %w", err)
	}

	return &buf, nil
}
