package crawler

import (
	"context"
	"time"
)

// FetchResult is what a crawler extracts from one accommodation page
type FetchResult struct {
	Success         bool      `json:"success"`
	AccommodationID string    `json:"accommodation_id"`
	Name            string    `json:"name"`
	ParkID          string    `json:"park_id"`
	Type            string    `json:"type"`
	URL             string    `json:"url,omitempty"`
	Capacity        Capacity  `json:"capacity"`
	Images          Images    `json:"images"`
	CrawledAt       time.Time `json:"crawled_at"`
}

// Capacity holds the occupancy limits of an accommodation
type Capacity struct {
	MaxPersons int `json:"max_persons"`
}

// Images summarizes the gallery of an accommodation
type Images struct {
	TotalCount int     `json:"total_count"`
	Gallery    []Image `json:"gallery"`
}

// Image is one stored gallery image
type Image struct {
	Filename    string `json:"filename"`
	SizeBytes   int64  `json:"size_bytes"`
	OriginalURL string `json:"original_url,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// Crawler interface defines the session contract of all crawler implementations
type Crawler interface {
	// Open creates a browser/network context for subsequent fetches
	Open(ctx context.Context) (*Session, error)

	// FetchAccommodationPage crawls one accommodation page using an open session
	FetchAccommodationPage(ctx context.Context, session *Session, url string) (*FetchResult, error)

	// Close releases the session. It is safe to call more than once and with nil.
	Close(session *Session) error

	// GetName returns the crawler's name for logging and identification
	GetName() string
}

// PageSelectors contains CSS selectors and patterns used to read an accommodation page
type PageSelectors struct {
	Name          string
	Gallery       string
	CapacityRegex string
}

// DefaultSelectors matches the roompot.de accommodation detail pages
var DefaultSelectors = PageSelectors{
	Name:          "h1",
	Gallery:       "[class*='gallery'] img, [class*='slider'] img, [class*='carousel'] img, picture source",
	CapacityRegex: `(?i)(?:max(?:imal)?\.?\s*)?(\d{1,2})\s*(?:personen|pers\.|persons|people)`,
}

// clone returns a deep copy so callers can't mutate fixture data
func (r *FetchResult) clone() *FetchResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Images.Gallery = append([]Image(nil), r.Images.Gallery...)
	return &c
}
