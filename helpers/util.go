package helpers

import (
	"net/url"
	"strings"
	"unicode"
)

// PathSegments returns the path segments of a URL, skipping empty and dot segments
func PathSegments(rawURL string) ([]string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	var segments []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" && s != "." && s != ".." {
			segments = append(segments, s)
		}
	}
	return segments, nil
}

// LastPathSegment returns the final path segment of a URL
func LastPathSegment(rawURL string) string {
	segments, err := PathSegments(rawURL)
	if err != nil || len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}

// SegmentAfter returns the path segment that follows marker, e.g. the park
// slug after "parks" in /parks/water-village/unterkuenfte/lodge-4
func SegmentAfter(rawURL, marker string) string {
	segments, err := PathSegments(rawURL)
	if err != nil {
		return ""
	}
	for i, s := range segments {
		if s == marker && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	return ""
}

// AccommodationType derives the type from an accommodation id by dropping
// trailing segments that contain digits: "beach-house-6a" -> "beach_house"
func AccommodationType(id string) string {
	parts := strings.Split(id, "-")
	end := len(parts)
	for end > 0 && strings.IndexFunc(parts[end-1], unicode.IsDigit) >= 0 {
		end--
	}
	if end == 0 {
		return id
	}
	return strings.Join(parts[:end], "_")
}

// Slug turns an accommodation id into a filename-friendly prefix: "lodge-4" -> "lodge_4"
func Slug(id string) string {
	return strings.ReplaceAll(strings.ToLower(id), "-", "_")
}
