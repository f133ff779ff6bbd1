package crawler

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// pageData is what the parser reads from an accommodation page
type pageData struct {
	Name      string
	Capacity  int
	ImageURLs []string
}

// pageParser extracts accommodation data from a goquery document
type pageParser struct {
	selectors  PageSelectors
	capacityRe *regexp.Regexp
}

func newPageParser(selectors PageSelectors) (*pageParser, error) {
	re, err := regexp.Compile(selectors.CapacityRegex)
	if err != nil {
		return nil, err
	}
	return &pageParser{selectors: selectors, capacityRe: re}, nil
}

// parse reads the name, capacity and gallery image URLs of the page at pageURL
func (p *pageParser) parse(doc *goquery.Document, pageURL string) pageData {
	return pageData{
		Name:      p.name(doc),
		Capacity:  p.capacity(doc),
		ImageURLs: p.images(doc, pageURL),
	}
}

func (p *pageParser) name(doc *goquery.Document) string {
	if name := cleanText(doc.Find(p.selectors.Name).First().Text()); name != "" {
		return name
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(og) != "" {
		return cleanText(og)
	}
	return cleanText(doc.Find("title").First().Text())
}

// capacity returns the first person count mentioned on the page, or 0
func (p *pageParser) capacity(doc *goquery.Document) int {
	m := p.capacityRe.FindStringSubmatch(doc.Find("body").Text())
	if len(m) < 2 {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func (p *pageParser) images(doc *goquery.Document, pageURL string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var urls []string
	seen := make(map[string]struct{})
	add := func(raw string) {
		abs := absoluteURL(base, raw)
		if abs == "" {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		urls = append(urls, abs)
	}

	doc.Find(p.selectors.Gallery).Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
			if v, ok := s.Attr(attr); ok && v != "" {
				add(v)
				return
			}
		}
		if srcset, ok := s.Attr("srcset"); ok {
			add(largestSrcsetCandidate(srcset))
		}
	})

	if len(urls) == 0 {
		if og, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
			add(og)
		}
	}
	return urls
}

// largestSrcsetCandidate returns the last URL of a srcset, which is the widest by convention
func largestSrcsetCandidate(srcset string) string {
	candidates := strings.Split(srcset, ",")
	for i := len(candidates) - 1; i >= 0; i-- {
		if fields := strings.Fields(candidates[i]); len(fields) > 0 {
			return fields[0]
		}
	}
	return ""
}

// absoluteURL resolves raw against base and keeps only http(s) URLs
func absoluteURL(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "data:") {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	abs.Fragment = ""
	return abs.String()
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
