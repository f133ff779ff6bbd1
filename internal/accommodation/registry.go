package accommodation

import (
	"fmt"

	"campcompass/roompotcrawler/pkg/errors"
)

// Descriptor describes one bookable unit inside a category
type Descriptor struct {
	Name      string `json:"name"`
	URLSuffix string `json:"url_suffix"`
	Capacity  int    `json:"capacity"`
}

// Category groups accommodations that share a park, base URL and language
type Category struct {
	Key            string       `json:"category"`
	ParkID         string       `json:"park_id"`
	BaseURL        string       `json:"base_url"`
	Domain         string       `json:"domain"`
	Language       string       `json:"language"`
	Accommodations []Descriptor `json:"accommodations"`
}

// Resolved is an accommodation flattened together with its category data
type Resolved struct {
	Category  string `json:"category"`
	Name      string `json:"name"`
	URLSuffix string `json:"url_suffix"`
	Capacity  int    `json:"capacity"`
	ParkID    string `json:"park_id"`
	Language  string `json:"language"`
	FullURL   string `json:"full_url"`
}

// Registry is a read-only lookup table of crawl targets.
// Categories keep their declaration order.
type Registry struct {
	categories []Category
	index      map[string]int
}

// NewRegistry validates the given categories and builds a registry from them
func NewRegistry(categories ...Category) (*Registry, error) {
	r := &Registry{
		categories: make([]Category, 0, len(categories)),
		index:      make(map[string]int, len(categories)),
	}

	for _, c := range categories {
		if c.Key == "" {
			return nil, errors.NewValidation("registry", "category key must not be empty")
		}
		if _, exists := r.index[c.Key]; exists {
			return nil, errors.NewValidation(c.Key, "duplicate category key")
		}

		type pair struct{ name, suffix string }
		seen := make(map[pair]struct{}, len(c.Accommodations))
		for _, a := range c.Accommodations {
			p := pair{a.Name, a.URLSuffix}
			if _, dup := seen[p]; dup {
				return nil, errors.NewValidation(c.Key, fmt.Sprintf("duplicate accommodation %q (%s)", a.Name, a.URLSuffix))
			}
			seen[p] = struct{}{}
			if a.Capacity <= 0 {
				return nil, errors.NewValidation(c.Key, fmt.Sprintf("accommodation %q must have a positive capacity", a.Name))
			}
		}

		c.Accommodations = append([]Descriptor(nil), c.Accommodations...)
		r.index[c.Key] = len(r.categories)
		r.categories = append(r.categories, c)
	}

	return r, nil
}

// ResolveURL returns the crawl URL of an accommodation.
// The identifier matches either the display name or the URL suffix; the first
// match in declaration order wins. The URL is base_url + url_suffix as-is.
func (r *Registry) ResolveURL(category, accommodation string) (string, error) {
	resolved, err := r.Resolve(category, accommodation)
	if err != nil {
		return "", err
	}
	return resolved.FullURL, nil
}

// Resolve is like ResolveURL but returns the whole flattened record
func (r *Registry) Resolve(category, accommodation string) (Resolved, error) {
	i, ok := r.index[category]
	if !ok {
		return Resolved{}, errors.NewUnknownCategory(category)
	}

	c := r.categories[i]
	for _, a := range c.Accommodations {
		if a.Name == accommodation || a.URLSuffix == accommodation {
			return resolve(c, a), nil
		}
	}

	return Resolved{}, errors.NewAccommodationNotFound(category, accommodation)
}

// ListAll returns every accommodation across all categories, in category
// declaration order and then accommodation declaration order
func (r *Registry) ListAll() []Resolved {
	var all []Resolved
	for _, c := range r.categories {
		for _, a := range c.Accommodations {
			all = append(all, resolve(c, a))
		}
	}
	return all
}

// Lookup finds the accommodation whose full URL equals rawURL
func (r *Registry) Lookup(rawURL string) (Resolved, bool) {
	for _, c := range r.categories {
		for _, a := range c.Accommodations {
			if c.BaseURL+a.URLSuffix == rawURL {
				return resolve(c, a), true
			}
		}
	}
	return Resolved{}, false
}

// Categories returns the category keys in declaration order
func (r *Registry) Categories() []string {
	keys := make([]string, 0, len(r.categories))
	for _, c := range r.categories {
		keys = append(keys, c.Key)
	}
	return keys
}

// Category returns a copy of the category registered under key
func (r *Registry) Category(key string) (Category, bool) {
	i, ok := r.index[key]
	if !ok {
		return Category{}, false
	}
	c := r.categories[i]
	c.Accommodations = append([]Descriptor(nil), c.Accommodations...)
	return c, true
}

func resolve(c Category, a Descriptor) Resolved {
	return Resolved{
		Category:  c.Key,
		Name:      a.Name,
		URLSuffix: a.URLSuffix,
		Capacity:  a.Capacity,
		ParkID:    c.ParkID,
		Language:  c.Language,
		FullURL:   c.BaseURL + a.URLSuffix,
	}
}
