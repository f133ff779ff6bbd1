package internal

import (
	"campcompass/roompotcrawler/services/cache"
	"campcompass/roompotcrawler/services/publisher"
)

// Dependencies holds all service dependencies.
// Either field may be nil when the service is disabled or unreachable.
type Dependencies struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
}
