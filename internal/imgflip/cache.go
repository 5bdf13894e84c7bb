package imgflip

import (
	"context"
	"sync"
	"time"

	"github.com/replyguy/memegen/internal/tracker"
)

// Catalog supplies meme template candidates.
type Catalog interface {
	PopularTemplates(ctx context.Context) ([]tracker.Template, error)
}

// CachedCatalog decorates a Catalog with a process-local TTL cache. The
// catalog is the same for every user and changes rarely, so one cached copy
// per process is enough. A refresh failure serves the stale copy when one
// exists rather than failing the request.
type CachedCatalog struct {
	catalog Catalog
	ttl     time.Duration
	now     func() time.Time

	mu        sync.Mutex
	templates []tracker.Template
	fetchedAt time.Time
}

// NewCachedCatalog creates a catalog cache with the given TTL.
func NewCachedCatalog(catalog Catalog, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		catalog: catalog,
		ttl:     ttl,
		now:     time.Now,
	}
}

// PopularTemplates returns the cached template list, refreshing it from the
// underlying catalog once the TTL has elapsed.
func (c *CachedCatalog) PopularTemplates(ctx context.Context) ([]tracker.Template, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.templates != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.templates, nil
	}

	templates, err := c.catalog.PopularTemplates(ctx)
	if err != nil {
		if c.templates != nil {
			return c.templates, nil
		}

		return nil, err
	}

	c.templates = templates
	c.fetchedAt = c.now()

	return templates, nil
}
