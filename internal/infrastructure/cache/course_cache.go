// Package cache holds short-lived in-process caches.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/coursereg/registration-system/internal/core/domain"
	"github.com/coursereg/registration-system/internal/core/ports"
)

const (
	DefaultCatalogTTL = 5 * time.Second
	catalogKey        = "catalog:all"
)

// CourseListCache caches the full catalog listing. Enrollment counts in the
// listing may lag by at most the TTL; every ledger write invalidates it.
type CourseListCache struct {
	cache *gocache.Cache
}

// NewCourseListCache returns a cache whose entries expire after ttl.
// A non-positive ttl uses DefaultCatalogTTL.
func NewCourseListCache(ttl time.Duration) *CourseListCache {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &CourseListCache{cache: gocache.New(ttl, 2*ttl)}
}

var _ ports.CourseListCache = (*CourseListCache)(nil)

func (c *CourseListCache) Get() ([]*domain.Course, bool) {
	v, found := c.cache.Get(catalogKey)
	if !found {
		return nil, false
	}
	courses, ok := v.([]*domain.Course)
	return courses, ok
}

func (c *CourseListCache) Set(courses []*domain.Course) {
	c.cache.SetDefault(catalogKey, courses)
}

func (c *CourseListCache) Invalidate() {
	c.cache.Delete(catalogKey)
}
