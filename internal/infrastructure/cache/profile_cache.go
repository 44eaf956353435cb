// Package cache provides bounded in-process caches.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/reglet-dev/xrrlab/internal/application/ports"
	"github.com/reglet-dev/xrrlab/internal/domain/entities"
)

// DefaultProfileCacheSize is used when a non-positive size is requested.
const DefaultProfileCacheSize = 64

var _ ports.ProfileCache = (*ProfileCache)(nil)

// ProfileCache keeps the most recently synthesized density profiles by stack fingerprint.
// Cached profiles are shared and must not be modified.
type ProfileCache struct {
	lru *lru.Cache[string, *entities.DensityProfile]
}

// NewProfileCache creates a cache holding up to size profiles.
func NewProfileCache(size int) *ProfileCache {
	if size <= 0 {
		size = DefaultProfileCacheSize
	}
	c, _ := lru.New[string, *entities.DensityProfile](size) // only fails for size <= 0
	return &ProfileCache{lru: c}
}

// Get returns a cached profile.
func (c *ProfileCache) Get(key string) (*entities.DensityProfile, bool) {
	return c.lru.Get(key)
}

// Add stores a profile, evicting the least recently used one when full.
func (c *ProfileCache) Add(key string, profile *entities.DensityProfile) {
	c.lru.Add(key, profile)
}

// Len returns the number of cached profiles.
func (c *ProfileCache) Len() int {
	return c.lru.Len()
}
