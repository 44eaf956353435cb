package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reglet-dev/xrrlab/internal/domain/entities"
)

func TestProfileCache(t *testing.T) {
	c := NewProfileCache(2)
	a, b, d := &entities.DensityProfile{}, &entities.DensityProfile{}, &entities.DensityProfile{}

	c.Add("a", a)
	c.Add("b", b)
	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Same(t, a, got)

	c.Add("d", d) // evicts b, the least recently used
	_, ok = c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestNewProfileCache_DefaultSize(t *testing.T) {
	c := NewProfileCache(0)
	for i := 0; i < DefaultProfileCacheSize+5; i++ {
		c.Add(string(rune('A'+i)), &entities.DensityProfile{})
	}
	assert.Equal(t, DefaultProfileCacheSize, c.Len())
}
