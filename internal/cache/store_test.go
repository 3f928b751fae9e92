package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lakekeeper/catalog/internal/cache"
)

func TestStore_PutThenGet(t *testing.T) {
	s := cache.NewStore[string, int](10, 0)

	s.Put("a", "Alpha", 1, 1)

	v, ok := s.Get("a", cache.Use, 0)
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.EqualValues(t, 1, s.Hits())
}

func TestStore_GetByName_IsCaseInsensitive(t *testing.T) {
	s := cache.NewStore[string, int](10, 0)
	s.Put("a", "Alpha", 1, 1)

	v, ok := s.GetByName("ALPHA", cache.Use, 0)
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestStore_Get_MissIncrementsMisses(t *testing.T) {
	s := cache.NewStore[string, int](10, 0)

	_, ok := s.Get("missing", cache.Use, 0)
	assert.False(t, ok)
	assert.EqualValues(t, 1, s.Misses())
}

func TestStore_Skip_AlwaysMisses(t *testing.T) {
	s := cache.NewStore[string, int](10, 0)
	s.Put("a", "Alpha", 1, 1)

	_, ok := s.Get("a", cache.Skip, 0)
	assert.False(t, ok)
}

func TestStore_RequireMinimumVersion(t *testing.T) {
	s := cache.NewStore[string, int](10, 0)
	s.Put("a", "Alpha", 1, 5)

	_, ok := s.Get("a", cache.RequireMinimumVersion, 10)
	assert.False(t, ok, "cached version 5 should not satisfy a floor of 10")

	v, ok := s.Get("a", cache.RequireMinimumVersion, 5)
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestStore_Put_StaleWriteLoses(t *testing.T) {
	s := cache.NewStore[string, int](10, 0)
	s.Put("a", "Alpha", 100, 5)
	s.Put("a", "Alpha", 999, 3) // stale, should be ignored

	v, ok := s.Get("a", cache.Use, 0)
	assert.True(t, ok)
	assert.Equal(t, 100, v)
}

func TestStore_Put_RenameDropsOldNameMapping(t *testing.T) {
	s := cache.NewStore[string, int](10, 0)
	s.Put("a", "OldName", 1, 1)
	s.Put("a", "NewName", 1, 2)

	_, ok := s.GetByName("OldName", cache.Use, 0)
	assert.False(t, ok)

	v, ok := s.GetByName("NewName", cache.Use, 0)
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestStore_Invalidate(t *testing.T) {
	s := cache.NewStore[string, int](10, 0)
	s.Put("a", "Alpha", 1, 1)

	s.Invalidate("a")

	_, ok := s.Get("a", cache.Use, 0)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Size())
}

func TestStore_EvictsOverCapacity_LRU(t *testing.T) {
	s := cache.NewStore[string, int](2, 0)

	s.Put("a", "A", 1, 1)
	s.Put("b", "B", 2, 1)
	s.Put("c", "C", 3, 1) // evicts "a", the least recently used

	_, ok := s.Get("a", cache.Use, 0)
	assert.False(t, ok)

	_, ok = s.Get("b", cache.Use, 0)
	assert.True(t, ok)

	_, ok = s.Get("c", cache.Use, 0)
	assert.True(t, ok)

	assert.Equal(t, 2, s.Size())
}

func TestStore_TTLExpiry(t *testing.T) {
	s := cache.NewStore[string, int](10, time.Millisecond)
	s.Put("a", "Alpha", 1, 1)

	time.Sleep(5 * time.Millisecond)

	_, ok := s.Get("a", cache.Use, 0)
	assert.False(t, ok)
}
