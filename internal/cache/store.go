package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// Store is a capacity-bounded, TTL-aware cache for one entity kind: a
// primary map from id to Entry, a secondary case-insensitive index from
// name to id, and an LRU eviction order. container/list is stdlib; no
// example in the corpus pulled in a third-party LRU package, and an LRU
// ring is small enough that reimplementing the teacher's "thin wrapper
// around a well-known primitive" style here means container/list rather
// than a bespoke structure (see DESIGN.md).
type Store[K comparable, V any] struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration

	byID   map[K]*list.Element
	byName map[string]K
	order  *list.List // list.Element.Value is *node[K,V]

	hits   uint64
	misses uint64
}

type node[K comparable, V any] struct {
	key   K
	name  string
	entry Entry[V]
}

// NewStore builds a Store with the given capacity and time-to-live. A
// non-positive capacity disables the size cap; a non-positive ttl disables
// age-based expiry.
func NewStore[K comparable, V any](capacity int, ttl time.Duration) *Store[K, V] {
	return &Store[K, V]{
		capacity: capacity,
		ttl:      ttl,
		byID:     make(map[K]*list.Element),
		byName:   make(map[string]K),
		order:    list.New(),
	}
}

// Get returns the cached entry for id per the given Freshness policy.
// minVersion is only consulted when freshness == RequireMinimumVersion.
// The bool result reports whether a usable cached entry was found; callers
// on a miss or stale hit must load from the source of truth and call Put.
func (s *Store[K, V]) Get(id K, freshness Freshness, minVersion int64) (V, bool) {
	var zero V

	if freshness == Skip {
		return zero, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.byID[id]
	if !ok {
		s.misses++
		return zero, false
	}

	n := el.Value.(*node[K, V])

	if n.entry.expired(time.Now(), s.ttl) {
		s.evictElement(el)
		s.misses++

		return zero, false
	}

	if freshness == RequireMinimumVersion && n.entry.Version < minVersion {
		s.misses++
		return zero, false
	}

	s.order.MoveToFront(el)
	s.hits++

	return n.entry.Value, true
}

// GetByName looks up id by its case-insensitively-matched name, then
// delegates to Get. Used for name-based catalog lookups (load_table,
// load_namespace) where the caller does not yet know the id.
func (s *Store[K, V]) GetByName(name string, freshness Freshness, minVersion int64) (V, bool) {
	var zero V

	if freshness == Skip {
		return zero, false
	}

	s.mu.Lock()
	id, ok := s.byName[strings.ToLower(name)]
	s.mu.Unlock()

	if !ok {
		s.mu.Lock()
		s.misses++
		s.mu.Unlock()

		return zero, false
	}

	return s.Get(id, freshness, minVersion)
}

// Put inserts or replaces the cached entry for id, recording name in the
// secondary index. If a strictly newer version is inserted under an id
// already present under a different name (a rename), the old name mapping
// is dropped as part of the eviction cascade.
func (s *Store[K, V]) Put(id K, name string, value V, version int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lname := strings.ToLower(name)

	if el, ok := s.byID[id]; ok {
		n := el.Value.(*node[K, V])
		if version < n.entry.Version {
			return // stale write loses to a fresher cached value
		}

		if n.name != "" && n.name != lname {
			delete(s.byName, n.name)
		}

		n.name = lname
		n.entry = Entry[V]{Value: value, Version: version, CachedAt: time.Now()}
		s.byName[lname] = id
		s.order.MoveToFront(el)

		return
	}

	n := &node[K, V]{key: id, name: lname, entry: Entry[V]{Value: value, Version: version, CachedAt: time.Now()}}
	el := s.order.PushFront(n)
	s.byID[id] = el
	s.byName[lname] = id

	s.evictOverCapacity()
}

// Invalidate removes id from the cache, cascading to its name mapping.
func (s *Store[K, V]) Invalidate(id K) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.byID[id]; ok {
		s.evictElement(el)
	}
}

// Size, Hits, and Misses report the cache's current bookkeeping, exposed
// for ambient metrics collection.
func (s *Store[K, V]) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.order.Len()
}

func (s *Store[K, V]) Hits() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.hits
}

func (s *Store[K, V]) Misses() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.misses
}

func (s *Store[K, V]) evictOverCapacity() {
	if s.capacity <= 0 {
		return
	}

	for s.order.Len() > s.capacity {
		back := s.order.Back()
		if back == nil {
			return
		}

		s.evictElement(back)
	}
}

// evictElement must be called with s.mu held.
func (s *Store[K, V]) evictElement(el *list.Element) {
	n := el.Value.(*node[K, V])
	delete(s.byID, n.key)
	delete(s.byName, n.name)
	s.order.Remove(el)
}
