package tts

import (
	"container/list"
	"sync"
	"time"
)

// clipCache is an LRU cache with TTL for synthesized audio clips, keyed by
// voice and text.
type clipCache struct {
	capacity int
	ttl      time.Duration
	mu       sync.Mutex

	clips map[string]*clipEntry
	order *list.List
}

type clipEntry struct {
	key       string
	audio     []byte
	expiresAt time.Time
	element   *list.Element
}

func newClipCache(capacity int, ttl time.Duration) *clipCache {
	if capacity <= 0 {
		capacity = 64
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &clipCache{
		capacity: capacity,
		ttl:      ttl,
		clips:    make(map[string]*clipEntry),
		order:    list.New(),
	}
}

// Get retrieves a clip from the cache.
func (c *clipCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.clips[key]
	if !ok {
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		c.removeEntry(e)
		return nil, false
	}

	c.order.MoveToFront(e.element)
	return e.audio, true
}

// Set stores a clip, evicting the least recently used entry when full.
func (c *clipCache) Set(key string, audio []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.clips[key]; ok {
		e.audio = audio
		e.expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(e.element)
		return
	}

	if len(c.clips) >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.removeEntry(oldest.Value.(*clipEntry))
		}
	}

	e := &clipEntry{
		key:       key,
		audio:     audio,
		expiresAt: time.Now().Add(c.ttl),
	}
	e.element = c.order.PushFront(e)
	c.clips[key] = e
}

// removeEntry deletes an entry. Caller must hold the lock.
func (c *clipCache) removeEntry(e *clipEntry) {
	c.order.Remove(e.element)
	delete(c.clips, e.key)
}

// Len returns the number of cached clips.
func (c *clipCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clips)
}
