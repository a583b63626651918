package cache

import (
	"container/list"
	"sync"

	"github.com/hollyai/holly-voice/internal/audio"
)

// MemoryCache implements an in-memory cache of decoded audio with LRU eviction.
// It keeps frequently requested phrases off the disk with a configurable size limit.
type MemoryCache struct {
	capacity int64 // Maximum size in bytes
	size     int64 // Current size in bytes

	// LRU implementation
	items    map[Key]*list.Element
	eviction *list.List

	mu sync.Mutex

	evictions int64
}

// memoryCacheEntry represents an entry in the memory cache
type memoryCacheEntry struct {
	key   Key
	value *audio.Buffer
	size  int64
}

// NewMemoryCache creates a new memory cache with the specified capacity in bytes.
func NewMemoryCache(capacity int64) *MemoryCache {
	return &MemoryCache{
		capacity: capacity,
		items:    make(map[Key]*list.Element),
		eviction: list.New(),
	}
}

func bufferSize(b *audio.Buffer) int64 {
	return int64(len(b.Samples)) * 4
}

// Get retrieves a buffer from the cache.
func (c *MemoryCache) Get(key Key) (*audio.Buffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}

	// Move to front (most recently used)
	c.eviction.MoveToFront(elem)
	return elem.Value.(*memoryCacheEntry).value, true
}

// Put stores a buffer in the cache.
func (c *MemoryCache) Put(key Key, value *audio.Buffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	valueSize := bufferSize(value)

	// Check if key already exists
	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}

	if valueSize > c.capacity {
		return ErrItemTooLarge
	}

	// Evict items if necessary
	for c.size+valueSize > c.capacity && c.eviction.Len() > 0 {
		c.evictOldest()
	}

	entry := &memoryCacheEntry{
		key:   key,
		value: value,
		size:  valueSize,
	}

	c.items[key] = c.eviction.PushFront(entry)
	c.size += valueSize
	return nil
}

// Clear removes all entries from the cache.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[Key]*list.Element)
	c.eviction.Init()
	c.size = 0
}

// Len returns the number of cached buffers.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

// Size returns the current cache size in bytes.
func (c *MemoryCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.size
}

// Evictions returns how many entries were dropped to make room.
func (c *MemoryCache) Evictions() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.evictions
}

// evictOldest removes the least recently used item (must be called with lock held).
func (c *MemoryCache) evictOldest() {
	if elem := c.eviction.Back(); elem != nil {
		c.removeElement(elem)
		c.evictions++
	}
}

// removeElement removes an element from the cache (must be called with lock held).
func (c *MemoryCache) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	entry := elem.Value.(*memoryCacheEntry)
	delete(c.items, entry.key)
	c.size -= entry.size
}
