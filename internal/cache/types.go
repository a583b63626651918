package cache

import (
	"errors"
)

// Common errors for cache operations
var (
	// ErrCacheMiss is returned when no entry exists for a key
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheCorrupted is returned when an entry exists but cannot be decoded
	ErrCacheCorrupted = errors.New("cache data corrupted")

	// ErrCacheWriteFailed is returned when an entry cannot be persisted
	ErrCacheWriteFailed = errors.New("cache write failed")

	// ErrItemTooLarge is returned when an item exceeds the memory tier capacity
	ErrItemTooLarge = errors.New("item too large for cache")
)

// Stats is a best-effort snapshot of the cache. Counts are taken without
// locking and may be stale under concurrent writes or clears.
type Stats struct {
	EntryCount     int
	TotalSizeBytes int64
	Location       string

	// Lookup counters since process start
	Hits    int64
	Misses  int64
	Corrupt int64

	// Memory tier
	MemoryEntries   int
	MemoryBytes     int64
	MemoryEvictions int64
}

// TotalSizeMB returns the on-disk size in megabytes.
func (s Stats) TotalSizeMB() float64 {
	return float64(s.TotalSizeBytes) / (1024 * 1024)
}

// Config holds configuration for a Store.
type Config struct {
	// Dir is the directory holding the entries. It is created if missing.
	Dir string

	// MemoryCapacity bounds the in-memory tier in bytes; 0 disables it.
	MemoryCapacity int64
}
