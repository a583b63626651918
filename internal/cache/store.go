package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/hollyai/holly-voice/internal/audio"
	"github.com/hollyai/holly-voice/internal/metrics"
)

const tempExt = ".tmp"

// Store is the on-disk audio cache. Entries are immutable once written;
// rewriting a key replaces the file atomically. Store is safe for concurrent
// use and does no locking of its own: every write goes through a unique temp
// file followed by a rename.
type Store struct {
	dir    string
	memory *MemoryCache
	logger *log.Logger

	hits    atomic.Int64
	misses  atomic.Int64
	corrupt atomic.Int64
}

// NewStore opens the cache at cfg.Dir, creating the directory if needed.
func NewStore(cfg Config, logger *log.Logger) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("cache directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil { //nolint:gosec
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}

	s := &Store{
		dir:    cfg.Dir,
		logger: logger.WithPrefix("cache"),
	}
	if cfg.MemoryCapacity > 0 {
		s.memory = NewMemoryCache(cfg.MemoryCapacity)
	}
	return s, nil
}

// Location returns the cache directory.
func (s *Store) Location() string {
	return s.dir
}

func (s *Store) path(key Key) string {
	return filepath.Join(s.dir, key.Filename())
}

// Get returns the cached audio for key. Missing and unreadable entries are
// both reported as None; unreadable ones are logged.
func (s *Store) Get(key Key) mo.Option[*audio.Buffer] {
	b, err := s.Lookup(key)
	switch {
	case err == nil:
		return mo.Some(b)
	case errors.Is(err, ErrCacheCorrupted):
		s.logger.Warn("Ignoring unreadable cache entry", "key", key, "err", err)
	}
	return mo.None[*audio.Buffer]()
}

// Lookup is Get with the reason for a miss: ErrCacheMiss when there is no
// entry, ErrCacheCorrupted when the entry cannot be decoded.
func (s *Store) Lookup(key Key) (*audio.Buffer, error) {
	if s.memory != nil {
		if b, ok := s.memory.Get(key); ok {
			s.recordHit()
			return b, nil
		}
	}

	f, err := os.Open(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		s.misses.Add(1)
		metrics.CacheLookups.WithLabelValues(metrics.LookupMiss).Inc()
		return nil, ErrCacheMiss
	}
	if err != nil {
		s.recordCorrupt()
		return nil, fmt.Errorf("%w: %v", ErrCacheCorrupted, err)
	}
	defer func() { _ = f.Close() }()

	b, err := audio.DecodeWAV(f)
	if err != nil {
		s.recordCorrupt()
		return nil, fmt.Errorf("%w: %v", ErrCacheCorrupted, err)
	}

	s.recordHit()
	s.remember(key, b)
	return b, nil
}

func (s *Store) recordHit() {
	s.hits.Add(1)
	metrics.CacheLookups.WithLabelValues(metrics.LookupHit).Inc()
}

func (s *Store) recordCorrupt() {
	s.corrupt.Add(1)
	metrics.CacheLookups.WithLabelValues(metrics.LookupCorrupt).Inc()
}

func (s *Store) remember(key Key, b *audio.Buffer) {
	if s.memory == nil {
		return
	}
	if err := s.memory.Put(key, b); err != nil {
		s.logger.Debug("Not keeping entry in memory", "key", key, "err", err)
	}
}

// Put stores b under key. Failures are logged and otherwise ignored so that
// a broken cache never fails a request.
func (s *Store) Put(key Key, b *audio.Buffer) {
	if err := s.Write(key, b); err != nil {
		metrics.CacheWriteFailures.Inc()
		s.logger.Warn("Could not write cache entry", "key", key, "err", err)
		return
	}
	s.logger.Debug("Cached audio", "key", key, "seconds", b.Seconds())
}

// Write stores b under key and reports failures wrapped in
// ErrCacheWriteFailed.
func (s *Store) Write(key Key, b *audio.Buffer) error {
	if err := s.writeFile(s.path(key), b); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheWriteFailed, err)
	}
	s.remember(key, b)
	return nil
}

func (s *Store) writeFile(path string, b *audio.Buffer) error {
	// Write to a temp file first, then rename (atomic on most systems). Each
	// writer gets its own temp file so concurrent puts of one key never
	// interleave.
	if err := os.MkdirAll(s.dir, 0o755); err != nil { //nolint:gosec
		return err
	}
	file, err := os.CreateTemp(s.dir, filepath.Base(path)+"-*"+tempExt)
	if err != nil {
		return err
	}
	tempPath := file.Name()

	err = audio.EncodeWAV(file, b)
	closeErr := file.Close()

	if err != nil {
		_ = os.Remove(tempPath)
		return err
	}
	if closeErr != nil {
		_ = os.Remove(tempPath)
		return closeErr
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return err
	}
	return nil
}

// Stats enumerates the cache directory.
func (s *Store) Stats() Stats {
	stats := Stats{
		Location: s.dir,
		Hits:     s.hits.Load(),
		Misses:   s.misses.Load(),
		Corrupt:  s.corrupt.Load(),
	}
	if s.memory != nil {
		stats.MemoryEntries = s.memory.Len()
		stats.MemoryBytes = s.memory.Size()
		stats.MemoryEvictions = s.memory.Evictions()
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Could not read cache directory", "dir", s.dir, "err", err)
		}
		return stats
	}

	files := lo.FilterMap(entries, func(e fs.DirEntry, _ int) (fs.FileInfo, bool) {
		if e.IsDir() || !strings.HasSuffix(e.Name(), entryExt) {
			return nil, false
		}
		// entries removed by a concurrent clear are skipped
		info, err := e.Info()
		return info, err == nil
	})
	stats.EntryCount = len(files)
	stats.TotalSizeBytes = lo.SumBy(files, func(fi fs.FileInfo) int64 { return fi.Size() })
	return stats
}

// Clear deletes every entry, including temp files left behind by
// interrupted writes. Clearing an empty or missing cache succeeds.
func (s *Store) Clear() error {
	if s.memory != nil {
		s.memory.Clear()
	}

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	var result *multierror.Error
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, entryExt) || strings.HasSuffix(name, tempExt)) {
			continue
		}
		err := os.Remove(filepath.Join(s.dir, name))
		switch {
		case err == nil:
			removed++
		case errors.Is(err, fs.ErrNotExist):
		default:
			result = multierror.Append(result, err)
		}
	}

	s.logger.Info("Cleared cache", "dir", s.dir, "removed", removed)
	return result.ErrorOrNil()
}
