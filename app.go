package main

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/hollyai/holly-voice/internal/cache"
	"github.com/hollyai/holly-voice/internal/config"
	"github.com/hollyai/holly-voice/internal/tts"
	"github.com/hollyai/holly-voice/internal/tts/engines"
	"github.com/hollyai/holly-voice/internal/voice"
)

// newGenerator wires the cache and the lazily built backend for cfg. The
// returned handle must be closed when done.
func newGenerator(cfg *config.Config, logger *log.Logger) (*voice.Generator, *tts.Handle, error) {
	opts, err := cfg.EngineOptions(engines.NewHTTPClient(16), logger)
	if err != nil {
		return nil, nil, err
	}

	dir, err := cfg.CacheDir()
	if err != nil {
		return nil, nil, err
	}
	store, err := cache.NewStore(cache.Config{
		Dir:            dir,
		MemoryCapacity: int64(cfg.Cache.MemorySizeMB) << 20,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open cache: %w", err)
	}

	handle := tts.NewHandle(engines.Factory(cfg.Engine, opts))
	return voice.NewGenerator(handle, store, cfg.Engine, logger), handle, nil
}
