package tts

import (
	"context"
	"sync"
	"sync/atomic"
)

// Handle owns the process-wide backend. The backend is built on first use
// and reused afterwards. A failed construction is not remembered, so a later
// call retries it (for example once a model server has come up).
type Handle struct {
	factory Factory

	mu      sync.Mutex
	backend Backend

	// loaded mirrors backend != nil for readers that must not wait on a
	// construction in progress.
	loaded atomic.Bool
}

// NewHandle returns a handle that builds its backend with factory.
func NewHandle(factory Factory) *Handle {
	return &Handle{factory: factory}
}

// Get returns the backend, constructing it if needed. Concurrent callers wait
// for a single construction.
func (h *Handle) Get(ctx context.Context) (Backend, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.backend != nil {
		return h.backend, nil
	}

	b, err := h.factory(ctx)
	if err != nil {
		if CodeOf(err) == "" {
			return nil, Unavailable("", "backend initialization failed", err)
		}
		return nil, err
	}
	h.backend = b
	h.loaded.Store(true)
	return b, nil
}

// Loaded reports whether the backend has been constructed. It never blocks.
func (h *Handle) Loaded() bool {
	return h.loaded.Load()
}

// Close releases the backend if it was constructed.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.backend == nil {
		return nil
	}
	err := h.backend.Close()
	h.backend = nil
	h.loaded.Store(false)
	return err
}
