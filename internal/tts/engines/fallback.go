package engines

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-multierror"

	"github.com/hollyai/holly-voice/internal/tts"
)

// FallbackEngine wraps a primary engine with automatic fallback to a secondary engine
// when the primary fails consistently. Placeholder audio from the primary
// counts as a failure. Audio from the secondary is flagged as Fallback so it
// is never cached as the primary's speech.
type FallbackEngine struct {
	primary       tts.Backend
	fallback      tts.Backend
	failures      int
	maxFailures   int
	usingFallback bool
	logger        *log.Logger
	mu            sync.Mutex
}

// NewFallbackEngine creates a new engine with automatic fallback capability.
func NewFallbackEngine(primary, fallback tts.Backend, maxFailures int, logger *log.Logger) *FallbackEngine {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &FallbackEngine{
		primary:     primary,
		fallback:    fallback,
		maxFailures: maxFailures,
		logger:      logger.WithPrefix("fallback"),
	}
}

// newFallbackOnly returns a chain already switched to fallback, for when the
// primary could not be built at all.
func newFallbackOnly(fallback tts.Backend, logger *log.Logger) *FallbackEngine {
	f := NewFallbackEngine(nil, fallback, 1, logger)
	f.usingFallback = true
	return f
}

// Generate uses the active engine, switching to the fallback engine once the
// primary has failed maxFailures times in a row.
func (f *FallbackEngine) Generate(ctx context.Context, text, voice string) (*tts.Result, error) {
	f.mu.Lock()
	using := f.usingFallback
	f.mu.Unlock()

	if using {
		return f.generateFallback(ctx, text, voice)
	}

	res, err := f.primary.Generate(ctx, text, voice)
	if err == nil && !res.Fallback {
		f.mu.Lock()
		if f.failures > 0 {
			f.logger.Info("Primary engine recovered", "failures", f.failures)
			f.failures = 0
		}
		f.mu.Unlock()
		return res, nil
	}
	if ctx.Err() != nil {
		return res, err
	}

	f.mu.Lock()
	f.failures++
	failures := f.failures
	switchNow := failures >= f.maxFailures && !f.usingFallback
	if switchNow {
		f.usingFallback = true
	}
	f.mu.Unlock()

	f.logger.Warn("Primary engine failed", "attempt", failures, "max", f.maxFailures, "err", err, "placeholder", err == nil)
	if !switchNow {
		return res, err
	}

	f.logger.Warn("Switching to fallback engine", "primary", f.primary.Info().Name, "fallback", f.fallback.Info().Name)
	return f.generateFallback(ctx, text, voice)
}

func (f *FallbackEngine) generateFallback(ctx context.Context, text, voice string) (*tts.Result, error) {
	res, err := f.fallback.Generate(ctx, text, voice)
	if err != nil {
		return nil, err
	}
	out := *res
	out.Fallback = true
	return &out, nil
}

// Info returns the active engine's info.
func (f *FallbackEngine) Info() tts.EngineInfo {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.usingFallback {
		return f.fallback.Info()
	}
	return f.primary.Info()
}

// UsingFallback reports whether the secondary engine is active.
func (f *FallbackEngine) UsingFallback() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.usingFallback
}

// Close shuts down both engines.
func (f *FallbackEngine) Close() error {
	var result *multierror.Error
	if f.primary != nil {
		if err := f.primary.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := f.fallback.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
