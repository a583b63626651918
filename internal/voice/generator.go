package voice

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/hollyai/holly-voice/internal/audio"
	"github.com/hollyai/holly-voice/internal/cache"
	"github.com/hollyai/holly-voice/internal/metrics"
	"github.com/hollyai/holly-voice/internal/tts"
)

// Result is the audio produced by one Generate call.
type Result struct {
	Audio   *audio.Buffer
	Elapsed time.Duration

	// Cached is set when the audio came from the cache.
	Cached bool

	// Fallback is set when the backend returned placeholder audio.
	Fallback bool
}

// Generator combines the backend handle with the cache.
type Generator struct {
	handle *tts.Handle
	store  *cache.Store
	engine string
	maxLen int
	logger *log.Logger
}

// NewGenerator returns a generator for the engine called engine. The handle is
// not touched until the first request that misses the cache.
func NewGenerator(handle *tts.Handle, store *cache.Store, engine string, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{
		handle: handle,
		store:  store,
		engine: engine,
		maxLen: tts.MaxTextLength,
		logger: logger.WithPrefix("voice"),
	}
}

// Engine returns the configured engine name.
func (g *Generator) Engine() string {
	return g.engine
}

// Generate returns speech for text. An empty voice means the default voice.
// With useCache set, a cached entry is returned without synthesis and fresh
// speech is stored for next time. Fallback audio is never stored.
func (g *Generator) Generate(ctx context.Context, text, voice string, useCache bool) (*Result, error) {
	start := time.Now()
	if voice == "" {
		voice = tts.DefaultVoice
	}
	if err := tts.ValidateText(text, g.maxLen); err != nil {
		return nil, err
	}
	if err := tts.ValidateVoice(voice); err != nil {
		return nil, err
	}

	key := cache.KeyFor(text, voice)
	if useCache {
		if b, ok := g.store.Get(key).Get(); ok {
			g.logger.Debug("Using cached audio", "key", key, "seconds", b.Seconds())
			return &Result{Audio: b, Elapsed: time.Since(start), Cached: true}, nil
		}
	}

	backend, err := g.handle.Get(ctx)
	if err != nil {
		metrics.SynthesisErrors.WithLabelValues(g.engine, string(tts.CodeOf(err))).Inc()
		return nil, err
	}

	synthStart := time.Now()
	res, err := backend.Generate(ctx, text, voice)
	metrics.SynthesisDuration.WithLabelValues(g.engine).Observe(time.Since(synthStart).Seconds())
	if err != nil {
		code := tts.CodeOf(err)
		if code == "" {
			code = tts.CodeSynthesisFailed
			err = tts.SynthesisFailed(g.engine, "generation failed", err)
		}
		metrics.SynthesisErrors.WithLabelValues(g.engine, string(code)).Inc()
		return nil, err
	}

	elapsed := time.Since(start)
	if res.Fallback {
		metrics.Fallbacks.WithLabelValues(g.engine).Inc()
		g.logger.Warn("Serving fallback audio, not caching it", "engine", g.engine, "seconds", res.Audio.Seconds())
	} else if useCache {
		g.store.Put(key, res.Audio)
	}

	g.logger.Info("Generated audio", "seconds", res.Audio.Seconds(), "elapsed", elapsed.Round(time.Millisecond))
	return &Result{Audio: res.Audio, Elapsed: elapsed, Fallback: res.Fallback}, nil
}

// CacheStats returns a snapshot of the cache.
func (g *Generator) CacheStats() cache.Stats {
	return g.store.Stats()
}

// ClearCache removes every cached entry.
func (g *Generator) ClearCache() error {
	return g.store.Clear()
}

// Health builds the backend if needed and describes it.
func (g *Generator) Health(ctx context.Context) (tts.EngineInfo, error) {
	backend, err := g.handle.Get(ctx)
	if err != nil {
		return tts.EngineInfo{}, err
	}
	return backend.Info(), nil
}

// Loaded reports whether the backend has been built.
func (g *Generator) Loaded() bool {
	return g.handle.Loaded()
}

// WarmReport summarizes a Warm run.
type WarmReport struct {
	Generated int
	Cached    int
	Failed    int
}

// Warm synthesizes and caches phrases that are not cached yet, running up to
// parallel requests at once. Individual failures are logged and counted; the
// returned error is only set when ctx ends or the backend cannot be built.
func (g *Generator) Warm(ctx context.Context, phrases []string, parallel int) (WarmReport, error) {
	if parallel < 1 {
		parallel = 1
	}
	if _, err := g.handle.Get(ctx); err != nil {
		return WarmReport{}, err
	}

	results := make([]*Result, len(phrases))
	errs := make([]error, len(phrases))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(parallel)
	for i, phrase := range phrases {
		i, phrase := i, phrase
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = g.Generate(egCtx, phrase, tts.DefaultVoice, true)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return WarmReport{}, err
	}

	var report WarmReport
	for i, res := range results {
		switch {
		case errs[i] != nil:
			report.Failed++
			g.logger.Warn("Could not warm phrase", "text", phrases[i], "err", errs[i])
		case res.Cached:
			report.Cached++
		case res.Fallback:
			report.Failed++
		default:
			report.Generated++
		}
	}
	return report, nil
}
