package engines

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/hollyai/holly-voice/internal/tts"
)

// Engine names.
const (
	FishLocalName = "fish-local"
	FishCloudName = "fish-cloud"
	GTTSName      = "gtts"
	PiperName     = "piper"
	OpenAIName    = "openai"
)

// Options carries the configuration of every engine; New picks the part it
// needs.
type Options struct {
	FishLocal FishLocalConfig
	FishCloud FishCloudConfig
	GTTS      GTTSConfig
	Piper     PiperConfig
	OpenAI    OpenAIConfig

	// Fallback names a secondary engine used after FallbackAfter consecutive
	// failures of the primary. Empty disables the chain.
	Fallback      string
	FallbackAfter int

	HTTPClient *http.Client
	Logger     *log.Logger
}

type constructor func(ctx context.Context, opts Options) (tts.Backend, error)

var registry = map[string]constructor{
	FishLocalName: func(ctx context.Context, o Options) (tts.Backend, error) {
		b, err := NewFishLocal(ctx, o.FishLocal, o.HTTPClient, o.Logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	},
	FishCloudName: func(_ context.Context, o Options) (tts.Backend, error) {
		return NewFishCloud(o.FishCloud, o.HTTPClient, o.Logger), nil
	},
	GTTSName: func(_ context.Context, o Options) (tts.Backend, error) {
		return NewGTTSEngine(o.GTTS, o.HTTPClient, o.Logger), nil
	},
	PiperName: func(ctx context.Context, o Options) (tts.Backend, error) {
		b, err := NewPiperEngine(ctx, o.Piper, o.HTTPClient, o.Logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	},
	OpenAIName: func(_ context.Context, o Options) (tts.Backend, error) {
		b, err := NewOpenAIEngine(o.OpenAI, o.HTTPClient, o.Logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	},
}

// Names lists the supported engines in a stable order.
func Names() []string {
	return []string{FishLocalName, FishCloudName, GTTSName, PiperName, OpenAIName}
}

func (o Options) withDefaults() Options {
	if o.HTTPClient == nil {
		o.HTTPClient = NewHTTPClient(8)
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// New builds the engine called name.
func New(ctx context.Context, name string, opts Options) (tts.Backend, error) {
	build, ok := registry[name]
	if !ok {
		return nil, tts.Unavailable(name, "unknown engine", tts.ErrInvalidEngine)
	}
	return build(ctx, opts.withDefaults())
}

// Factory returns a tts.Factory for name, wrapping it in a FallbackEngine
// when opts.Fallback is set. If the primary cannot be built but the fallback
// can, the chain starts out switched to the fallback.
func Factory(name string, opts Options) tts.Factory {
	opts = opts.withDefaults()
	return func(ctx context.Context) (tts.Backend, error) {
		if opts.Fallback == "" || opts.Fallback == name {
			return New(ctx, name, opts)
		}
		if !lo.Contains(Names(), opts.Fallback) {
			return nil, tts.Unavailable(opts.Fallback, "unknown fallback engine", tts.ErrInvalidEngine)
		}

		primary, primaryErr := New(ctx, name, opts)
		secondary, secondaryErr := New(ctx, opts.Fallback, opts)

		switch {
		case primaryErr != nil && secondaryErr != nil:
			return nil, tts.Unavailable(name, "primary and fallback engines failed",
				fmt.Errorf("primary: %w; fallback: %v", primaryErr, secondaryErr))
		case primaryErr != nil:
			opts.Logger.Warn("Primary engine unavailable, using fallback engine", "primary", name, "fallback", opts.Fallback, "err", primaryErr)
			return newFallbackOnly(secondary, opts.Logger), nil
		case secondaryErr != nil:
			opts.Logger.Warn("Fallback engine unavailable, continuing without it", "fallback", opts.Fallback, "err", secondaryErr)
			return primary, nil
		}
		return NewFallbackEngine(primary, secondary, opts.FallbackAfter, opts.Logger), nil
	}
}
