package tts

import (
	"context"

	"github.com/hollyai/holly-voice/internal/audio"
)

// DefaultVoice is the voice name requests use when they do not name one.
const DefaultVoice = "holly"

// Backend defines the contract for speech synthesis engines.
// Implementations include a local Fish-Speech server, the Fish Audio cloud
// API, Google Translate's web endpoint, the Piper binary and OpenAI
// compatible speech APIs.
type Backend interface {
	// Generate converts text to mono audio at the engine's native sample
	// rate. Engines that define a placeholder for a failure mode return it
	// with Result.Fallback set instead of an error.
	Generate(ctx context.Context, text, voice string) (*Result, error)

	// Info returns engine capabilities and configuration.
	Info() EngineInfo

	// Close releases any resources held by the engine.
	Close() error
}

// Result is the output of one synthesis call.
type Result struct {
	Audio *audio.Buffer

	// Fallback marks audio produced in place of the configured engine's
	// speech: a placeholder tone or silence, or speech from a fallback
	// engine. It must never be cached.
	Fallback bool
}

// EngineInfo describes engine capabilities and configuration.
type EngineInfo struct {
	Name       string // Engine name (e.g., "piper", "fish-cloud")
	Model      string // Model or endpoint identifier
	Device     string // Where inference runs ("cuda", "cpu", "cloud")
	SampleRate int    // Native sample rate in Hz
	Online     bool   // Whether the engine requires internet
}

// Factory constructs a backend. It may download models or probe servers and
// should honor ctx.
type Factory func(ctx context.Context) (Backend, error)
