// Package engines contains the synthesis backends behind tts.Backend:
// fish-local (a Fish-Speech inference server on this machine), fish-cloud
// (the Fish Audio API), gtts (Google Translate's speech endpoint), piper (the
// Piper binary) and openai (any OpenAI compatible speech API). New builds a
// backend by name.
package engines
