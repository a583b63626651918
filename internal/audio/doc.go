// Package audio holds the canonical in-memory representation of synthesized
// speech (mono float32 samples at a fixed sample rate) together with the WAV
// and MP3 codecs the synthesis backends and the cache need, and a small oto
// based player for local playback.
package audio
