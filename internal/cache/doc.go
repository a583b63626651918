// Package cache stores synthesized speech on disk, one mono 16-bit WAV file
// per (text, voice) pair, named by the pair's MD5 digest. An optional
// in-memory LRU tier sits in front of the disk for hot phrases.
package cache
