package cache

import (
	"crypto/md5" //nolint:gosec
	"encoding/hex"

	"golang.org/x/text/unicode/norm"
)

const entryExt = ".wav"

// Key identifies a cache entry. It is the lowercase hex MD5 digest of the
// NFC-normalized text and the voice joined by a colon.
type Key string

// KeyFor derives the cache key for text spoken in voice.
func KeyFor(text, voice string) Key {
	sum := md5.Sum([]byte(norm.NFC.String(text) + ":" + voice)) //nolint:gosec
	return Key(hex.EncodeToString(sum[:]))
}

// Filename returns the entry's file name inside the cache directory.
func (k Key) Filename() string {
	return string(k) + entryExt
}

func (k Key) String() string {
	return string(k)
}
