package tts

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxTextLength is the longest text, in characters, accepted for synthesis.
const MaxTextLength = 5000

// ValidateText checks that text is non-blank and at most limit characters.
func ValidateText(text string, limit int) error {
	if strings.TrimSpace(text) == "" {
		return NewError(CodeInvalidInput, "", "invalid text", ErrEmptyText)
	}
	if n := utf8.RuneCountInString(text); n > limit {
		return NewError(CodeInvalidInput, "", "invalid text",
			fmt.Errorf("%w: %d characters (max %d)", ErrTextTooLong, n, limit))
	}
	return nil
}

// ValidateVoice checks a requested voice name. The cache key joins text and
// voice with a colon, so a colon in the voice would let different requests
// share an entry. An empty voice selects DefaultVoice.
func ValidateVoice(voice string) error {
	if strings.Contains(voice, ":") {
		return NewError(CodeInvalidInput, "", "invalid voice",
			fmt.Errorf("%w: %q contains ':'", ErrInvalidVoice, voice))
	}
	return nil
}

// ValidateEngineSelection checks that name is one of the known engines.
func ValidateEngineSelection(name string, known []string) error {
	if name == "" {
		return fmt.Errorf("%w: no engine selected\n\nSupported engines:\n  - %s", ErrInvalidEngine, strings.Join(known, "\n  - "))
	}
	for _, k := range known {
		if k == name {
			return nil
		}
	}
	return fmt.Errorf("%w: %s\n\nSupported engines:\n  - %s", ErrInvalidEngine, name, strings.Join(known, "\n  - "))
}
