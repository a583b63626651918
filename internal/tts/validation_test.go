package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestValidateText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr error
	}{
		{"single character", "a", nil},
		{"maximum length", strings.Repeat("a", MaxTextLength), nil},
		{"multibyte counts characters", strings.Repeat("é", MaxTextLength), nil},
		{"empty", "", ErrEmptyText},
		{"whitespace only", "   \n\t", ErrEmptyText},
		{"too long", strings.Repeat("a", MaxTextLength+1), ErrTextTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateText(tt.text, MaxTextLength)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
			if CodeOf(err) != CodeInvalidInput {
				t.Errorf("code: got %q, want %q", CodeOf(err), CodeInvalidInput)
			}
		})
	}
}

func TestValidateVoice(t *testing.T) {
	for _, voice := range []string{"", DefaultVoice, "nova", "en_US-amy-medium"} {
		if err := ValidateVoice(voice); err != nil {
			t.Errorf("%q rejected: %v", voice, err)
		}
	}
	for _, voice := range []string{"amy:holly", ":", "holly:"} {
		err := ValidateVoice(voice)
		if !errors.Is(err, ErrInvalidVoice) || CodeOf(err) != CodeInvalidInput {
			t.Errorf("%q: got %v, want INVALID_INPUT wrapping ErrInvalidVoice", voice, err)
		}
	}
}

func TestValidateEngineSelection(t *testing.T) {
	known := []string{"fish-local", "piper"}

	if err := ValidateEngineSelection("piper", known); err != nil {
		t.Errorf("known engine rejected: %v", err)
	}
	for _, name := range []string{"", "espeak"} {
		err := ValidateEngineSelection(name, known)
		if !errors.Is(err, ErrInvalidEngine) {
			t.Errorf("%q: got %v, want ErrInvalidEngine", name, err)
		}
		if err != nil && !strings.Contains(err.Error(), "fish-local") {
			t.Errorf("%q: error does not list supported engines: %v", name, err)
		}
	}
}

func TestErrorClassification(t *testing.T) {
	err := SynthesisFailed("piper", "piper timed out", context.DeadlineExceeded)
	if err.Code != CodeTimeout {
		t.Errorf("deadline: got %q, want %q", err.Code, CodeTimeout)
	}

	err = SynthesisFailed("piper", "piper failed", errors.New("exit status 1"))
	if err.Code != CodeSynthesisFailed {
		t.Errorf("exit: got %q, want %q", err.Code, CodeSynthesisFailed)
	}

	wrapped := fmt.Errorf("request: %w", Unavailable("fish-cloud", "no key", nil))
	if !IsUnavailable(wrapped) {
		t.Error("wrapped unavailable error not recognized")
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Error("plain error carries a code")
	}

	msg := NewError(CodeDecodeFailed, "gtts", "bad mp3", errors.New("eof")).Error()
	if msg != "gtts: DECODE_FAILED: bad mp3: eof" {
		t.Errorf("Error() = %q", msg)
	}
}
