package tts

import (
	"context"
	"errors"
	"fmt"
)

// Common TTS errors
var (
	// ErrInvalidEngine indicates an unknown engine was specified
	ErrInvalidEngine = errors.New("invalid TTS engine specified")

	// ErrEmptyText indicates there is nothing to synthesize
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrTextTooLong indicates the text exceeds the accepted length
	ErrTextTooLong = errors.New("text too long")

	// ErrInvalidVoice indicates a voice name that cannot be used
	ErrInvalidVoice = errors.New("invalid voice name")
)

// Error represents a TTS-specific error with additional context
type Error struct {
	Code    ErrorCode
	Engine  string
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	prefix := string(e.Code)
	if e.Engine != "" {
		prefix = e.Engine + ": " + prefix
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorCode identifies specific error types
type ErrorCode string

const (
	// CodeBackendUnavailable means the backend could not be constructed:
	// missing credentials, binary, model files or an unreachable server.
	CodeBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"

	// CodeSynthesisFailed means the engine ran but did not produce audio.
	CodeSynthesisFailed ErrorCode = "SYNTHESIS_FAILED"

	// CodeTimeout means synthesis exceeded its deadline.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeDecodeFailed means the engine's output was not decodable audio.
	CodeDecodeFailed ErrorCode = "DECODE_FAILED"

	// CodeInvalidInput means the request itself was rejected.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// NewError creates a new TTS error
func NewError(code ErrorCode, engine, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Engine:  engine,
		Message: message,
		Cause:   cause,
	}
}

// Unavailable is shorthand for a CodeBackendUnavailable error.
func Unavailable(engine, message string, cause error) *Error {
	return NewError(CodeBackendUnavailable, engine, message, cause)
}

// SynthesisFailed builds a synthesis error, classifying deadline overruns
// as CodeTimeout.
func SynthesisFailed(engine, message string, cause error) *Error {
	if errors.Is(cause, context.DeadlineExceeded) {
		return NewError(CodeTimeout, engine, message, cause)
	}
	return NewError(CodeSynthesisFailed, engine, message, cause)
}

// CodeOf returns the code carried by err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsUnavailable reports whether err means the backend could not be built.
func IsUnavailable(err error) bool {
	return CodeOf(err) == CodeBackendUnavailable
}
