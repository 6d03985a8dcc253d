// Package fault classifies pipeline failures into the categories surfaced to
// API callers. Classification happens where the failure is understood; the
// server layer only maps kinds to status codes.
package fault

import (
	"errors"
	"fmt"
)

// Kind identifies a failure category.
type Kind string

const (
	// ServiceBusy means the upstream service is rate or quota limited and
	// the caller may retry after a delay.
	ServiceBusy Kind = "service_busy"
	// ContentBlocked means a safety policy refused the request. Retrying
	// with the same input will not help.
	ContentBlocked Kind = "content_blocked"
	// MalformedResponse means the upstream payload stayed unparseable after
	// every repair attempt.
	MalformedResponse Kind = "malformed_response"
	// EmptyDialogue means the script rendered to an empty transcript.
	EmptyDialogue Kind = "empty_dialogue"
	// NoAudioData means the speech service finished without a usable audio
	// payload.
	NoAudioData Kind = "no_audio_data"
	// AudioGenerationFailed means speech synthesis failed even after the
	// translated fallback.
	AudioGenerationFailed Kind = "audio_generation_failed"
	// ResearchFailed is the catch-all for research errors. The underlying
	// message is kept intact for diagnostics.
	ResearchFailed Kind = "research_failed"
)

// Error is a classified pipeline failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Kind)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error, keeping it as the cause so its message
// survives verbatim.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the category from err, or "" when err is unclassified.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool { return KindOf(err) == kind }
