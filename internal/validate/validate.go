// Package validate guards the question-answering boundaries against
// malformed text. Input validation applies to user questions, output
// validation to model-generated answers. All functions are pure.
package validate

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Length limits for questions and answers, counted in runes after trimming.
const (
	// MinInputLength is the minimum question length.
	MinInputLength = 3

	// MaxInputLength is the maximum question length.
	MaxInputLength = 2000

	// MinOutputLength is a heuristic floor against degenerate one-word
	// answers from the model.
	MinOutputLength = 5
)

// Kind classifies a validation failure.
type Kind int

const (
	// KindEmpty indicates the text was empty after trimming.
	KindEmpty Kind = iota

	// KindTooShort indicates the text was below the minimum length.
	KindTooShort

	// KindTooLong indicates the text exceeded the maximum length.
	KindTooLong
)

// String returns the kind name for logging and error messages.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindTooShort:
		return "too_short"
	case KindTooLong:
		return "too_long"
	default:
		return "unknown"
	}
}

// Error is a validation failure. It is deterministic: the same input always
// produces the same result, so callers must never retry on it.
type Error struct {
	Kind  Kind
	Field string // "question" or "answer"
	Limit int    // the violated limit, 0 for KindEmpty
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindEmpty:
		return fmt.Sprintf("%s cannot be empty", e.Field)
	case KindTooShort:
		return fmt.Sprintf("%s too short (min %d chars)", e.Field, e.Limit)
	case KindTooLong:
		return fmt.Sprintf("%s too long (max %d chars)", e.Field, e.Limit)
	default:
		return fmt.Sprintf("%s is invalid", e.Field)
	}
}

// IsValidationError reports whether err is (or wraps) a validate.Error.
func IsValidationError(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

// Input validates a user question. It trims surrounding whitespace and
// checks the [MinInputLength, MaxInputLength] bounds. On success the trimmed
// question is returned unchanged.
func Input(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", &Error{Kind: KindEmpty, Field: "question"}
	}

	switch n := utf8.RuneCountInString(trimmed); {
	case n < MinInputLength:
		return "", &Error{Kind: KindTooShort, Field: "question", Limit: MinInputLength}
	case n > MaxInputLength:
		return "", &Error{Kind: KindTooLong, Field: "question", Limit: MaxInputLength}
	}

	return trimmed, nil
}

// Output validates a model-generated answer. It trims surrounding whitespace
// and rejects empty or suspiciously short responses.
func Output(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", &Error{Kind: KindEmpty, Field: "answer"}
	}

	if utf8.RuneCountInString(trimmed) < MinOutputLength {
		return "", &Error{Kind: KindTooShort, Field: "answer", Limit: MinOutputLength}
	}

	return trimmed, nil
}
