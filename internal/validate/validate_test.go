package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestInput_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"minimum length", "abc", "abc"},
		{"typical question", "What services does Acme offer?", "What services does Acme offer?"},
		{"surrounding whitespace trimmed", "  hello there  ", "hello there"},
		{"tabs and newlines trimmed", "\n\thow are you?\t\n", "how are you?"},
		{"maximum length", strings.Repeat("a", 2000), strings.Repeat("a", 2000)},
		{"max length after trimming", "  " + strings.Repeat("b", 2000) + "  ", strings.Repeat("b", 2000)},
		{"multibyte runes counted as characters", strings.Repeat("日", 2000), strings.Repeat("日", 2000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Input(tt.input)
			if err != nil {
				t.Fatalf("Input(%q) returned error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Input(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestInput_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  Kind
	}{
		{"empty string", "", KindEmpty},
		{"whitespace only", "   \n\t  ", KindEmpty},
		{"one char", "a", KindTooShort},
		{"two chars", "ab", KindTooShort},
		{"two chars after trimming", "  ab  ", KindTooShort},
		{"over maximum", strings.Repeat("a", 2001), KindTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Input(tt.input)
			if err == nil {
				t.Fatalf("Input(%q) succeeded, want validation error", tt.input)
			}

			var ve *Error
			if !errors.As(err, &ve) {
				t.Fatalf("Input(%q) error type = %T, want *validate.Error", tt.input, err)
			}
			if ve.Kind != tt.kind {
				t.Errorf("Input(%q) kind = %v, want %v", tt.input, ve.Kind, tt.kind)
			}
			if ve.Field != "question" {
				t.Errorf("Input(%q) field = %q, want %q", tt.input, ve.Field, "question")
			}
		})
	}
}

func TestOutput_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"minimum length", "hello", "hello"},
		{"typical answer", "Acme offers technology consulting services.", "Acme offers technology consulting services."},
		{"whitespace trimmed", "  a fine answer  \n", "a fine answer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Output(tt.input)
			if err != nil {
				t.Fatalf("Output(%q) returned error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Output(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestOutput_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  Kind
	}{
		{"empty", "", KindEmpty},
		{"whitespace only", " \t ", KindEmpty},
		{"four chars", "四つの字", KindTooShort},
		{"short after trimming", "  ok  ", KindTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Output(tt.input)
			if err == nil {
				t.Fatalf("Output(%q) succeeded, want validation error", tt.input)
			}

			var ve *Error
			if !errors.As(err, &ve) {
				t.Fatalf("Output(%q) error type = %T, want *validate.Error", tt.input, err)
			}
			if ve.Kind != tt.kind {
				t.Errorf("Output(%q) kind = %v, want %v", tt.input, ve.Kind, tt.kind)
			}
		})
	}
}

func TestIsValidationError(t *testing.T) {
	_, err := Input("")
	if !IsValidationError(err) {
		t.Error("IsValidationError(validate.Error) = false, want true")
	}

	wrapped := errors.Join(errors.New("outer"), err)
	if !IsValidationError(wrapped) {
		t.Error("IsValidationError should see through wrapping")
	}

	if IsValidationError(errors.New("plain")) {
		t.Error("IsValidationError(plain error) = true, want false")
	}
	if IsValidationError(nil) {
		t.Error("IsValidationError(nil) = true, want false")
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindEmpty, "empty"},
		{KindTooShort, "too_short"},
		{KindTooLong, "too_long"},
		{Kind(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
