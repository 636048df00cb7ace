package llm

import (
	"fmt"
	"strings"
)

// ProviderError is a failed call to the underlying LLM provider. It carries
// the HTTP status code when one could be recovered from the provider error;
// StatusCode is 0 when unknown.
type ProviderError struct {
	Provider   string
	Model      string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("llm provider %s/%s: status %d: %v", e.Provider, e.Model, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("llm provider %s/%s: %v", e.Provider, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// knownStatusCodes are the HTTP codes providers surface for failures we care
// to distinguish in logs.
var knownStatusCodes = []struct {
	text string
	code int
}{
	{"429", 429},
	{"400", 400},
	{"401", 401},
	{"403", 403},
	{"404", 404},
	{"500", 500},
	{"502", 502},
	{"503", 503},
	{"504", 504},
}

// extractStatusCode scans an error message for an HTTP status code.
//
// NOTE: string matching is used because Genkit and provider SDKs do not
// expose typed errors for HTTP failures. Re-evaluate if Genkit adds
// structured error types.
func extractStatusCode(err error) int {
	if err == nil {
		return 0
	}
	msg := err.Error()
	for _, sc := range knownStatusCodes {
		if strings.Contains(msg, sc.text) {
			return sc.code
		}
	}
	return 0
}
