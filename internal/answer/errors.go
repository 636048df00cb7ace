package answer

import "fmt"

// GenerationError reports that every attempt at producing an answer failed.
// It wraps the error from the final attempt.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("failed to generate answer after %d attempts: %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
