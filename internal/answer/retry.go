package answer

import (
	"context"
	"fmt"
	"time"

	"github.com/companyq/companyq/internal/log"
)

// RetryConfig configures the retry behavior around retrieval + generation.
type RetryConfig struct {
	MaxAttempts     int           // total attempts, including the first
	InitialInterval time.Duration // backoff before the second attempt
	MaxInterval     time.Duration // backoff ceiling
}

// DefaultRetryConfig returns the production retry policy: three attempts
// with exponential backoff (1s, 2s).
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     8 * time.Second,
	}
}

// executeWithRetry runs op with exponential backoff. The retryable predicate
// decides whether an error is worth another attempt; non-retryable errors
// return immediately. The backoff sleep honors ctx so a canceled request
// never holds its goroutine.
func executeWithRetry(
	ctx context.Context,
	cfg RetryConfig,
	logger log.Logger,
	retryable func(error) bool,
	op func(context.Context) (string, error),
) (string, error) {
	var lastErr error
	delay := cfg.InitialInterval
	start := time.Now()

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			logger.Debug("operation succeeded",
				"attempts", attempt,
				"elapsed", time.Since(start),
			)
			return result, nil
		}

		lastErr = err

		if !retryable(err) {
			return "", err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		logger.Warn("operation failed, retrying",
			"attempt", attempt,
			"max_attempts", cfg.MaxAttempts,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("canceled during retry backoff: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, cfg.MaxInterval)
		}
	}

	return "", &GenerationError{Attempts: cfg.MaxAttempts, Err: lastErr}
}
