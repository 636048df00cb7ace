// Package llm provides the text-generation capability used by the
// question-answering flow. A Client wraps one provider model registered on
// the process-wide Genkit instance; the instance holds the pooled HTTP
// connections, so every request reuses the same underlying client.
package llm

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/companyq/companyq/internal/log"
)

// Provider identifiers accepted by New. They mirror the configuration enum.
const (
	ProviderLocal = "local" // Ollama inference server
	ProviderCloud = "cloud" // OpenAI API
)

// Client is the generation capability. Implementations are long-lived
// singletons constructed once at startup and shared across requests.
type Client interface {
	// Generate produces a completion for prompt at the given sampling
	// temperature. It blocks on network I/O and honors ctx cancellation.
	Generate(ctx context.Context, prompt string, temperature float32) (string, error)

	// ModelName returns the model identifier for logging.
	ModelName() string
}

// genkitClient implements Client over a model registered with Genkit.
type genkitClient struct {
	g         *genkit.Genkit
	provider  string
	model     string
	qualified string // provider-qualified Genkit model name
	logger    log.Logger
}

// New creates the Client for the configured provider. The model must already
// be registered on g by the corresponding provider plugin (done during
// application setup).
func New(g *genkit.Genkit, provider, model string, logger log.Logger) (Client, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	var qualified string
	switch provider {
	case ProviderLocal:
		qualified = "ollama/" + model
	case ProviderCloud:
		qualified = "openai/" + model
	default:
		return nil, fmt.Errorf("unknown LLM provider %q (want %q or %q)", provider, ProviderLocal, ProviderCloud)
	}

	return &genkitClient{
		g:         g,
		provider:  provider,
		model:     model,
		qualified: qualified,
		logger:    logger,
	}, nil
}

func (c *genkitClient) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	resp, err := genkit.Generate(ctx, c.g,
		ai.WithModelName(c.qualified),
		ai.WithPrompt(prompt),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature: float64(temperature),
		}),
	)
	if err != nil {
		return "", &ProviderError{
			Provider:   c.provider,
			Model:      c.model,
			StatusCode: extractStatusCode(err),
			Err:        err,
		}
	}

	text := resp.Text()
	if text == "" {
		return "", &ProviderError{
			Provider: c.provider,
			Model:    c.model,
			Err:      fmt.Errorf("model returned no text"),
		}
	}

	c.logger.Debug("generation complete",
		"model", c.qualified,
		"prompt_length", len(prompt),
		"response_length", len(text),
	)

	return text, nil
}

func (c *genkitClient) ModelName() string {
	return c.model
}
