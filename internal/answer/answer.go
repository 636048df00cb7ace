// Package answer orchestrates the question answering pipeline: validate the
// question, retrieve relevant documents, build a grounded prompt, generate a
// response, and validate the output. Transient failures anywhere past input
// validation are retried with exponential backoff.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/companyq/companyq/internal/knowledge"
	"github.com/companyq/companyq/internal/log"
	"github.com/companyq/companyq/internal/validate"
)

const (
	// TopK is the number of documents retrieved per question.
	TopK = 5

	// Temperature used for answer generation.
	Temperature float32 = 0.7

	contextSeparator = "\n\n"
)

const promptTemplate = `You are an assistant that answers questions about the company using only the context below.

Rules:
- Answer using only information found in the context.
- If the context does not contain enough information to answer, reply "I don't know".
- Answer in the same language as the question.
- Keep the answer to 2-3 sentences.

Context:
%s

Question: %s

Answer:`

// Retriever fetches the k most relevant documents for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]knowledge.Document, error)
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float32) (string, error)
	ModelName() string
}

// Answerer runs the retrieval-augmented answering pipeline.
type Answerer struct {
	retriever Retriever
	generator Generator
	retry     RetryConfig
	logger    log.Logger
}

// Option customizes an Answerer.
type Option func(*Answerer)

// WithRetryConfig overrides the default retry policy.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(a *Answerer) {
		a.retry = cfg
	}
}

// New creates an Answerer with the default retry policy.
func New(retriever Retriever, generator Generator, logger log.Logger, opts ...Option) *Answerer {
	a := &Answerer{
		retriever: retriever,
		generator: generator,
		retry:     DefaultRetryConfig(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Answer produces a grounded answer for question.
//
// Input validation runs once, before any retrieval or generation; its errors
// are returned as-is and never retried. Everything downstream (retrieval,
// generation, output validation) runs inside the retry loop, and exhaustion
// surfaces as a *GenerationError wrapping the last failure.
func (a *Answerer) Answer(ctx context.Context, question string) (string, error) {
	validated, err := validate.Input(question)
	if err != nil {
		return "", err
	}

	result, err := executeWithRetry(ctx, a.retry, a.logger, retryableError,
		func(ctx context.Context) (string, error) {
			return a.attempt(ctx, validated)
		})
	if err != nil {
		a.logger.Error("answer pipeline failed",
			"model", a.generator.ModelName(),
			"error", err,
		)
		return "", err
	}

	return result, nil
}

// attempt runs a single pass of the pipeline.
func (a *Answerer) attempt(ctx context.Context, question string) (string, error) {
	docs, err := a.retriever.Retrieve(ctx, question, TopK)
	if err != nil {
		return "", fmt.Errorf("retrieving context: %w", err)
	}

	prompt := buildPrompt(question, docs)

	raw, err := a.generator.Generate(ctx, prompt, Temperature)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}

	return validate.Output(raw)
}

func buildPrompt(question string, docs []knowledge.Document) string {
	contents := make([]string, 0, len(docs))
	for _, doc := range docs {
		contents = append(contents, doc.Content)
	}
	return fmt.Sprintf(promptTemplate, strings.Join(contents, contextSeparator), question)
}

// retryableError reports whether another attempt could plausibly succeed.
// Rejected model output (the "answer" field) is retryable: generation is
// stochastic and a retry may produce valid text. A rejected question never
// reaches here, but stays non-retryable in case a caller feeds one through.
func retryableError(err error) bool {
	var ve *validate.Error
	if errors.As(err, &ve) {
		return ve.Field == "answer"
	}
	return true
}
