package answer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/companyq/companyq/internal/knowledge"
	"github.com/companyq/companyq/internal/log"
	"github.com/companyq/companyq/internal/validate"
)

type stubRetriever struct {
	docs      []knowledge.Document
	err       error
	calls     int
	lastQuery string
	lastK     int
}

func (r *stubRetriever) Retrieve(_ context.Context, query string, k int) ([]knowledge.Document, error) {
	r.calls++
	r.lastQuery = query
	r.lastK = k
	if r.err != nil {
		return nil, r.err
	}
	return r.docs, nil
}

type stubGenerator struct {
	responses  []string
	errs       []error
	calls      int
	lastPrompt string
	lastTemp   float32
}

func (g *stubGenerator) Generate(_ context.Context, prompt string, temperature float32) (string, error) {
	i := g.calls
	g.calls++
	g.lastPrompt = prompt
	g.lastTemp = temperature
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.responses) {
		return g.responses[i], nil
	}
	return g.responses[len(g.responses)-1], nil
}

func (g *stubGenerator) ModelName() string { return "stub-model" }

// fastRetry keeps test backoff negligible.
func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 4 * time.Millisecond}
}

func newTestAnswerer(r Retriever, g Generator) *Answerer {
	return New(r, g, log.NewNop(), WithRetryConfig(fastRetry()))
}

func TestAnswerSuccess(t *testing.T) {
	retriever := &stubRetriever{docs: []knowledge.Document{
		{Content: "Acme Corp was founded in 2010."},
		{Content: "Acme provides technology consulting services to enterprise clients."},
	}}
	generator := &stubGenerator{responses: []string{"Acme offers technology consulting services."}}

	a := newTestAnswerer(retriever, generator)

	got, err := a.Answer(context.Background(), "What services does Acme offer?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got != "Acme offers technology consulting services." {
		t.Errorf("Answer() = %q", got)
	}
	if retriever.calls != 1 {
		t.Errorf("retriever calls = %d, want 1", retriever.calls)
	}
	if retriever.lastK != TopK {
		t.Errorf("retrieve k = %d, want %d", retriever.lastK, TopK)
	}
	if generator.lastTemp != Temperature {
		t.Errorf("temperature = %v, want %v", generator.lastTemp, Temperature)
	}
}

func TestAnswerPromptContents(t *testing.T) {
	retriever := &stubRetriever{docs: []knowledge.Document{
		{Content: "First document."},
		{Content: "Second document."},
	}}
	generator := &stubGenerator{responses: []string{"A valid answer."}}

	a := newTestAnswerer(retriever, generator)

	if _, err := a.Answer(context.Background(), "What is in the documents?"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	prompt := generator.lastPrompt
	if !strings.Contains(prompt, "What is in the documents?") {
		t.Error("prompt missing the question")
	}
	if !strings.Contains(prompt, "First document.\n\nSecond document.") {
		t.Error("prompt missing documents joined by blank line")
	}
	if !strings.Contains(prompt, `"I don't know"`) {
		t.Error("prompt missing the insufficient-context instruction")
	}
	if !strings.Contains(prompt, "same language as the question") {
		t.Error("prompt missing the language instruction")
	}
}

func TestAnswerInvalidInputSkipsPipeline(t *testing.T) {
	retriever := &stubRetriever{}
	generator := &stubGenerator{responses: []string{"unused"}}

	a := newTestAnswerer(retriever, generator)

	_, err := a.Answer(context.Background(), "ab")
	if !validate.IsValidationError(err) {
		t.Fatalf("Answer() error = %v, want validation error", err)
	}
	if retriever.calls != 0 {
		t.Errorf("retriever calls = %d, want 0", retriever.calls)
	}
	if generator.calls != 0 {
		t.Errorf("generator calls = %d, want 0", generator.calls)
	}
}

func TestAnswerRetriesTransientFailures(t *testing.T) {
	boom := errors.New("model overloaded")
	retriever := &stubRetriever{docs: []knowledge.Document{{Content: "Some context."}}}
	generator := &stubGenerator{
		errs:      []error{boom, boom, nil},
		responses: []string{"", "", "A valid answer at last."},
	}

	a := newTestAnswerer(retriever, generator)

	got, err := a.Answer(context.Background(), "Will this eventually work?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got != "A valid answer at last." {
		t.Errorf("Answer() = %q", got)
	}
	if generator.calls != 3 {
		t.Errorf("generator calls = %d, want 3", generator.calls)
	}
}

func TestAnswerRetriesInvalidOutput(t *testing.T) {
	retriever := &stubRetriever{docs: []knowledge.Document{{Content: "Some context."}}}
	generator := &stubGenerator{responses: []string{"", "ok", "A proper answer this time."}}

	a := newTestAnswerer(retriever, generator)

	got, err := a.Answer(context.Background(), "Can a short answer recover?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got != "A proper answer this time." {
		t.Errorf("Answer() = %q", got)
	}
	if generator.calls != 3 {
		t.Errorf("generator calls = %d, want 3", generator.calls)
	}
}

func TestAnswerExhaustsRetries(t *testing.T) {
	boom := errors.New("connection refused")
	retriever := &stubRetriever{err: boom}
	generator := &stubGenerator{responses: []string{"unused"}}

	a := newTestAnswerer(retriever, generator)

	_, err := a.Answer(context.Background(), "Is the store reachable?")

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("Answer() error = %v, want *GenerationError", err)
	}
	if genErr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", genErr.Attempts)
	}
	if !errors.Is(err, boom) {
		t.Error("GenerationError does not wrap the final cause")
	}
	if retriever.calls != 3 {
		t.Errorf("retriever calls = %d, want 3", retriever.calls)
	}
	if generator.calls != 0 {
		t.Errorf("generator calls = %d, want 0", generator.calls)
	}
}

func TestAnswerEmptyIndex(t *testing.T) {
	retriever := &stubRetriever{docs: nil}
	generator := &stubGenerator{responses: []string{"I don't know"}}

	a := newTestAnswerer(retriever, generator)

	got, err := a.Answer(context.Background(), "What does the empty index say?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got != "I don't know" {
		t.Errorf("Answer() = %q", got)
	}
	if !strings.Contains(generator.lastPrompt, "Context:\n\n") {
		t.Error("prompt should carry an empty context section")
	}
}

func TestRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"plain error", errors.New("timeout"), true},
		{"wrapped plain error", errors.New("wrapped: timeout"), true},
		{"output validation", &validate.Error{Kind: validate.KindTooShort, Field: "answer", Limit: validate.MinOutputLength}, true},
		{"input validation", &validate.Error{Kind: validate.KindTooShort, Field: "question", Limit: validate.MinInputLength}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryableError(tt.err); got != tt.want {
				t.Errorf("retryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
