package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"

	"github.com/companyq/companyq/internal/log"
	"github.com/companyq/companyq/internal/testutil"
)

// tableEmbedder returns a fixed vector per input text so similarity ordering
// in the database is fully deterministic.
type tableEmbedder struct {
	vectors map[string][]float32
}

func (e *tableEmbedder) Name() string { return "table-embedder" }

func (e *tableEmbedder) Register(_ api.Registry) {}

func (e *tableEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	text := req.Input[0].Content[0].Text
	v, ok := e.vectors[text]
	if !ok {
		return nil, errors.New("no vector defined for input: " + text)
	}
	return &ai.EmbedResponse{Embeddings: []*ai.Embedding{{Embedding: v}}}, nil
}

func setupIntegration(t *testing.T) (*testutil.TestDB, *PgxQuerier) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	tdb := testutil.SetupTestDB(t)
	return tdb, NewPgxQuerier(tdb.Pool)
}

func TestIntegration_AddAndRetrieve(t *testing.T) {
	_, querier := setupIntegration(t)
	ctx := context.Background()

	embedder := &tableEmbedder{vectors: map[string][]float32{
		"Databases are stored on disk.":    {1, 0, 0},
		"Compilers translate source code.": {0, 1, 0},
		"Sailboats use wind for power.":    {0, 0, 1},
		"how is data persisted":            {0.9, 0.1, 0},
	}}

	store, err := NewStore(ctx, querier, embedder, LocalMetadata("nomic-embed-text"), log.NewNop(), StoreOptions{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	docs := []Document{
		{Content: "Databases are stored on disk.", Metadata: map[string]string{"source": "db.md", "type": "text"}},
		{Content: "Compilers translate source code.", Metadata: map[string]string{"source": "compilers.md", "type": "text"}},
		{Content: "Sailboats use wind for power.", Metadata: map[string]string{"source": "boats.md", "type": "text"}},
	}
	if err := store.AddDocuments(ctx, docs); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}

	count, err := querier.CountDocuments(ctx)
	if err != nil {
		t.Fatalf("CountDocuments: %v", err)
	}
	if count != 3 {
		t.Fatalf("CountDocuments = %d, want 3", count)
	}

	got, err := store.Retrieve(ctx, "how is data persisted", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Retrieve returned %d documents, want 2", len(got))
	}
	if got[0].Content != "Databases are stored on disk." {
		t.Errorf("closest document = %q, want the database one", got[0].Content)
	}
	if got[0].Metadata["source"] != "db.md" {
		t.Errorf("metadata source = %q, want %q", got[0].Metadata["source"], "db.md")
	}
}

func TestIntegration_DeleteCollection(t *testing.T) {
	_, querier := setupIntegration(t)
	ctx := context.Background()

	embedder := &tableEmbedder{vectors: map[string][]float32{
		"alpha": {1, 0},
		"beta":  {0, 1},
	}}

	store, err := NewStore(ctx, querier, embedder, LocalMetadata("nomic-embed-text"), log.NewNop(), StoreOptions{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	docs := []Document{
		{Content: "alpha", Metadata: map[string]string{"source": "a"}},
		{Content: "beta", Metadata: map[string]string{"source": "b"}},
	}
	if err := store.AddDocuments(ctx, docs); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}

	if err := store.DeleteCollection(ctx); err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}

	count, err := querier.CountDocuments(ctx)
	if err != nil {
		t.Fatalf("CountDocuments: %v", err)
	}
	if count != 0 {
		t.Errorf("CountDocuments after delete = %d, want 0", count)
	}
}

func TestIntegration_MetadataLifecycle(t *testing.T) {
	tdb, querier := setupIntegration(t)
	ctx := context.Background()

	embedder := &tableEmbedder{vectors: map[string][]float32{
		"seed document": {1, 0, 0},
	}}

	store, err := NewStore(ctx, querier, embedder, LocalMetadata("nomic-embed-text"), log.NewNop(), StoreOptions{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	docs := []Document{{Content: "seed document", Metadata: map[string]string{"source": "seed"}}}
	if err := store.AddDocuments(ctx, docs); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}
	if err := store.SaveMetadata(ctx); err != nil {
		t.Fatalf("SaveMetadata: %v", err)
	}

	// Reopening with the same configuration validates cleanly.
	if _, err := NewStore(ctx, querier, embedder, LocalMetadata("nomic-embed-text"), log.NewNop(), StoreOptions{}); err != nil {
		t.Fatalf("NewStore with matching metadata: %v", err)
	}

	// A different model from the same provider still matches: only provider
	// and dimension participate in the comparison.
	if _, err := NewStore(ctx, querier, embedder, LocalMetadata("all-minilm"), log.NewNop(), StoreOptions{}); err != nil {
		t.Fatalf("NewStore with same-dimension local model: %v", err)
	}

	// Switching providers changes the embedding space and must be refused.
	_, err = NewStore(ctx, querier, embedder, CloudMetadata("text-embedding-3-small"), log.NewNop(), StoreOptions{})
	var mismatch *MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("NewStore with cloud metadata: got %v, want *MismatchError", err)
	}

	// A legacy index (documents present, no stored configuration) is allowed
	// through with a warning instead of being rejected.
	if _, err := tdb.Pool.Exec(ctx, "DELETE FROM embedding_config"); err != nil {
		t.Fatalf("clearing embedding_config: %v", err)
	}
	if _, err := NewStore(ctx, querier, embedder, CloudMetadata("text-embedding-3-small"), log.NewNop(), StoreOptions{}); err != nil {
		t.Fatalf("NewStore against legacy index: %v", err)
	}
}
