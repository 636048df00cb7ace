// Package knowledge implements the vector store for retrieval-augmented
// question answering: document persistence with pgvector similarity search,
// plus embedding-metadata tracking that guards against dimension mismatches
// between ingestion and query time.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/companyq/companyq/internal/log"
)

// ErrUnavailable indicates the vector index could not be reached or is
// corrupted. Errors wrapping it are transient from the orchestrator's point
// of view and eligible for retry.
var ErrUnavailable = errors.New("vector store unavailable")

// errNoMetadata is returned by queriers when no embedding configuration row
// has been persisted yet.
var errNoMetadata = errors.New("no embedding metadata stored")

// searchTimeout bounds a single similarity search so a stuck query cannot
// hold a request forever.
const searchTimeout = 10 * time.Second

// InsertDocumentParams carries one document row for insertion.
type InsertDocumentParams struct {
	ID        string
	Content   string
	Embedding pgvector.Vector
	Metadata  []byte
}

// SearchDocumentsRow is one similarity search hit.
type SearchDocumentsRow struct {
	Content    string
	Metadata   []byte
	Similarity float32
}

// Querier defines the database operations Store depends on. The interface is
// defined by the consumer so tests can substitute an in-memory fake for the
// pgx-backed implementation.
type Querier interface {
	InsertDocument(ctx context.Context, arg InsertDocumentParams) error
	SearchDocuments(ctx context.Context, embedding pgvector.Vector, limit int32) ([]SearchDocumentsRow, error)
	CountDocuments(ctx context.Context) (int64, error)
	TruncateDocuments(ctx context.Context) error

	// GetEmbeddingConfig returns the persisted metadata payload, or
	// errNoMetadata when ingestion has never written one.
	GetEmbeddingConfig(ctx context.Context) ([]byte, error)
	UpsertEmbeddingConfig(ctx context.Context, payload []byte) error
}

// Store manages knowledge documents with vector search over PostgreSQL +
// pgvector. The embedding vector column is dimensionless, so the metadata
// validation performed at construction is the only guard against mixing
// embedding spaces.
//
// Store is safe for concurrent use after construction.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	meta     Metadata
	logger   log.Logger
}

// StoreOptions configures store construction.
type StoreOptions struct {
	// SkipValidation disables the startup embedding-metadata check.
	// Ingestion uses this to open a store it is about to rebuild.
	SkipValidation bool
}

// NewStore creates a Store and validates the active embedding configuration
// against the metadata persisted with the index.
//
// Validation runs only when the index already holds documents. A populated
// index without stored metadata predates metadata tracking; that case is
// logged and skipped for backward compatibility. A mismatch returns
// *MismatchError and the store must not be used.
func NewStore(ctx context.Context, querier Querier, embedder ai.Embedder, meta Metadata, logger log.Logger, opts StoreOptions) (*Store, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	s := &Store{
		queries:  querier,
		embedder: embedder,
		meta:     meta,
		logger:   logger,
	}

	if !opts.SkipValidation {
		if err := s.validateMetadata(ctx); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// validateMetadata compares the active embedding configuration against the
// one stored alongside the index. This is a structural precondition checked
// once at startup, never per query.
func (s *Store) validateMetadata(ctx context.Context) error {
	count, err := s.queries.CountDocuments(ctx)
	if err != nil {
		return fmt.Errorf("%w: counting documents: %w", ErrUnavailable, err)
	}
	if count == 0 {
		// Nothing ingested yet, nothing to validate against.
		return nil
	}

	stored, err := s.loadMetadata(ctx)
	if err != nil {
		if errors.Is(err, errNoMetadata) {
			s.logger.Warn("no embedding metadata stored for existing index, skipping validation",
				"hint", "index predates metadata tracking; re-ingest to record it",
				"current", s.meta.String())
			return nil
		}
		return err
	}

	if !s.meta.Matches(stored) {
		return &MismatchError{Expected: stored, Actual: s.meta}
	}

	s.logger.Info("embedding metadata validated", "metadata", stored.String())
	return nil
}

// Retrieve embeds the query and returns up to k documents ordered by
// decreasing cosine similarity. Ties are broken by index order.
func (s *Store) Retrieve(ctx context.Context, query string, k int) ([]Document, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	embedding, err := s.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %w", ErrUnavailable, err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	rows, err := s.queries.SearchDocuments(searchCtx, embedding, int32(k)) // #nosec G115 -- k validated above
	if err != nil {
		return nil, fmt.Errorf("%w: similarity search: %w", ErrUnavailable, err)
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		metadata := map[string]string{}
		if len(row.Metadata) > 0 {
			if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
				s.logger.Warn("skipping malformed document metadata", "error", err)
				metadata = map[string]string{}
			}
		}
		docs = append(docs, Document{Content: row.Content, Metadata: metadata})
	}

	s.logger.Debug("retrieved documents", "query_length", len(query), "k", k, "hits", len(docs))
	return docs, nil
}

// AddDocuments embeds and inserts documents in bulk. Used by ingestion.
func (s *Store) AddDocuments(ctx context.Context, docs []Document) error {
	for i, doc := range docs {
		embedding, err := s.embed(ctx, doc.Content)
		if err != nil {
			return fmt.Errorf("%w: embedding document %d: %w", ErrUnavailable, i, err)
		}

		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for document %d: %w", i, err)
		}

		err = s.queries.InsertDocument(ctx, InsertDocumentParams{
			ID:        uuid.NewString(),
			Content:   doc.Content,
			Embedding: embedding,
			Metadata:  metadataJSON,
		})
		if err != nil {
			return fmt.Errorf("%w: inserting document %d: %w", ErrUnavailable, i, err)
		}
	}

	s.logger.Info("documents added", "count", len(docs))
	return nil
}

// DeleteCollection removes every document from the index. Used before
// re-ingestion; the embedding metadata row is left in place until the next
// SaveMetadata overwrites it.
func (s *Store) DeleteCollection(ctx context.Context) error {
	if err := s.queries.TruncateDocuments(ctx); err != nil {
		return fmt.Errorf("%w: truncating documents: %w", ErrUnavailable, err)
	}
	s.logger.Info("collection deleted")
	return nil
}

// SaveMetadata persists the active embedding configuration alongside the
// index. Ingestion calls this after (re)building the index so future
// startups can validate against it.
func (s *Store) SaveMetadata(ctx context.Context) error {
	payload, err := json.Marshal(s.meta)
	if err != nil {
		return fmt.Errorf("marshaling embedding metadata: %w", err)
	}

	if err := s.queries.UpsertEmbeddingConfig(ctx, payload); err != nil {
		return fmt.Errorf("%w: saving embedding metadata: %w", ErrUnavailable, err)
	}

	s.logger.Info("embedding metadata saved", "metadata", s.meta.String())
	return nil
}

// Metadata returns the active embedding configuration.
func (s *Store) Metadata() Metadata {
	return s.meta
}

// loadMetadata reads the persisted embedding configuration.
func (s *Store) loadMetadata(ctx context.Context) (Metadata, error) {
	payload, err := s.queries.GetEmbeddingConfig(ctx)
	if err != nil {
		if errors.Is(err, errNoMetadata) {
			return Metadata{}, err
		}
		return Metadata{}, fmt.Errorf("%w: loading embedding metadata: %w", ErrUnavailable, err)
	}

	var meta Metadata
	if err := json.Unmarshal(payload, &meta); err != nil {
		return Metadata{}, fmt.Errorf("parsing stored embedding metadata: %w", err)
	}

	return meta, nil
}

// embed generates the embedding vector for a single text.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(text, nil)},
	})
	if err != nil {
		return pgvector.Vector{}, err
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, errors.New("empty embedding returned")
	}

	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}
