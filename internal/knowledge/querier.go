package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgxQuerier implements Querier against PostgreSQL via a pgx connection
// pool. The pool is shared with the rest of the application and is not
// closed by this type.
type PgxQuerier struct {
	pool *pgxpool.Pool
}

// NewPgxQuerier creates a querier backed by the given pool.
func NewPgxQuerier(pool *pgxpool.Pool) *PgxQuerier {
	return &PgxQuerier{pool: pool}
}

const insertDocumentSQL = `
INSERT INTO documents (id, content, embedding, metadata)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET content = EXCLUDED.content,
    embedding = EXCLUDED.embedding,
    metadata = EXCLUDED.metadata`

// InsertDocument inserts or replaces a document row.
func (q *PgxQuerier) InsertDocument(ctx context.Context, arg InsertDocumentParams) error {
	_, err := q.pool.Exec(ctx, insertDocumentSQL, arg.ID, arg.Content, arg.Embedding, arg.Metadata)
	if err != nil {
		return fmt.Errorf("inserting document %q: %w", arg.ID, err)
	}
	return nil
}

const searchDocumentsSQL = `
SELECT content, metadata, 1 - (embedding <=> $1) AS similarity
FROM documents
ORDER BY embedding <=> $1
LIMIT $2`

// SearchDocuments returns the nearest documents by cosine distance.
// Rows insert order breaks ties because pgvector's <=> operator is stable
// over the sequential scan.
func (q *PgxQuerier) SearchDocuments(ctx context.Context, embedding pgvector.Vector, limit int32) ([]SearchDocumentsRow, error) {
	rows, err := q.pool.Query(ctx, searchDocumentsSQL, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var results []SearchDocumentsRow
	for rows.Next() {
		var row SearchDocumentsRow
		if err := rows.Scan(&row.Content, &row.Metadata, &row.Similarity); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}

	return results, nil
}

// CountDocuments returns the number of documents in the index.
func (q *PgxQuerier) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	if err := q.pool.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

// TruncateDocuments removes all documents.
func (q *PgxQuerier) TruncateDocuments(ctx context.Context) error {
	if _, err := q.pool.Exec(ctx, `TRUNCATE documents`); err != nil {
		return fmt.Errorf("truncating documents: %w", err)
	}
	return nil
}

// GetEmbeddingConfig loads the persisted embedding metadata payload.
func (q *PgxQuerier) GetEmbeddingConfig(ctx context.Context) ([]byte, error) {
	var payload []byte
	err := q.pool.QueryRow(ctx, `SELECT config FROM embedding_config WHERE id = 1`).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNoMetadata
		}
		return nil, fmt.Errorf("loading embedding config: %w", err)
	}
	return payload, nil
}

const upsertEmbeddingConfigSQL = `
INSERT INTO embedding_config (id, config, updated_at)
VALUES (1, $1, now())
ON CONFLICT (id) DO UPDATE
SET config = EXCLUDED.config,
    updated_at = now()`

// UpsertEmbeddingConfig stores the embedding metadata payload, replacing any
// previous one.
func (q *PgxQuerier) UpsertEmbeddingConfig(ctx context.Context, payload []byte) error {
	if _, err := q.pool.Exec(ctx, upsertEmbeddingConfigSQL, payload); err != nil {
		return fmt.Errorf("saving embedding config: %w", err)
	}
	return nil
}
