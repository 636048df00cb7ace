// Package ingest builds the knowledge base: it loads documents from disk,
// optionally crawls the company website, splits everything into overlapping
// chunks, and writes the chunks and their embedding metadata to the vector
// store. Reingestion replaces the whole collection atomically from the
// caller's point of view and is guarded by a file lock so two runs cannot
// interleave.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/companyq/companyq/internal/knowledge"
	"github.com/companyq/companyq/internal/log"
)

var (
	// ErrAlreadyRunning indicates another ingestion holds the lock.
	ErrAlreadyRunning = errors.New("ingestion already running")

	// ErrNoDocuments indicates nothing was found to ingest.
	ErrNoDocuments = errors.New("no documents to ingest")
)

// Store is the subset of the vector store the ingestor needs.
type Store interface {
	DeleteCollection(ctx context.Context) error
	AddDocuments(ctx context.Context, docs []knowledge.Document) error
	SaveMetadata(ctx context.Context) error
}

// Stats summarizes an ingestion run.
type Stats struct {
	Documents int           `json:"documents"`
	Chunks    int           `json:"chunks"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Ingestor coordinates a full reingestion run.
type Ingestor struct {
	store    Store
	scraper  *Scraper
	chunker  *Chunker
	docsDir  string
	siteURL  string
	lockPath string
	logger   log.Logger
}

// New creates an Ingestor. docsDir is scanned for PDF and text files;
// siteURL, when non-empty, is crawled for supplementary content.
func New(store Store, docsDir, siteURL string, logger log.Logger) *Ingestor {
	return &Ingestor{
		store:    store,
		scraper:  NewScraper(logger),
		chunker:  NewChunker(),
		docsDir:  docsDir,
		siteURL:  siteURL,
		lockPath: filepath.Join(os.TempDir(), "companyq-ingest.lock"),
		logger:   logger,
	}
}

// Reingest rebuilds the knowledge base from scratch: documents first (the
// authoritative company material), then the website as supplementary content.
// The existing collection is only dropped once new content is in hand, and
// the embedding metadata is saved last so a half-finished run never records
// a config for vectors it did not write.
//
// Returns ErrAlreadyRunning when another run holds the ingestion lock.
func (in *Ingestor) Reingest(ctx context.Context) (*Stats, error) {
	lock := flock.New(in.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring ingestion lock: %w", err)
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			in.logger.Warn("failed to release ingestion lock", "path", in.lockPath, "error", err)
		}
	}()

	start := time.Now()

	docs, err := loadDocuments(in.docsDir)
	if err != nil {
		return nil, err
	}
	in.logger.Info("documents loaded", "dir", in.docsDir, "count", len(docs))

	if in.siteURL != "" {
		scraped, err := in.scraper.Scrape(ctx, in.siteURL)
		if err != nil {
			// Website content is supplementary; keep going with what we have.
			in.logger.Warn("website scraping failed", "url", in.siteURL, "error", err)
		} else {
			docs = append(docs, scraped...)
		}
	}

	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	chunks := in.chunkAll(docs)
	in.logger.Info("documents chunked", "documents", len(docs), "chunks", len(chunks))

	if err := in.store.DeleteCollection(ctx); err != nil {
		return nil, fmt.Errorf("clearing existing collection: %w", err)
	}
	if err := in.store.AddDocuments(ctx, chunks); err != nil {
		return nil, fmt.Errorf("storing chunks: %w", err)
	}
	if err := in.store.SaveMetadata(ctx); err != nil {
		return nil, fmt.Errorf("saving embedding metadata: %w", err)
	}

	stats := &Stats{
		Documents: len(docs),
		Chunks:    len(chunks),
		Elapsed:   time.Since(start),
	}
	in.logger.Info("ingestion completed",
		"documents", stats.Documents,
		"chunks", stats.Chunks,
		"elapsed", stats.Elapsed,
	)
	return stats, nil
}

// chunkAll splits each document and propagates its source metadata to every
// chunk.
func (in *Ingestor) chunkAll(docs []knowledge.Document) []knowledge.Document {
	var chunks []knowledge.Document
	for _, doc := range docs {
		for _, piece := range in.chunker.Split(doc.Content) {
			meta := make(map[string]string, len(doc.Metadata))
			for k, v := range doc.Metadata {
				meta[k] = v
			}
			chunks = append(chunks, knowledge.Document{Content: piece, Metadata: meta})
		}
	}
	return chunks
}
