package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"

	"github.com/companyq/companyq/internal/knowledge"
	"github.com/companyq/companyq/internal/log"
)

type mockStore struct {
	deleteCalls int
	addCalls    int
	saveCalls   int
	added       []knowledge.Document
	deleteErr   error
	addErr      error
	saveErr     error
}

func (m *mockStore) DeleteCollection(context.Context) error {
	m.deleteCalls++
	return m.deleteErr
}

func (m *mockStore) AddDocuments(_ context.Context, docs []knowledge.Document) error {
	m.addCalls++
	if m.addErr != nil {
		return m.addErr
	}
	m.added = append(m.added, docs...)
	return nil
}

func (m *mockStore) SaveMetadata(context.Context) error {
	m.saveCalls++
	return m.saveErr
}

// newTestIngestor points the lock at a per-test path so parallel test runs
// cannot collide.
func newTestIngestor(t *testing.T, store Store, docsDir string) *Ingestor {
	t.Helper()
	in := New(store, docsDir, "", log.NewNop())
	in.lockPath = filepath.Join(t.TempDir(), "ingest.lock")
	return in
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReingest(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "about.txt", "The company was founded in May 2023. It provides consulting services.")
	writeDoc(t, dir, "services.md", "Services include GenAI product delivery and department automation.")

	store := &mockStore{}
	in := newTestIngestor(t, store, dir)

	stats, err := in.Reingest(context.Background())
	if err != nil {
		t.Fatalf("Reingest() error = %v", err)
	}

	if stats.Documents != 2 {
		t.Errorf("Documents = %d, want 2", stats.Documents)
	}
	if stats.Chunks < 2 {
		t.Errorf("Chunks = %d, want at least 2", stats.Chunks)
	}
	if store.deleteCalls != 1 || store.addCalls != 1 || store.saveCalls != 1 {
		t.Errorf("store calls delete/add/save = %d/%d/%d, want 1/1/1",
			store.deleteCalls, store.addCalls, store.saveCalls)
	}

	for _, doc := range store.added {
		if doc.Metadata["source"] == "" {
			t.Error("chunk missing source metadata")
		}
		if doc.Metadata["type"] != "text" {
			t.Errorf("chunk type = %q, want %q", doc.Metadata["type"], "text")
		}
	}
}

func TestReingestEmptyDirectory(t *testing.T) {
	store := &mockStore{}
	in := newTestIngestor(t, store, t.TempDir())

	_, err := in.Reingest(context.Background())
	if !errors.Is(err, ErrNoDocuments) {
		t.Fatalf("Reingest() error = %v, want ErrNoDocuments", err)
	}
	if store.deleteCalls != 0 {
		t.Error("collection deleted despite having nothing to ingest")
	}
}

func TestReingestMissingDirectory(t *testing.T) {
	store := &mockStore{}
	in := newTestIngestor(t, store, filepath.Join(t.TempDir(), "does-not-exist"))

	_, err := in.Reingest(context.Background())
	if !errors.Is(err, ErrNoDocuments) {
		t.Fatalf("Reingest() error = %v, want ErrNoDocuments", err)
	}
}

func TestReingestLockedByOtherRun(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "doc.txt", "Some content for the knowledge base.")

	store := &mockStore{}
	in := newTestIngestor(t, store, dir)

	// Hold the lock the way a concurrent run would.
	other := flock.New(in.lockPath)
	locked, err := other.TryLock()
	if err != nil || !locked {
		t.Fatalf("acquiring test lock: locked=%v err=%v", locked, err)
	}

	if _, err := in.Reingest(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("Reingest() error = %v, want ErrAlreadyRunning", err)
	}
	if store.deleteCalls != 0 {
		t.Error("locked run must not touch the store")
	}

	if err := other.Unlock(); err != nil {
		t.Fatalf("releasing test lock: %v", err)
	}

	if _, err := in.Reingest(context.Background()); err != nil {
		t.Fatalf("Reingest() after release error = %v", err)
	}
}

func TestReingestStoreFailures(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "doc.txt", "Some content for the knowledge base.")

	tests := []struct {
		name  string
		store *mockStore
	}{
		{"delete fails", &mockStore{deleteErr: errors.New("truncate failed")}},
		{"add fails", &mockStore{addErr: errors.New("insert failed")}},
		{"save fails", &mockStore{saveErr: errors.New("upsert failed")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newTestIngestor(t, tt.store, dir)
			if _, err := in.Reingest(context.Background()); err == nil {
				t.Fatal("Reingest() error = nil, want error")
			}
		})
	}
}

func TestLoadDocumentsSkipsUnsupportedFiles(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "keep.txt", "Plain text content.")
	writeDoc(t, dir, "skip.json", `{"ignored": true}`)
	writeDoc(t, dir, "also-skip.html", "<p>ignored</p>")

	docs, err := loadDocuments(dir)
	if err != nil {
		t.Fatalf("loadDocuments() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("loadDocuments() returned %d docs, want 1", len(docs))
	}
	if docs[0].Metadata["source"] != "keep.txt" {
		t.Errorf("source = %q, want keep.txt", docs[0].Metadata["source"])
	}
}

func TestLoadDocumentsSkipsEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "empty.txt", "   \n\n  ")
	writeDoc(t, dir, "real.txt", "Actual content.")

	docs, err := loadDocuments(dir)
	if err != nil {
		t.Fatalf("loadDocuments() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("loadDocuments() returned %d docs, want 1", len(docs))
	}
}

func TestLoadDocumentsPreprocesses(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "messy.txt", "line one\r\n\r\n\r\n\r\nline   two")

	docs, err := loadDocuments(dir)
	if err != nil {
		t.Fatalf("loadDocuments() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("loadDocuments() returned %d docs, want 1", len(docs))
	}
	if docs[0].Content != "line one\n\nline two" {
		t.Errorf("content = %q, want preprocessed text", docs[0].Content)
	}
}
