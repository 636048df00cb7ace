package ingest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/companyq/companyq/internal/knowledge"
)

// loadDocuments reads every supported file in dir and returns one document
// per file, preprocessed and tagged with its source filename. PDFs get their
// text extracted; .txt and .md files are read as-is. A missing directory is
// not an error: it just yields no documents.
func loadDocuments(dir string) ([]knowledge.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading docs directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".pdf", ".txt", ".md":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var docs []knowledge.Document
	for _, name := range names {
		path := filepath.Join(dir, name)
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}

		var text string
		docType := "text"
		if strings.EqualFold(filepath.Ext(name), ".pdf") {
			docType = "pdf"
			text, err = extractPDF(content)
			if err != nil {
				return nil, fmt.Errorf("extracting %s: %w", name, err)
			}
		} else {
			text = string(content)
		}

		text = Preprocess(text)
		if text == "" {
			continue
		}

		docs = append(docs, knowledge.Document{
			Content: text,
			Metadata: map[string]string{
				"source": name,
				"type":   docType,
			},
		})
	}
	return docs, nil
}

// extractPDF pulls plain text out of a PDF, page by page.
func extractPDF(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}

	var buf bytes.Buffer
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		buf.WriteString(text)
		if i < numPages {
			buf.WriteByte('\n')
		}
	}
	return buf.String(), nil
}
