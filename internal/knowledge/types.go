package knowledge

// Document is one retrievable unit of knowledge: a chunk of source text plus
// its provenance metadata. Documents are returned by value and never mutated
// after retrieval.
type Document struct {
	Content  string            // chunk text
	Metadata map[string]string // provenance (source, type, etc.)
}

// DefaultTopK is the number of documents retrieved when the caller does not
// specify k.
const DefaultTopK = 5
