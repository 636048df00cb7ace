package ingest

import "strings"

// Chunking defaults tuned for embedding quality: chunks large enough to hold
// a coherent passage, with enough overlap that answers spanning a boundary
// survive retrieval.
const (
	DefaultChunkSize    = 1500
	DefaultChunkOverlap = 300
)

// defaultSeparators orders split points from strongest to weakest semantic
// boundary. The empty string is the terminal fallback: split anywhere.
var defaultSeparators = []string{"\n\n", "\n", ". ", "? ", "! ", "; ", ", ", " ", ""}

// Chunker splits text into overlapping chunks along semantic boundaries.
// It tries each separator in order and only falls back to weaker boundaries
// for pieces that are still too large.
type Chunker struct {
	size       int
	overlap    int
	separators []string
}

// NewChunker returns a Chunker with the default size, overlap, and separators.
func NewChunker() *Chunker {
	return &Chunker{
		size:       DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: defaultSeparators,
	}
}

// NewChunkerWithSize returns a Chunker with custom size and overlap.
// Overlap larger than size is clamped to size/2.
func NewChunkerWithSize(size, overlap int) *Chunker {
	if size < 1 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 2
	}
	return &Chunker{size: size, overlap: overlap, separators: defaultSeparators}
}

// Split splits text into chunks of at most the configured size, overlapping
// by roughly the configured overlap. Separators stay attached to the piece
// they terminate, so "First sentence. Second." splits cleanly on ". ".
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return c.splitRecursive(text, c.separators)
}

func (c *Chunker) splitRecursive(text string, separators []string) []string {
	separator, rest := pickSeparator(text, separators)

	var pieces []string
	if separator == "" {
		pieces = splitIntoRunes(text, c.size)
	} else {
		pieces = splitAfter(text, separator)
	}

	var chunks []string
	var pending []string
	for _, piece := range pieces {
		if len(piece) <= c.size {
			pending = append(pending, piece)
			continue
		}
		// Piece too large for this separator: flush what we have and
		// recurse with weaker boundaries.
		chunks = append(chunks, c.merge(pending)...)
		pending = nil
		chunks = append(chunks, c.splitRecursive(piece, rest)...)
	}
	chunks = append(chunks, c.merge(pending)...)
	return chunks
}

// pickSeparator returns the first separator that occurs in text, plus the
// weaker separators after it for recursion. The empty separator always wins
// as the last resort.
func pickSeparator(text string, separators []string) (string, []string) {
	for i, sep := range separators {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, separators[i+1:]
		}
	}
	return "", nil
}

// splitAfter splits text on sep, keeping sep attached to the preceding piece.
func splitAfter(text, sep string) []string {
	parts := strings.SplitAfter(text, sep)
	// SplitAfter can produce a trailing empty string when text ends with sep.
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitIntoRunes cuts text into size-byte pieces without breaking UTF-8
// sequences.
func splitIntoRunes(text string, size int) []string {
	var pieces []string
	var b strings.Builder
	for _, r := range text {
		if b.Len() >= size {
			pieces = append(pieces, b.String())
			b.Reset()
		}
		b.WriteRune(r)
	}
	if b.Len() > 0 {
		pieces = append(pieces, b.String())
	}
	return pieces
}

// merge greedily packs pieces into chunks no larger than the configured size,
// carrying trailing pieces forward as overlap into the next chunk.
func (c *Chunker) merge(pieces []string) []string {
	var chunks []string
	var current []string
	total := 0

	flush := func() {
		chunk := strings.TrimSpace(strings.Join(current, ""))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	for _, piece := range pieces {
		if total+len(piece) > c.size && len(current) > 0 {
			flush()
			// Drop leading pieces until the remainder fits in the overlap
			// window and leaves room for the incoming piece.
			for len(current) > 0 && (total > c.overlap || total+len(piece) > c.size) {
				total -= len(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += len(piece)
	}
	flush()
	return chunks
}
