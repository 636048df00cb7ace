package knowledge

import "fmt"

// Provider identifies which embedding backend populated the vector index.
type Provider string

const (
	// ProviderLocal is the local inference server (Ollama).
	ProviderLocal Provider = "local"

	// ProviderCloud is the cloud embeddings API (OpenAI).
	ProviderCloud Provider = "cloud"
)

// LocalDimension is the embedding dimension for local models.
// nomic-embed-text and compatible models all emit 768-dimensional vectors.
const LocalDimension = 768

// DefaultCloudDimension is the fallback for unrecognized cloud model names.
const DefaultCloudDimension = 1536

// cloudDimensions maps known cloud embedding models to their dimensions.
var cloudDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Metadata describes the embedding scheme used to build the vector index:
// which provider, which model, and the vector dimension it produces.
//
// It is written alongside the index at ingestion time and compared against
// the active configuration at startup, so a provider or dimension switch is
// caught before the first query instead of producing silently wrong
// similarity results.
//
// The JSON field names are the persistence contract; they must round-trip
// exactly.
type Metadata struct {
	Provider  Provider `json:"embedding_provider"`
	Model     string   `json:"embedding_model"`
	Dimension int      `json:"embedding_dimension"`
}

// LocalMetadata creates metadata for the local embedding provider.
// Local models always produce LocalDimension-sized vectors.
func LocalMetadata(model string) Metadata {
	return Metadata{
		Provider:  ProviderLocal,
		Model:     model,
		Dimension: LocalDimension,
	}
}

// CloudMetadata creates metadata for the cloud embedding provider.
// The dimension is looked up from the known-model table; unknown model
// names fall back to DefaultCloudDimension.
func CloudMetadata(model string) Metadata {
	dim, ok := cloudDimensions[model]
	if !ok {
		dim = DefaultCloudDimension
	}

	return Metadata{
		Provider:  ProviderCloud,
		Model:     model,
		Dimension: dim,
	}
}

// Matches reports whether two metadata describe interchangeable embedding
// schemes. Only provider and dimension are compared: two model names that
// share a provider and dimension produce compatible vector spaces for
// validation purposes, so the model name is deliberately excluded.
func (m Metadata) Matches(other Metadata) bool {
	return m.Provider == other.Provider && m.Dimension == other.Dimension
}

// String returns a compact representation for logs.
func (m Metadata) String() string {
	return fmt.Sprintf("%s/%s (dim=%d)", m.Provider, m.Model, m.Dimension)
}

// MismatchError reports that the embedding configuration used to build the
// vector index does not match the active configuration. Serving queries in
// this state would compare vectors from different spaces, so the store
// refuses to initialize.
type MismatchError struct {
	Expected Metadata // what the index was built with
	Actual   Metadata // what the current configuration would use
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf(
		"embedding configuration mismatch: index was built with %s but current config is %s; re-run ingestion or restore the original embedding configuration",
		e.Expected, e.Actual)
}
