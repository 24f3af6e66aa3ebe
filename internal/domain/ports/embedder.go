package ports

import "context"

// Embedder defines the interface for generating vector embeddings.
// A provider instance must be deterministic in vector name and size.
type Embedder interface {
	// EmbedDocuments generates vector embeddings for multiple documents.
	EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error)

	// EmbedQuery generates a vector embedding for a search query.
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// VectorName returns the named-vector identifier used in collections
	// populated by this provider.
	VectorName() string

	// VectorSize returns the dimensionality of the produced vectors.
	VectorSize() uint64
}
