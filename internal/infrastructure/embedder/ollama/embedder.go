// Package ollama provides an Embedder implementation backed by an Ollama
// instance, using its OpenAI-compatible embeddings endpoint.
package ollama

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/membank/membank/internal/infrastructure/config"
	oai "github.com/membank/membank/internal/infrastructure/embedder/openai"
)

// DefaultBaseURL is the OpenAI-compatible endpoint of a local Ollama.
const DefaultBaseURL = "http://localhost:11434/v1"

// vectorSizes maps common Ollama embedding models to their dimensions.
var vectorSizes = map[string]uint64{
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
	"all-minilm":        384,
}

// Embedder implements the Embedder interface against Ollama.
type Embedder struct {
	client     *openai.Client
	model      string
	vectorSize uint64
}

// NewEmbedder creates a new Ollama embedder. No API key is required.
func NewEmbedder(cfg config.EmbedderConfig) (*Embedder, error) {
	if cfg.Model == "" {
		return nil, errors.New("an embedding model is required for the ollama provider")
	}

	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	// Ollama ignores authorization; go-openai just needs a token value.
	clientCfg := openai.DefaultConfig("ollama")
	clientCfg.BaseURL = base

	size := cfg.VectorSize
	if size == 0 {
		known, ok := vectorSizes[cfg.Model]
		if !ok {
			return nil, fmt.Errorf("unknown vector size for model %q, set vector_size explicitly", cfg.Model)
		}
		size = known
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		vectorSize: size,
	}, nil
}

// EmbedDocuments generates vector embeddings for multiple documents.
func (e *Embedder) EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: documents,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embeddings: %w", err)
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		embeddings[i] = data.Embedding
	}

	return embeddings, nil
}

// EmbedQuery generates a vector embedding for a search query.
func (e *Embedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := e.EmbedDocuments(ctx, []string{query})
	if err != nil {
		return nil, err
	}

	if len(embeddings) == 0 {
		return nil, errors.New("no embeddings returned")
	}

	return embeddings[0], nil
}

// VectorName returns the named-vector identifier for this provider.
func (e *Embedder) VectorName() string {
	return "ollama-" + oai.VectorNameSuffix(e.model)
}

// VectorSize returns the dimensionality of the produced vectors.
func (e *Embedder) VectorSize() uint64 {
	return e.vectorSize
}
