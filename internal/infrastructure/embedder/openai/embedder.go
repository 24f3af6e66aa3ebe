// Package openai provides an Embedder implementation using OpenAI.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/membank/membank/internal/infrastructure/config"
)

// vectorSizes maps the known OpenAI embedding models to their dimensions.
var vectorSizes = map[openai.EmbeddingModel]uint64{
	openai.SmallEmbedding3: 1536,
	openai.LargeEmbedding3: 3072,
	openai.AdaEmbeddingV2:  1536,
}

// Embedder implements the Embedder interface using OpenAI.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	vectorSize uint64
}

// NewEmbedder creates a new OpenAI embedder. Models outside the known-size
// table require an explicit vector size in the configuration.
func NewEmbedder(cfg config.EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := openai.SmallEmbedding3
	if cfg.Model != "" {
		model = openai.EmbeddingModel(cfg.Model)
	}

	size := cfg.VectorSize
	if size == 0 {
		known, ok := vectorSizes[model]
		if !ok {
			return nil, fmt.Errorf("unknown vector size for model %q, set vector_size explicitly", model)
		}
		size = known
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      model,
		vectorSize: size,
	}, nil
}

// EmbedDocuments generates vector embeddings for multiple documents.
func (e *Embedder) EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: e.model,
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

// VectorName returns the named-vector identifier for this provider, derived
// from the model tag so that collections reject mismatched providers.
func (e *Embedder) VectorName() string {
	return "openai-" + VectorNameSuffix(string(e.model))
}

// VectorSize returns the dimensionality of the produced vectors.
func (e *Embedder) VectorSize() uint64 {
	return e.vectorSize
}

// VectorNameSuffix normalizes a model tag into a vector name component.
func VectorNameSuffix(model string) string {
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	return strings.ToLower(model)
}
