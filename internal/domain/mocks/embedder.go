// Package mocks provides mock implementations for testing.
package mocks

import "context"

// Embedder is a mock implementation of ports.Embedder.
type Embedder struct {
	Embedding []float32
	Name      string
	Size      uint64
	Err       error

	EmbedDocumentsCallCount int
	EmbedQueryCallCount     int
}

// EmbedDocuments returns the configured embedding for each document.
func (m *Embedder) EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error) {
	m.EmbedDocumentsCallCount++
	if m.Err != nil {
		return nil, m.Err
	}
	result := make([][]float32, len(documents))
	for i := range documents {
		result[i] = m.Embedding
	}
	return result, nil
}

// EmbedQuery returns the configured embedding or error.
func (m *Embedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	m.EmbedQueryCallCount++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Embedding, nil
}

// VectorName returns the configured vector name.
func (m *Embedder) VectorName() string {
	if m.Name == "" {
		return "mock-vector"
	}
	return m.Name
}

// VectorSize returns the configured vector size.
func (m *Embedder) VectorSize() uint64 {
	if m.Size == 0 {
		return uint64(len(m.Embedding))
	}
	return m.Size
}
