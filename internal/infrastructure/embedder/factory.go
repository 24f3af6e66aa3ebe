// Package embedder constructs embedding providers from configuration.
package embedder

import (
	"fmt"

	"github.com/membank/membank/internal/domain/ports"
	"github.com/membank/membank/internal/infrastructure/config"
	"github.com/membank/membank/internal/infrastructure/embedder/ollama"
	"github.com/membank/membank/internal/infrastructure/embedder/openai"
)

// New selects the embedding provider family by the configured type tag.
func New(cfg config.EmbedderConfig) (ports.Embedder, error) {
	switch cfg.Provider {
	case "", "openai":
		return openai.NewEmbedder(cfg)
	case "ollama":
		return ollama.NewEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
