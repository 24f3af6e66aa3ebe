package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/membank/membank/internal/application/mcpserver"
	"github.com/membank/membank/internal/domain/entities"
	"github.com/membank/membank/internal/domain/ports"
	"github.com/membank/membank/internal/domain/services"
	"github.com/membank/membank/internal/infrastructure/config"
	"github.com/membank/membank/internal/infrastructure/embedder"
	"github.com/membank/membank/internal/infrastructure/vectordb/chromem"
	"github.com/membank/membank/internal/infrastructure/vectordb/qdrant"
)

// Deps holds high-level dependencies for commands.
type Deps struct {
	Config *config.Config
	Server *mcpserver.Server
}

// withDeps loads config and builds dependencies, then calls the provided
// function. It handles cleanup automatically.
func withDeps(fn func(*Deps) error) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	emb, err := embedder.New(cfg.Embedder)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	repo, err := newVectorDB(cfg, emb)
	if err != nil {
		return fmt.Errorf("creating vector store: %w", err)
	}
	defer repo.Close()

	svc := services.NewMemoryService(emb, repo, cfg.Qdrant.Collection, fieldIndexes(cfg), log)

	deps := &Deps{
		Config: cfg,
		Server: mcpserver.New(cfg, svc, version, log),
	}

	return fn(deps)
}

// newVectorDB selects the storage backend. A local path means the embedded
// on-disk store, otherwise a remote Qdrant instance.
func newVectorDB(cfg *config.Config, emb ports.Embedder) (ports.VectorDB, error) {
	if cfg.Qdrant.LocalPath != "" {
		return chromem.NewRepository(cfg.Qdrant.LocalPath, emb.VectorSize())
	}
	return qdrant.NewRepository(cfg.Qdrant)
}

func newLogger() (*zap.Logger, error) {
	if flagDebug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// fieldIndexes maps the configured filterable fields to payload index types.
func fieldIndexes(cfg *config.Config) map[string]entities.FieldType {
	if len(cfg.Qdrant.FilterableFields) == 0 {
		return nil
	}
	indexes := make(map[string]entities.FieldType, len(cfg.Qdrant.FilterableFields))
	for _, field := range cfg.Qdrant.FilterableFields {
		ft, err := entities.ParseFieldType(field.FieldType)
		if err != nil {
			continue
		}
		indexes[field.Name] = ft
	}
	return indexes
}
