// Package services contains the domain services orchestrating embedding and
// vector store collaborators.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/membank/membank/internal/domain/entities"
	"github.com/membank/membank/internal/domain/ports"
)

// DefaultSearchLimit is the default number of search results to return.
const DefaultSearchLimit = 10

// DefaultListLimit is the default page size for listings.
const DefaultListLimit = 100

// ErrNoCollection is returned when an operation names no collection and no
// default collection is configured.
var ErrNoCollection = errors.New("no collection name provided and no default collection configured")

// MemoryService mediates between tool-level operations and the vector store.
// It resolves collection names, guarantees collection existence before
// writes, and translates entries to and from stored points.
//
// Only Store provisions collections. Every read or mutate path treats a
// missing collection as a terminal condition; auto-creating there would turn
// a typo'd collection name into an empty collection instead of an empty
// result.
//
// Get, Update, Delete and List intentionally swallow backend errors: they
// log the failure and return the same negative result as a true not-found,
// matching the observable behavior callers rely on. Store and Find let
// backend errors propagate.
type MemoryService struct {
	embedder          ports.Embedder
	vectorDB          ports.VectorDB
	defaultCollection string
	fieldIndexes      map[string]entities.FieldType
	log               *zap.Logger
}

// NewMemoryService creates a new memory service. The field index map, if
// non-empty, declares payload indexes created alongside new collections.
func NewMemoryService(
	embedder ports.Embedder,
	vectorDB ports.VectorDB,
	defaultCollection string,
	fieldIndexes map[string]entities.FieldType,
	log *zap.Logger,
) *MemoryService {
	if log == nil {
		log = zap.NewNop()
	}

	return &MemoryService{
		embedder:          embedder,
		vectorDB:          vectorDB,
		defaultCollection: defaultCollection,
		fieldIndexes:      fieldIndexes,
		log:               log,
	}
}

// Store embeds the entry content and persists it under a freshly generated
// point id, creating the collection first if it does not exist. It returns
// the generated id.
func (s *MemoryService) Store(ctx context.Context, entry entities.Entry, collection string) (string, error) {
	collection, err := s.resolveCollection(collection)
	if err != nil {
		return "", err
	}

	if err := s.ensureCollection(ctx, collection); err != nil {
		return "", err
	}

	embeddings, err := s.embedder.EmbedDocuments(ctx, []string{entry.Content})
	if err != nil {
		return "", fmt.Errorf("embedding document: %w", err)
	}
	if len(embeddings) == 0 {
		return "", errors.New("embedding provider returned no vectors")
	}

	point := entities.Point{
		ID:       uuid.NewString(),
		Content:  entry.Content,
		Metadata: entry.Metadata,
		Vector:   embeddings[0],
	}

	if err := s.vectorDB.Upsert(ctx, collection, s.embedder.VectorName(), point); err != nil {
		return "", fmt.Errorf("upserting point: %w", err)
	}

	return point.ID, nil
}

// Find performs a similarity search bounded by limit, optionally constrained
// by a payload filter. A collection that does not exist yields an empty
// result, never an error.
func (s *MemoryService) Find(ctx context.Context, query, collection string, limit int, filter *entities.Filter) ([]entities.Entry, error) {
	collection, err := s.resolveCollection(collection)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	exists, err := s.vectorDB.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("checking collection %q: %w", collection, err)
	}
	if !exists {
		return nil, nil
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	points, err := s.vectorDB.Query(ctx, collection, s.embedder.VectorName(), vector, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	entries := make([]entities.Entry, 0, len(points))
	for _, point := range points {
		entries = append(entries, point.Entry())
	}

	return entries, nil
}

// List returns a page of (id, entry) pairs in store order. Any failure,
// including an unresolvable or missing collection, yields an empty result.
func (s *MemoryService) List(ctx context.Context, collection string, limit, offset int) []entities.ListedEntry {
	collection, err := s.resolveCollection(collection)
	if err != nil {
		s.log.Warn("list failed", zap.Error(err))
		return nil
	}

	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	exists, err := s.vectorDB.CollectionExists(ctx, collection)
	if err != nil {
		s.log.Error("list failed",
			zap.String("collection", collection),
			zap.Error(err),
		)
		return nil
	}
	if !exists {
		return nil
	}

	points, err := s.vectorDB.Scroll(ctx, collection, limit, offset)
	if err != nil {
		s.log.Error("list failed",
			zap.String("collection", collection),
			zap.Error(err),
		)
		return nil
	}

	listed := make([]entities.ListedEntry, 0, len(points))
	for _, point := range points {
		listed = append(listed, entities.ListedEntry{
			ID:    point.ID,
			Entry: point.Entry(),
		})
	}

	return listed
}

// Get retrieves a single entry by point id. A missing collection, a missing
// point and a backend failure all yield nil; failures are logged.
func (s *MemoryService) Get(ctx context.Context, id, collection string) *entities.Entry {
	collection, err := s.resolveCollection(collection)
	if err != nil {
		s.log.Warn("get failed", zap.String("id", id), zap.Error(err))
		return nil
	}

	exists, err := s.vectorDB.CollectionExists(ctx, collection)
	if err != nil || !exists {
		if err != nil {
			s.log.Error("get failed",
				zap.String("collection", collection),
				zap.String("id", id),
				zap.Error(err),
			)
		}
		return nil
	}

	point, err := s.vectorDB.Retrieve(ctx, collection, id)
	if err != nil {
		s.log.Error("get failed",
			zap.String("collection", collection),
			zap.String("id", id),
			zap.Error(err),
		)
		return nil
	}
	if point == nil {
		return nil
	}

	entry := point.Entry()
	return &entry
}

// Update re-embeds the new content and overwrites the point at the same id.
// It never creates: a missing collection or point returns false. The old
// payload is discarded entirely, metadata included.
func (s *MemoryService) Update(ctx context.Context, id string, entry entities.Entry, collection string) bool {
	collection, err := s.resolveCollection(collection)
	if err != nil {
		s.log.Warn("update failed", zap.String("id", id), zap.Error(err))
		return false
	}

	exists, err := s.vectorDB.CollectionExists(ctx, collection)
	if err != nil || !exists {
		if err != nil {
			s.log.Error("update failed",
				zap.String("collection", collection),
				zap.String("id", id),
				zap.Error(err),
			)
		}
		return false
	}

	existing, err := s.vectorDB.Retrieve(ctx, collection, id)
	if err != nil || existing == nil {
		if err != nil {
			s.log.Error("update failed",
				zap.String("collection", collection),
				zap.String("id", id),
				zap.Error(err),
			)
		}
		return false
	}

	embeddings, err := s.embedder.EmbedDocuments(ctx, []string{entry.Content})
	if err != nil || len(embeddings) == 0 {
		s.log.Error("update failed",
			zap.String("collection", collection),
			zap.String("id", id),
			zap.Error(err),
		)
		return false
	}

	point := entities.Point{
		ID:       id,
		Content:  entry.Content,
		Metadata: entry.Metadata,
		Vector:   embeddings[0],
	}

	if err := s.vectorDB.Upsert(ctx, collection, s.embedder.VectorName(), point); err != nil {
		s.log.Error("update failed",
			zap.String("collection", collection),
			zap.String("id", id),
			zap.Error(err),
		)
		return false
	}

	return true
}

// Delete removes a point by id. A missing collection or point returns false
// without issuing a delete.
func (s *MemoryService) Delete(ctx context.Context, id, collection string) bool {
	collection, err := s.resolveCollection(collection)
	if err != nil {
		s.log.Warn("delete failed", zap.String("id", id), zap.Error(err))
		return false
	}

	exists, err := s.vectorDB.CollectionExists(ctx, collection)
	if err != nil || !exists {
		if err != nil {
			s.log.Error("delete failed",
				zap.String("collection", collection),
				zap.String("id", id),
				zap.Error(err),
			)
		}
		return false
	}

	existing, err := s.vectorDB.Retrieve(ctx, collection, id)
	if err != nil || existing == nil {
		if err != nil {
			s.log.Error("delete failed",
				zap.String("collection", collection),
				zap.String("id", id),
				zap.Error(err),
			)
		}
		return false
	}

	if err := s.vectorDB.Delete(ctx, collection, id); err != nil {
		s.log.Error("delete failed",
			zap.String("collection", collection),
			zap.String("id", id),
			zap.Error(err),
		)
		return false
	}

	return true
}

func (s *MemoryService) resolveCollection(collection string) (string, error) {
	if collection != "" {
		return collection, nil
	}
	if s.defaultCollection != "" {
		return s.defaultCollection, nil
	}
	return "", ErrNoCollection
}

// ensureCollection creates the collection, with vector configuration derived
// from the embedding provider and any configured payload indexes, if it does
// not already exist.
func (s *MemoryService) ensureCollection(ctx context.Context, collection string) error {
	exists, err := s.vectorDB.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("checking collection %q: %w", collection, err)
	}
	if exists {
		return nil
	}

	err = s.vectorDB.CreateCollection(ctx, collection, s.embedder.VectorName(), s.embedder.VectorSize())
	if err != nil {
		return fmt.Errorf("creating collection %q: %w", collection, err)
	}

	for field, fieldType := range s.fieldIndexes {
		if err := s.vectorDB.CreatePayloadIndex(ctx, collection, field, fieldType); err != nil {
			return fmt.Errorf("creating payload index %q: %w", field, err)
		}
	}

	return nil
}
