// Package chromem provides an embedded, local-mode VectorDB implementation
// using chromem-go. It serves deployments that point the server at a local
// path instead of a remote Qdrant instance.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/philippgille/chromem-go"

	"github.com/membank/membank/internal/domain/entities"
)

// metadataDocKey holds the full metadata mapping as JSON inside a chromem
// document, which only carries string-valued metadata natively.
const metadataDocKey = "_metadata"

// MemoryPath selects a non-persistent in-process store.
const MemoryPath = ":memory:"

// Repository implements the VectorDB interface using chromem-go.
type Repository struct {
	db         *chromem.DB
	vectorSize uint64
}

// NewRepository creates a local vector store at the given path, or an
// in-memory one for MemoryPath. The vector size must match the configured
// embedding provider; it is used to enumerate collections.
func NewRepository(path string, vectorSize uint64) (*Repository, error) {
	if vectorSize == 0 {
		return nil, fmt.Errorf("vector size is required")
	}

	var db *chromem.DB
	if path == "" || path == MemoryPath {
		db = chromem.NewDB()
	} else {
		d, err := chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("opening local store: %w", err)
		}
		db = d
	}

	return &Repository{db: db, vectorSize: vectorSize}, nil
}

// Close is a no-op; chromem persists on write.
func (r *Repository) Close() error {
	return nil
}

// CollectionExists reports whether the named collection exists.
func (r *Repository) CollectionExists(ctx context.Context, collection string) (bool, error) {
	return r.db.GetCollection(collection, nil) != nil, nil
}

// CreateCollection creates a collection. The vector name is not stored;
// chromem collections hold a single unnamed vector space.
func (r *Repository) CreateCollection(ctx context.Context, collection, vectorName string, vectorSize uint64) error {
	if vectorSize != r.vectorSize {
		return fmt.Errorf("vector size %d does not match local store size %d", vectorSize, r.vectorSize)
	}

	_, err := r.db.CreateCollection(collection, nil, nil)
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	return nil
}

// CreatePayloadIndex is a no-op: chromem filters scan document metadata.
func (r *Repository) CreatePayloadIndex(ctx context.Context, collection, field string, fieldType entities.FieldType) error {
	return nil
}

// Upsert writes a single point, overwriting any document with the same id.
func (r *Repository) Upsert(ctx context.Context, collection, vectorName string, point entities.Point) error {
	col, err := r.db.GetOrCreateCollection(collection, nil, nil)
	if err != nil {
		return fmt.Errorf("opening collection: %w", err)
	}

	metadata, err := encodeMetadata(point.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	err = col.AddDocument(ctx, chromem.Document{
		ID:        point.ID,
		Content:   point.Content,
		Embedding: point.Vector,
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("adding document: %w", err)
	}

	return nil
}

// Retrieve fetches a point by id. A missing point yields (nil, nil).
func (r *Repository) Retrieve(ctx context.Context, collection, id string) (*entities.Point, error) {
	col := r.db.GetCollection(collection, nil)
	if col == nil {
		return nil, nil
	}

	doc, err := col.GetByID(ctx, id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return nil, nil
		}
		return nil, fmt.Errorf("getting document: %w", err)
	}

	point, err := pointFromDocument(doc)
	if err != nil {
		return nil, err
	}

	return &point, nil
}

// Query performs a similarity search, most similar first. Only equality
// conditions are supported by the local store; richer filters fail loudly.
func (r *Repository) Query(ctx context.Context, collection, vectorName string, vector []float32, limit int, filter *entities.Filter) ([]entities.Point, error) {
	col := r.db.GetCollection(collection, nil)
	if col == nil {
		return nil, nil
	}

	where, err := whereFromFilter(filter)
	if err != nil {
		return nil, err
	}

	// chromem rejects result counts above the collection size.
	limit = min(limit, col.Count())
	if limit <= 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, limit, where, nil)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}

	points := make([]entities.Point, 0, len(results))
	for _, result := range results {
		point, err := pointFromDocument(chromem.Document{
			ID:       result.ID,
			Content:  result.Content,
			Metadata: result.Metadata,
		})
		if err != nil {
			return nil, err
		}
		points = append(points, point)
	}

	return points, nil
}

// Scroll pages through the collection in id order. chromem has no scan API,
// so the full collection is ranked against a fixed probe vector, sorted by
// id, and sliced; the offset is a plain skip count. Every page costs a full
// ranking pass, O(count * vector size), which is acceptable at the
// collection sizes a local on-disk store serves.
func (r *Repository) Scroll(ctx context.Context, collection string, limit, offset int) ([]entities.Point, error) {
	col := r.db.GetCollection(collection, nil)
	if col == nil {
		return nil, nil
	}

	if offset < 0 {
		offset = 0
	}

	count := col.Count()
	if count == 0 || offset >= count {
		return nil, nil
	}

	probe := make([]float32, r.vectorSize)
	probe[0] = 1

	results, err := col.QueryEmbedding(ctx, probe, count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("scanning documents: %w", err)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })

	end := min(offset+limit, len(results))
	points := make([]entities.Point, 0, end-offset)
	for _, result := range results[offset:end] {
		point, err := pointFromDocument(chromem.Document{
			ID:       result.ID,
			Content:  result.Content,
			Metadata: result.Metadata,
		})
		if err != nil {
			return nil, err
		}
		points = append(points, point)
	}

	return points, nil
}

// Delete removes a point by its id.
func (r *Repository) Delete(ctx context.Context, collection, id string) error {
	col := r.db.GetCollection(collection, nil)
	if col == nil {
		return nil
	}

	if err := col.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	return nil
}

// encodeMetadata flattens scalar metadata values into chromem's string
// metadata for equality filtering and keeps the full mapping as JSON.
func encodeMetadata(metadata entities.Metadata) (map[string]string, error) {
	if metadata == nil {
		return nil, nil
	}

	encoded := make(map[string]string, len(metadata)+1)
	for key, value := range metadata {
		if s, ok := scalarString(value); ok {
			encoded["metadata."+key] = s
		}
	}

	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	encoded[metadataDocKey] = string(raw)

	return encoded, nil
}

func pointFromDocument(doc chromem.Document) (entities.Point, error) {
	point := entities.Point{
		ID:      doc.ID,
		Content: doc.Content,
	}

	if raw, ok := doc.Metadata[metadataDocKey]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &point.Metadata); err != nil {
			return entities.Point{}, fmt.Errorf("decoding metadata of %s: %w", doc.ID, err)
		}
	}

	return point, nil
}

// whereFromFilter maps a domain filter onto chromem's equality-only where
// clause.
func whereFromFilter(filter *entities.Filter) (map[string]string, error) {
	if filter.IsEmpty() {
		return nil, nil
	}

	if len(filter.Should) > 0 || len(filter.MustNot) > 0 {
		return nil, fmt.Errorf("local store only supports must clauses")
	}

	where := make(map[string]string, len(filter.Must))
	for _, condition := range filter.Must {
		if condition.Match == nil {
			return nil, fmt.Errorf("local store only supports equality matches (field %q)", condition.Key)
		}
		s, ok := scalarString(condition.Match)
		if !ok {
			return nil, fmt.Errorf("local store cannot match %T values (field %q)", condition.Match, condition.Key)
		}
		where[condition.Key] = s
	}

	return where, nil
}

// scalarString renders scalar values the same way on write and on filter.
func scalarString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), true
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}
