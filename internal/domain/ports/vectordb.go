package ports

import (
	"context"

	"github.com/membank/membank/internal/domain/entities"
)

// VectorDB defines the interface for vector database operations.
type VectorDB interface {
	// CollectionExists reports whether the named collection exists.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// CreateCollection creates a collection configured for cosine-distance
	// vectors stored under the given vector name and size.
	CreateCollection(ctx context.Context, collection, vectorName string, vectorSize uint64) error

	// CreatePayloadIndex creates an index over a payload field.
	CreatePayloadIndex(ctx context.Context, collection, field string, fieldType entities.FieldType) error

	// Upsert writes a single point, overwriting any point with the same id.
	Upsert(ctx context.Context, collection, vectorName string, point entities.Point) error

	// Retrieve fetches a point by id. A missing point yields (nil, nil).
	Retrieve(ctx context.Context, collection, id string) (*entities.Point, error)

	// Query performs a similarity search, most similar first.
	Query(ctx context.Context, collection, vectorName string, vector []float32, limit int, filter *entities.Filter) ([]entities.Point, error)

	// Scroll pages through the collection. Offset semantics are owned by
	// the backend and are only guaranteed to be stable between calls.
	Scroll(ctx context.Context, collection string, limit, offset int) ([]entities.Point, error)

	// Delete removes a point by id.
	Delete(ctx context.Context, collection, id string) error

	// Close releases the underlying connection.
	Close() error
}
