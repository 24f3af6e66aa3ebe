package mocks

import (
	"context"

	"github.com/membank/membank/internal/domain/entities"
)

// VectorDB is a mock implementation of ports.VectorDB backed by a map of
// collections to points, in insertion order.
type VectorDB struct {
	Collections map[string][]entities.Point
	Err         error

	// Errors for individual operations (separate from Err for fine-grained control)
	ExistsErr   error
	RetrieveErr error
	ScrollErr   error
	QueryErr    error

	// Call tracking
	CreateCollectionCallCount int
	CreatedIndexes            map[string]entities.FieldType
	UpsertCallCount           int
	LastUpsertVectorName      string
	LastUpsertPoint           entities.Point
	DeleteCallCount           int
	LastFilter                *entities.Filter
	LastVectorSize            uint64
	LastVectorName            string
}

// CollectionExists reports whether the collection was created or seeded.
func (m *VectorDB) CollectionExists(ctx context.Context, collection string) (bool, error) {
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	_, ok := m.Collections[collection]
	return ok, nil
}

// CreateCollection records the collection and its vector configuration.
func (m *VectorDB) CreateCollection(ctx context.Context, collection, vectorName string, vectorSize uint64) error {
	m.CreateCollectionCallCount++
	if m.Err != nil {
		return m.Err
	}
	if m.Collections == nil {
		m.Collections = make(map[string][]entities.Point)
	}
	m.Collections[collection] = nil
	m.LastVectorName = vectorName
	m.LastVectorSize = vectorSize
	return nil
}

// CreatePayloadIndex records the requested payload index.
func (m *VectorDB) CreatePayloadIndex(ctx context.Context, collection, field string, fieldType entities.FieldType) error {
	if m.Err != nil {
		return m.Err
	}
	if m.CreatedIndexes == nil {
		m.CreatedIndexes = make(map[string]entities.FieldType)
	}
	m.CreatedIndexes[field] = fieldType
	return nil
}

// Upsert stores or replaces the point.
func (m *VectorDB) Upsert(ctx context.Context, collection, vectorName string, point entities.Point) error {
	m.UpsertCallCount++
	if m.Err != nil {
		return m.Err
	}
	m.LastUpsertVectorName = vectorName
	m.LastUpsertPoint = point
	points := m.Collections[collection]
	for i := range points {
		if points[i].ID == point.ID {
			points[i] = point
			return nil
		}
	}
	if m.Collections == nil {
		m.Collections = make(map[string][]entities.Point)
	}
	m.Collections[collection] = append(points, point)
	return nil
}

// Retrieve returns the point with the given id, or nil.
func (m *VectorDB) Retrieve(ctx context.Context, collection, id string) (*entities.Point, error) {
	if m.RetrieveErr != nil {
		return nil, m.RetrieveErr
	}
	for _, point := range m.Collections[collection] {
		if point.ID == id {
			p := point
			return &p, nil
		}
	}
	return nil, nil
}

// Query returns up to limit points in insertion order.
func (m *VectorDB) Query(ctx context.Context, collection, vectorName string, vector []float32, limit int, filter *entities.Filter) ([]entities.Point, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	m.LastFilter = filter
	points := m.Collections[collection]
	if limit < len(points) {
		points = points[:limit]
	}
	return points, nil
}

// Scroll pages through the collection in insertion order.
func (m *VectorDB) Scroll(ctx context.Context, collection string, limit, offset int) ([]entities.Point, error) {
	if m.ScrollErr != nil {
		return nil, m.ScrollErr
	}
	points := m.Collections[collection]
	if offset >= len(points) {
		return nil, nil
	}
	points = points[offset:]
	if limit < len(points) {
		points = points[:limit]
	}
	return points, nil
}

// Delete removes the point with the given id.
func (m *VectorDB) Delete(ctx context.Context, collection, id string) error {
	m.DeleteCallCount++
	if m.Err != nil {
		return m.Err
	}
	points := m.Collections[collection]
	for i := range points {
		if points[i].ID == id {
			m.Collections[collection] = append(points[:i:i], points[i+1:]...)
			return nil
		}
	}
	return nil
}

// Close is a no-op.
func (m *VectorDB) Close() error {
	return nil
}
