package chromem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/membank/membank/internal/domain/entities"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(MemoryPath, 3)
	require.NoError(t, err)
	return repo
}

func seedPoint(t *testing.T, repo *Repository, collection, id, content string, metadata entities.Metadata, vector []float32) {
	t.Helper()
	err := repo.Upsert(context.Background(), collection, "vec", entities.Point{
		ID:       id,
		Content:  content,
		Metadata: metadata,
		Vector:   vector,
	})
	require.NoError(t, err)
}

func TestNewRepository_RequiresVectorSize(t *testing.T) {
	_, err := NewRepository(MemoryPath, 0)
	assert.Error(t, err)
}

func TestRepository_Collections(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	exists, err := repo.CollectionExists(ctx, "memories")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.CreateCollection(ctx, "memories", "vec", 3))

	exists, err = repo.CollectionExists(ctx, "memories")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRepository_CreateCollectionSizeMismatch(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.CreateCollection(context.Background(), "memories", "vec", 768)
	assert.Error(t, err)
}

func TestRepository_UpsertRetrieve(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	metadata := entities.Metadata{"tag": "work", "year": float64(2024)}
	seedPoint(t, repo, "memories", "p1", "hello world", metadata, []float32{1, 0, 0})

	point, err := repo.Retrieve(ctx, "memories", "p1")
	require.NoError(t, err)
	require.NotNil(t, point)
	assert.Equal(t, "p1", point.ID)
	assert.Equal(t, "hello world", point.Content)
	assert.Equal(t, metadata, point.Metadata)
}

func TestRepository_RetrieveMissing(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	// Missing collection.
	point, err := repo.Retrieve(ctx, "nope", "p1")
	require.NoError(t, err)
	assert.Nil(t, point)

	// Missing point in an existing collection.
	seedPoint(t, repo, "memories", "p1", "hello", nil, []float32{1, 0, 0})
	point, err = repo.Retrieve(ctx, "memories", "ghost")
	require.NoError(t, err)
	assert.Nil(t, point)
}

func TestRepository_UpsertOverwrites(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	seedPoint(t, repo, "memories", "p1", "old", entities.Metadata{"v": float64(1)}, []float32{1, 0, 0})
	seedPoint(t, repo, "memories", "p1", "new", nil, []float32{0, 1, 0})

	point, err := repo.Retrieve(ctx, "memories", "p1")
	require.NoError(t, err)
	require.NotNil(t, point)
	assert.Equal(t, "new", point.Content)
	assert.Nil(t, point.Metadata)
}

func TestRepository_Query(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	seedPoint(t, repo, "memories", "p1", "close", nil, []float32{1, 0, 0})
	seedPoint(t, repo, "memories", "p2", "far", nil, []float32{0, 1, 0})

	points, err := repo.Query(ctx, "memories", "vec", []float32{1, 0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "p1", points[0].ID)
}

func TestRepository_QueryLimitClamped(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	seedPoint(t, repo, "memories", "p1", "only", nil, []float32{1, 0, 0})

	points, err := repo.Query(ctx, "memories", "vec", []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	assert.Len(t, points, 1)
}

func TestRepository_QueryMissingCollection(t *testing.T) {
	repo := newTestRepository(t)

	points, err := repo.Query(context.Background(), "nope", "vec", []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestRepository_QueryWithFilter(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	seedPoint(t, repo, "memories", "p1", "work note", entities.Metadata{"tag": "work"}, []float32{1, 0, 0})
	seedPoint(t, repo, "memories", "p2", "home note", entities.Metadata{"tag": "home"}, []float32{0.9, 0.1, 0})

	filter := &entities.Filter{
		Must: []entities.Condition{{Key: "metadata.tag", Match: "home"}},
	}
	points, err := repo.Query(ctx, "memories", "vec", []float32{1, 0, 0}, 10, filter)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "p2", points[0].ID)
}

func TestRepository_QueryUnsupportedFilter(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	seedPoint(t, repo, "memories", "p1", "note", nil, []float32{1, 0, 0})

	lt := 5.0
	_, err := repo.Query(ctx, "memories", "vec", []float32{1, 0, 0}, 10, &entities.Filter{
		Must: []entities.Condition{{Key: "metadata.score", Range: &entities.Range{LT: &lt}}},
	})
	assert.Error(t, err)

	_, err = repo.Query(ctx, "memories", "vec", []float32{1, 0, 0}, 10, &entities.Filter{
		MustNot: []entities.Condition{{Key: "metadata.tag", Match: "work"}},
	})
	assert.Error(t, err)
}

func TestRepository_Scroll(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	seedPoint(t, repo, "memories", "c", "third", nil, []float32{1, 0, 0})
	seedPoint(t, repo, "memories", "a", "first", nil, []float32{0, 1, 0})
	seedPoint(t, repo, "memories", "b", "second", nil, []float32{0, 0, 1})

	// Full page, id order regardless of similarity.
	points, err := repo.Scroll(ctx, "memories", 10, 0)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, "a", points[0].ID)
	assert.Equal(t, "b", points[1].ID)
	assert.Equal(t, "c", points[2].ID)

	// Paginated.
	points, err = repo.Scroll(ctx, "memories", 2, 1)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "b", points[0].ID)
	assert.Equal(t, "c", points[1].ID)

	// Offset beyond the collection.
	points, err = repo.Scroll(ctx, "memories", 10, 5)
	require.NoError(t, err)
	assert.Empty(t, points)

	// Negative offset behaves like the first page.
	points, err = repo.Scroll(ctx, "memories", 10, -1)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, "a", points[0].ID)
}

func TestRepository_Delete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	seedPoint(t, repo, "memories", "p1", "bye", nil, []float32{1, 0, 0})

	require.NoError(t, repo.Delete(ctx, "memories", "p1"))

	point, err := repo.Retrieve(ctx, "memories", "p1")
	require.NoError(t, err)
	assert.Nil(t, point)

	// Deleting from a missing collection is not an error.
	assert.NoError(t, repo.Delete(ctx, "nope", "p1"))
}

func TestScalarString(t *testing.T) {
	tests := []struct {
		value any
		want  string
		ok    bool
	}{
		{"work", "work", true},
		{true, "true", true},
		{int64(42), "42", true},
		{float64(42), "42", true},
		{0.5, "0.5", true},
		{[]any{"a"}, "", false},
		{map[string]any{}, "", false},
	}

	for _, tt := range tests {
		got, ok := scalarString(tt.value)
		assert.Equal(t, tt.ok, ok)
		assert.Equal(t, tt.want, got)
	}
}
