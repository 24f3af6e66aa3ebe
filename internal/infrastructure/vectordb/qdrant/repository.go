// Package qdrant provides a VectorDB implementation using Qdrant.
package qdrant

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/membank/membank/internal/domain/entities"
	"github.com/membank/membank/internal/infrastructure/config"
)

// documentKey and metadataKey are the payload fields a point is stored
// under. Collections written by other instances of this server share the
// same payload shape.
const (
	documentKey = "document"
	metadataKey = "metadata"
)

// Repository implements the VectorDB interface using Qdrant.
type Repository struct {
	collections pb.CollectionsClient
	points      pb.PointsClient
	conn        *grpc.ClientConn
}

// NewRepository creates a new Qdrant repository.
func NewRepository(cfg config.QdrantConfig) (*Repository, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if cfg.APIKey != "" {
		opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	return &Repository{
		collections: pb.NewCollectionsClient(conn),
		points:      pb.NewPointsClient(conn),
		conn:        conn,
	}, nil
}

// apiKeyInterceptor attaches the Qdrant api-key header to every call.
func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// Close closes the gRPC connection.
func (r *Repository) Close() error {
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// CollectionExists reports whether the named collection exists.
func (r *Repository) CollectionExists(ctx context.Context, collection string) (bool, error) {
	resp, err := r.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{
		CollectionName: collection,
	})
	if err != nil {
		return false, fmt.Errorf("checking collection existence: %w", err)
	}

	return resp.GetResult().GetExists(), nil
}

// CreateCollection creates a collection with a single named cosine vector.
func (r *Repository) CreateCollection(ctx context.Context, collection, vectorName string, vectorSize uint64) error {
	_, err := r.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_ParamsMap{
				ParamsMap: &pb.VectorParamsMap{
					Map: map[string]*pb.VectorParams{
						vectorName: {
							Size:     vectorSize,
							Distance: pb.Distance_Cosine,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	return nil
}

// CreatePayloadIndex creates an index over a payload field.
func (r *Repository) CreatePayloadIndex(ctx context.Context, collection, field string, fieldType entities.FieldType) error {
	_, err := r.points.CreateFieldIndex(ctx, &pb.CreateFieldIndexCollection{
		CollectionName: collection,
		FieldName:      field,
		FieldType:      pb.PtrOf(protoFieldType(fieldType)),
	})
	if err != nil {
		return fmt.Errorf("creating field index: %w", err)
	}

	return nil
}

func protoFieldType(fieldType entities.FieldType) pb.FieldType {
	switch fieldType {
	case entities.FieldTypeInteger:
		return pb.FieldType_FieldTypeInteger
	case entities.FieldTypeFloat:
		return pb.FieldType_FieldTypeFloat
	case entities.FieldTypeBool:
		return pb.FieldType_FieldTypeBool
	default:
		return pb.FieldType_FieldTypeKeyword
	}
}

// Upsert writes a single point, overwriting any point with the same id.
func (r *Repository) Upsert(ctx context.Context, collection, vectorName string, point entities.Point) error {
	_, err := r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: collection,
		Points:         []*pb.PointStruct{pointStruct(vectorName, point)},
	})
	if err != nil {
		return fmt.Errorf("upserting point: %w", err)
	}

	return nil
}

// pointStruct shapes a point for the wire: uuid id, single named vector,
// document/metadata payload.
func pointStruct(vectorName string, point entities.Point) *pb.PointStruct {
	return &pb.PointStruct{
		Id: &pb.PointId{
			PointIdOptions: &pb.PointId_Uuid{Uuid: point.ID},
		},
		Vectors: &pb.Vectors{
			VectorsOptions: &pb.Vectors_Vectors{
				Vectors: &pb.NamedVectors{
					Vectors: map[string]*pb.Vector{
						vectorName: {Data: point.Vector},
					},
				},
			},
		},
		Payload: payloadFromPoint(point),
	}
}

// Retrieve fetches a point by id. A missing point yields (nil, nil).
func (r *Repository) Retrieve(ctx context.Context, collection, id string) (*entities.Point, error) {
	resp, err := r.points.Get(ctx, &pb.GetPoints{
		CollectionName: collection,
		Ids: []*pb.PointId{
			{PointIdOptions: &pb.PointId_Uuid{Uuid: id}},
		},
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
		WithVectors: &pb.WithVectorsSelector{
			SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: false},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("getting point: %w", err)
	}

	if len(resp.Result) == 0 {
		return nil, nil
	}

	point := pointFromPayload(pointID(resp.Result[0].Id), resp.Result[0].Payload)
	return &point, nil
}

// Query performs a similarity search over the named vector.
func (r *Repository) Query(ctx context.Context, collection, vectorName string, vector []float32, limit int, filter *entities.Filter) ([]entities.Point, error) {
	resp, err := r.points.Search(ctx, &pb.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		VectorName:     pb.PtrOf(vectorName),
		Limit:          uint64(limit),
		Filter:         filterToProto(filter),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("searching points: %w", err)
	}

	points := make([]entities.Point, 0, len(resp.Result))
	for _, scored := range resp.Result {
		points = append(points, pointFromPayload(pointID(scored.Id), scored.Payload))
	}

	return points, nil
}

// Scroll pages through the collection. The numeric offset is forwarded as a
// point-id cursor; its interpretation belongs to the store.
func (r *Repository) Scroll(ctx context.Context, collection string, limit, offset int) ([]entities.Point, error) {
	var offsetPtr *pb.PointId
	if offset > 0 {
		offsetPtr = &pb.PointId{
			PointIdOptions: &pb.PointId_Num{Num: uint64(offset)},
		}
	}

	resp, err := r.points.Scroll(ctx, &pb.ScrollPoints{
		CollectionName: collection,
		Limit:          pb.PtrOf(uint32(limit)),
		Offset:         offsetPtr,
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
		WithVectors: &pb.WithVectorsSelector{
			SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: false},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scrolling points: %w", err)
	}

	points := make([]entities.Point, 0, len(resp.Result))
	for _, retrieved := range resp.Result {
		points = append(points, pointFromPayload(pointID(retrieved.Id), retrieved.Payload))
	}

	return points, nil
}

// Delete removes a point by its id.
func (r *Repository) Delete(ctx context.Context, collection, id string) error {
	_, err := r.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: collection,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{
					Ids: []*pb.PointId{
						{PointIdOptions: &pb.PointId_Uuid{Uuid: id}},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("deleting point: %w", err)
	}

	return nil
}

// pointID renders a point identifier as an opaque string.
func pointID(id *pb.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return fmt.Sprintf("%d", id.GetNum())
}
