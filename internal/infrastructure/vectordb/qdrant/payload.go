package qdrant

import (
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"

	"github.com/membank/membank/internal/domain/entities"
)

// payloadFromPoint shapes a point into the stored payload: the document text
// plus the metadata mapping, or an explicit null when no metadata was given.
func payloadFromPoint(point entities.Point) map[string]*pb.Value {
	payload := map[string]*pb.Value{
		documentKey: {Kind: &pb.Value_StringValue{StringValue: point.Content}},
	}

	if point.Metadata == nil {
		payload[metadataKey] = &pb.Value{Kind: &pb.Value_NullValue{NullValue: pb.NullValue_NULL_VALUE}}
	} else {
		payload[metadataKey] = valueFromAny(point.Metadata)
	}

	return payload
}

// pointFromPayload reverses payloadFromPoint.
func pointFromPayload(id string, payload map[string]*pb.Value) entities.Point {
	point := entities.Point{ID: id}

	if doc, ok := payload[documentKey]; ok {
		point.Content = doc.GetStringValue()
	}

	if meta, ok := payload[metadataKey]; ok {
		if mapping, ok := anyFromValue(meta).(map[string]any); ok {
			point.Metadata = mapping
		}
	}

	return point
}

// valueFromAny converts a JSON-compatible value into a payload value.
func valueFromAny(value any) *pb.Value {
	switch v := value.(type) {
	case nil:
		return &pb.Value{Kind: &pb.Value_NullValue{NullValue: pb.NullValue_NULL_VALUE}}
	case string:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
	case bool:
		return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: v}}
	case int:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(v)}}
	case int64:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: v}}
	case float64:
		// JSON decoding yields float64 for every number; keep integral
		// values as integers so payload indexes and filters match.
		if v == float64(int64(v)) {
			return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(v)}}
		}
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: v}}
	case float32:
		return valueFromAny(float64(v))
	case []any:
		values := make([]*pb.Value, 0, len(v))
		for _, item := range v {
			values = append(values, valueFromAny(item))
		}
		return &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: values}}}
	case map[string]any:
		fields := make(map[string]*pb.Value, len(v))
		for key, item := range v {
			fields[key] = valueFromAny(item)
		}
		return &pb.Value{Kind: &pb.Value_StructValue{StructValue: &pb.Struct{Fields: fields}}}
	default:
		// Unrepresentable values degrade to their string form.
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprintf("%v", v)}}
	}
}

// anyFromValue converts a payload value back to a JSON-compatible value.
func anyFromValue(value *pb.Value) any {
	switch kind := value.GetKind().(type) {
	case *pb.Value_StringValue:
		return kind.StringValue
	case *pb.Value_BoolValue:
		return kind.BoolValue
	case *pb.Value_IntegerValue:
		return kind.IntegerValue
	case *pb.Value_DoubleValue:
		return kind.DoubleValue
	case *pb.Value_ListValue:
		items := make([]any, 0, len(kind.ListValue.GetValues()))
		for _, item := range kind.ListValue.GetValues() {
			items = append(items, anyFromValue(item))
		}
		return items
	case *pb.Value_StructValue:
		fields := make(map[string]any, len(kind.StructValue.GetFields()))
		for key, item := range kind.StructValue.GetFields() {
			fields[key] = anyFromValue(item)
		}
		return fields
	default:
		return nil
	}
}
