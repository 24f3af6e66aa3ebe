package qdrant

import (
	pb "github.com/qdrant/go-client/qdrant"

	"github.com/membank/membank/internal/domain/entities"
)

// filterToProto translates a domain filter into a Qdrant filter.
func filterToProto(filter *entities.Filter) *pb.Filter {
	if filter.IsEmpty() {
		return nil
	}

	return &pb.Filter{
		Must:    conditionsToProto(filter.Must),
		Should:  conditionsToProto(filter.Should),
		MustNot: conditionsToProto(filter.MustNot),
	}
}

func conditionsToProto(conditions []entities.Condition) []*pb.Condition {
	if len(conditions) == 0 {
		return nil
	}

	result := make([]*pb.Condition, 0, len(conditions))
	for _, condition := range conditions {
		result = append(result, conditionToProto(condition))
	}
	return result
}

func conditionToProto(condition entities.Condition) *pb.Condition {
	field := &pb.FieldCondition{Key: condition.Key}

	switch {
	case condition.Match != nil:
		field.Match = matchToProto(condition.Match)
		if field.Match == nil {
			// Qdrant has no exact float match; express it as a
			// degenerate range instead.
			if v, ok := condition.Match.(float64); ok {
				field.Range = &pb.Range{Gte: &v, Lte: &v}
			}
		}
	case condition.MatchAny != nil:
		field.Match = matchAnyToProto(condition.MatchAny)
	case condition.MatchExcept != nil:
		field.Match = matchExceptToProto(condition.MatchExcept)
	case condition.Range != nil:
		field.Range = &pb.Range{
			Gt:  condition.Range.GT,
			Gte: condition.Range.GTE,
			Lt:  condition.Range.LT,
			Lte: condition.Range.LTE,
		}
	}

	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{Field: field},
	}
}

func matchToProto(value any) *pb.Match {
	switch v := value.(type) {
	case string:
		return &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: v}}
	case bool:
		return &pb.Match{MatchValue: &pb.Match_Boolean{Boolean: v}}
	case int:
		return &pb.Match{MatchValue: &pb.Match_Integer{Integer: int64(v)}}
	case int64:
		return &pb.Match{MatchValue: &pb.Match_Integer{Integer: v}}
	case float64:
		if v == float64(int64(v)) {
			return &pb.Match{MatchValue: &pb.Match_Integer{Integer: int64(v)}}
		}
		return nil
	default:
		return nil
	}
}

func matchAnyToProto(values []any) *pb.Match {
	if keywords, ok := asStrings(values); ok {
		return &pb.Match{MatchValue: &pb.Match_Keywords{
			Keywords: &pb.RepeatedStrings{Strings: keywords},
		}}
	}
	if integers, ok := asIntegers(values); ok {
		return &pb.Match{MatchValue: &pb.Match_Integers{
			Integers: &pb.RepeatedIntegers{Integers: integers},
		}}
	}
	return nil
}

func matchExceptToProto(values []any) *pb.Match {
	if keywords, ok := asStrings(values); ok {
		return &pb.Match{MatchValue: &pb.Match_ExceptKeywords{
			ExceptKeywords: &pb.RepeatedStrings{Strings: keywords},
		}}
	}
	if integers, ok := asIntegers(values); ok {
		return &pb.Match{MatchValue: &pb.Match_ExceptIntegers{
			ExceptIntegers: &pb.RepeatedIntegers{Integers: integers},
		}}
	}
	return nil
}

func asStrings(values []any) ([]string, bool) {
	result := make([]string, 0, len(values))
	for _, value := range values {
		s, ok := value.(string)
		if !ok {
			return nil, false
		}
		result = append(result, s)
	}
	return result, true
}

func asIntegers(values []any) ([]int64, bool) {
	result := make([]int64, 0, len(values))
	for _, value := range values {
		switch v := value.(type) {
		case int:
			result = append(result, int64(v))
		case int64:
			result = append(result, v)
		case float64:
			if v != float64(int64(v)) {
				return nil, false
			}
			result = append(result, int64(v))
		default:
			return nil, false
		}
	}
	return result, true
}
