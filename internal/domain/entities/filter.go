package entities

import (
	"fmt"
)

// FieldType describes the payload schema type of a filterable field.
type FieldType string

// Supported payload field types.
const (
	FieldTypeKeyword FieldType = "keyword"
	FieldTypeInteger FieldType = "integer"
	FieldTypeFloat   FieldType = "float"
	FieldTypeBool    FieldType = "boolean"
)

// ParseFieldType validates a field type string.
func ParseFieldType(s string) (FieldType, error) {
	switch FieldType(s) {
	case FieldTypeKeyword, FieldTypeInteger, FieldTypeFloat, FieldTypeBool:
		return FieldType(s), nil
	default:
		return "", fmt.Errorf("unsupported field type %q", s)
	}
}

// Range is a numeric range constraint over a payload field.
type Range struct {
	GT  *float64
	GTE *float64
	LT  *float64
	LTE *float64
}

// Condition constrains a single payload field. Exactly one of Match,
// MatchAny, MatchExcept or Range is set.
type Condition struct {
	Key         string
	Match       any
	MatchAny    []any
	MatchExcept []any
	Range       *Range
}

// Filter is a structured boolean filter over payload fields, mirroring the
// must/should/must_not clause model of the backing store.
type Filter struct {
	Must    []Condition
	Should  []Condition
	MustNot []Condition
}

// IsEmpty reports whether the filter carries no conditions.
func (f *Filter) IsEmpty() bool {
	return f == nil || len(f.Must)+len(f.Should)+len(f.MustNot) == 0
}

// ParseFilter converts an arbitrary JSON-decoded filter object into a
// Filter. The accepted shape follows the Qdrant filter grammar restricted to
// field conditions:
//
//	{"must": [{"key": "metadata.tag", "match": {"value": "work"}}],
//	 "must_not": [{"key": "metadata.score", "range": {"lt": 0.5}}]}
func ParseFilter(raw map[string]any) (*Filter, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	f := &Filter{}
	for clause, value := range raw {
		conditions, err := parseConditions(value)
		if err != nil {
			return nil, fmt.Errorf("parsing %q clause: %w", clause, err)
		}

		switch clause {
		case "must":
			f.Must = conditions
		case "should":
			f.Should = conditions
		case "must_not":
			f.MustNot = conditions
		default:
			return nil, fmt.Errorf("unsupported filter clause %q", clause)
		}
	}

	return f, nil
}

func parseConditions(value any) ([]Condition, error) {
	list, ok := value.([]any)
	if !ok {
		// A single condition object is accepted in place of a list.
		single, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected a list of conditions, got %T", value)
		}
		list = []any{single}
	}

	conditions := make([]Condition, 0, len(list))
	for i, item := range list {
		object, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("condition %d: expected an object, got %T", i, item)
		}

		condition, err := parseCondition(object)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		conditions = append(conditions, condition)
	}

	return conditions, nil
}

func parseCondition(object map[string]any) (Condition, error) {
	key, ok := object["key"].(string)
	if !ok || key == "" {
		return Condition{}, fmt.Errorf("missing field key")
	}

	condition := Condition{Key: key}

	if match, ok := object["match"]; ok {
		matchObject, ok := match.(map[string]any)
		if !ok {
			return Condition{}, fmt.Errorf("field %q: match must be an object", key)
		}

		switch {
		case matchObject["value"] != nil:
			condition.Match = matchObject["value"]
		case matchObject["text"] != nil:
			condition.Match = matchObject["text"]
		case matchObject["any"] != nil:
			values, ok := matchObject["any"].([]any)
			if !ok {
				return Condition{}, fmt.Errorf("field %q: match.any must be a list", key)
			}
			condition.MatchAny = values
		case matchObject["except"] != nil:
			values, ok := matchObject["except"].([]any)
			if !ok {
				return Condition{}, fmt.Errorf("field %q: match.except must be a list", key)
			}
			condition.MatchExcept = values
		default:
			return Condition{}, fmt.Errorf("field %q: empty match object", key)
		}

		return condition, nil
	}

	if rng, ok := object["range"]; ok {
		rangeObject, ok := rng.(map[string]any)
		if !ok {
			return Condition{}, fmt.Errorf("field %q: range must be an object", key)
		}

		r := &Range{}
		for bound, target := range map[string]**float64{
			"gt": &r.GT, "gte": &r.GTE, "lt": &r.LT, "lte": &r.LTE,
		} {
			value, ok := rangeObject[bound]
			if !ok {
				continue
			}
			number, ok := toFloat(value)
			if !ok {
				return Condition{}, fmt.Errorf("field %q: range.%s must be a number", key, bound)
			}
			*target = &number
		}

		if r.GT == nil && r.GTE == nil && r.LT == nil && r.LTE == nil {
			return Condition{}, fmt.Errorf("field %q: empty range object", key)
		}

		condition.Range = r
		return condition, nil
	}

	return Condition{}, fmt.Errorf("field %q: condition needs match or range", key)
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
