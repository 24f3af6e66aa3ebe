package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/membank/membank/internal/domain/entities"
	"github.com/membank/membank/internal/domain/services"
	"github.com/membank/membank/internal/infrastructure/config"
)

func (s *Server) handleStore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	information, err := req.RequireString("information")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	collection := req.GetString("collection_name", "")

	entry := entities.Entry{
		Content:  information,
		Metadata: objectArgument(req, "metadata"),
	}

	s.log.Debug("storing information", zap.String("collection", collection))

	if _, err := s.svc.Store(ctx, entry, collection); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to store: %v", err)), nil
	}

	if collection == "" {
		collection = s.cfg.Qdrant.Collection
	}
	return mcp.NewToolResultText(fmt.Sprintf("Remembered: %s in collection %s", information, collection)), nil
}

func (s *Server) handleFind(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	collection := req.GetString("collection_name", "")

	filter, err := s.findFilter(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.log.Debug("finding results",
		zap.String("collection", collection),
		zap.String("query", query),
	)

	entries, err := s.svc.Find(ctx, query, collection, s.cfg.Qdrant.SearchLimit, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to search: %v", err)), nil
	}

	if len(entries) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No information found for the query '%s'", query)), nil
	}

	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, fmt.Sprintf("Results for the query '%s'", query))
	for _, entry := range entries {
		lines = append(lines, formatEntry(entry))
	}

	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) handleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection := req.GetString("collection_name", "")
	limit := req.GetInt("limit", services.DefaultListLimit)
	offset := req.GetInt("offset", 0)

	s.log.Debug("listing points",
		zap.String("collection", collection),
		zap.Int("limit", limit),
		zap.Int("offset", offset),
	)

	listed := s.svc.List(ctx, collection, limit, offset)
	if len(listed) == 0 {
		return mcp.NewToolResultText("No points found in the collection."), nil
	}

	if collection == "" {
		collection = s.cfg.Qdrant.Collection
	}

	lines := make([]string, 0, len(listed)+1)
	lines = append(lines, fmt.Sprintf("Found %d points in collection '%s':", len(listed), collection))
	for _, row := range listed {
		lines = append(lines, fmt.Sprintf("<point><id>%s</id>%s</point>", row.ID, formatEntry(row.Entry)))
	}

	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) handleEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pointID, err := req.RequireString("point_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	information, err := req.RequireString("information")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	collection := req.GetString("collection_name", "")

	entry := entities.Entry{
		Content:  information,
		Metadata: objectArgument(req, "metadata"),
	}

	s.log.Debug("editing point",
		zap.String("collection", collection),
		zap.String("id", pointID),
	)

	if !s.svc.Update(ctx, pointID, entry, collection) {
		return mcp.NewToolResultText(fmt.Sprintf(
			"Failed to update point %s. Point may not exist or collection may not exist.", pointID)), nil
	}

	if collection == "" {
		collection = s.cfg.Qdrant.Collection
	}
	return mcp.NewToolResultText(fmt.Sprintf("Successfully updated point %s in collection %s", pointID, collection)), nil
}

func (s *Server) handleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pointID, err := req.RequireString("point_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	collection := req.GetString("collection_name", "")

	s.log.Debug("deleting point",
		zap.String("collection", collection),
		zap.String("id", pointID),
	)

	if !s.svc.Delete(ctx, pointID, collection) {
		return mcp.NewToolResultText(fmt.Sprintf(
			"Failed to delete point %s. Point may not exist or collection may not exist.", pointID)), nil
	}

	if collection == "" {
		collection = s.cfg.Qdrant.Collection
	}
	return mcp.NewToolResultText(fmt.Sprintf("Successfully deleted point %s from collection %s", pointID, collection)), nil
}

// findFilter compiles the query filter for a find call, either from the
// declared filterable field parameters or from an arbitrary filter object.
func (s *Server) findFilter(req mcp.CallToolRequest) (*entities.Filter, error) {
	if fields := s.cfg.Qdrant.FilterableFields; len(fields) > 0 {
		return filterFromFields(fields, req.GetArguments())
	}

	if !s.cfg.Qdrant.AllowArbitraryFilter {
		return nil, nil
	}

	raw, ok := req.GetArguments()["query_filter"].(map[string]any)
	if !ok {
		return nil, nil
	}

	filter, err := entities.ParseFilter(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid query_filter: %w", err)
	}
	return filter, nil
}

// filterFromFields compiles the values supplied for declared filterable
// fields into a domain filter.
func filterFromFields(fields []config.FilterableField, args map[string]any) (*entities.Filter, error) {
	filter := &entities.Filter{}

	for _, field := range fields {
		value, ok := args[field.Name]
		if !ok || value == nil {
			if field.Required {
				return nil, fmt.Errorf("missing required filter field %q", field.Name)
			}
			continue
		}

		value, err := coerceFieldValue(field, value)
		if err != nil {
			return nil, err
		}

		switch field.Condition {
		case "", "==":
			filter.Must = append(filter.Must, entities.Condition{Key: field.Name, Match: value})
		case "!=":
			filter.MustNot = append(filter.MustNot, entities.Condition{Key: field.Name, Match: value})
		case ">", ">=", "<", "<=":
			// Integer fields were already coerced to int64 above.
			var number float64
			switch n := value.(type) {
			case float64:
				number = n
			case int64:
				number = float64(n)
			default:
				return nil, fmt.Errorf("filter field %q requires a numeric value", field.Name)
			}
			r := &entities.Range{}
			switch field.Condition {
			case ">":
				r.GT = &number
			case ">=":
				r.GTE = &number
			case "<":
				r.LT = &number
			case "<=":
				r.LTE = &number
			}
			filter.Must = append(filter.Must, entities.Condition{Key: field.Name, Range: r})
		case "any":
			values, ok := value.([]any)
			if !ok {
				values = []any{value}
			}
			filter.Must = append(filter.Must, entities.Condition{Key: field.Name, MatchAny: values})
		case "except":
			values, ok := value.([]any)
			if !ok {
				values = []any{value}
			}
			filter.Must = append(filter.Must, entities.Condition{Key: field.Name, MatchExcept: values})
		default:
			return nil, fmt.Errorf("filter field %q has unsupported condition %q", field.Name, field.Condition)
		}
	}

	if filter.IsEmpty() {
		return nil, nil
	}
	return filter, nil
}

// coerceFieldValue normalizes a JSON-decoded argument to the declared type.
func coerceFieldValue(field config.FilterableField, value any) (any, error) {
	switch field.FieldType {
	case "integer":
		if number, ok := value.(float64); ok && number == float64(int64(number)) {
			return int64(number), nil
		}
		if _, ok := value.([]any); ok {
			return value, nil
		}
		return nil, fmt.Errorf("filter field %q expects an integer", field.Name)
	case "float":
		if number, ok := value.(float64); ok {
			return number, nil
		}
		return nil, fmt.Errorf("filter field %q expects a number", field.Name)
	case "boolean":
		if b, ok := value.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("filter field %q expects a boolean", field.Name)
	default:
		switch value.(type) {
		case string, []any:
			return value, nil
		}
		return nil, fmt.Errorf("filter field %q expects a string", field.Name)
	}
}

// objectArgument extracts an optional object argument, nil when absent.
func objectArgument(req mcp.CallToolRequest, name string) map[string]any {
	value, ok := req.GetArguments()[name].(map[string]any)
	if !ok {
		return nil
	}
	return value
}

// formatEntry renders an entry for tool output.
func formatEntry(entry entities.Entry) string {
	metadata := ""
	if entry.Metadata != nil {
		if raw, err := json.Marshal(entry.Metadata); err == nil {
			metadata = string(raw)
		}
	}
	return fmt.Sprintf("<entry><content>%s</content><metadata>%s</metadata></entry>", entry.Content, metadata)
}
