// Package mcpserver exposes the memory service as MCP tools.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/membank/membank/internal/domain/services"
	"github.com/membank/membank/internal/infrastructure/config"
)

const serverName = "membank"

const instructions = `membank is a semantic memory layer backed by a vector store.

Use qdrant-store to remember information, qdrant-find to recall it by
meaning, qdrant-list to page through stored memories with their IDs, and
qdrant-edit / qdrant-delete to maintain them by ID.`

// Server wires MemoryService operations to named MCP tools.
type Server struct {
	mcp *server.MCPServer
	svc *services.MemoryService
	cfg *config.Config
	log *zap.Logger
}

// New creates the MCP server and registers the tool set. In read-only mode
// only the find and list tools are registered.
func New(cfg *config.Config, svc *services.MemoryService, version string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		mcp: server.NewMCPServer(
			serverName,
			version,
			server.WithInstructions(instructions),
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		svc: svc,
		cfg: cfg,
		log: log,
	}

	s.registerTools()

	return s
}

// registerTools declares the tool schemas. When a default collection is
// configured, the collection_name parameter is omitted from every tool and
// the default is used unconditionally; otherwise the parameter is required.
func (s *Server) registerTools() {
	bound := s.cfg.Qdrant.Collection != ""

	findOpts := []mcp.ToolOption{
		mcp.WithDescription(s.cfg.Tools.FindDescription),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("What to search for"),
		),
	}
	if !bound {
		findOpts = append(findOpts, mcp.WithString("collection_name",
			mcp.Required(),
			mcp.Description("The collection to search in"),
		))
	}
	switch {
	case len(s.cfg.Qdrant.FilterableFields) > 0:
		for _, field := range s.cfg.Qdrant.FilterableFields {
			findOpts = append(findOpts, fieldOption(field))
		}
	case s.cfg.Qdrant.AllowArbitraryFilter:
		findOpts = append(findOpts, mcp.WithObject("query_filter",
			mcp.Description("Filter over payload fields, e.g. {\"must\": [{\"key\": \"metadata.tag\", \"match\": {\"value\": \"work\"}}]}"),
		))
	}
	s.mcp.AddTool(mcp.NewTool("qdrant-find", findOpts...), s.handleFind)

	listOpts := []mcp.ToolOption{
		mcp.WithDescription(s.cfg.Tools.ListDescription),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of points to return"),
			mcp.DefaultNumber(float64(services.DefaultListLimit)),
			mcp.Min(1),
			mcp.Max(1000),
		),
		mcp.WithNumber("offset",
			mcp.Description("Number of points to skip"),
			mcp.DefaultNumber(0),
			mcp.Min(0),
		),
	}
	if !bound {
		listOpts = append(listOpts, mcp.WithString("collection_name",
			mcp.Required(),
			mcp.Description("The collection to list points from"),
		))
	}
	s.mcp.AddTool(mcp.NewTool("qdrant-list", listOpts...), s.handleList)

	if s.cfg.Qdrant.ReadOnly {
		return
	}

	storeOpts := []mcp.ToolOption{
		mcp.WithDescription(s.cfg.Tools.StoreDescription),
		mcp.WithString("information",
			mcp.Required(),
			mcp.Description("Text to store"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Extra metadata stored along with the memorised information. Any JSON is accepted."),
		),
	}
	if !bound {
		storeOpts = append(storeOpts, mcp.WithString("collection_name",
			mcp.Required(),
			mcp.Description("The collection to store the information in"),
		))
	}
	s.mcp.AddTool(mcp.NewTool("qdrant-store", storeOpts...), s.handleStore)

	editOpts := []mcp.ToolOption{
		mcp.WithDescription(s.cfg.Tools.EditDescription),
		mcp.WithString("point_id",
			mcp.Required(),
			mcp.Description("The ID of the point to edit"),
		),
		mcp.WithString("information",
			mcp.Required(),
			mcp.Description("New text content for the point"),
		),
		mcp.WithObject("metadata",
			mcp.Description("New metadata for the point. Any JSON is accepted."),
		),
	}
	if !bound {
		editOpts = append(editOpts, mcp.WithString("collection_name",
			mcp.Required(),
			mcp.Description("The collection containing the point to edit"),
		))
	}
	s.mcp.AddTool(mcp.NewTool("qdrant-edit", editOpts...), s.handleEdit)

	deleteOpts := []mcp.ToolOption{
		mcp.WithDescription(s.cfg.Tools.DeleteDescription),
		mcp.WithString("point_id",
			mcp.Required(),
			mcp.Description("The ID of the point to delete"),
		),
	}
	if !bound {
		deleteOpts = append(deleteOpts, mcp.WithString("collection_name",
			mcp.Required(),
			mcp.Description("The collection containing the point to delete"),
		))
	}
	s.mcp.AddTool(mcp.NewTool("qdrant-delete", deleteOpts...), s.handleDelete)
}

// fieldOption maps a filterable field onto a tool parameter.
func fieldOption(field config.FilterableField) mcp.ToolOption {
	opts := []mcp.PropertyOption{mcp.Description(field.Description)}
	if field.Required {
		opts = append(opts, mcp.Required())
	}

	if field.Condition == "any" || field.Condition == "except" {
		itemType := "string"
		if field.FieldType == "integer" {
			itemType = "number"
		}
		opts = append(opts, mcp.Items(map[string]any{"type": itemType}))
		return mcp.WithArray(field.Name, opts...)
	}

	switch field.FieldType {
	case "integer", "float":
		return mcp.WithNumber(field.Name, opts...)
	case "boolean":
		return mcp.WithBoolean(field.Name, opts...)
	default:
		return mcp.WithString(field.Name, opts...)
	}
}

// ServeStdio serves the MCP protocol over stdin/stdout until the stream
// closes or the context is canceled.
func (s *Server) ServeStdio(ctx context.Context) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

// ServeSSE serves the MCP protocol over SSE on the given address.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	sse := server.NewSSEServer(s.mcp)
	return s.serve(ctx, addr, sse.Start, sse.Shutdown)
}

// ServeStreamableHTTP serves the MCP protocol over streamable HTTP on the
// given address.
func (s *Server) ServeStreamableHTTP(ctx context.Context, addr string) error {
	streamable := server.NewStreamableHTTPServer(s.mcp)
	return s.serve(ctx, addr, streamable.Start, streamable.Shutdown)
}

func (s *Server) serve(ctx context.Context, addr string, start func(string) error, shutdown func(context.Context) error) error {
	errs := make(chan error, 1)
	go func() {
		errs <- start(addr)
	}()

	s.log.Info("serving", zap.String("addr", addr))

	select {
	case <-ctx.Done():
		if err := shutdown(context.Background()); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	case err := <-errs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving on %s: %w", addr, err)
		}
		return nil
	}
}
