// Package config provides configuration loading and management.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default tool descriptions, overridable per deployment so the connected
// model can be steered toward a specific usage of the memory store.
const (
	DefaultStoreDescription = "Keep the memory for later use, when you are asked to remember something."
	DefaultFindDescription  = "Look up memories. Use this tool when you need to find memories by their content " +
		"or access stored personal information about the user."
	DefaultListDescription   = "List stored memories with their point IDs, paginated by limit and offset."
	DefaultEditDescription   = "Replace the content and metadata of an existing memory by its point ID."
	DefaultDeleteDescription = "Delete a memory by its point ID."
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	Qdrant   QdrantConfig   `yaml:"qdrant,omitempty"`
	Embedder EmbedderConfig `yaml:"embedder,omitempty"`
	Tools    ToolsConfig    `yaml:"tools,omitempty"`
}

// QdrantConfig holds configuration for the vector store backend.
type QdrantConfig struct {
	Host   string `yaml:"host,omitempty"`
	Port   int    `yaml:"port,omitempty"`
	APIKey string `yaml:"api_key,omitempty"`

	// Collection is the default collection. When empty, every tool call
	// must name a collection explicitly.
	Collection string `yaml:"collection,omitempty"`

	// LocalPath switches to the embedded local store instead of a remote
	// Qdrant server. An empty string means remote; ":memory:" means a
	// non-persistent in-process store.
	LocalPath string `yaml:"local_path,omitempty"`

	SearchLimit          int  `yaml:"search_limit,omitempty"`
	ReadOnly             bool `yaml:"read_only,omitempty"`
	AllowArbitraryFilter bool `yaml:"allow_arbitrary_filter,omitempty"`

	FilterableFields []FilterableField `yaml:"filterable_fields,omitempty"`
}

// FilterableField declares one payload field exposed as a dedicated search
// parameter on the find tool. Declared fields also get payload indexes when
// a collection is created.
type FilterableField struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	FieldType   string `yaml:"field_type" json:"field_type"`
	Condition   string `yaml:"condition,omitempty" json:"condition,omitempty"`
	Required    bool   `yaml:"required,omitempty" json:"required,omitempty"`
}

// EmbedderConfig holds configuration for the embedding provider.
type EmbedderConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`

	// VectorSize overrides the dimensionality when the model is not in the
	// provider's known-size table.
	VectorSize uint64 `yaml:"vector_size,omitempty"`
}

// ToolsConfig holds the tool descriptions exposed over MCP.
type ToolsConfig struct {
	StoreDescription  string `yaml:"store_description,omitempty"`
	FindDescription   string `yaml:"find_description,omitempty"`
	ListDescription   string `yaml:"list_description,omitempty"`
	EditDescription   string `yaml:"edit_description,omitempty"`
	DeleteDescription string `yaml:"delete_description,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Qdrant: QdrantConfig{
			Host:        "localhost",
			Port:        6334,
			SearchLimit: 10,
		},
		Embedder: EmbedderConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},
		Tools: ToolsConfig{
			StoreDescription:  DefaultStoreDescription,
			FindDescription:   DefaultFindDescription,
			ListDescription:   DefaultListDescription,
			EditDescription:   DefaultEditDescription,
			DeleteDescription: DefaultDeleteDescription,
		},
	}
}

// Load loads configuration from an optional YAML file, applies environment
// variable overrides, and validates the result. An empty path skips the file
// and uses defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if url := os.Getenv("QDRANT_URL"); url != "" {
		host, port, err := splitHostPort(url)
		if err != nil {
			return fmt.Errorf("parsing QDRANT_URL: %w", err)
		}
		c.Qdrant.Host = host
		if port != 0 {
			c.Qdrant.Port = port
		}
	}
	if key := os.Getenv("QDRANT_API_KEY"); key != "" {
		c.Qdrant.APIKey = key
	}
	if name := os.Getenv("COLLECTION_NAME"); name != "" {
		c.Qdrant.Collection = name
	}
	if path := os.Getenv("QDRANT_LOCAL_PATH"); path != "" {
		c.Qdrant.LocalPath = path
	}
	if limit := os.Getenv("QDRANT_SEARCH_LIMIT"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			return fmt.Errorf("parsing QDRANT_SEARCH_LIMIT: %w", err)
		}
		c.Qdrant.SearchLimit = n
	}
	if readOnly := os.Getenv("QDRANT_READ_ONLY"); readOnly != "" {
		b, err := strconv.ParseBool(readOnly)
		if err != nil {
			return fmt.Errorf("parsing QDRANT_READ_ONLY: %w", err)
		}
		c.Qdrant.ReadOnly = b
	}
	if allow := os.Getenv("QDRANT_ALLOW_ARBITRARY_FILTER"); allow != "" {
		b, err := strconv.ParseBool(allow)
		if err != nil {
			return fmt.Errorf("parsing QDRANT_ALLOW_ARBITRARY_FILTER: %w", err)
		}
		c.Qdrant.AllowArbitraryFilter = b
	}
	if fields := os.Getenv("QDRANT_FILTERABLE_FIELDS"); fields != "" {
		var parsed []FilterableField
		if err := json.Unmarshal([]byte(fields), &parsed); err != nil {
			return fmt.Errorf("parsing QDRANT_FILTERABLE_FIELDS: %w", err)
		}
		c.Qdrant.FilterableFields = parsed
	}

	if provider := os.Getenv("EMBEDDING_PROVIDER"); provider != "" {
		c.Embedder.Provider = provider
	}
	if model := os.Getenv("EMBEDDING_MODEL"); model != "" {
		c.Embedder.Model = model
	}
	if base := os.Getenv("EMBEDDING_BASE_URL"); base != "" {
		c.Embedder.BaseURL = base
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.Embedder.APIKey == "" {
		c.Embedder.APIKey = key
	}

	for env, target := range map[string]*string{
		"TOOL_STORE_DESCRIPTION":  &c.Tools.StoreDescription,
		"TOOL_FIND_DESCRIPTION":   &c.Tools.FindDescription,
		"TOOL_LIST_DESCRIPTION":   &c.Tools.ListDescription,
		"TOOL_EDIT_DESCRIPTION":   &c.Tools.EditDescription,
		"TOOL_DELETE_DESCRIPTION": &c.Tools.DeleteDescription,
	} {
		if v := os.Getenv(env); v != "" {
			*target = v
		}
	}

	return nil
}

// validFieldTypes and validConditions mirror the filter capabilities of the
// store backend.
var (
	validFieldTypes = map[string]bool{
		"keyword": true, "integer": true, "float": true, "boolean": true,
	}
	validConditions = map[string]bool{
		"": true, "==": true, "!=": true,
		">": true, ">=": true, "<": true, "<=": true,
		"any": true, "except": true,
	}
)

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Qdrant.LocalPath == "" && c.Qdrant.Host == "" {
		return fmt.Errorf("either a qdrant host or a local path is required")
	}
	if c.Qdrant.SearchLimit <= 0 {
		return fmt.Errorf("search limit must be positive, got %d", c.Qdrant.SearchLimit)
	}

	seen := make(map[string]bool, len(c.Qdrant.FilterableFields))
	for _, field := range c.Qdrant.FilterableFields {
		if field.Name == "" {
			return fmt.Errorf("filterable field with empty name")
		}
		if seen[field.Name] {
			return fmt.Errorf("duplicate filterable field %q", field.Name)
		}
		seen[field.Name] = true

		if !validFieldTypes[field.FieldType] {
			return fmt.Errorf("filterable field %q: unsupported field type %q", field.Name, field.FieldType)
		}
		if !validConditions[field.Condition] {
			return fmt.Errorf("filterable field %q: unsupported condition %q", field.Name, field.Condition)
		}
	}

	return nil
}

// splitHostPort parses "host:port" with an optional scheme prefix.
func splitHostPort(url string) (string, int, error) {
	for _, scheme := range []string{"http://", "https://", "grpc://"} {
		url = strings.TrimPrefix(url, scheme)
	}
	url = strings.TrimSuffix(url, "/")

	host, portStr, found := strings.Cut(url, ":")
	if host == "" {
		return "", 0, fmt.Errorf("empty host in %q", url)
	}
	if !found {
		return host, 0, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}

	return host, port, nil
}
