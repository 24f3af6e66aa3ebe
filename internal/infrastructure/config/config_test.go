package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "localhost", cfg.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Qdrant.Port)
	assert.Equal(t, 10, cfg.Qdrant.SearchLimit)
	assert.Empty(t, cfg.Qdrant.Collection)
	assert.False(t, cfg.Qdrant.ReadOnly)
	assert.Equal(t, "openai", cfg.Embedder.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.Model)
	assert.Equal(t, DefaultStoreDescription, cfg.Tools.StoreDescription)

	require.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
qdrant:
  host: qdrant.internal
  port: 7334
  collection: memories
  read_only: true
  filterable_fields:
    - name: metadata.tag
      field_type: keyword
    - name: metadata.score
      field_type: float
      condition: ">="
embedder:
  provider: ollama
  model: nomic-embed-text
tools:
  store_description: "Custom store."
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "qdrant.internal", cfg.Qdrant.Host)
	assert.Equal(t, 7334, cfg.Qdrant.Port)
	assert.Equal(t, "memories", cfg.Qdrant.Collection)
	assert.True(t, cfg.Qdrant.ReadOnly)
	require.Len(t, cfg.Qdrant.FilterableFields, 2)
	assert.Equal(t, "metadata.tag", cfg.Qdrant.FilterableFields[0].Name)
	assert.Equal(t, ">=", cfg.Qdrant.FilterableFields[1].Condition)
	assert.Equal(t, "ollama", cfg.Embedder.Provider)
	assert.Equal(t, "Custom store.", cfg.Tools.StoreDescription)
	// Untouched fields keep their defaults.
	assert.Equal(t, DefaultFindDescription, cfg.Tools.FindDescription)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant.example.com:6334")
	t.Setenv("QDRANT_API_KEY", "secret")
	t.Setenv("COLLECTION_NAME", "notes")
	t.Setenv("QDRANT_SEARCH_LIMIT", "25")
	t.Setenv("QDRANT_READ_ONLY", "true")
	t.Setenv("QDRANT_ALLOW_ARBITRARY_FILTER", "1")
	t.Setenv("QDRANT_FILTERABLE_FIELDS",
		`[{"name":"metadata.tag","field_type":"keyword","condition":"any"}]`)
	t.Setenv("EMBEDDING_PROVIDER", "ollama")
	t.Setenv("EMBEDDING_MODEL", "all-minilm")
	t.Setenv("EMBEDDING_BASE_URL", "http://localhost:11434/v1")
	t.Setenv("TOOL_FIND_DESCRIPTION", "Find things.")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "qdrant.example.com", cfg.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Qdrant.Port)
	assert.Equal(t, "secret", cfg.Qdrant.APIKey)
	assert.Equal(t, "notes", cfg.Qdrant.Collection)
	assert.Equal(t, 25, cfg.Qdrant.SearchLimit)
	assert.True(t, cfg.Qdrant.ReadOnly)
	assert.True(t, cfg.Qdrant.AllowArbitraryFilter)
	require.Len(t, cfg.Qdrant.FilterableFields, 1)
	assert.Equal(t, "any", cfg.Qdrant.FilterableFields[0].Condition)
	assert.Equal(t, "ollama", cfg.Embedder.Provider)
	assert.Equal(t, "all-minilm", cfg.Embedder.Model)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Embedder.BaseURL)
	assert.Equal(t, "Find things.", cfg.Tools.FindDescription)
}

func TestLoad_OpenAIKeyFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.Embedder.APIKey)
}

func TestLoad_EnvErrors(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
	}{
		{"bad search limit", "QDRANT_SEARCH_LIMIT", "lots"},
		{"bad read only", "QDRANT_READ_ONLY", "maybe"},
		{"bad filterable fields", "QDRANT_FILTERABLE_FIELDS", "{not json"},
		{"bad url port", "QDRANT_URL", "host:notaport"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name: "no host and no local path",
			mutate: func(c *Config) {
				c.Qdrant.Host = ""
			},
			wantErr: true,
		},
		{
			name: "local path without host",
			mutate: func(c *Config) {
				c.Qdrant.Host = ""
				c.Qdrant.LocalPath = ":memory:"
			},
		},
		{
			name: "zero search limit",
			mutate: func(c *Config) {
				c.Qdrant.SearchLimit = 0
			},
			wantErr: true,
		},
		{
			name: "duplicate filterable field",
			mutate: func(c *Config) {
				c.Qdrant.FilterableFields = []FilterableField{
					{Name: "a", FieldType: "keyword"},
					{Name: "a", FieldType: "keyword"},
				}
			},
			wantErr: true,
		},
		{
			name: "unknown field type",
			mutate: func(c *Config) {
				c.Qdrant.FilterableFields = []FilterableField{
					{Name: "a", FieldType: "datetime"},
				}
			},
			wantErr: true,
		},
		{
			name: "unknown condition",
			mutate: func(c *Config) {
				c.Qdrant.FilterableFields = []FilterableField{
					{Name: "a", FieldType: "keyword", Condition: "~"},
				}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplitHostPort(t *testing.T) {
	tests := []struct {
		url      string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{url: "localhost:6334", wantHost: "localhost", wantPort: 6334},
		{url: "http://qdrant:6334", wantHost: "qdrant", wantPort: 6334},
		{url: "https://qdrant.example.com/", wantHost: "qdrant.example.com"},
		{url: "grpc://10.0.0.1:6334", wantHost: "10.0.0.1", wantPort: 6334},
		{url: "qdrant", wantHost: "qdrant"},
		{url: ":6334", wantErr: true},
		{url: "host:abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			host, port, err := splitHostPort(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPort, port)
		})
	}
}
