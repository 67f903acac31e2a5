package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CONFIG_FILE", "PORT", "CORS_ALLOWED_ORIGINS", "QDRANT_URL", "QDRANT_API_KEY",
	"QDRANT_HOST", "QDRANT_PORT", "OPENAI_API_KEY", "EMBEDDING_MODEL", "EMBEDDING_BATCH_SIZE",
	"LLM_PROVIDER", "LLM_MODEL", "ANTHROPIC_API_KEY", "GITHUB_TOKEN", "REPO_BASE_PATH",
	"CHUNK_SIZE", "CHUNK_OVERLAP", "TOP_K", "MAX_CONTEXT_TOKENS", "FILE_EXTENSIONS",
	"LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "localhost", cfg.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Qdrant.Port)
	assert.False(t, cfg.Qdrant.Cloud())
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, 10, cfg.OpenAI.EmbeddingBatchSize)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "./temp_repos", cfg.RAG.RepoBasePath)
	assert.Equal(t, 512, cfg.RAG.ChunkSize)
	assert.Equal(t, 20, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.Contains(t, cfg.RAG.FileExtensions, ".py")
	assert.Contains(t, cfg.RAG.FileExtensions, ".md")
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("QDRANT_URL", "https://xyz.cloud.qdrant.io")
	t.Setenv("QDRANT_API_KEY", "secret")
	t.Setenv("CHUNK_SIZE", "1024")
	t.Setenv("TOP_K", "8")
	t.Setenv("LLM_PROVIDER", "Anthropic")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Qdrant.Cloud())
	assert.Equal(t, 1024, cfg.RAG.ChunkSize)
	assert.Equal(t, 8, cfg.RAG.TopK)
	assert.Equal(t, ProviderAnthropic, cfg.LLM.Provider)
	assert.Empty(t, cfg.LLM.Model, "anthropic model falls back to the completer default")
}

func TestLoad_YAMLFileWithEnvExpansion(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_OPENAI_KEY", "sk-from-env")

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := `
openai:
  api_key: ${TEST_OPENAI_KEY}
rag:
  chunk_size: 256
  chunk_overlap: 10
  file_extensions: [".rs"]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", cfg.OpenAI.APIKey)
	assert.Equal(t, 256, cfg.RAG.ChunkSize)
	assert.Equal(t, 10, cfg.RAG.ChunkOverlap)
	assert.Equal(t, []string{".rs"}, cfg.RAG.FileExtensions)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rag:\n  top_k: 3\n"), 0o644))
	t.Setenv("TOP_K", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.RAG.TopK)
}

func TestLoad_ExplicitZeroOverlapSurvives(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rag:\n  chunk_size: 100\n  chunk_overlap: 0\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.RAG.ChunkSize)
	assert.Equal(t, 0, cfg.RAG.ChunkOverlap)
	assert.NoError(t, (&Config{
		OpenAI: OpenAIConfig{APIKey: "sk"},
		LLM:    cfg.LLM,
		RAG:    cfg.RAG,
	}).Validate())
}

func TestLoad_EnvZeroOverlapSurvives(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("CHUNK_OVERLAP", "0")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.RAG.ChunkOverlap)
}

func TestLoad_InvalidIntegerEnv(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "80a")
	t.Setenv("TOP_K", "five")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `PORT="80a"`)
	assert.Contains(t, err.Error(), `TOP_K="five"`)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParse_MissingEnvVar(t *testing.T) {
	_, err := Parse([]byte("openai:\n  api_key: ${REPO_RAG_DEFINITELY_UNSET}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REPO_RAG_DEFINITELY_UNSET")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			OpenAI: OpenAIConfig{APIKey: "sk"},
			LLM:    LLMConfig{Provider: ProviderOpenAI},
			RAG:    RAGConfig{ChunkSize: 512, ChunkOverlap: 20, TopK: 5},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing openai key", mutate: func(c *Config) { c.OpenAI.APIKey = "" }, wantErr: "OPENAI_API_KEY"},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "mystery" }, wantErr: "unknown llm provider"},
		{name: "anthropic without key", mutate: func(c *Config) { c.LLM.Provider = ProviderAnthropic }, wantErr: "ANTHROPIC_API_KEY"},
		{name: "overlap too large", mutate: func(c *Config) { c.RAG.ChunkOverlap = 512 }, wantErr: "chunk_overlap"},
		{name: "top k zero", mutate: func(c *Config) { c.RAG.TopK = 0 }, wantErr: "top_k"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
