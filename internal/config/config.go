// Package config loads repo-rag settings from an optional YAML file and the
// process environment. Environment variables always win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when CONFIG_FILE is unset and the file exists.
const DefaultConfigFile = "repo-rag.yaml"

// Supported LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config is the top-level configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Qdrant QdrantConfig `yaml:"qdrant"`
	OpenAI OpenAIConfig `yaml:"openai"`
	LLM    LLMConfig    `yaml:"llm"`
	GitHub GitHubConfig `yaml:"github"`
	RAG    RAGConfig    `yaml:"rag"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// QdrantConfig selects Qdrant Cloud (URL + API key) or a local instance.
type QdrantConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
}

// Cloud reports whether both URL and API key are configured.
func (q QdrantConfig) Cloud() bool {
	return q.URL != "" && q.APIKey != ""
}

// OpenAIConfig configures embeddings (and chat when LLM.Provider is openai).
type OpenAIConfig struct {
	APIKey             string `yaml:"api_key"`
	EmbeddingModel     string `yaml:"embedding_model"`
	EmbeddingBatchSize int    `yaml:"embedding_batch_size"`
}

// LLMConfig selects the model that writes answers.
type LLMConfig struct {
	Provider        string `yaml:"provider"`
	Model           string `yaml:"model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
}

// GitHubConfig holds the optional token used for cloning and API preflight.
type GitHubConfig struct {
	Token string `yaml:"token"`
}

// RAGConfig holds the pipeline knobs.
type RAGConfig struct {
	RepoBasePath     string   `yaml:"repo_base_path"`
	ChunkSize        int      `yaml:"chunk_size"`
	ChunkOverlap     int      `yaml:"chunk_overlap"`
	TopK             int      `yaml:"top_k"`
	MaxContextTokens int      `yaml:"max_context_tokens"`
	FileExtensions   []string `yaml:"file_extensions"`
}

// LogConfig controls the slog handler built by cmd.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load builds the configuration. If path is empty, CONFIG_FILE is consulted
// and then DefaultConfigFile; a missing default file is not an error.
// Defaults are laid down first so explicit zero values in the file or the
// environment survive.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		if env := os.Getenv("CONFIG_FILE"); env != "" {
			path = env
			explicit = true
		} else {
			path = DefaultConfigFile
		}
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// no file, env only
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	normalize(cfg)
	return cfg, nil
}

// Parse decodes YAML over the defaults after expanding ${VAR} placeholders.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := decode(data, cfg); err != nil {
		return nil, err
	}
	normalize(cfg)
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	expanded, err := expandEnvVars(data)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return fmt.Errorf("parsing config YAML: %w", err)
	}
	return nil
}

// Validate reports settings the service cannot start with.
func (c *Config) Validate() error {
	var problems []string
	if c.OpenAI.APIKey == "" {
		problems = append(problems, "OPENAI_API_KEY is required")
	}
	switch c.LLM.Provider {
	case ProviderOpenAI:
	case ProviderAnthropic:
		if c.LLM.AnthropicAPIKey == "" {
			problems = append(problems, "ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown llm provider %q", c.LLM.Provider))
	}
	if c.RAG.ChunkSize <= 0 {
		problems = append(problems, "chunk_size must be positive")
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		problems = append(problems, "chunk_overlap must be in [0, chunk_size)")
	}
	if c.RAG.TopK < 1 {
		problems = append(problems, "top_k must be at least 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// envVarPattern matches ${VAR} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} placeholders with environment variable values.
// Returns an error if any referenced variable is not set.
func expandEnvVars(data []byte) ([]byte, error) {
	var missing []string
	result := envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := string(envVarPattern.FindSubmatch(match)[1])
		val, ok := os.LookupEnv(name)
		if !ok {
			missing = append(missing, name)
			return match
		}
		return []byte(val)
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return result, nil
}

func applyEnv(cfg *Config) error {
	env := envReader{}

	env.setInt(&cfg.Server.Port, "PORT")
	env.setList(&cfg.Server.AllowedOrigins, "CORS_ALLOWED_ORIGINS")

	env.setString(&cfg.Qdrant.URL, "QDRANT_URL")
	env.setString(&cfg.Qdrant.APIKey, "QDRANT_API_KEY")
	env.setString(&cfg.Qdrant.Host, "QDRANT_HOST")
	env.setInt(&cfg.Qdrant.Port, "QDRANT_PORT")

	env.setString(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	env.setString(&cfg.OpenAI.EmbeddingModel, "EMBEDDING_MODEL")
	env.setInt(&cfg.OpenAI.EmbeddingBatchSize, "EMBEDDING_BATCH_SIZE")

	env.setString(&cfg.LLM.Provider, "LLM_PROVIDER")
	env.setString(&cfg.LLM.Model, "LLM_MODEL")
	env.setString(&cfg.LLM.AnthropicAPIKey, "ANTHROPIC_API_KEY")

	env.setString(&cfg.GitHub.Token, "GITHUB_TOKEN")

	env.setString(&cfg.RAG.RepoBasePath, "REPO_BASE_PATH")
	env.setInt(&cfg.RAG.ChunkSize, "CHUNK_SIZE")
	env.setInt(&cfg.RAG.ChunkOverlap, "CHUNK_OVERLAP")
	env.setInt(&cfg.RAG.TopK, "TOP_K")
	env.setInt(&cfg.RAG.MaxContextTokens, "MAX_CONTEXT_TOKENS")
	env.setList(&cfg.RAG.FileExtensions, "FILE_EXTENSIONS")

	env.setString(&cfg.Log.Level, "LOG_LEVEL")
	env.setString(&cfg.Log.Format, "LOG_FORMAT")

	if len(env.invalid) > 0 {
		return fmt.Errorf("invalid integer environment variables: %s", strings.Join(env.invalid, ", "))
	}
	return nil
}

// Default returns the built-in settings that the file and environment overlay.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8000,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Qdrant: QdrantConfig{
			Host: "localhost",
			Port: 6334,
		},
		OpenAI: OpenAIConfig{
			EmbeddingModel:     "text-embedding-3-small",
			EmbeddingBatchSize: 10,
		},
		LLM: LLMConfig{
			Provider: ProviderOpenAI,
		},
		RAG: RAGConfig{
			RepoBasePath:     "./temp_repos",
			ChunkSize:        512,
			ChunkOverlap:     20,
			TopK:             5,
			MaxContextTokens: 16000,
			FileExtensions:   []string{".py", ".md", ".js", ".ts", ".tsx", ".jsx", ".toml", ".yaml", ".go", ".yml"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// normalize fills settings that depend on other settings or that an empty
// file value must not blank out.
func normalize(cfg *Config) {
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if cfg.OpenAI.EmbeddingBatchSize <= 0 {
		cfg.OpenAI.EmbeddingBatchSize = 10
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderOpenAI
	}
	cfg.LLM.Provider = strings.ToLower(cfg.LLM.Provider)
	if cfg.LLM.Model == "" && cfg.LLM.Provider == ProviderOpenAI {
		cfg.LLM.Model = "gpt-4o"
	}
	if cfg.RAG.MaxContextTokens <= 0 {
		cfg.RAG.MaxContextTokens = 16000
	}
}

// envReader overlays environment variables and collects unparsable integers.
type envReader struct {
	invalid []string
}

func (e *envReader) setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (e *envReader) setInt(dst *int, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.invalid = append(e.invalid, fmt.Sprintf("%s=%q", key, v))
		return
	}
	*dst = i
}

func (e *envReader) setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}
