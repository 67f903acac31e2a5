// Package app builds the shared components once before serving.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bull/repo-rag/internal/chunker"
	"github.com/bull/repo-rag/internal/config"
	"github.com/bull/repo-rag/internal/embedding"
	"github.com/bull/repo-rag/internal/github"
	"github.com/bull/repo-rag/internal/httpapi"
	"github.com/bull/repo-rag/internal/indexer"
	"github.com/bull/repo-rag/internal/llm"
	"github.com/bull/repo-rag/internal/loader"
	mcpserver "github.com/bull/repo-rag/internal/mcp"
	"github.com/bull/repo-rag/internal/query"
	"github.com/bull/repo-rag/internal/storage"
)

// Version is reported by the MCP server.
var Version = "dev"

// Components holds initialized components for use by the commands.
type Components struct {
	Config    *config.Config
	Store     *storage.QdrantStorage
	Embedder  *embedding.Embedder
	Completer llm.Completer
	Pipeline  *indexer.Pipeline
	Engine    *query.Engine
	MCP       *mcpserver.Server
	Logger    *slog.Logger
}

// Build validates cfg and creates every component. The Qdrant connection is
// health-checked before Build returns.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	openaiClient, err := embedding.NewClient(cfg.OpenAI.APIKey)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}
	embedder, err := embedding.NewEmbedder(openaiClient, cfg.OpenAI.EmbeddingModel, cfg.OpenAI.EmbeddingBatchSize)
	if err != nil {
		return nil, err
	}

	completer, err := llm.New(cfg.LLM, openaiClient.Client())
	if err != nil {
		return nil, fmt.Errorf("create completer: %w", err)
	}

	storeCfg, err := StorageConfig(cfg.Qdrant)
	if err != nil {
		return nil, err
	}
	logger.Info("Connecting to Qdrant", "host", storeCfg.Host, "port", storeCfg.Port, "tls", storeCfg.UseTLS)
	store, err := storage.NewQdrantStorage(ctx, storeCfg, embedder.Dimension(), logger)
	if err != nil {
		return nil, err
	}

	ghClient, err := github.NewClient(cfg.GitHub.Token)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create GitHub client: %w", err)
	}
	fetcher := github.NewFetcher(cfg.RAG.RepoBasePath, github.NewGitCloner(cfg.GitHub.Token), ghClient, logger)

	splitter, err := chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		store.Close()
		return nil, err
	}

	pipeline := indexer.NewPipeline(fetcher, loader.New(cfg.RAG.FileExtensions, logger), splitter, embedder, store, logger)
	engine := query.NewEngine(store, embedder, completer, cfg.RAG.TopK, cfg.RAG.MaxContextTokens, logger)

	mcp := mcpserver.NewServer(&mcpserver.Config{
		Ingester: pipeline,
		Asker:    engine,
		Status:   store,
		Version:  Version,
	})

	return &Components{
		Config:    cfg,
		Store:     store,
		Embedder:  embedder,
		Completer: completer,
		Pipeline:  pipeline,
		Engine:    engine,
		MCP:       mcp,
		Logger:    logger,
	}, nil
}

// Handler returns the HTTP API with the MCP endpoint mounted at /mcp.
func (c *Components) Handler() http.Handler {
	return httpapi.NewHandler(httpapi.Options{
		Ingester:       c.Pipeline,
		Asker:          c.Engine,
		Status:         c.Store,
		Health:         c.Store,
		MCP:            mcpserver.NewHTTPHandler(c.MCP, &mcpserver.HTTPHandlerOptions{Stateless: true}),
		AllowedOrigins: c.Config.Server.AllowedOrigins,
		Logger:         c.Logger,
	})
}

// Close releases the Qdrant connection.
func (c *Components) Close() error {
	return c.Store.Close()
}

// StorageConfig selects Qdrant Cloud when both URL and API key are set,
// otherwise the configured host and port.
func StorageConfig(q config.QdrantConfig) (storage.Config, error) {
	if q.Cloud() {
		return storage.ConfigFromURL(q.URL, q.APIKey)
	}
	return storage.Config{
		Host:   q.Host,
		Port:   q.Port,
		APIKey: q.APIKey,
	}, nil
}
