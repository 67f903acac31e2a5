package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bull/repo-rag/internal/chunker"
	"github.com/bull/repo-rag/internal/github"
	"github.com/bull/repo-rag/internal/loader"
	"github.com/bull/repo-rag/internal/metrics"
	"github.com/bull/repo-rag/internal/storage"
)

// IngestResult contains statistics about an ingest operation.
type IngestResult struct {
	RepoID      string
	CommitSHA   string
	Documents   int
	Chunks      int
	SkipReasons map[string]int
	Duration    time.Duration
}

// Fetcher produces a fresh working copy for a repository URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*github.Checkout, error)
}

// Loader reads the documents of a working copy.
type Loader interface {
	Load(ctx context.Context, root string) (*loader.Result, error)
}

// Splitter turns documents into chunk nodes.
type Splitter interface {
	Split(docs []loader.Document) ([]chunker.Node, error)
}

// Embedder turns texts into vectors, one per text in input order.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore holds one collection per repository.
type VectorStore interface {
	RecreateCollection(ctx context.Context, name string) error
	UpsertChunks(ctx context.Context, name string, chunks []*storage.Chunk) error
}

// Pipeline orchestrates the full ingest process from cloning to storage.
type Pipeline struct {
	fetcher  Fetcher
	loader   Loader
	splitter Splitter
	embedder Embedder
	store    VectorStore
	locks    *keyedMutex
	logger   *slog.Logger
}

// NewPipeline creates a new ingest pipeline with the given components.
func NewPipeline(
	fetcher Fetcher,
	loader Loader,
	splitter Splitter,
	embedder Embedder,
	store VectorStore,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		fetcher:  fetcher,
		loader:   loader,
		splitter: splitter,
		embedder: embedder,
		store:    store,
		locks:    newKeyedMutex(),
		logger:   logger,
	}
}

// Ingest clones rawURL and replaces the repository's collection with freshly
// embedded chunks. Ingests of the same repository are serialized.
func (p *Pipeline) Ingest(ctx context.Context, rawURL string) (*IngestResult, error) {
	start := time.Now()

	repoID, err := github.ParseRepoID(rawURL)
	if err != nil {
		metrics.RecordIngest(metrics.OutcomeError, time.Since(start), 0, 0)
		return nil, err
	}

	unlock := p.locks.Lock(repoID)
	defer unlock()

	result, err := p.ingest(ctx, rawURL, repoID)
	if err != nil {
		p.logger.Error("Ingest failed", "repo_id", repoID, "error", err)
		metrics.RecordIngest(metrics.OutcomeError, time.Since(start), 0, 0)
		return nil, err
	}

	result.Duration = time.Since(start)
	metrics.RecordIngest(metrics.OutcomeSuccess, result.Duration, result.Documents, result.Chunks)
	p.logger.Info("Ingest complete",
		"repo_id", repoID,
		"commit", result.CommitSHA,
		"documents", result.Documents,
		"chunks", result.Chunks,
		"duration", result.Duration,
	)
	return result, nil
}

func (p *Pipeline) ingest(ctx context.Context, rawURL, repoID string) (*IngestResult, error) {
	// 1. Clone
	checkout, err := p.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	result := &IngestResult{RepoID: repoID, CommitSHA: checkout.CommitSHA}

	// 2. Load
	loaded, err := p.loader.Load(ctx, checkout.Path)
	if err != nil {
		return nil, err
	}
	result.Documents = len(loaded.Documents)
	result.SkipReasons = loaded.SkipReasons
	metrics.RecordSkipped(loaded.SkipReasons)

	// 3. Chunk
	nodes, err := p.splitter.Split(loaded.Documents)
	if err != nil {
		return nil, err
	}
	result.Chunks = len(nodes)
	p.logger.Info("Chunked repository", "repo_id", repoID, "documents", result.Documents, "chunks", len(nodes))

	// 4. Replace the collection
	if err := p.store.RecreateCollection(ctx, repoID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexBuildFailure, err)
	}
	if len(nodes) == 0 {
		p.logger.Warn("No indexable content, collection left empty", "repo_id", repoID)
		return result, nil
	}

	// 5. Embed
	texts := make([]string, len(nodes))
	for i, node := range nodes {
		texts[i] = node.Text
	}
	embeddings, err := p.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embeddings: %v", ErrIndexBuildFailure, err)
	}
	if len(embeddings) != len(nodes) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", ErrIndexBuildFailure, len(embeddings), len(nodes))
	}

	// 6. Store
	chunks := make([]*storage.Chunk, len(nodes))
	for i, node := range nodes {
		chunks[i] = toStorageChunk(repoID, checkout.CommitSHA, node, embeddings[i])
	}
	if err := p.store.UpsertChunks(ctx, repoID, chunks); err != nil {
		return nil, fmt.Errorf("%w: store chunks: %v", ErrIndexBuildFailure, err)
	}

	return result, nil
}

func toStorageChunk(repoID, commitSHA string, node chunker.Node, embedding []float32) *storage.Chunk {
	return &storage.Chunk{
		ID:          node.ID,
		RepoID:      repoID,
		FilePath:    node.DocPath,
		FileName:    metaString(node.Metadata, "file_name"),
		FileType:    metaString(node.Metadata, "file_type"),
		Title:       metaString(node.Metadata, "title"),
		ChunkIndex:  node.Index,
		StartOffset: node.StartOffset,
		CommitSHA:   commitSHA,
		Content:     node.Text,
		Embedding:   embedding,
	}
}

func metaString(meta map[string]any, key string) string {
	s, _ := meta[key].(string)
	return s
}

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	return errors.Is(err, github.ErrInvalidURL)
}
