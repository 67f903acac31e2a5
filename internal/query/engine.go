// Package query answers questions about an ingested repository.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bull/repo-rag/internal/llm"
	"github.com/bull/repo-rag/internal/metrics"
	"github.com/bull/repo-rag/internal/storage"
)

// ErrQueryFailure wraps embedding, search and completion errors.
var ErrQueryFailure = errors.New("query failed")

// EmptyResponse is the answer when retrieval finds nothing.
const EmptyResponse = "Empty Response"

// DefaultMaxContextTokens is the context budget before truncation (in tokens).
const DefaultMaxContextTokens = 16000

const qaTemplate = "Context information is below.\n" +
	"---------------------\n" +
	"%s\n" +
	"---------------------\n" +
	"Given the context information and not prior knowledge, answer the query.\n" +
	"Query: %s\n" +
	"Answer: "

// Retriever finds the chunks closest to a query vector.
type Retriever interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	SearchChunks(ctx context.Context, name string, embedding []float32, limit int) ([]*storage.ScoredChunk, error)
}

// QueryEmbedder embeds a single question.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Engine runs retrieve-then-generate over one repository collection.
type Engine struct {
	retriever        Retriever
	embedder         QueryEmbedder
	completer        llm.Completer
	topK             int
	maxContextTokens int
	logger           *slog.Logger
}

// NewEngine creates a query engine. Non-positive topK defaults to 5 and
// non-positive maxContextTokens to DefaultMaxContextTokens.
func NewEngine(retriever Retriever, embedder QueryEmbedder, completer llm.Completer, topK, maxContextTokens int, logger *slog.Logger) *Engine {
	if topK <= 0 {
		topK = 5
	}
	if maxContextTokens <= 0 {
		maxContextTokens = DefaultMaxContextTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		retriever:        retriever,
		embedder:         embedder,
		completer:        completer,
		topK:             topK,
		maxContextTokens: maxContextTokens,
		logger:           logger,
	}
}

// Ask answers question from the top-K chunks of the repoID collection.
func (e *Engine) Ask(ctx context.Context, repoID, question string) (string, error) {
	start := time.Now()
	answer, hits, err := e.ask(ctx, repoID, question)
	if err != nil {
		metrics.RecordQuery(metrics.OutcomeError, time.Since(start), 0)
		e.logger.Error("Query failed", "repo_id", repoID, "error", err)
		return "", err
	}
	metrics.RecordQuery(metrics.OutcomeSuccess, time.Since(start), hits)
	e.logger.Info("Query answered", "repo_id", repoID, "hits", hits, "duration", time.Since(start))
	return answer, nil
}

func (e *Engine) ask(ctx context.Context, repoID, question string) (string, int, error) {
	exists, err := e.retriever.CollectionExists(ctx, repoID)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrQueryFailure, err)
	}
	if !exists {
		return "", 0, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, repoID)
	}

	vec, err := e.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return "", 0, fmt.Errorf("%w: embed question: %v", ErrQueryFailure, err)
	}

	hits, err := e.retriever.SearchChunks(ctx, repoID, vec, e.topK)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrQueryFailure, err)
	}
	if len(hits) == 0 {
		return EmptyResponse, 0, nil
	}

	prompt := BuildPrompt(e.truncateContext(buildContext(hits)), question)
	answer, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		return "", len(hits), fmt.Errorf("%w: %v", ErrQueryFailure, err)
	}
	return answer, len(hits), nil
}

// BuildPrompt fills the question-answering template.
func BuildPrompt(contextStr, question string) string {
	return fmt.Sprintf(qaTemplate, contextStr, question)
}

// buildContext renders hits in rank order, each prefixed by its file path.
func buildContext(hits []*storage.ScoredChunk) string {
	parts := make([]string, 0, len(hits))
	for _, hit := range hits {
		parts = append(parts, "file_path: "+hit.Chunk.FilePath+"\n\n"+hit.Chunk.Content)
	}
	return strings.Join(parts, "\n\n")
}

// truncateContext truncates content to fit within token limits.
// Uses rough estimate of 4 characters per token.
func (e *Engine) truncateContext(content string) string {
	maxChars := e.maxContextTokens * 4

	runes := []rune(content)
	if len(runes) <= maxChars {
		return content
	}

	e.logger.Warn("Truncating context",
		"from_chars", len(runes),
		"to_chars", maxChars,
		"max_tokens", e.maxContextTokens,
	)
	return string(runes[:maxChars])
}
