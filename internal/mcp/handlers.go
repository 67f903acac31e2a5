package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/repo-rag/internal/indexer"
	"github.com/bull/repo-rag/internal/storage"
)

// Ingester runs the ingest pipeline.
type Ingester interface {
	Ingest(ctx context.Context, rawURL string) (*indexer.IngestResult, error)
}

// Asker answers questions about an ingested repository.
type Asker interface {
	Ask(ctx context.Context, repoID, question string) (string, error)
}

// StatusReader reports collection statistics.
type StatusReader interface {
	CollectionInfo(ctx context.Context, name string) (*storage.CollectionInfo, error)
}

// makeIngestHandler creates the ingest_repository tool handler.
// Errors are returned to the client as tool errors with the pipeline message.
func makeIngestHandler(ingester Ingester) func(
	context.Context, *mcp.CallToolRequest, IngestRepositoryInput,
) (*mcp.CallToolResult, IngestRepositoryOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IngestRepositoryInput) (
		*mcp.CallToolResult, IngestRepositoryOutput, error,
	) {
		if input.RepoURL == "" {
			return nil, IngestRepositoryOutput{}, errors.New("repo_url is required")
		}

		result, err := ingester.Ingest(ctx, input.RepoURL)
		if err != nil {
			return nil, IngestRepositoryOutput{}, fmt.Errorf("ingest failed: %w", err)
		}

		return nil, IngestRepositoryOutput{
			RepoID:    result.RepoID,
			Status:    "success",
			Message:   fmt.Sprintf("Repository %s ingested successfully.", result.RepoID),
			CommitSHA: result.CommitSHA,
			Documents: result.Documents,
			Chunks:    result.Chunks,
		}, nil
	}
}

// makeAskHandler creates the ask_repository tool handler.
func makeAskHandler(asker Asker) func(
	context.Context, *mcp.CallToolRequest, AskRepositoryInput,
) (*mcp.CallToolResult, AskRepositoryOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskRepositoryInput) (
		*mcp.CallToolResult, AskRepositoryOutput, error,
	) {
		if input.RepoID == "" || input.Query == "" {
			return nil, AskRepositoryOutput{}, errors.New("repo_id and query are required")
		}

		answer, err := asker.Ask(ctx, input.RepoID, input.Query)
		if err != nil {
			return nil, AskRepositoryOutput{}, fmt.Errorf("query failed: %w", err)
		}
		return nil, AskRepositoryOutput{Answer: answer}, nil
	}
}

// makeStatusHandler creates the repository_status tool handler.
// A missing collection is reported as Found=false, not as an error.
func makeStatusHandler(status StatusReader) func(
	context.Context, *mcp.CallToolRequest, RepositoryStatusInput,
) (*mcp.CallToolResult, RepositoryStatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input RepositoryStatusInput) (
		*mcp.CallToolResult, RepositoryStatusOutput, error,
	) {
		info, err := status.CollectionInfo(ctx, input.RepoID)
		if err != nil {
			if errors.Is(err, storage.ErrCollectionNotFound) {
				return nil, RepositoryStatusOutput{RepoID: input.RepoID, Found: false}, nil
			}
			return nil, RepositoryStatusOutput{}, fmt.Errorf("qdrant_error: %w", err)
		}

		return nil, RepositoryStatusOutput{
			RepoID: input.RepoID,
			Found:  true,
			Status: info.Status,
			Chunks: info.PointsCount,
		}, nil
	}
}
