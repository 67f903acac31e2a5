// Package mcp exposes repository ingest and question answering as MCP tools.
package mcp

// IngestRepositoryInput defines the input parameters for the ingest_repository tool.
type IngestRepositoryInput struct {
	// RepoURL is the clone URL of the repository.
	RepoURL string `json:"repo_url" jsonschema:"Repository URL, e.g. https://github.com/octocat/Hello-World"`
}

// IngestRepositoryOutput reports a finished ingest.
type IngestRepositoryOutput struct {
	RepoID    string `json:"repo_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	CommitSHA string `json:"commit_sha,omitempty"`
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
}

// AskRepositoryInput defines the input parameters for the ask_repository tool.
type AskRepositoryInput struct {
	// RepoID is the identifier returned by ingest_repository.
	RepoID string `json:"repo_id" jsonschema:"Repository identifier returned by ingest_repository, e.g. octocat-Hello-World"`
	// Query is the natural-language question.
	Query string `json:"query" jsonschema:"Question about the repository"`
}

// AskRepositoryOutput contains the generated answer.
type AskRepositoryOutput struct {
	Answer string `json:"answer"`
}

// RepositoryStatusInput defines the input parameters for the repository_status tool.
type RepositoryStatusInput struct {
	RepoID string `json:"repo_id" jsonschema:"Repository identifier"`
}

// RepositoryStatusOutput describes the collection backing a repository.
type RepositoryStatusOutput struct {
	RepoID string `json:"repo_id"`
	// Found indicates whether the repository has been ingested.
	Found bool `json:"found"`
	// Status is the Qdrant collection status (e.g. "Green").
	Status string `json:"status,omitempty"`
	// Chunks is the number of stored chunk points.
	Chunks uint64 `json:"chunks"`
}
