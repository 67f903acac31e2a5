package storage

// VectorName is the named vector every chunk point carries.
const VectorName = "content"

// Payload keys written for each chunk point.
const (
	FieldRepoID      = "repo_id"
	FieldFilePath    = "file_path"
	FieldFileName    = "file_name"
	FieldFileType    = "file_type"
	FieldTitle       = "title"
	FieldChunkIndex  = "chunk_index"
	FieldStartOffset = "start_offset"
	FieldCommitSHA   = "commit_sha"
	FieldContent     = "content"
)

// Chunk is one embedded window of a repository file.
type Chunk struct {
	ID          string    // UUID
	RepoID      string    // Collection / repository identifier: "octocat-Hello-World"
	FilePath    string    // Relative path: "src/main.py"
	FileName    string    // Base name: "main.py"
	FileType    string    // Extension: ".py"
	Title       string    // First markdown heading, empty for code
	ChunkIndex  int       // Position in file (0, 1, 2...)
	StartOffset int       // Byte offset in file, -1 if unknown
	CommitSHA   string    // HEAD commit when ingested
	Content     string    // Chunk text content
	Embedding   []float32 // Vector sized by the embedding model
}

// ScoredChunk pairs a search hit with its cosine similarity.
type ScoredChunk struct {
	Chunk *Chunk
	Score float64
}

// CollectionInfo contains collection statistics.
type CollectionInfo struct {
	Name        string
	Status      string
	PointsCount uint64
}
