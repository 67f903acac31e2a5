package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// DefaultPort is Qdrant's gRPC port.
const DefaultPort = 6334

// upsertBatchSize bounds the number of points per Upsert request.
const upsertBatchSize = 100

// Config addresses a Qdrant instance over gRPC.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// ConfigFromURL builds a Config for a hosted instance such as
// "https://xyz.cloud.qdrant.io". The REST port 6333 in a URL is mapped to
// the gRPC port; an https scheme enables TLS.
func ConfigFromURL(rawURL, apiKey string) (Config, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Config{}, fmt.Errorf("invalid qdrant url %q: %w", rawURL, err)
	}
	if u.Hostname() == "" {
		return Config{}, fmt.Errorf("invalid qdrant url %q: missing host", rawURL)
	}

	port := DefaultPort
	if p := u.Port(); p != "" && p != "6333" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return Config{}, fmt.Errorf("invalid qdrant port %q: %w", p, err)
		}
	}

	return Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: apiKey,
		UseTLS: u.Scheme == "https",
	}, nil
}

// QdrantStorage wraps the Qdrant client with connection management and health checks.
// One collection per repository; every point carries a single named vector.
type QdrantStorage struct {
	client    *qdrant.Client
	cfg       Config
	dimension int
	logger    *slog.Logger
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(ctx context.Context, cfg Config, dimension int, logger *slog.Logger) (*QdrantStorage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dimension)
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{
		client:    client,
		cfg:       cfg,
		dimension: dimension,
		logger:    logger,
	}

	if err := storage.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return storage, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	attempt := 0
	operation := func() error {
		attempt++
		err := s.Health(ctx)
		if err != nil {
			s.logger.Debug("qdrant not ready", "host", s.cfg.Host, "port", s.cfg.Port, "attempt", attempt, "error", err)
		}
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(exponentialBackoff, ctx))
}

// Health performs a single health check against Qdrant.
// Returns nil if Qdrant is healthy, error otherwise.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// Dimension returns the vector size collections are created with.
func (s *QdrantStorage) Dimension() int {
	return s.dimension
}

// CollectionExists reports whether the named collection exists.
func (s *QdrantStorage) CollectionExists(ctx context.Context, name string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	return exists, nil
}

// RecreateCollection drops the collection if present and creates it empty.
// A failed delete is logged and ignored; creation errors are returned.
func (s *QdrantStorage) RecreateCollection(ctx context.Context, name string) error {
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		s.logger.Warn("delete collection failed, continuing", "collection", name, "error", err)
	}

	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			VectorName: {
				Size:     uint64(s.dimension),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	// Keyword index so status and debugging queries can filter by file.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: name,
		FieldName:      FieldFilePath,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for field %s: %w", FieldFilePath, err)
	}

	return nil
}

// DeleteCollection removes the named collection.
func (s *QdrantStorage) DeleteCollection(ctx context.Context, name string) error {
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", name, err)
	}
	return nil
}

// UpsertChunks stores multiple chunks with embeddings in Qdrant.
// Chunks are batched in groups of 100 and each batch waits for persistence.
func (s *QdrantStorage) UpsertChunks(ctx context.Context, name string, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for i, chunk := range chunks {
		if len(chunk.Embedding) != s.dimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(chunk.Embedding), s.dimension)
		}
	}

	for i := 0; i < len(chunks); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(chunks))

		batch := chunks[i:end]
		points := make([]*qdrant.PointStruct, len(batch))
		for j, chunk := range batch {
			points[j] = &qdrant.PointStruct{
				Id: qdrant.NewIDUUID(chunk.ID),
				Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
					VectorName: qdrant.NewVector(chunk.Embedding...),
				}),
				Payload: qdrant.NewValueMap(chunkPayload(chunk)),
			}
		}

		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: name,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// SearchChunks performs vector similarity search on the named collection.
// Returns top N chunks with similarity scores, ordered by score descending.
func (s *QdrantStorage) SearchChunks(ctx context.Context, name string, embedding []float32, limit int) ([]*ScoredChunk, error) {
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), s.dimension)
	}

	vectorName := VectorName
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(embedding...),
		Using:          &vectorName,
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks in %s: %w", name, err)
	}

	scoredChunks := make([]*ScoredChunk, 0, len(results))
	for _, result := range results {
		chunk := chunkFromPayload(result.Payload)
		chunk.ID = result.Id.GetUuid()
		scoredChunks = append(scoredChunks, &ScoredChunk{
			Chunk: chunk,
			Score: float64(result.Score),
		})
	}

	return scoredChunks, nil
}

// CollectionInfo retrieves collection statistics.
// Returns ErrCollectionNotFound if the collection does not exist.
func (s *QdrantStorage) CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}

	info, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection %s: %w", name, err)
	}

	return &CollectionInfo{
		Name:        name,
		Status:      info.GetStatus().String(),
		PointsCount: info.GetPointsCount(),
	}, nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func chunkPayload(c *Chunk) map[string]any {
	return map[string]any{
		FieldRepoID:      c.RepoID,
		FieldFilePath:    c.FilePath,
		FieldFileName:    c.FileName,
		FieldFileType:    c.FileType,
		FieldTitle:       c.Title,
		FieldChunkIndex:  c.ChunkIndex,
		FieldStartOffset: c.StartOffset,
		FieldCommitSHA:   c.CommitSHA,
		FieldContent:     c.Content,
	}
}

func chunkFromPayload(payload map[string]*qdrant.Value) *Chunk {
	return &Chunk{
		RepoID:      payload[FieldRepoID].GetStringValue(),
		FilePath:    payload[FieldFilePath].GetStringValue(),
		FileName:    payload[FieldFileName].GetStringValue(),
		FileType:    payload[FieldFileType].GetStringValue(),
		Title:       payload[FieldTitle].GetStringValue(),
		ChunkIndex:  int(payload[FieldChunkIndex].GetIntegerValue()),
		StartOffset: int(payload[FieldStartOffset].GetIntegerValue()),
		CommitSHA:   payload[FieldCommitSHA].GetStringValue(),
		Content:     payload[FieldContent].GetStringValue(),
	}
}
