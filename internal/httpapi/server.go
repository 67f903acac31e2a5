// Package httpapi serves the ingest and chat endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rs/cors"

	"github.com/bull/repo-rag/internal/indexer"
	"github.com/bull/repo-rag/internal/metrics"
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

// Options wires the handler. MCP is optional.
type Options struct {
	Ingester       Ingester
	Asker          Asker
	Status         StatusReader
	Health         HealthChecker
	MCP            http.Handler
	AllowedOrigins []string
	Logger         *slog.Logger
}

// IngestRequest is the POST /ingest body.
type IngestRequest struct {
	RepoURL string `json:"repo_url"`
}

// IngestResponse is returned after a successful ingest.
type IngestResponse struct {
	RepoID  string `json:"repo_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ChatRequest is the POST /chat body.
type ChatRequest struct {
	RepoID string `json:"repo_id"`
	Query  string `json:"query"`
}

// ChatResponse carries the generated answer.
type ChatResponse struct {
	Answer string `json:"answer"`
}

// StatusResponse describes an ingested repository.
type StatusResponse struct {
	RepoID string `json:"repo_id"`
	Status string `json:"status"`
	Chunks uint64 `json:"chunks"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

type server struct {
	opts   Options
	logger *slog.Logger
}

// NewHandler builds the routed, CORS-wrapped API handler.
func NewHandler(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &server{opts: opts, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("POST /ingest", s.handleIngest)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /repos/{repo_id}", s.handleStatus)
	mux.Handle("GET /metrics", metrics.Handler())
	if opts.Health != nil {
		mux.HandleFunc("GET /health", NewHealthHandler(opts.Health))
	}
	if opts.MCP != nil {
		mux.Handle("/mcp", opts.MCP)
	}

	return cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodHead, http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(mux)
}

func (s *server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "RAG API is running"})
}

func (s *server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.RepoURL) == "" {
		writeError(w, http.StatusBadRequest, "repo_url is required")
		return
	}

	result, err := s.opts.Ingester.Ingest(r.Context(), req.RepoURL)
	if err != nil {
		if indexer.IsClientError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{
		RepoID:  result.RepoID,
		Status:  "success",
		Message: fmt.Sprintf("Repository %s ingested successfully.", result.RepoID),
	})
}

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.RepoID == "" || req.Query == "" {
		writeError(w, http.StatusBadRequest, "repo_id and query are required")
		return
	}

	answer, err := s.opts.Asker.Ask(r.Context(), req.RepoID, req.Query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error during query: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Answer: answer})
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	repoID := r.PathValue("repo_id")

	info, err := s.opts.Status.CollectionInfo(r.Context(), repoID)
	if err != nil {
		if errors.Is(err, storage.ErrCollectionNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Repository %s not found", repoID))
			return
		}
		s.logger.Error("Status lookup failed", "repo_id", repoID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		RepoID: repoID,
		Status: info.Status,
		Chunks: info.PointsCount,
	})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}
