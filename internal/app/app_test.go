package app

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/repo-rag/internal/config"
	"github.com/bull/repo-rag/internal/storage"
)

func TestStorageConfig(t *testing.T) {
	local, err := StorageConfig(config.QdrantConfig{Host: "qdrant", Port: 6334})
	require.NoError(t, err)
	assert.Equal(t, storage.Config{Host: "qdrant", Port: 6334}, local)

	// URL without key stays local.
	local, err = StorageConfig(config.QdrantConfig{URL: "https://x.cloud.qdrant.io", Host: "localhost", Port: 6334})
	require.NoError(t, err)
	assert.Equal(t, "localhost", local.Host)

	cloud, err := StorageConfig(config.QdrantConfig{URL: "https://x.cloud.qdrant.io", APIKey: "k", Host: "localhost", Port: 6334})
	require.NoError(t, err)
	assert.Equal(t, storage.Config{Host: "x.cloud.qdrant.io", Port: 6334, APIKey: "k", UseTLS: true}, cloud)
}

func TestBuild_InvalidConfig(t *testing.T) {
	_, err := Build(context.Background(), &config.Config{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "v", line["k"])

	buf.Reset()
	NewLogger(config.LogConfig{Level: "debug"}, &buf).Debug("text line")
	assert.Contains(t, buf.String(), "msg=\"text line\"")
}
