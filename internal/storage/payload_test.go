package storage

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkPayloadRoundTrip(t *testing.T) {
	in := &Chunk{
		RepoID:      "octocat-Hello-World",
		FilePath:    "docs/intro.md",
		FileName:    "intro.md",
		FileType:    ".md",
		Title:       "Introduction",
		ChunkIndex:  3,
		StartOffset: 4096,
		CommitSHA:   "7fd1a60b01f91b314f59955a4e4d4e80d8edf11d",
		Content:     "# Introduction\n\nHello.",
	}

	payload := qdrant.NewValueMap(chunkPayload(in))
	out := chunkFromPayload(payload)

	assert.Equal(t, in.RepoID, out.RepoID)
	assert.Equal(t, in.FilePath, out.FilePath)
	assert.Equal(t, in.FileName, out.FileName)
	assert.Equal(t, in.FileType, out.FileType)
	assert.Equal(t, in.Title, out.Title)
	assert.Equal(t, in.ChunkIndex, out.ChunkIndex)
	assert.Equal(t, in.StartOffset, out.StartOffset)
	assert.Equal(t, in.CommitSHA, out.CommitSHA)
	assert.Equal(t, in.Content, out.Content)
}

func TestChunkFromPayload_MissingFields(t *testing.T) {
	out := chunkFromPayload(map[string]*qdrant.Value{})
	assert.Empty(t, out.FilePath)
	assert.Empty(t, out.Content)
	assert.Zero(t, out.ChunkIndex)
}

func TestConfigFromURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    Config
		wantErr bool
	}{
		{
			name: "cloud https",
			url:  "https://abc.eu-central.aws.cloud.qdrant.io",
			want: Config{Host: "abc.eu-central.aws.cloud.qdrant.io", Port: 6334, APIKey: "k", UseTLS: true},
		},
		{
			name: "rest port maps to grpc",
			url:  "https://abc.cloud.qdrant.io:6333",
			want: Config{Host: "abc.cloud.qdrant.io", Port: 6334, APIKey: "k", UseTLS: true},
		},
		{
			name: "explicit grpc port over http",
			url:  "http://qdrant.internal:7334",
			want: Config{Host: "qdrant.internal", Port: 7334, APIKey: "k"},
		},
		{name: "no host", url: "qdrant", wantErr: true},
		{name: "garbage", url: "://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConfigFromURL(tt.url, "k")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
