package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/repo-rag/internal/loader"
)

func doc(path, content string) loader.Document {
	return loader.Document{
		Path:     path,
		Content:  content,
		Metadata: map[string]any{"file_path": path},
	}
}

// words builds "w0000 w0001 ..." so every word is unique.
func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%04d", i)
	}
	return strings.Join(parts, " ")
}

func TestNew_Validation(t *testing.T) {
	_, err := New(0, 0)
	assert.Error(t, err)
	_, err = New(10, 10)
	assert.Error(t, err)
	_, err = New(10, -1)
	assert.Error(t, err)
	s, err := New(512, 20)
	require.NoError(t, err)
	assert.Equal(t, 2048, s.MaxChars())
}

func TestSplit_ShortDocumentIsOneChunk(t *testing.T) {
	s, err := New(512, 20)
	require.NoError(t, err)

	nodes, err := s.Split([]loader.Document{doc("a.py", "print('hello')")})
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	n := nodes[0]
	assert.Equal(t, "print('hello')", n.Text)
	assert.Equal(t, "a.py", n.DocPath)
	assert.Equal(t, 0, n.Index)
	assert.Equal(t, 0, n.StartOffset)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, "a.py", n.Metadata["file_path"])
	assert.Equal(t, 0, n.Metadata["chunk_index"])
}

func TestSplit_LongDocumentWindows(t *testing.T) {
	s, err := New(25, 5) // 100 chars, 20 chars overlap
	require.NoError(t, err)

	text := words(200) // 1199 chars
	nodes, err := s.Split([]loader.Document{doc("big.md", text)})
	require.NoError(t, err)
	require.Greater(t, len(nodes), 10)

	for i, n := range nodes {
		assert.Equal(t, i, n.Index, "indices are sequential")
		assert.LessOrEqual(t, utf8.RuneCountInString(n.Text), s.MaxChars())
		assert.GreaterOrEqual(t, n.StartOffset, 0, "chunk %d should be located in the source", i)
		if i > 0 {
			assert.Greater(t, n.StartOffset, nodes[i-1].StartOffset, "order is preserved")
		}
	}

	// Every word survives splitting.
	joined := make([]string, len(nodes))
	for i, n := range nodes {
		joined[i] = n.Text
	}
	all := strings.Join(joined, " ")
	for _, w := range strings.Fields(text) {
		assert.Contains(t, all, w)
	}
}

func TestSplit_ConsecutiveChunksOverlap(t *testing.T) {
	s, err := New(25, 5)
	require.NoError(t, err)

	nodes, err := s.Split([]loader.Document{doc("big.md", words(100))})
	require.NoError(t, err)
	require.Greater(t, len(nodes), 2)

	for i := 1; i < len(nodes); i++ {
		prev := strings.Fields(nodes[i-1].Text)
		first := strings.Fields(nodes[i].Text)[0]
		assert.Contains(t, prev, first, "chunk %d should start inside chunk %d", i, i-1)
	}
}

func TestSplit_MultipleDocumentsKeepLoaderOrder(t *testing.T) {
	s, err := New(25, 5)
	require.NoError(t, err)

	nodes, err := s.Split([]loader.Document{
		doc("a.py", "alpha"),
		doc("empty.py", "   \n\t "),
		doc("b.py", words(60)),
		doc("c.py", "gamma"),
	})
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(nodes), 4)
	assert.Equal(t, "a.py", nodes[0].DocPath)
	assert.Equal(t, "c.py", nodes[len(nodes)-1].DocPath)
	assert.Equal(t, 0, nodes[len(nodes)-1].Index, "index restarts per document")
	for _, n := range nodes {
		assert.NotEqual(t, "empty.py", n.DocPath)
	}
}

func TestSplit_NoDocuments(t *testing.T) {
	s, err := New(512, 20)
	require.NoError(t, err)

	nodes, err := s.Split(nil)
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestSplit_MetadataIsCopiedPerNode(t *testing.T) {
	s, err := New(25, 5)
	require.NoError(t, err)

	d := doc("big.md", words(60))
	nodes, err := s.Split([]loader.Document{d})
	require.NoError(t, err)
	require.Greater(t, len(nodes), 1)

	assert.Equal(t, 1, nodes[1].Metadata["chunk_index"])
	assert.NotContains(t, d.Metadata, "chunk_index", "source metadata is not mutated")
}
