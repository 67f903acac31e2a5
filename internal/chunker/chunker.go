// Package chunker splits loaded documents into overlapping text windows.
package chunker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/bull/repo-rag/internal/loader"
)

// CharsPerToken converts token budgets to character budgets.
// Rough estimate: 1 token ≈ 4 characters.
const CharsPerToken = 4

// ErrChunkFailure marks a document the splitter could not process.
var ErrChunkFailure = errors.New("chunking failed")

// Node is one chunk of a document, independently embeddable.
type Node struct {
	ID          string         // UUID, used as the vector point id
	DocPath     string         // Source document path
	Index       int            // Position within the document (0, 1, 2...)
	StartOffset int            // Byte offset of Text in the document, -1 if not located
	Text        string         // Chunk text
	Metadata    map[string]any // Document metadata plus chunk_index
}

// Splitter produces content-agnostic fixed-size windows with overlap.
type Splitter struct {
	chunkSize    int // tokens
	chunkOverlap int // tokens
	splitter     textsplitter.RecursiveCharacter
}

// New creates a splitter. Sizes are in tokens and must satisfy 0 <= overlap < size.
func New(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap)
	}
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize*CharsPerToken),
			textsplitter.WithChunkOverlap(chunkOverlap*CharsPerToken),
		),
	}, nil
}

// MaxChars is the largest chunk, in characters, the splitter aims for.
func (s *Splitter) MaxChars() int {
	return s.chunkSize * CharsPerToken
}

// Split chunks every document and returns the nodes in document order.
func (s *Splitter) Split(docs []loader.Document) ([]Node, error) {
	var nodes []Node
	for _, doc := range docs {
		if strings.TrimSpace(doc.Content) == "" {
			continue
		}

		texts, err := s.splitter.SplitText(doc.Content)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrChunkFailure, doc.Path, err)
		}

		cursor := 0
		index := 0
		for _, text := range texts {
			if strings.TrimSpace(text) == "" {
				continue
			}
			offset := -1
			if pos := strings.Index(doc.Content[cursor:], text); pos >= 0 {
				offset = cursor + pos
				cursor = offset + 1
			}

			meta := make(map[string]any, len(doc.Metadata)+1)
			for k, v := range doc.Metadata {
				meta[k] = v
			}
			meta["chunk_index"] = index

			nodes = append(nodes, Node{
				ID:          uuid.New().String(),
				DocPath:     doc.Path,
				Index:       index,
				StartOffset: offset,
				Text:        text,
				Metadata:    meta,
			})
			index++
		}
	}
	return nodes, nil
}
