// Package loader reads the text files of a working copy into documents.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/bull/repo-rag/internal/markdown"
)

// ErrLoadFailure marks a working copy that could not be enumerated.
var ErrLoadFailure = errors.New("load failed")

// binarySniffLen is how many leading bytes are checked for NUL.
const binarySniffLen = 8000

// Document is one loaded file.
type Document struct {
	Path     string         // Slash-separated path relative to the working copy root
	Content  string         // Raw file text
	Metadata map[string]any // file_path, file_name, file_type, file_size, [title]
}

// Result holds the loaded documents and counts of skipped files by reason.
type Result struct {
	Documents   []Document
	SkipReasons map[string]int // "extension", "binary", "unreadable"
}

// Loader walks a directory and keeps files with allow-listed extensions.
type Loader struct {
	extensions map[string]bool
	logger     *slog.Logger
}

// New creates a loader for the given extensions (".py", "md", ...); case and
// leading dot are normalized.
func New(extensions []string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = true
	}
	return &Loader{extensions: exts, logger: logger}
}

// Load reads every recognized text file under root in lexical walk order.
// Unrecognized, binary and unreadable files are skipped.
func (l *Loader) Load(ctx context.Context, root string) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailure, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrLoadFailure, root)
	}

	result := &Result{SkipReasons: make(map[string]int)}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			l.logger.Debug("Skipping unreadable path", "path", path, "error", walkErr)
			result.SkipReasons["unreadable"]++
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		if !l.extensions[ext] {
			result.SkipReasons["extension"]++
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		data, err := os.ReadFile(path)
		if err != nil {
			l.logger.Debug("Skipping unreadable file", "path", rel, "error", err)
			result.SkipReasons["unreadable"]++
			return nil
		}
		if isBinary(data) {
			l.logger.Debug("Skipping binary file", "path", rel)
			result.SkipReasons["binary"]++
			return nil
		}

		result.Documents = append(result.Documents, newDocument(rel, ext, data))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk %s: %v", ErrLoadFailure, root, err)
	}

	l.logger.Info("Loaded documents", "count", len(result.Documents), "skipped", result.SkipReasons)
	return result, nil
}

func newDocument(rel, ext string, data []byte) Document {
	meta := map[string]any{
		"file_path": rel,
		"file_name": filepath.Base(filepath.FromSlash(rel)),
		"file_type": ext,
		"file_size": len(data),
	}
	if ext == ".md" {
		if title := markdown.Title(data); title != "" {
			meta["title"] = title
		}
	}
	return Document{
		Path:     rel,
		Content:  string(data),
		Metadata: meta,
	}
}

// isBinary reports NUL bytes in the leading window or invalid UTF-8.
func isBinary(data []byte) bool {
	sniff := data
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return true
	}
	return !utf8.Valid(data)
}
