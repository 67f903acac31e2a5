// Package markdown extracts document structure from markdown sources.
package markdown

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

var md = goldmark.New(
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
)

// Title returns the text of the first heading in source, or "" when the
// document has no headings.
func Title(source []byte) string {
	hs := headings(source)
	if len(hs) == 0 {
		return ""
	}
	return hs[0]
}

// headings returns heading titles in document order, flattened across levels.
func headings(source []byte) []string {
	doc := md.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(6),
		toc.Compact(true), // Remove empty items
	)
	if err != nil || tree == nil {
		return nil
	}

	var out []string
	collect(tree.Items, &out)
	return out
}

func collect(items toc.Items, out *[]string) {
	for _, item := range items {
		if len(item.Title) > 0 {
			*out = append(*out, string(item.Title))
		}
		collect(item.Items, out)
	}
}
