package normalize

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// LibraryNormalizer converts HTML to Markdown using html-to-markdown.
// It handles arbitrary markup (tables, code, blockquotes) that the pattern
// engine passes through as plain text, at the cost of emitting alt text
// and escaping that differ from the block-editor-tuned output.
type LibraryNormalizer struct{}

// NewLibraryNormalizer creates a LibraryNormalizer.
func NewLibraryNormalizer() *LibraryNormalizer {
	return &LibraryNormalizer{}
}

// Normalize converts an HTML fragment into Markdown.
func (n *LibraryNormalizer) Normalize(html string) (string, error) {
	html = BlockComment.ReplaceAllString(html, "")
	markdown, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	return strings.TrimSpace(markdown), nil
}
