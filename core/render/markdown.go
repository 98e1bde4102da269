// Package render assembles finished documents.
// The Markdown renderer prefixes the converted body with a front matter
// header and derives the document's filename from the post's date and title.
package render

import (
	"strings"

	"github.com/gaurav-prasanna/postpipe/core"
	"github.com/gaurav-prasanna/postpipe/core/sanitize"
)

// Layouts used in headers and filenames.
const (
	DateTimeLayout = "2006-01-02 15:04:05"
	DateLayout     = "2006-01-02"
)

const delimiter = "---"

// MarkdownRenderer produces Markdown documents with a front matter header.
type MarkdownRenderer struct {
	names *sanitize.Sanitizer
}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{names: sanitize.New()}
}

// Render builds the document for post around the Markdown body. The
// filename is the primary name; collisions are resolved when it is written.
func (r *MarkdownRenderer) Render(markdown string, post core.Post) (core.ConvertedDocument, error) {
	stem := post.Date.Format(DateLayout) + "-" + post.Title
	return core.ConvertedDocument{
		Filename:       r.names.CleanWithExt(stem, r.Extension()),
		Body:           markdown,
		MetadataHeader: Header(post),
	}, nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

// Header renders the front matter block for post: title, date, categories
// and tags between two "---" lines.
func Header(post core.Post) string {
	var b strings.Builder
	b.WriteString(delimiter + "\n")
	writeScalar(&b, "title", post.Title)
	writeScalar(&b, "date", post.Date.Format(DateTimeLayout))
	writeList(&b, "categories", post.Categories)
	writeList(&b, "tags", post.Tags)
	b.WriteString(delimiter)
	return b.String()
}

func writeScalar(b *strings.Builder, key, value string) {
	b.WriteString(key + ": " + scalar(value) + "\n")
}

func writeList(b *strings.Builder, key string, items []string) {
	b.WriteString(key + ":\n")
	for _, item := range items {
		b.WriteString("  - " + scalar(item) + "\n")
	}
}

// scalar returns value as written, or double quoted when a YAML reader
// would otherwise misread it.
func scalar(value string) string {
	if !needsQuotes(value) {
		return value
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)
	return `"` + r.Replace(value) + `"`
}

func needsQuotes(value string) bool {
	if value == "" || value != strings.TrimSpace(value) {
		return true
	}
	if strings.ContainsAny(value[:1], "-?:,[]{}#&*!|>'\"%@`") {
		return true
	}
	if strings.HasSuffix(value, ":") || strings.Contains(value, ": ") || strings.Contains(value, " #") || strings.ContainsAny(value, "\n\t") {
		return true
	}
	switch strings.ToLower(value) {
	case "true", "false", "yes", "no", "on", "off", "null", "~":
		return true
	}
	return false
}
