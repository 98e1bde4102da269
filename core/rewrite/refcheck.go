package rewrite

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// ImageRefs lists the destinations of every Markdown image in content, in
// document order.
func ImageRefs(content string) []string {
	src := []byte(content)
	doc := markdown.Parser().Parse(text.NewReader(src))

	var refs []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if img, ok := n.(*ast.Image); ok && entering {
			refs = append(refs, string(img.Destination))
		}
		return ast.WalkContinue, nil
	})
	return refs
}

// RemoteImageRefs returns the image destinations in content that still
// point at an http(s) location.
func RemoteImageRefs(content string) []string {
	var remote []string
	for _, ref := range ImageRefs(content) {
		lower := strings.ToLower(ref)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "//") {
			remote = append(remote, ref)
		}
	}
	return remote
}
