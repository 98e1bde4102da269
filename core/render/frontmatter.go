package render

import (
	"fmt"
	"io"

	"github.com/adrg/frontmatter"
)

// FrontMatter is the decoded header of a rendered document.
type FrontMatter struct {
	Title      string   `yaml:"title"`
	Date       string   `yaml:"date"`
	Categories []string `yaml:"categories"`
	Tags       []string `yaml:"tags"`
}

// Parse splits a rendered document into its header and body.
func Parse(r io.Reader) (FrontMatter, []byte, error) {
	var fm FrontMatter
	body, err := frontmatter.MustParse(r, &fm)
	if err != nil {
		return fm, nil, fmt.Errorf("parsing front matter: %w", err)
	}
	return fm, body, nil
}
