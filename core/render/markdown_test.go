package render

import (
	"strings"
	"testing"
	"time"

	"github.com/gaurav-prasanna/postpipe/core"
)

func samplePost() core.Post {
	return core.Post{
		ID:         42,
		Title:      "Hello World",
		Slug:       "hello-world",
		Date:       time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC),
		Categories: []string{"News", "Go"},
		Tags:       []string{"intro"},
	}
}

func TestHeaderLayout(t *testing.T) {
	want := "---\n" +
		"title: Hello World\n" +
		"date: 2024-03-09 14:05:07\n" +
		"categories:\n  - News\n  - Go\n" +
		"tags:\n  - intro\n" +
		"---"
	if got := Header(samplePost()); got != want {
		t.Errorf("Header =\n%s\nwant\n%s", got, want)
	}
}

func TestHeaderEmptyLists(t *testing.T) {
	post := samplePost()
	post.Categories, post.Tags = nil, nil
	got := Header(post)
	if !strings.Contains(got, "categories:\ntags:\n---") {
		t.Errorf("empty lists rendered as %q", got)
	}
}

func TestRenderParsesAsFrontMatter(t *testing.T) {
	post := samplePost()
	post.Title = `Release: v2 "final" #1`
	post.Tags = []string{"yes", "- dash", "a: b"}

	doc, err := NewMarkdownRenderer().Render("## Body\n\nText.", post)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	m, rest, err := Parse(strings.NewReader(string(doc.Content())))
	if err != nil {
		t.Fatalf("front matter does not parse: %v\n%s", err, doc.Content())
	}
	if m.Title != post.Title {
		t.Errorf("title = %q, want %q", m.Title, post.Title)
	}
	if m.Date != "2024-03-09 14:05:07" {
		t.Errorf("date = %q", m.Date)
	}
	if len(m.Categories) != 2 || m.Categories[1] != "Go" {
		t.Errorf("categories = %v", m.Categories)
	}
	if len(m.Tags) != 3 || m.Tags[0] != "yes" || m.Tags[1] != "- dash" || m.Tags[2] != "a: b" {
		t.Errorf("tags = %v", m.Tags)
	}
	if strings.TrimSpace(string(rest)) != "## Body\n\nText." {
		t.Errorf("body = %q", rest)
	}
}

func TestRenderFilename(t *testing.T) {
	tests := []struct {
		title    string
		expected string
	}{
		{"Hello World", "2024-03-09-Hello World.md"},
		{"a/b:c?", "2024-03-09-a-b-c.md"},
		{strings.Repeat("é", 200), "2024-03-09-" + strings.Repeat("é", 100-len("2024-03-09-")-len(".md")) + ".md"},
	}
	r := NewMarkdownRenderer()
	for _, tt := range tests {
		post := samplePost()
		post.Title = tt.title
		doc, err := r.Render("", post)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		if doc.Filename != tt.expected {
			t.Errorf("filename for %q = %q, want %q", tt.title, doc.Filename, tt.expected)
		}
	}
}

func TestRenderContent(t *testing.T) {
	doc, _ := NewMarkdownRenderer().Render("Body", samplePost())
	if !strings.HasSuffix(string(doc.Content()), "---\n\nBody") {
		t.Errorf("Content = %q", doc.Content())
	}
	if NewMarkdownRenderer().Extension() != ".md" {
		t.Error("unexpected extension")
	}
}

func TestParseRequiresHeader(t *testing.T) {
	if _, _, err := Parse(strings.NewReader("# No header\n")); err == nil {
		t.Error("expected error for a document without front matter")
	}
}
