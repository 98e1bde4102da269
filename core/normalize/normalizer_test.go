package normalize

import (
	"strings"
	"testing"
)

func normalize(t *testing.T, input string) string {
	t.Helper()
	got, err := NewPatternNormalizer().Normalize(input)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	return got
}

func TestNormalizeHeadingAndParagraph(t *testing.T) {
	got := normalize(t, `<h2>Title</h2><p>Hello <strong>world</strong></p>`)
	if !strings.Contains(got, "## Title\n\n") {
		t.Errorf("missing heading block in %q", got)
	}
	if !strings.Contains(got, "Hello **world**") {
		t.Errorf("missing bold text in %q", got)
	}
}

func TestNormalizeRules(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"heading levels", `<h1>One</h1><h6 class="x">Six</h6>`, "# One\n\n###### Six"},
		{"heading strips nested tags", `<h3><a href="/x">Linked <em>title</em></a></h3>`, "### Linked title"},
		{"link", `<p>See <a class="c" href="https://x.test/?a=1&amp;b=2">docs</a></p>`, "See [docs](https://x.test/?a=1&b=2)"},
		{"image drops alt", `<img alt="cat" src="https://x.test/cat.jpg" class="wp-image-7"/>`, "![](https://x.test/cat.jpg)"},
		{"single quoted src", `<img src='https://x.test/a.png'>`, "![](https://x.test/a.png)"},
		{"srcset is not src", `<img srcset="a.png 1x" src="b.png">`, "![](b.png)"},
		{"unordered list", "<ul><li>one</li><li> two </li></ul>", "* one\n* two"},
		{"ordered list", `<ol class="x"><li>first</li></ol>`, "* first"},
		{"italic", `<p><em>soft</em> and <i>lean</i></p>`, "*soft* and *lean*"},
		{"b tag", `<p><b>hard</b></p>`, "**hard**"},
		{"line break", `<p>a<br>b<br/>c</p>`, "a\nb\nc"},
		{"unknown tags stripped", `<section><span>kept</span></section>`, "kept"},
		{"pre is not a paragraph", "<pre>code</pre>", "code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalize(t, tt.input); got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeStripsBlockEditorScaffolding(t *testing.T) {
	input := `<!-- wp:heading {"level":2} -->
<h2 class="wp-block-heading">Intro</h2>
<!-- /wp:heading -->

<!-- wp:paragraph -->
<p>Body text.</p>
<!-- /wp:paragraph -->



<!-- wp:image {"id":7,"sizeSlug":"large"} -->
<figure class="wp-block-image size-large"><img src="https://blog.test/cat.jpg" alt="" class="wp-image-7"/></figure>
<!-- /wp:image -->`

	got := normalize(t, input)
	if strings.Contains(got, "wp:") || strings.Contains(got, "<") {
		t.Fatalf("scaffolding survived: %q", got)
	}
	want := "## Intro\n\nBody text.\n\n![](https://blog.test/cat.jpg)"
	if got != want {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
}

func TestNormalizeCollapsesBlankLines(t *testing.T) {
	got := normalize(t, "<p>a</p>\n\n\n\n<p>b</p>")
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("blank lines not collapsed: %q", got)
	}
}

func TestNormalizeLeavesMarkdownAlone(t *testing.T) {
	md := "# Title\n\nSome *text* with a [link](https://x.test) and <https://auto.link>.\n\n* item\n\n![](images/a.png)"
	if got := normalize(t, md); got != md {
		t.Errorf("Normalize changed clean Markdown:\n%q\nwant\n%q", got, md)
	}
}

func TestNewEngines(t *testing.T) {
	for _, engine := range []string{"", "patterns", "LIBRARY"} {
		if _, err := New(engine); err != nil {
			t.Errorf("New(%q) failed: %v", engine, err)
		}
	}
	if _, err := New("pandoc"); err == nil {
		t.Error("expected error for unknown engine")
	}
}

func TestLibraryNormalizer(t *testing.T) {
	got, err := NewLibraryNormalizer().Normalize(`<!-- wp:heading --><h2>Title</h2><!-- /wp:heading --><p>Hello <strong>world</strong></p>`)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !strings.Contains(got, "## Title") || !strings.Contains(got, "**world**") {
		t.Errorf("unexpected library output: %q", got)
	}
	if strings.Contains(got, "wp:") {
		t.Errorf("block comments survived: %q", got)
	}
}
