// Package rewrite points image references at their relocated copies and
// folds the block editor's image wrappers (figures, captions, column
// layouts) into plain Markdown.
//
// URL substitution runs first, then structural folding: the folding rules
// recognize both raw <img> tags and Markdown image tokens, since either form
// can reach this stage.
package rewrite

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/gaurav-prasanna/postpipe/core"
)

var (
	reTrailingScaffold = regexp.MustCompile(`(?s)<!--\s*/?wp:.*?-->\s*`)
	reBlankRun         = regexp.MustCompile(`\n{3,}`)
	reWrapperTag       = regexp.MustCompile(`(?is)</?(?:figure|div)\b[^>]*>`)
	reStyleAttr        = regexp.MustCompile(`(?i)\s?style="[^"]*"`)
	reImageDest        = regexp.MustCompile(`(!\[[^\]]*\]\()([^)\s]+)`)
)

type fold struct {
	re *regexp.Regexp
	fn func(m []string) string
}

// folds are applied in order; each sees the output of the previous one.
var folds = []fold{
	// <figure><img src=".."><figcaption>..</figcaption></figure>
	{regexp.MustCompile(`(?is)<figure[^>]*>\s*<img[^>]*\ssrc="([^"]*)"[^>]*>\s*<figcaption[^>]*>(.*?)</figcaption>\s*</figure>`),
		func(m []string) string { return captioned("", m[1], m[2]) }},
	// ![alt](url)<figcaption>..</figcaption>
	{regexp.MustCompile(`(?is)!\[([^\]]*)\]\(([^)\s]*)\)\s*<figcaption[^>]*>(.*?)</figcaption>`),
		func(m []string) string { return captioned(m[1], m[2], m[3]) }},
	// <figure><img src=".."></figure>
	{regexp.MustCompile(`(?is)<figure[^>]*>\s*<img[^>]*\ssrc="([^"]*)"[^>]*>\s*</figure>`),
		func(m []string) string { return "![](" + m[1] + ")" }},
	// <figure>![..](..)</figure>
	{regexp.MustCompile(`(?is)<figure[^>]*>\s*(!\[[^\]]*\]\([^)]*\))\s*</figure>`),
		func(m []string) string { return m[1] }},
	// column layouts keep their content
	{regexp.MustCompile(`(?is)<div[^>]*class="[^"]*wp-block-columns[^"]*"[^>]*>(.*?)</div>`),
		func(m []string) string { return m[1] }},
	{regexp.MustCompile(`(?is)<div[^>]*class="[^"]*wp-block-column[^"]*"[^>]*>(.*?)</div>`),
		func(m []string) string { return m[1] }},
	// a div around one or two images
	{regexp.MustCompile(`(?is)<div[^>]*>\s*(!\[[^\]]*\]\([^)]*\))\s*</div>`),
		func(m []string) string { return m[1] }},
	{regexp.MustCompile(`(?is)<div[^>]*>\s*(!\[[^\]]*\]\([^)]*\))\s*(!\[[^\]]*\]\([^)]*\))\s*</div>`),
		func(m []string) string { return m[1] + "\n\n" + m[2] }},
}

func captioned(alt, dest, caption string) string {
	return "![" + alt + "](" + dest + ")\n\n" + strings.TrimSpace(caption) + "\n"
}

// Rewriter applies one post's ImageMapping to its Markdown.
type Rewriter struct {
	mapping core.ImageMapping
}

// New creates a Rewriter for mapping. The mapping is only read.
func New(mapping core.ImageMapping) *Rewriter {
	return &Rewriter{mapping: mapping}
}

// LocalPath returns the relative reference used for a relocated file.
// Spaces are percent-encoded so the reference stays a valid Markdown
// destination.
func LocalPath(filename string) string {
	return core.ImagesDirName + "/" + strings.ReplaceAll(filename, " ", "%20")
}

// Rewrite replaces mapped URLs and folds image wrappers into Markdown.
func (r *Rewriter) Rewrite(content string) string {
	content = r.substitute(content)
	content = r.substituteEscaped(content)
	content = reTrailingScaffold.ReplaceAllString(content, "")

	for _, f := range folds {
		re, fn := f.re, f.fn
		content = re.ReplaceAllStringFunc(content, func(match string) string {
			return fn(re.FindStringSubmatch(match))
		})
	}

	content = reBlankRun.ReplaceAllString(content, "\n\n")
	content = reWrapperTag.ReplaceAllString(content, "")
	content = reStyleAttr.ReplaceAllString(content, "")
	return strings.TrimSpace(content)
}

// substitute swaps every mapped URL for its local path in one pass. Longer
// URLs win over URLs they start with, so the result does not depend on
// mapping order.
func (r *Rewriter) substitute(content string) string {
	if len(r.mapping) == 0 {
		return content
	}

	urls := make([]string, 0, len(r.mapping))
	for src := range r.mapping {
		if src != "" {
			urls = append(urls, src)
		}
	}
	sort.Slice(urls, func(i, j int) bool {
		if len(urls[i]) != len(urls[j]) {
			return len(urls[i]) > len(urls[j])
		}
		return urls[i] < urls[j]
	})

	pairs := make([]string, 0, 2*len(urls))
	for _, src := range urls {
		pairs = append(pairs, src, LocalPath(r.mapping[src]))
	}
	return strings.NewReplacer(pairs...).Replace(content)
}

// substituteEscaped rewrites image destinations that match a mapped URL only
// after percent-decoding, such as the "my%20photo.jpg" or "img%281%29.jpg"
// forms html-to-markdown emits for "my photo.jpg" and "img(1).jpg".
func (r *Rewriter) substituteEscaped(content string) string {
	if len(r.mapping) == 0 {
		return content
	}

	decoded := make(map[string]string, len(r.mapping))
	for src, name := range r.mapping {
		if key, err := url.PathUnescape(src); err == nil && key != "" {
			decoded[key] = name
		}
	}

	return reImageDest.ReplaceAllStringFunc(content, func(match string) string {
		m := reImageDest.FindStringSubmatch(match)
		key, err := url.PathUnescape(m[2])
		if err != nil {
			return match
		}
		name, ok := decoded[key]
		if !ok {
			return match
		}
		return m[1] + LocalPath(name)
	})
}
