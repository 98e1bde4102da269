// Package normalize implements the Normalizer interface.
// It converts post HTML into Markdown, which serves as the canonical
// format for reference rewriting and document assembly.
//
// The default engine is an ordered set of textual rules tuned to the block
// editor's output. Rules run top to bottom: later rules see the output of
// earlier ones, and the final tag strip must come last or it would destroy
// links and images before they are converted.
package normalize

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/gaurav-prasanna/postpipe/core"
)

// Engine names accepted by New.
const (
	EnginePatterns = "patterns"
	EngineLibrary  = "library"
)

// New returns the normalizer for engine. An empty engine selects patterns.
func New(engine string) (core.Normalizer, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EnginePatterns:
		return NewPatternNormalizer(), nil
	case EngineLibrary:
		return NewLibraryNormalizer(), nil
	default:
		return nil, fmt.Errorf("unknown normalizer engine %q", engine)
	}
}

// rule is one ordered rewrite step.
type rule struct {
	name string
	re   *regexp.Regexp
	fn   func(m []string) string
}

// BlockComment matches block-editor scaffolding such as
// <!-- wp:image {"id":7} --> and <!-- /wp:image -->.
var BlockComment = regexp.MustCompile(`(?s)<!--\s*/?wp:.*?-->`)

var (
	reLineBreak  = regexp.MustCompile(`(?i)<br\s*/?>`)
	reBlankLines = regexp.MustCompile(`\n\s*\n\s*\n`)
	reComment    = regexp.MustCompile(`(?s)<!--.*?-->`)
	reAnyTag     = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9-]*(?:\s[^<>]*?)?/?>`)
)

// StripTags removes every HTML tag and comment from s, keeping text.
func StripTags(s string) string {
	s = reComment.ReplaceAllString(s, "")
	return reAnyTag.ReplaceAllString(s, "")
}

// PatternNormalizer converts HTML with ordered regular-expression rules.
type PatternNormalizer struct {
	rules []rule
}

// NewPatternNormalizer creates a PatternNormalizer.
func NewPatternNormalizer() *PatternNormalizer {
	return &PatternNormalizer{rules: patternRules()}
}

func patternRules() []rule {
	rules := []rule{
		{"block-comments", BlockComment, func([]string) string { return "" }},
	}

	for level := 1; level <= 6; level++ {
		hashes := strings.Repeat("#", level)
		rules = append(rules, rule{
			name: fmt.Sprintf("h%d", level),
			re:   regexp.MustCompile(fmt.Sprintf(`(?is)<h%d\b[^>]*>(.*?)</h%d\s*>`, level, level)),
			fn: func(m []string) string {
				return hashes + " " + strings.TrimSpace(StripTags(m[1])) + "\n\n"
			},
		})
	}

	return append(rules,
		rule{"paragraphs", regexp.MustCompile(`(?is)<p\b[^>]*>(.*?)</p\s*>`), func(m []string) string {
			return m[1] + "\n\n"
		}},
		rule{"links", regexp.MustCompile(`(?is)<a\b[^>]*?\shref\s*=\s*["']([^"']*)["'][^>]*>(.*?)</a\s*>`), func(m []string) string {
			return "[" + m[2] + "](" + html.UnescapeString(m[1]) + ")"
		}},
		rule{"images", regexp.MustCompile(`(?is)<img\b[^>]*?\ssrc\s*=\s*["']([^"']*)["'][^>]*>`), func(m []string) string {
			return "![](" + html.UnescapeString(m[1]) + ")"
		}},
		rule{"lists", regexp.MustCompile(`(?is)<(?:ul|ol)\b[^>]*>(.*?)</(?:ul|ol)\s*>`), func(m []string) string {
			return m[1] + "\n"
		}},
		rule{"list-items", regexp.MustCompile(`(?is)<li\b[^>]*>(.*?)</li\s*>`), func(m []string) string {
			return "* " + strings.TrimSpace(m[1]) + "\n"
		}},
		rule{"bold", regexp.MustCompile(`(?is)<(?:strong|b)\b[^>]*>(.*?)</(?:strong|b)\s*>`), func(m []string) string {
			return "**" + m[1] + "**"
		}},
		rule{"italic", regexp.MustCompile(`(?is)<(?:em|i)\b[^>]*>(.*?)</(?:em|i)\s*>`), func(m []string) string {
			return "*" + m[1] + "*"
		}},
		rule{"line-breaks", reLineBreak, func([]string) string { return "\n" }},
	)
}

// Normalize converts html to Markdown. It never fails.
func (n *PatternNormalizer) Normalize(content string) (string, error) {
	out := content
	for _, r := range n.rules {
		out = replace(r.re, out, r.fn)
	}

	out = reBlankLines.ReplaceAllString(out, "\n\n")
	out = strings.TrimSpace(out)

	return StripTags(out), nil
}

// replace applies fn to every match of re, handing it the submatches.
func replace(re *regexp.Regexp, s string, fn func(m []string) string) string {
	return re.ReplaceAllStringFunc(s, func(match string) string {
		return fn(re.FindStringSubmatch(match))
	})
}
