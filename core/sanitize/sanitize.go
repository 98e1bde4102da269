// Package sanitize produces filesystem-safe, length-bounded names from
// arbitrary post titles and URL or path basenames.
//
// Names are percent-decoded, stripped of the characters most filesystems
// reject, collapsed and trimmed of hyphens, and cut to MaxLength code points.
// Cleaning is idempotent: Clean(Clean(x)) == Clean(x).
package sanitize

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxLength is the default bound on a cleaned name, in code points.
const MaxLength = 100

// maxExtLength bounds what is still treated as an extension.
const maxExtLength = 10

var (
	unsafeChars = strings.NewReplacer(
		"/", "-", `\`, "-", ":", "-", "*", "-", "?", "-",
		`"`, "-", "<", "-", ">", "-", "|", "-",
	)
	hyphenRun = regexp.MustCompile(`-{2,}`)
)

// Sanitizer cleans names. The zero value is not usable; call New.
type Sanitizer struct {
	// MaxLength bounds every produced name, in code points.
	MaxLength int
	// Fallback supplies a name when cleaning leaves nothing behind.
	Fallback func() string
}

// New returns a Sanitizer with the default bound and a time-derived fallback.
func New() *Sanitizer {
	return &Sanitizer{MaxLength: MaxLength, Fallback: TimeFallback}
}

// TimeFallback returns "post_<unix seconds>".
func TimeFallback() string {
	return "post_" + strconv.FormatInt(time.Now().Unix(), 10)
}

var std = New()

// Clean sanitizes name with the default Sanitizer.
func Clean(name string) string {
	return std.Clean(name)
}

// Clean returns a safe, non-empty name of at most MaxLength code points.
func (s *Sanitizer) Clean(name string) string {
	return s.clean(name, s.limit())
}

// CleanFile sanitizes a file name, keeping its extension intact when the
// name has to be truncated.
func (s *Sanitizer) CleanFile(name string) string {
	stem, ext := splitExt(unescape(name))
	return s.join(stem, ext, "")
}

// CleanWithExt sanitizes stem and appends ext, truncating only the stem.
func (s *Sanitizer) CleanWithExt(stem, ext string) string {
	return s.join(unescape(stem), ext, "")
}

// Suffixed inserts "-n" before the extension of an already clean name,
// shortening the stem when the result would exceed the bound.
func (s *Sanitizer) Suffixed(name string, n int) string {
	stem, ext := splitExt(name)
	return s.join(stem, ext, fmt.Sprintf("-%d", n))
}

func (s *Sanitizer) join(stem, ext, suffix string) string {
	ext = cleanExt(ext)
	budget := s.limit() - utf8.RuneCountInString(ext) - utf8.RuneCountInString(suffix)
	if budget < 1 {
		return s.clean(stem+suffix+ext, s.limit())
	}
	return s.clean(stem, budget) + suffix + ext
}

func (s *Sanitizer) clean(name string, limit int) string {
	name = strings.ToValidUTF8(unescape(name), "�")
	name = unsafeChars.Replace(name)
	name = hyphenRun.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")
	name = truncate(name, limit)

	if name == "" && s.Fallback != nil {
		name = truncate(strings.Trim(unsafeChars.Replace(s.Fallback()), "-"), limit)
	}
	if name == "" {
		name = "untitled"
	}
	return name
}

func (s *Sanitizer) limit() int {
	if s.MaxLength <= 0 {
		return MaxLength
	}
	return s.MaxLength
}

// truncate cuts s to limit code points and drops hyphens left dangling.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.Trim(string(runes[:limit]), "-")
}

func splitExt(name string) (string, string) {
	ext := path.Ext(name)
	if ext == "" || ext == name || utf8.RuneCountInString(ext) > maxExtLength {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}

func cleanExt(ext string) string {
	if ext == "" {
		return ""
	}
	ext = strings.Trim(unsafeChars.Replace(ext), "-")
	if ext == "." || ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// unescape percent-decodes s the way form decoding does ("+" is a space),
// leaving malformed escapes untouched, until nothing decodable remains.
func unescape(s string) string {
	for {
		next := unescapeOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func unescapeOnce(s string) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
