package observe

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind tells how a Pattern matches a path.
type Kind int

const (
	KindExact  Kind = iota // whole path equality
	KindSuffix             // path ends with the text, e.g. a "#fragment"
	KindRegex              // regular expression
)

// Pattern matches paths. Build one with Exact, Suffix or Regex.
type Pattern struct {
	kind Kind
	text string
	re   *regexp.Regexp
}

// Exact matches a path equal to s.
func Exact(s string) Pattern {
	return Pattern{kind: KindExact, text: s}
}

// Suffix matches any path ending in s.
func Suffix(s string) Pattern {
	return Pattern{kind: KindSuffix, text: s}
}

// Regex matches paths against expr.
func Regex(expr string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("compiling pattern %q: %w", expr, err)
	}
	return Pattern{kind: KindRegex, text: expr, re: re}, nil
}

// MustRegex is like Regex but panics on a bad expression.
func MustRegex(expr string) Pattern {
	p, err := Regex(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// Kind returns the pattern kind.
func (p Pattern) Kind() Kind {
	return p.kind
}

// Match reports whether path matches p.
func (p Pattern) Match(path string) bool {
	switch p.kind {
	case KindSuffix:
		return strings.HasSuffix(path, p.text)
	case KindRegex:
		return p.re != nil && p.re.MatchString(path)
	default:
		return path == p.text
	}
}

func (p Pattern) String() string {
	switch p.kind {
	case KindSuffix:
		return "*" + p.text
	case KindRegex:
		return "/" + p.text + "/"
	default:
		return p.text
	}
}

// IsHere reports whether the current path matches p.
func IsHere(p Pattern, path string) bool {
	return p.Match(path)
}
