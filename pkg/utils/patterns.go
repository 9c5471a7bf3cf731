package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

// PatternMatcher matches slash-separated relative paths against glob
// patterns. Supported syntax: "*", "**", "?", "[...]" and "{a,b}".
type PatternMatcher struct {
	patterns []string
	regexps  []*regexp.Regexp
}

// NewPatternMatcher compiles patterns into a matcher
func NewPatternMatcher(patterns []string) (*PatternMatcher, error) {
	pm := &PatternMatcher{}
	for _, pattern := range patterns {
		for _, expanded := range ExpandBraces(NormalizePattern(pattern)) {
			re, err := globToRegex(expanded)
			if err != nil {
				return nil, err
			}
			pm.patterns = append(pm.patterns, expanded)
			pm.regexps = append(pm.regexps, re)
		}
	}
	return pm, nil
}

// MustPatternMatcher is NewPatternMatcher for patterns known at compile time
func MustPatternMatcher(patterns ...string) *PatternMatcher {
	pm, err := NewPatternMatcher(patterns)
	if err != nil {
		panic(err)
	}
	return pm
}

// Patterns returns the brace-expanded patterns
func (pm *PatternMatcher) Patterns() []string {
	return pm.patterns
}

// Match reports whether path matches any pattern
func (pm *PatternMatcher) Match(path string) bool {
	path = filepath.ToSlash(path)
	for _, re := range pm.regexps {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// Filter returns the paths matching any pattern, in input order
func (pm *PatternMatcher) Filter(paths []string) []string {
	var matches []string
	for _, path := range paths {
		if pm.Match(path) {
			matches = append(matches, path)
		}
	}
	return matches
}

func globToRegex(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")

	for i := 0; i < len(pattern); {
		c := pattern[i]
		switch {
		case strings.HasPrefix(pattern[i:], "**/"):
			// zero or more leading directories
			b.WriteString("(?:.*/)?")
			i += 3
		case strings.HasPrefix(pattern[i:], "**"):
			b.WriteString(".*")
			i += 2
		case c == '*':
			b.WriteString("[^/]*")
			i++
		case c == '?':
			b.WriteString("[^/]")
			i++
		case c == '[':
			end := strings.IndexByte(pattern[i+1:], ']')
			if end < 0 {
				b.WriteString(`\[`)
				i++
				continue
			}
			class := pattern[i+1 : i+1+end]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[" + class + "]")
			i += end + 2
		case c == '\\' && i+1 < len(pattern):
			b.WriteString(regexp.QuoteMeta(pattern[i+1 : i+2]))
			i += 2
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}

	b.WriteString("$")
	return regexp.Compile(b.String())
}

// ExpandBraces expands the first "{a,b}" group of pattern recursively.
// A pattern without braces expands to itself.
func ExpandBraces(pattern string) []string {
	open := strings.IndexByte(pattern, '{')
	if open < 0 {
		return []string{pattern}
	}
	closing := strings.IndexByte(pattern[open:], '}')
	if closing < 0 {
		return []string{pattern}
	}
	closing += open

	prefix, suffix := pattern[:open], pattern[closing+1:]
	var out []string
	for _, alt := range strings.Split(pattern[open+1:closing], ",") {
		out = append(out, ExpandBraces(prefix+alt+suffix)...)
	}
	return out
}

// IsGlobPattern checks if a string contains glob wildcards
func IsGlobPattern(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// NormalizePattern converts separators and strips "./" and trailing "/"
func NormalizePattern(pattern string) string {
	pattern = strings.ReplaceAll(pattern, "\\", "/")
	pattern = strings.TrimPrefix(pattern, "./")
	return strings.TrimSuffix(pattern, "/")
}

// ExclusionMatcher rejects paths inside excluded directories or matching
// excluded file patterns
type ExclusionMatcher struct {
	matcher *PatternMatcher
}

// NewExclusionMatcher builds a matcher. Bare names ("node_modules") exclude
// any directory of that name at any depth.
func NewExclusionMatcher(patterns []string) (*ExclusionMatcher, error) {
	expanded := make([]string, 0, len(patterns)*2)
	for _, pattern := range patterns {
		if !IsGlobPattern(pattern) && !strings.Contains(pattern, "/") {
			expanded = append(expanded, "**/"+pattern, "**/"+pattern+"/**")
			continue
		}
		expanded = append(expanded, "**/"+strings.TrimPrefix(pattern, "**/"))
	}

	matcher, err := NewPatternMatcher(expanded)
	if err != nil {
		return nil, err
	}
	return &ExclusionMatcher{matcher: matcher}, nil
}

// IsExcluded checks if a path should be excluded
func (em *ExclusionMatcher) IsExcluded(path string) bool {
	return em.matcher.Match(path)
}

// FilterPaths removes excluded paths from a list
func (em *ExclusionMatcher) FilterPaths(paths []string) []string {
	var filtered []string
	for _, path := range paths {
		if !em.IsExcluded(path) {
			filtered = append(filtered, path)
		}
	}
	return filtered
}

// DefaultExclusions are never considered package sources or assets
func DefaultExclusions() []string {
	return []string{
		".git",
		"node_modules",
		"dist",
		".depot",
		".turbo",
		"coverage",
		".DS_Store",
		"*.swp",
		"*~",
	}
}

// MatchGlob matches a single path against a single pattern
func MatchGlob(pattern, path string) (bool, error) {
	matcher, err := NewPatternMatcher([]string{pattern})
	if err != nil {
		return false, err
	}
	return matcher.Match(path), nil
}
