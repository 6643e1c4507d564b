// Package ignore decides which paths are in scope for analysis: it compiles
// gitignore-style patterns once per root, layers the built-in hard-skip
// names on top, and walks the tree with pruning so ignored directories are
// never descended.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// patternType selects the fast matching path for a compiled pattern.
type patternType int

const (
	patternExact patternType = iota
	patternPrefix
	patternSuffix
	patternWildcard
	patternComplex
)

// pattern is one compiled gitignore line.
type pattern struct {
	raw       string
	negate    bool
	directory bool
	absolute  bool

	ptype    patternType
	prefix   string
	suffix   string
	compiled *regexp.Regexp
}

// GitignoreMatcher evaluates gitignore-style patterns against root-relative
// POSIX paths. Compile once, match many times; there is no per-file re-read
// of the ignore file.
type GitignoreMatcher struct {
	patterns []pattern

	regexCache sync.Map
}

// NewGitignoreMatcher returns an empty matcher.
func NewGitignoreMatcher() *GitignoreMatcher {
	return &GitignoreMatcher{}
}

// LoadFile reads and compiles patterns from an ignore file. A missing file
// is not an error; the matcher just stays empty.
func (m *GitignoreMatcher) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m.AddPattern(line)
	}
	return scanner.Err()
}

// AddPattern compiles and appends a single gitignore pattern line.
func (m *GitignoreMatcher) AddPattern(line string) {
	p := pattern{}

	if strings.HasPrefix(line, "!") {
		p.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.directory = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.absolute = true
		line = line[1:]
	}

	p.raw = line
	p.ptype, p.prefix, p.suffix, p.compiled = m.analyze(line)
	m.patterns = append(m.patterns, p)
}

// analyze classifies a pattern so matching can use prefix/suffix fast paths
// instead of regex wherever possible.
func (m *GitignoreMatcher) analyze(pat string) (patternType, string, string, *regexp.Regexp) {
	if !strings.ContainsAny(pat, "*?[") {
		return patternExact, pat, pat, nil
	}

	simpleAsterisk := strings.Contains(pat, "*") &&
		!strings.Contains(pat, "?") && !strings.Contains(pat, "[")
	if simpleAsterisk {
		if strings.HasPrefix(pat, "*") && !strings.Contains(pat[1:], "*") {
			return patternSuffix, "", pat[1:], nil
		}
		if strings.HasSuffix(pat, "*") && !strings.Contains(pat[:len(pat)-1], "*") {
			return patternPrefix, pat[:len(pat)-1], "", nil
		}
	}

	regexPat := globToRegex(pat)
	if cached, ok := m.regexCache.Load(regexPat); ok {
		return patternComplex, "", "", cached.(*regexp.Regexp)
	}
	compiled, err := regexp.Compile(regexPat)
	if err != nil {
		return patternWildcard, "", "", nil
	}
	m.regexCache.Store(regexPat, compiled)
	return patternComplex, "", "", compiled
}

func globToRegex(pat string) string {
	re := regexp.QuoteMeta(pat)
	re = strings.ReplaceAll(re, `\*\*`, `.*`)
	re = strings.ReplaceAll(re, `\*`, `[^/]*`)
	re = strings.ReplaceAll(re, `\?`, `.`)
	re = strings.ReplaceAll(re, `\[`, `[`)
	re = strings.ReplaceAll(re, `\]`, `]`)
	return "^" + re + "$"
}

// Match reports whether a root-relative POSIX path is ignored. Later
// patterns win, so negation patterns can re-include earlier matches.
func (m *GitignoreMatcher) Match(path string, isDir bool) bool {
	path = filepath.ToSlash(path)

	ignored := false
	for _, p := range m.patterns {
		if m.matches(p, path, isDir) {
			ignored = !p.negate
		}
	}
	return ignored
}

func (m *GitignoreMatcher) matches(p pattern, path string, isDir bool) bool {
	if p.directory {
		if isDir {
			return m.fastMatch(p, path) || m.matchesAnyComponent(p, path)
		}
		// Files inside a matching directory are ignored too.
		if strings.HasPrefix(path, p.raw+"/") {
			return true
		}
		return m.componentPrefixMatch(p, path)
	}

	if p.absolute {
		return m.fastMatch(p, path)
	}

	if m.fastMatch(p, path) {
		return true
	}
	return m.matchesAnyComponent(p, path)
}

// matchesAnyComponent tries the pattern against every path suffix, so a bare
// "build" matches "a/b/build" the way git does.
func (m *GitignoreMatcher) matchesAnyComponent(p pattern, path string) bool {
	parts := strings.Split(path, "/")
	for i := range parts {
		if m.fastMatch(p, strings.Join(parts[i:], "/")) {
			return true
		}
		if m.fastMatch(p, parts[i]) {
			return true
		}
	}
	return false
}

// componentPrefixMatch reports whether any directory component of path
// matches a directory pattern.
func (m *GitignoreMatcher) componentPrefixMatch(p pattern, path string) bool {
	parts := strings.Split(path, "/")
	for i := 0; i < len(parts)-1; i++ {
		if m.fastMatch(p, parts[i]) {
			return true
		}
	}
	return false
}

func (m *GitignoreMatcher) fastMatch(p pattern, path string) bool {
	switch p.ptype {
	case patternExact:
		return p.raw == path
	case patternPrefix:
		return strings.HasPrefix(path, p.prefix)
	case patternSuffix:
		return strings.HasSuffix(path, p.suffix)
	case patternComplex:
		return p.compiled.MatchString(path)
	case patternWildcard:
		matched, _ := filepath.Match(p.raw, path)
		return matched
	}
	return false
}
