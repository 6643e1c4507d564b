package ignore

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/codegraph/internal/debug"
)

// hardSkipDirs are directory names never descended regardless of gitignore
// content: VCS metadata, dependency trees, virtual environments and build
// output.
var hardSkipDirs = map[string]bool{
	".git": true, ".hg": true, ".svn": true,
	"node_modules": true, "vendor": true, "bower_components": true,
	"__pycache__": true, ".venv": true, "venv": true, ".tox": true,
	"dist": true, "build": true, "target": true, "out": true,
	"obj": true, ".idea": true, ".vscode": true, ".cache": true,
	".mypy_cache": true, ".pytest_cache": true, ".gradle": true,
}

// hardSkipGlobs are doublestar patterns applied to root-relative file paths.
var hardSkipGlobs = []string{
	"**/*.min.js",
	"**/*.min.css",
	"**/*.bundle.js",
	"**/*.pyc",
	"**/*.log",
	"**/*.swp",
	"**/*~",
}

// Scope is the compiled in/out-of-scope decision for one project root: the
// gitignore matcher plus the built-in hard skips. Compiled once per
// (root, ignore-file mtime); Reload picks up ignore-file edits.
type Scope struct {
	root       string
	ignoreFile string
	matcher    *GitignoreMatcher
	mtime      int64
}

// NewScope compiles the scope for root. ignoreFile is the basename of the
// gitignore-style file, normally ".gitignore".
func NewScope(root, ignoreFile string) (*Scope, error) {
	s := &Scope{root: root, ignoreFile: ignoreFile}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload recompiles the pattern set if the ignore file changed since the
// last compile. Safe to call on every analysis pass; it stats one file.
func (s *Scope) Reload() error {
	path := filepath.Join(s.root, s.ignoreFile)
	var mtime int64
	if info, err := os.Stat(path); err == nil {
		mtime = info.ModTime().UnixNano()
	}
	if s.matcher != nil && mtime == s.mtime {
		return nil
	}
	m := NewGitignoreMatcher()
	if err := m.LoadFile(path); err != nil {
		return err
	}
	s.matcher = m
	s.mtime = mtime
	return nil
}

// Root returns the project root the scope was compiled for.
func (s *Scope) Root() string { return s.root }

// IsIgnored evaluates the compiled pattern set plus the built-in skips on a
// root-relative POSIX path.
func (s *Scope) IsIgnored(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)

	if isDir {
		base := relPath
		if i := strings.LastIndexByte(relPath, '/'); i >= 0 {
			base = relPath[i+1:]
		}
		if hardSkipDirs[base] {
			return true
		}
		if strings.HasPrefix(base, ".") && base != "." {
			return true
		}
	} else {
		for _, g := range hardSkipGlobs {
			if ok, _ := doublestar.Match(g, relPath); ok {
				return true
			}
		}
	}

	return s.matcher.Match(relPath, isDir)
}

// Walk yields root-relative POSIX paths of in-scope files, in lexical order.
// Ignored directories are pruned, never descended. supported filters files;
// unreadable directories are skipped with a debug record and do not halt the
// walk.
func (s *Scope) Walk(supported func(relPath string) bool) ([]string, error) {
	var files []string

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			debug.LogEngine("walk: skipping unreadable %s: %v\n", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == s.root {
			return nil
		}
		rel, rerr := filepath.Rel(s.root, path)
		if rerr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if s.IsIgnored(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if s.IsIgnored(rel, false) {
			return nil
		}
		if supported != nil && !supported(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	return files, err
}
