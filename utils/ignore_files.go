package utils

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ignore "github.com/sabhiram/go-gitignore"
	"go.trai.ch/zerr"
)

// ProjectIgnoreFile holds scan-only ignore patterns, in gitignore syntax
const ProjectIgnoreFile = ".codai-impact-ignore"

// ignoreCacheEntry holds a compiled ignore file with the mtime it was compiled at
type ignoreCacheEntry struct {
	matcher *ignore.GitIgnore
	modTime time.Time
}

// Global cache for compiled ignore files
var (
	ignoreCache = make(map[string]*ignoreCacheEntry)
	cacheMutex  sync.RWMutex
)

// defaultIgnoredDirs are never scanned for source modules
var defaultIgnoredDirs = map[string]bool{
	".git":          true,
	".svn":          true,
	".hg":           true,
	".idea":         true,
	".vscode":       true,
	".cache":        true,
	".venv":         true,
	"venv":          true,
	".tox":          true,
	".nox":          true,
	".eggs":         true,
	".mypy_cache":   true,
	".pytest_cache": true,
	".ruff_cache":   true,
	"__pycache__":   true,
	"node_modules":  true,
	"site-packages": true,
	"build":         true,
	"dist":          true,
}

// IgnoreMatcher decides which project paths are skipped during a project scan
type IgnoreMatcher struct {
	matchers []*ignore.GitIgnore
	extra    []string
}

// LoadIgnoreMatcher compiles .gitignore and the project ignore file of projectRoot.
// extraDirs are project-relative directories that are always skipped (e.g. the cache dir).
func LoadIgnoreMatcher(projectRoot string, extraDirs ...string) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{}

	for _, name := range []string{".gitignore", ProjectIgnoreFile} {
		compiled, err := compileIgnoreFile(filepath.Join(projectRoot, name))
		if err != nil {
			return nil, err
		}
		if compiled != nil {
			m.matchers = append(m.matchers, compiled)
		}
	}

	for _, dir := range extraDirs {
		dir = path.Clean(filepath.ToSlash(dir))
		if dir != "." && dir != "" && !strings.HasPrefix(dir, "../") {
			m.extra = append(m.extra, dir)
		}
	}

	return m, nil
}

// Match reports whether relPath (forward-slash, relative to the project root) is ignored.
func (m *IgnoreMatcher) Match(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)
	if IsDefaultIgnored(relPath) {
		return true
	}

	for _, dir := range m.extra {
		if relPath == dir || strings.HasPrefix(relPath, dir+"/") {
			return true
		}
	}

	candidate := relPath
	if isDir {
		candidate += "/"
	}
	for _, matcher := range m.matchers {
		if matcher.MatchesPath(candidate) || matcher.MatchesPath(relPath) {
			return true
		}
	}
	return false
}

// IsDefaultIgnored reports whether any segment of path is a tool, VCS or build directory.
func IsDefaultIgnored(path string) bool {
	parts := strings.Split(filepath.ToSlash(path), "/")
	for _, part := range parts {
		part = strings.ToLower(part)
		if defaultIgnoredDirs[part] || strings.HasSuffix(part, ".egg-info") {
			return true
		}
	}
	return false
}

// compileIgnoreFile compiles an ignore file, reusing the cached result while its mtime is unchanged.
// A missing file yields a nil matcher.
func compileIgnoreFile(ignorePath string) (*ignore.GitIgnore, error) {
	fileInfo, err := os.Stat(ignorePath)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "error checking ignore file"), "path", ignorePath)
	}

	cacheMutex.RLock()
	if cached, exists := ignoreCache[ignorePath]; exists && fileInfo.ModTime().Equal(cached.modTime) {
		cacheMutex.RUnlock()
		return cached.matcher, nil
	}
	cacheMutex.RUnlock()

	compiled, err := ignore.CompileIgnoreFile(ignorePath)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to compile ignore file"), "path", ignorePath)
	}

	cacheMutex.Lock()
	ignoreCache[ignorePath] = &ignoreCacheEntry{
		matcher: compiled,
		modTime: fileInfo.ModTime(),
	}
	cacheMutex.Unlock()

	return compiled, nil
}

// ClearIgnoreCache drops all compiled ignore files
func ClearIgnoreCache() {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()
	ignoreCache = make(map[string]*ignoreCacheEntry)
}
