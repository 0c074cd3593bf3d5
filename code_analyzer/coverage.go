package code_analyzer

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// TestCoverageProbe looks for conventionally named test files next to a module
type TestCoverageProbe struct {
	projectRoot string
}

// NewTestCoverageProbe creates a probe for the given project root.
func NewTestCoverageProbe(projectRoot string) *TestCoverageProbe {
	return &TestCoverageProbe{projectRoot: projectRoot}
}

// HasTests reports whether a test file exists for the module at relPath.
// Only file existence is checked, never the content of the test.
func (p *TestCoverageProbe) HasTests(relPath string) bool {
	for _, candidate := range TestFileCandidates(relPath) {
		info, err := os.Stat(filepath.Join(p.projectRoot, filepath.FromSlash(candidate)))
		if err == nil && info.Mode().IsRegular() {
			return true
		}
	}
	return false
}

// TestFileCandidates lists the project-relative test file names checked for a module.
func TestFileCandidates(relPath string) []string {
	relPath = filepath.ToSlash(relPath)
	dir := path.Dir(relPath)
	stem := moduleStem(relPath)

	candidates := []string{
		path.Join(dir, "test_"+stem+pythonExtension),
		path.Join(dir, stem+"_test"+pythonExtension),
		path.Join(dir, "tests", "test_"+stem+pythonExtension),
		path.Join(dir, "test", "test_"+stem+pythonExtension),
		path.Join("tests", "test_"+stem+pythonExtension),
		path.Join("tests", stem+"_test"+pythonExtension),
		path.Join("test", "test_"+stem+pythonExtension),
	}

	seen := make(map[string]bool, len(candidates))
	unique := candidates[:0]
	for _, c := range candidates {
		if !seen[c] {
			seen[c] = true
			unique = append(unique, c)
		}
	}
	return unique
}

// SuggestTestFile returns the conventional test file name for a module without tests.
func SuggestTestFile(relPath string) string {
	return path.Join("tests", "test_"+moduleStem(relPath)+pythonExtension)
}

func moduleStem(relPath string) string {
	base := path.Base(filepath.ToSlash(relPath))
	return strings.TrimSuffix(base, path.Ext(base))
}
