package utils

import (
	"bytes"
	"context"
	"os/exec"
	"path"
	"sort"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
	"go.trai.ch/zerr"
)

const devNull = "/dev/null"

// ErrNotGitRepository is returned when the working directory is outside a git repository
var ErrNotGitRepository = zerr.New("not a git repository")

// GitOperations handles git-related operations
type GitOperations struct {
	workingDir string
}

// NewGitOperations creates a new GitOperations instance
func NewGitOperations(workingDir string) *GitOperations {
	return &GitOperations{workingDir: workingDir}
}

// CheckGitRepo checks if the working directory is inside a git repository
func (g *GitOperations) CheckGitRepo(ctx context.Context) error {
	if _, err := g.run(ctx, "rev-parse", "--git-dir"); err != nil {
		return zerr.With(zerr.Wrap(ErrNotGitRepository, "git check failed"), "dir", g.workingDir)
	}
	return nil
}

// GetDiff returns the unified diff of the working tree (staged and unstaged) against base,
// with paths relative to the working directory
func (g *GitOperations) GetDiff(ctx context.Context, base string) (string, error) {
	if base == "" {
		base = "HEAD"
	}
	output, err := g.run(ctx, "diff", "--no-color", "--no-ext-diff", "--relative", base, "--")
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to get git diff"), "base", base)
	}
	return output, nil
}

// GetUntrackedFiles returns files not yet known to git, honoring .gitignore
func (g *GitOperations) GetUntrackedFiles(ctx context.Context) ([]string, error) {
	output, err := g.run(ctx, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, zerr.Wrap(err, "failed to list untracked files")
	}

	var files []string
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// GetChangedFiles returns the repository-relative paths changed since base, including untracked files.
func (g *GitOperations) GetChangedFiles(ctx context.Context, base string) ([]string, error) {
	diffText, err := g.GetDiff(ctx, base)
	if err != nil {
		return nil, err
	}

	changed, err := ParseChangedFiles(diffText)
	if err != nil {
		return nil, err
	}

	untracked, err := g.GetUntrackedFiles(ctx)
	if err != nil {
		return nil, err
	}

	return mergeSorted(changed, untracked), nil
}

// ParseChangedFiles extracts the changed paths of a unified diff.
// Deleted files are reported under their original name, everything else under the new name.
func ParseChangedFiles(diffText string) ([]string, error) {
	if strings.TrimSpace(diffText) == "" {
		return nil, nil
	}

	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(diffText)).ReadAllFiles()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to parse diff")
	}

	var files []string
	for _, fd := range fileDiffs {
		name := fd.NewName
		if name == "" || name == devNull {
			name = fd.OrigName
		}
		if name = stripDiffPrefix(name); name != "" {
			files = append(files, name)
		}
	}

	return mergeSorted(files, nil), nil
}

// stripDiffPrefix removes git's "a/" and "b/" path prefixes
func stripDiffPrefix(name string) string {
	name = strings.TrimSpace(name)
	if name == devNull {
		return ""
	}
	if strings.HasPrefix(name, "a/") || strings.HasPrefix(name, "b/") {
		name = name[2:]
	}
	return path.Clean(name)
}

func mergeSorted(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, item := range list {
			if !seen[item] {
				seen[item] = true
				out = append(out, item)
			}
		}
	}
	sort.Strings(out)
	return out
}

func (g *GitOperations) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.workingDir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "git "+args[0]+" failed"), "stderr", strings.TrimSpace(stderr.String()))
	}
	return string(output), nil
}
