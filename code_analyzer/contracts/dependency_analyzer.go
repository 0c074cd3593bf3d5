package contracts

import (
	"context"

	"github.com/meysamhadeli/codai-impact/code_analyzer/models"
)

// ICacheStore persists analyzed modules between invocations
type ICacheStore interface {
	Get(absPath string) (*models.FileDependency, bool)
	Put(absPath string, dependency models.FileDependency, mtime float64) error
	Hits() int64
	Misses() int64
}

// IDependencyAnalyzer analyzes a change-set of project modules
type IDependencyAnalyzer interface {
	Analyze(ctx context.Context, changedFiles []string) (*models.AnalysisResult, error)
	ProjectRoot() string
}
