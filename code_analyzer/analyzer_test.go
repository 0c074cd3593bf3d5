package code_analyzer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestAnalyzer(t *testing.T, root string, cached bool, opts ...Option) (*DependencyAnalyzer, *CacheStore) {
	t.Helper()

	var store *CacheStore
	var analyzer *DependencyAnalyzer
	var err error
	if cached {
		store, err = NewCacheStore(filepath.Join(root, ".cache", "dependency_cache"))
		require.NoError(t, err)
		analyzer, err = NewDependencyAnalyzer(root, store, opts...)
	} else {
		analyzer, err = NewDependencyAnalyzer(root, nil, opts...)
	}
	require.NoError(t, err)
	return analyzer, store
}

func TestDependencyAnalyzer_IsolatedModule(t *testing.T) {
	root := writeProject(t, map[string]string{
		"tools/lonely.py": "import os\n\ndef run():\n    return os.getcwd()\n",
	})
	analyzer, _ := newTestAnalyzer(t, root, false)

	result, err := analyzer.Analyze(context.Background(), []string{"tools/lonely.py"})

	require.NoError(t, err)
	require.False(t, result.Skipped)
	dep, ok := result.Dependencies["tools/lonely.py"]
	require.True(t, ok)
	assert.Equal(t, "tools/lonely.py", dep.FilePath)
	assert.Equal(t, 10, dep.ImpactScore)
	assert.Zero(t, dep.UsedByCount)
	assert.Empty(t, dep.UsedBy)
	assert.NotNil(t, dep.UsedBy)
	assert.Empty(t, dep.ImportsFrom)
	assert.False(t, dep.HasTests)
	assert.False(t, dep.ParseFailed)
}

func TestDependencyAnalyzer_SharedModuleWithTests(t *testing.T) {
	root := writeProject(t, map[string]string{
		"core/__init__.py":        "",
		"core/config.py":          "",
		"core/db.py":              "from core import config\n\ndef connect():\n    return config.load()\n",
		"api/views.py":            "from core import db\n\ndb.connect()\n",
		"api/tasks.py":            "import core.db\n",
		"workers/sync.py":         "from core.db import connect\n\nconnect()\n",
		"tests/test_db.py":        "",
		"unrelated/standalone.py": "import json\n",
	})
	analyzer, _ := newTestAnalyzer(t, root, false)

	result, err := analyzer.Analyze(context.Background(), []string{"core/db.py"})

	require.NoError(t, err)
	dep := result.Dependencies["core/db.py"]
	assert.Equal(t, 3, dep.UsedByCount)
	assert.Equal(t, []string{"api/tasks.py", "api/views.py", "workers/sync.py"}, dep.UsedBy)
	assert.True(t, dep.HasTests)
	assert.Equal(t, 60, dep.ImpactScore)
	assert.Equal(t, []string{"core/__init__.py", "core/config.py"}, dep.ImportsFrom)
	assert.Equal(t, []string{"core.config.load"}, dep.FunctionCallsTo)
}

func TestDependencyAnalyzer_WidelyUsedModuleWithTests(t *testing.T) {
	files := map[string]string{
		"b.py":            "",
		"tests/test_b.py": "",
	}
	for i := 0; i < 12; i++ {
		files[fmt.Sprintf("users/u%02d.py", i)] = "import b\n"
	}
	root := writeProject(t, files)
	analyzer, _ := newTestAnalyzer(t, root, false)

	result, err := analyzer.Analyze(context.Background(), []string{"b.py"})

	require.NoError(t, err)
	dep := result.Dependencies["b.py"]
	assert.Equal(t, 12, dep.UsedByCount)
	assert.Len(t, dep.UsedBy, MaxListEntries)
	assert.Equal(t, "users/u00.py", dep.UsedBy[0])
	assert.True(t, dep.HasTests)
	assert.Equal(t, 100, dep.ImpactScore)
}

func TestDependencyAnalyzer_ParseFailureDoesNotAbortBatch(t *testing.T) {
	root := writeProject(t, map[string]string{
		"broken.py": "class (\n",
		"config.py": "",
		"a.py":      "import config\n",
		"b.py":      "import config\n",
		"c.py":      "from config import settings\n",
	})
	analyzer, _ := newTestAnalyzer(t, root, true)

	result, err := analyzer.Analyze(context.Background(), []string{"broken.py", "config.py"})

	require.NoError(t, err)
	require.Len(t, result.Dependencies, 2)
	assert.True(t, result.Dependencies["broken.py"].ParseFailed)
	assert.Empty(t, result.Dependencies["broken.py"].ImportsFrom)
	assert.Empty(t, result.Dependencies["broken.py"].UsedBy)

	config := result.Dependencies["config.py"]
	assert.False(t, config.ParseFailed)
	assert.Equal(t, 3, config.UsedByCount)
	assert.Equal(t, 50, config.ImpactScore)
}

func TestDependencyAnalyzer_ParseFailure(t *testing.T) {
	root := writeProject(t, map[string]string{
		"broken.py":            "def oops(:\n    pass\n",
		"user.py":              "import broken\n",
		"tests/test_broken.py": "",
	})
	analyzer, _ := newTestAnalyzer(t, root, false)

	result, err := analyzer.Analyze(context.Background(), []string{"broken.py"})

	require.NoError(t, err)
	dep := result.Dependencies["broken.py"]
	assert.True(t, dep.ParseFailed)
	assert.Equal(t, 10, dep.ImpactScore)
	assert.False(t, dep.HasTests)
	assert.Zero(t, dep.UsedByCount)
}

func TestDependencyAnalyzer_ComplexityBonus(t *testing.T) {
	files := map[string]string{}
	source := ""
	for i := 0; i < 11; i++ {
		files[fmt.Sprintf("lib/m%02d.py", i)] = ""
		source += fmt.Sprintf("import lib.m%02d\n", i)
	}
	files["hub.py"] = source
	root := writeProject(t, files)
	analyzer, _ := newTestAnalyzer(t, root, false)

	result, err := analyzer.Analyze(context.Background(), []string{"hub.py"})

	require.NoError(t, err)
	dep := result.Dependencies["hub.py"]
	assert.Len(t, dep.ImportsFrom, MaxListEntries)
	assert.Equal(t, 15, dep.ImpactScore)
}

func TestDependencyAnalyzer_SkipsLargeChangeSets(t *testing.T) {
	root := writeProject(t, map[string]string{"a.py": ""})
	analyzer, store := newTestAnalyzer(t, root, true)

	changed := make([]string, 0, 51)
	for i := 0; i < 51; i++ {
		changed = append(changed, fmt.Sprintf("m%02d.py", i))
	}
	changed = append(changed, "README.md", "docs/guide.rst")

	result, err := analyzer.Analyze(context.Background(), changed)

	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, "Skipping dependency analysis (51 files, limit is 50)", result.SkipReason)
	assert.Empty(t, result.Dependencies)
	assert.Zero(t, result.Hits)
	assert.Zero(t, result.Misses)
	assert.Zero(t, store.Misses(), "skipped analyses never touch the cache")
}

func TestDependencyAnalyzer_LimitBoundary(t *testing.T) {
	files := make(map[string]string, 51)
	changed := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		name := fmt.Sprintf("m%02d.py", i)
		files[name] = "import os\n"
		changed = append(changed, name)
	}
	files["m49.py"] = "import m48\n"
	files["extra.py"] = "import m00\n"
	root := writeProject(t, files)
	analyzer, _ := newTestAnalyzer(t, root, true)

	result, err := analyzer.Analyze(context.Background(), changed)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 50, result.FilesConsidered)
	assert.Len(t, result.Dependencies, 50)
	assert.Equal(t, 50, result.Misses)
	assert.Equal(t, 0, result.Hits)
	assert.Equal(t, []string{"extra.py"}, result.Dependencies["m00.py"].UsedBy)
	assert.Equal(t, []string{"m48.py"}, result.Dependencies["m49.py"].ImportsFrom)
	assert.Equal(t, []string{"m49.py"}, result.Dependencies["m48.py"].UsedBy)

	over, err := analyzer.Analyze(context.Background(), append(changed, "extra.py"))
	require.NoError(t, err)
	assert.True(t, over.Skipped)
	assert.Empty(t, over.Dependencies)

	limited, _ := newTestAnalyzer(t, root, false, WithMaxChangedFiles(2))
	result, err = limited.Analyze(context.Background(), []string{"a.py", "b.py", "c.py"})
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, "Skipping dependency analysis (3 files, limit is 2)", result.SkipReason)
}

func TestDependencyAnalyzer_CacheIdempotence(t *testing.T) {
	root := writeProject(t, map[string]string{
		"shared.py": "",
		"a.py":      "import shared\n",
		"b.py":      "import shared\n",
		"test_a.py": "",
	})
	analyzer, _ := newTestAnalyzer(t, root, true)
	changed := []string{"shared.py", "a.py"}

	first, err := analyzer.Analyze(context.Background(), changed)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Hits)
	assert.Equal(t, 2, first.Misses)

	second, err := analyzer.Analyze(context.Background(), changed)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Hits)
	assert.Equal(t, 0, second.Misses)
	assert.Equal(t, first.Dependencies, second.Dependencies)
}

func TestDependencyAnalyzer_CacheInvalidatedByModification(t *testing.T) {
	root := writeProject(t, map[string]string{
		"helper.py": "",
		"mod.py":    "x = 1\n",
	})
	analyzer, _ := newTestAnalyzer(t, root, true)

	first, err := analyzer.Analyze(context.Background(), []string{"mod.py"})
	require.NoError(t, err)
	assert.Empty(t, first.Dependencies["mod.py"].ImportsFrom)

	modPath := filepath.Join(root, "mod.py")
	require.NoError(t, os.WriteFile(modPath, []byte("import helper\n"), 0o644))
	later := time.Now().Add(5 * time.Second)
	require.NoError(t, os.Chtimes(modPath, later, later))

	second, err := analyzer.Analyze(context.Background(), []string{"mod.py"})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Misses)
	assert.Equal(t, []string{"helper.py"}, second.Dependencies["mod.py"].ImportsFrom)
}

func TestDependencyAnalyzer_DisabledCache(t *testing.T) {
	root := writeProject(t, map[string]string{"mod.py": ""})
	analyzer, _ := newTestAnalyzer(t, root, false)

	for i := 0; i < 2; i++ {
		result, err := analyzer.Analyze(context.Background(), []string{"mod.py"})
		require.NoError(t, err)
		assert.Equal(t, 0, result.Hits)
		assert.Equal(t, 1, result.Misses)
	}
}

func TestDependencyAnalyzer_NormalizesChangeSet(t *testing.T) {
	root := writeProject(t, map[string]string{
		"pkg/mod.py": "",
		"other.py":   "",
	})
	analyzer, _ := newTestAnalyzer(t, root, false)

	result, err := analyzer.Analyze(context.Background(), []string{
		filepath.Join(analyzer.ProjectRoot(), "pkg", "mod.py"),
		"./pkg/mod.py",
		"pkg//mod.py",
		"../outside.py",
		"notes.txt",
		"",
		"other.py",
		"deleted.py",
	})

	require.NoError(t, err)
	assert.Equal(t, 3, result.FilesConsidered)
	assert.Len(t, result.Dependencies, 2)
	assert.Contains(t, result.Dependencies, "pkg/mod.py")
	assert.Contains(t, result.Dependencies, "other.py")
}

func TestDependencyAnalyzer_EmptyChangeSet(t *testing.T) {
	analyzer, _ := newTestAnalyzer(t, t.TempDir(), false)

	_, err := analyzer.Analyze(context.Background(), nil)

	assert.ErrorIs(t, err, ErrEmptyChangeSet)
}

func TestDependencyAnalyzer_OnlyNonSourceFiles(t *testing.T) {
	analyzer, _ := newTestAnalyzer(t, t.TempDir(), false)

	result, err := analyzer.Analyze(context.Background(), []string{"README.md", "setup.cfg"})

	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Empty(t, result.Dependencies)
}

func TestNewDependencyAnalyzer_InvalidRoot(t *testing.T) {
	_, err := NewDependencyAnalyzer(filepath.Join(t.TempDir(), "missing"), nil)

	assert.ErrorIs(t, err, ErrInvalidProjectRoot)
}

func TestDependencyAnalyzer_Metrics(t *testing.T) {
	root := writeProject(t, map[string]string{
		"a.py":      "import b\n",
		"b.py":      "",
		"broken.py": "def oops(:\n",
	})
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	analyzer, _ := newTestAnalyzer(t, root, true, WithMeterProvider(provider))

	_, err := analyzer.Analyze(context.Background(), []string{"a.py", "b.py", "broken.py"})
	require.NoError(t, err)
	_, err = analyzer.Analyze(context.Background(), []string{"a.py"})
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	assert.Equal(t, int64(1), counterValue(t, rm, "dependency_cache_hits_total"))
	assert.Equal(t, int64(3), counterValue(t, rm, "dependency_cache_misses_total"))
	assert.Equal(t, int64(1), counterValue(t, rm, "dependency_parse_failures_total"))
}

func counterValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	t.Fatalf("metric %s not collected", name)
	return 0
}
