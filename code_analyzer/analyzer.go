package code_analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/meysamhadeli/codai-impact/code_analyzer/contracts"
	"github.com/meysamhadeli/codai-impact/code_analyzer/models"
	"github.com/meysamhadeli/codai-impact/utils"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.trai.ch/zerr"
)

// DefaultMaxChangedFiles is the change-set size above which analysis is skipped.
const DefaultMaxChangedFiles = 50

// DependencyAnalyzer runs dependency analysis and impact scoring over a change-set.
type DependencyAnalyzer struct {
	projectRoot     string
	cache           contracts.ICacheStore
	parser          *SourceParser
	probe           *TestCoverageProbe
	logger          *slog.Logger
	metrics         *analyzerMetrics
	meterProvider   metric.MeterProvider
	maxChangedFiles int
	sourceRoots     []string
	ignoredDirs     []string
	scanWorkers     int
}

// Option configures a DependencyAnalyzer
type Option func(*DependencyAnalyzer)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *DependencyAnalyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMaxChangedFiles overrides the change-set size guard.
func WithMaxChangedFiles(limit int) Option {
	return func(a *DependencyAnalyzer) {
		if limit > 0 {
			a.maxChangedFiles = limit
		}
	}
}

// WithSourceRoots sets the project-relative directories imports are resolved against.
func WithSourceRoots(roots []string) Option {
	return func(a *DependencyAnalyzer) {
		a.sourceRoots = roots
	}
}

// WithIgnoredDirs adds project-relative directories the reverse scan never enters.
func WithIgnoredDirs(dirs ...string) Option {
	return func(a *DependencyAnalyzer) {
		a.ignoredDirs = append(a.ignoredDirs, dirs...)
	}
}

// WithScanWorkers bounds the number of modules parsed concurrently during the reverse scan.
func WithScanWorkers(workers int) Option {
	return func(a *DependencyAnalyzer) {
		a.scanWorkers = workers
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider used for analyzer metrics.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(a *DependencyAnalyzer) {
		a.meterProvider = provider
	}
}

// NewDependencyAnalyzer creates an analyzer for the project at projectRoot.
// A nil cache disables caching.
func NewDependencyAnalyzer(projectRoot string, cache contracts.ICacheStore, opts ...Option) (*DependencyAnalyzer, error) {
	absRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(ErrInvalidProjectRoot, "failed to resolve project root"), "root", projectRoot)
	}
	info, err := os.Stat(absRoot)
	if err != nil || !info.IsDir() {
		return nil, zerr.With(zerr.Wrap(ErrInvalidProjectRoot, "project root is not a directory"), "root", absRoot)
	}

	if cache == nil {
		cache = &NopCache{}
	}

	analyzer := &DependencyAnalyzer{
		projectRoot:     absRoot,
		cache:           cache,
		parser:          NewSourceParser(),
		probe:           NewTestCoverageProbe(absRoot),
		logger:          slog.New(slog.DiscardHandler),
		maxChangedFiles: DefaultMaxChangedFiles,
	}
	for _, opt := range opts {
		opt(analyzer)
	}

	analyzer.metrics, err = newAnalyzerMetrics(analyzer.meterProvider)
	if err != nil {
		// Metrics are optional; analysis works without them
		analyzer.logger.Warn("failed to initialize analyzer metrics", "error", err)
		analyzer.metrics = nil
	}

	return analyzer, nil
}

// ProjectRoot returns the absolute project root.
func (a *DependencyAnalyzer) ProjectRoot() string {
	return a.projectRoot
}

// Analyze computes a FileDependency for every source module of the change-set.
// Change-sets larger than the configured limit are skipped without any parsing or cache I/O.
func (a *DependencyAnalyzer) Analyze(ctx context.Context, changedFiles []string) (*models.AnalysisResult, error) {
	if len(changedFiles) == 0 {
		return nil, ErrEmptyChangeSet
	}

	files := a.normalizeChangeSet(changedFiles)

	ctx, span := startAnalysisSpan(ctx, a.projectRoot, len(files))
	defer span.End()
	start := time.Now()

	result := &models.AnalysisResult{
		Dependencies:    make(map[string]models.FileDependency),
		FilesConsidered: len(files),
	}

	if len(files) > a.maxChangedFiles {
		result.Skipped = true
		result.SkipReason = fmt.Sprintf("Skipping dependency analysis (%d files, limit is %d)", len(files), a.maxChangedFiles)
		a.logger.Info(result.SkipReason)
		setAnalysisSpanResult(span, 0, 0, 0, true)
		a.metrics.record(ctx, time.Since(start), 0, 0, 0, true)
		return result, nil
	}

	resolver := NewModuleResolver(a.projectRoot, a.sourceRoots)
	graph, err := a.newGraphBuilder(resolver)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var parseFailures int
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, zerr.Wrap(err, "dependency analysis cancelled")
		}

		absPath := filepath.Join(a.projectRoot, filepath.FromSlash(rel))
		fileInfo, err := os.Stat(absPath)
		if err != nil || !fileInfo.Mode().IsRegular() {
			// Deleted or renamed modules have nothing left to analyze
			a.logger.Debug("skipping changed file that no longer exists", "path", rel)
			continue
		}

		if cached, ok := a.cache.Get(absPath); ok {
			result.Hits++
			result.Dependencies[rel] = *cached
			continue
		}
		result.Misses++

		dependency, err := a.analyzeFile(ctx, graph, resolver, rel, absPath)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if dependency.ParseFailed {
			parseFailures++
		}
		result.Dependencies[rel] = dependency

		if err := a.cache.Put(absPath, dependency, FileMtime(fileInfo)); err != nil {
			a.logger.Warn("failed to cache dependency analysis", "path", rel, "error", err)
		}
	}

	scanned, skipped := graph.ScanStats()
	a.logger.Debug("dependency analysis finished",
		"files", len(result.Dependencies),
		"hits", result.Hits,
		"misses", result.Misses,
		"scanned_modules", scanned,
		"skipped_modules", skipped,
		"duration", time.Since(start),
	)

	setAnalysisSpanResult(span, len(result.Dependencies), result.Hits, result.Misses, false)
	a.metrics.record(ctx, time.Since(start), result.Hits, result.Misses, parseFailures, false)

	return result, nil
}

// analyzeFile builds a fresh FileDependency for one changed module
func (a *DependencyAnalyzer) analyzeFile(ctx context.Context, graph *DependencyGraphBuilder, resolver *ModuleResolver, rel, absPath string) (models.FileDependency, error) {
	dependency := models.NewFileDependency(rel)

	parsed, err := a.parser.ParseFile(ctx, absPath)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return dependency, zerr.Wrap(ctxErr, "dependency analysis cancelled")
	}
	if err != nil || parsed.ParseFailed {
		a.logger.Debug("failed to parse changed module", "path", rel, "error", err)
		dependency.ParseFailed = true
		dependency.ImpactScore = CalculateImpactScore(0, false, 0)
		return dependency, nil
	}

	resolved := resolver.Resolve(parsed)
	imports := make([]string, 0, len(resolved.Imports))
	for _, target := range resolved.Imports {
		if target != rel {
			imports = append(imports, target)
		}
	}

	usedBy, usedByCount, err := graph.UsedBy(ctx, rel)
	if err != nil {
		return dependency, err
	}

	dependency.ImportsFrom = capList(imports, MaxListEntries)
	dependency.FunctionCallsTo = capList(resolved.Calls, MaxListEntries)
	dependency.UsedBy = usedBy
	dependency.UsedByCount = usedByCount
	dependency.HasTests = a.probe.HasTests(rel)
	dependency.ImpactScore = CalculateImpactScore(usedByCount, dependency.HasTests, len(imports))

	return dependency, nil
}

func (a *DependencyAnalyzer) newGraphBuilder(resolver *ModuleResolver) (*DependencyGraphBuilder, error) {
	ignored := append([]string{}, a.ignoredDirs...)
	if store, ok := a.cache.(*CacheStore); ok {
		if rel, err := filepath.Rel(a.projectRoot, store.Dir()); err == nil && !strings.HasPrefix(rel, "..") {
			ignored = append(ignored, rel)
		}
	}

	matcher, err := utils.LoadIgnoreMatcher(a.projectRoot, ignored...)
	if err != nil {
		return nil, err
	}

	return NewDependencyGraphBuilder(a.projectRoot, a.parser, resolver, matcher, a.scanWorkers, a.logger), nil
}

// normalizeChangeSet converts paths to clean forward-slash project-relative form,
// drops duplicates, paths outside the project and non-source files, keeping input order.
func (a *DependencyAnalyzer) normalizeChangeSet(changedFiles []string) []string {
	seen := make(map[string]bool, len(changedFiles))
	files := make([]string, 0, len(changedFiles))

	for _, file := range changedFiles {
		if file == "" {
			continue
		}
		if filepath.IsAbs(file) {
			rel, err := filepath.Rel(a.projectRoot, file)
			if err != nil {
				continue
			}
			file = rel
		}

		rel := path.Clean(filepath.ToSlash(file))
		if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
			continue
		}
		if !IsSourceFile(rel) || seen[rel] {
			continue
		}

		seen[rel] = true
		files = append(files, rel)
	}

	return files
}
