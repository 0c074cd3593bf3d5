package code_analyzer

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/meysamhadeli/codai-impact/utils"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// DependencyGraphBuilder computes reverse import edges ("who imports this file")
// by parsing every source module of the project once.
type DependencyGraphBuilder struct {
	projectRoot string
	parser      *SourceParser
	resolver    *ModuleResolver
	matcher     *utils.IgnoreMatcher
	workers     int
	logger      *slog.Logger

	once     sync.Once
	buildErr error
	index    map[string][]string
	scanned  int
	skipped  int
}

// NewDependencyGraphBuilder creates a builder. The index is built lazily on first use.
func NewDependencyGraphBuilder(projectRoot string, parser *SourceParser, resolver *ModuleResolver, matcher *utils.IgnoreMatcher, workers int, logger *slog.Logger) *DependencyGraphBuilder {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DependencyGraphBuilder{
		projectRoot: projectRoot,
		parser:      parser,
		resolver:    resolver,
		matcher:     matcher,
		workers:     workers,
		logger:      logger,
	}
}

// UsedBy returns the first importers of relPath in lexical order and the true importer count.
func (b *DependencyGraphBuilder) UsedBy(ctx context.Context, relPath string) ([]string, int, error) {
	if err := b.ensureIndex(ctx); err != nil {
		return nil, 0, err
	}
	importers := b.index[filepath.ToSlash(relPath)]
	return sortedCap(importers, MaxListEntries), len(importers), nil
}

// ScanStats reports how many modules were indexed and how many were skipped as unreadable.
func (b *DependencyGraphBuilder) ScanStats() (scanned int, skipped int) {
	return b.scanned, b.skipped
}

func (b *DependencyGraphBuilder) ensureIndex(ctx context.Context) error {
	b.once.Do(func() {
		b.buildErr = b.buildIndex(ctx)
	})
	return b.buildErr
}

func (b *DependencyGraphBuilder) buildIndex(ctx context.Context) error {
	files, err := b.ProjectModules(ctx)
	if err != nil {
		return err
	}

	imports := make([][]string, len(files))
	var skippedMutex sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			parsed, err := b.parser.ParseFile(gctx, filepath.Join(b.projectRoot, filepath.FromSlash(rel)))
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil || parsed.ParseFailed {
				// Unreadable, binary and unparseable modules never count as importers
				b.logger.Debug("skipping module during reverse scan", "path", rel, "error", err)
				skippedMutex.Lock()
				b.skipped++
				skippedMutex.Unlock()
				return nil
			}

			imports[i] = b.resolver.Resolve(parsed).Imports
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return zerr.Wrap(err, "reverse import scan interrupted")
	}

	// files is sorted, so importer lists come out in lexical order
	index := make(map[string][]string)
	for i, rel := range files {
		for _, target := range imports[i] {
			if target == rel {
				continue
			}
			index[target] = append(index[target], rel)
		}
	}

	b.index = index
	b.scanned = len(files) - b.skipped
	b.logger.Debug("reverse import index built", "modules", len(files), "skipped", b.skipped, "targets", len(index))

	return nil
}

// ProjectModules returns every source module of the project as sorted forward-slash relative paths.
func (b *DependencyGraphBuilder) ProjectModules(ctx context.Context) ([]string, error) {
	var files []string

	err := filepath.WalkDir(b.projectRoot, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// Unreadable directories are skipped like unreadable files
			if d != nil && d.IsDir() && path != b.projectRoot {
				return filepath.SkipDir
			}
			if path == b.projectRoot {
				return err
			}
			return nil
		}

		if path == b.projectRoot {
			return nil
		}

		relativePath, err := filepath.Rel(b.projectRoot, path)
		if err != nil {
			return nil
		}
		relativePath = filepath.ToSlash(relativePath)

		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if b.matcher != nil && b.matcher.Match(relativePath, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.IsDir() && IsSourceFile(relativePath) {
			files = append(files, relativePath)
		}
		return nil
	})
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to walk project"), "root", b.projectRoot)
	}

	sort.Strings(files)
	return files, nil
}
