package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/meysamhadeli/codai-impact/code_analyzer"
	"github.com/meysamhadeli/codai-impact/code_analyzer/contracts"
	"github.com/meysamhadeli/codai-impact/config"
	"github.com/meysamhadeli/codai-impact/constants/lipgloss"
	"github.com/meysamhadeli/codai-impact/utils"
	"github.com/spf13/cobra"
	"go.trai.ch/zerr"
)

// RootDependencies holds the dependencies shared by all subcommands
type RootDependencies struct {
	Config   *config.Config
	Analyzer contracts.IDependencyAnalyzer
	// Cache is nil when caching is disabled
	Cache  *code_analyzer.CacheStore
	Logger *slog.Logger
	Cwd    string
}

var rootCmd = &cobra.Command{
	Use:   "codai-impact",
	Short: "Cross-file dependency analysis and impact scoring for Python projects",
	Long: `codai-impact inspects the Python modules changed in a working tree, finds which modules
import them, checks whether they have tests, and scores how risky each change is.
The results are reported directly or merged into a list of resume points.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if version, _ := cmd.Flags().GetBool("version"); version {
			cfg, err := config.LoadConfigs(cmd, ".")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), lipgloss.BlueSky.Render(fmt.Sprintf("codai-impact version %s", cfg.Version)))
			return nil
		}
		return cmd.Help()
	},
}

func init() {
	config.InitFlags(rootCmd)
}

// Execute runs the root command with ctx, which subcommands use for cancellation.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// handleRootCommand loads the configuration and builds the analyzer for the current working directory.
func handleRootCommand(cmd *cobra.Command) (*RootDependencies, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to get current working directory")
	}

	cfg, err := config.LoadConfigs(rootCmd, cwd)
	if err != nil {
		return nil, err
	}

	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.EnableCache = false
	}

	logger := utils.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

	deps := &RootDependencies{
		Config: cfg,
		Logger: logger,
		Cwd:    cwd,
	}

	var cache contracts.ICacheStore
	if cfg.EnableCache {
		store, err := code_analyzer.NewCacheStore(cfg.CacheDir)
		if err != nil {
			// Analysis still works uncached
			logger.Warn("dependency cache unavailable", "dir", cfg.CacheDir, "error", err)
		} else {
			deps.Cache = store
			cache = store
		}
	}

	deps.Analyzer, err = code_analyzer.NewDependencyAnalyzer(cwd, cache,
		code_analyzer.WithLogger(logger),
		code_analyzer.WithMaxChangedFiles(cfg.MaxChangedFiles),
		code_analyzer.WithSourceRoots(cfg.SourceRoots),
		code_analyzer.WithScanWorkers(cfg.ScanWorkers),
	)
	if err != nil {
		return nil, err
	}

	return deps, nil
}
