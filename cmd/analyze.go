package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/meysamhadeli/codai-impact/code_analyzer"
	"github.com/meysamhadeli/codai-impact/code_analyzer/models"
	"github.com/meysamhadeli/codai-impact/constants/lipgloss"
	"github.com/meysamhadeli/codai-impact/resume_points"
	"github.com/meysamhadeli/codai-impact/utils"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Output formats of the analyze command
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
)

// ErrUnknownFormat is returned for an unsupported --format value
var ErrUnknownFormat = zerr.New("unknown output format")

// AnalysisReport is the machine-readable result of the analyze command
type AnalysisReport struct {
	ProjectRoot  string                           `json:"project_root" yaml:"project_root"`
	Skipped      bool                             `json:"skipped" yaml:"skipped"`
	SkipReason   string                           `json:"skip_reason,omitempty" yaml:"skip_reason,omitempty"`
	CacheHits    int                              `json:"cache_hits" yaml:"cache_hits"`
	CacheMisses  int                              `json:"cache_misses" yaml:"cache_misses"`
	Summary      resume_points.DependencySummary  `json:"summary" yaml:"summary"`
	Dependencies map[string]models.FileDependency `json:"dependencies" yaml:"dependencies"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [files...]",
	Short: "Analyze the dependency impact of changed source files",
	Long: `The 'analyze' command scores the impact of changed Python modules.
Changed files are taken from the arguments, from a unified diff (--diff-file), or from
'git diff' against --base plus untracked files. Each module is reported with the files
that import it, the project modules it imports, and whether tests cover it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleAnalyzeCommand(cmd, args)
	},
}

func init() {
	analyzeCmd.Flags().String("diff-file", "", "Read changed files from a unified diff file ('-' for stdin)")
	analyzeCmd.Flags().String("base", "HEAD", "Git revision the working tree is compared against")
	analyzeCmd.Flags().StringP("format", "o", FormatText, "Output format: 'text', 'markdown', 'json' or 'yaml'")
	analyzeCmd.Flags().Bool("no-cache", false, "Analyze without reading or writing the dependency cache")

	rootCmd.AddCommand(analyzeCmd)
}

func handleAnalyzeCommand(cmd *cobra.Command, args []string) error {
	rawFormat, _ := cmd.Flags().GetString("format")
	format, err := parseFormat(rawFormat)
	if err != nil {
		return err
	}

	rootDependencies, err := handleRootCommand(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	changedFiles, err := collectChangedFiles(ctx, cmd, rootDependencies.Cwd, args)
	if err != nil {
		return err
	}
	if len(changedFiles) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), lipgloss.Yellow.Render("No changed files to analyze."))
		return nil
	}

	result, err := runAnalysis(ctx, rootDependencies, changedFiles, format == FormatText || format == FormatMarkdown)
	if err != nil {
		if errors.Is(err, code_analyzer.ErrEmptyChangeSet) {
			fmt.Fprintln(cmd.ErrOrStderr(), lipgloss.Yellow.Render("No changed files to analyze."))
			return nil
		}
		return err
	}

	return renderAnalysis(out, format, rootDependencies, result)
}

// runAnalysis analyzes changedFiles, showing a spinner for interactive formats
func runAnalysis(ctx context.Context, rootDependencies *RootDependencies, changedFiles []string, interactive bool) (*models.AnalysisResult, error) {
	if !interactive {
		return rootDependencies.Analyzer.Analyze(ctx, changedFiles)
	}

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgLightBlue)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100).WithRemoveWhenDone(true).WithWriter(os.Stderr)

	spinnerInstance, _ := spinner.Start("Analyzing dependencies...")
	result, err := rootDependencies.Analyzer.Analyze(ctx, changedFiles)
	if spinnerInstance != nil {
		_ = spinnerInstance.Stop()
	}

	return result, err
}

// collectChangedFiles returns the explicit files, the files of --diff-file, or the git change-set, in that order of preference
func collectChangedFiles(ctx context.Context, cmd *cobra.Command, cwd string, explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}

	if diffFile, _ := cmd.Flags().GetString("diff-file"); diffFile != "" {
		content, err := readInput(cmd.InOrStdin(), diffFile)
		if err != nil {
			return nil, err
		}
		return utils.ParseChangedFiles(string(content))
	}

	base, _ := cmd.Flags().GetString("base")
	git := utils.NewGitOperations(cwd)
	if err := git.CheckGitRepo(ctx); err != nil {
		return nil, err
	}
	return git.GetChangedFiles(ctx, base)
}

// readInput reads a file, or stdin when name is "-"
func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		content, err := io.ReadAll(stdin)
		if err != nil {
			return nil, zerr.Wrap(err, "failed to read stdin")
		}
		return content, nil
	}

	content, err := os.ReadFile(name) //nolint:gosec // user-supplied input file
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read input file"), "path", name)
	}
	return content, nil
}

func renderAnalysis(w io.Writer, format string, rootDependencies *RootDependencies, result *models.AnalysisResult) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(newAnalysisReport(rootDependencies.Cwd, result))

	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(newAnalysisReport(rootDependencies.Cwd, result)); err != nil {
			return zerr.Wrap(err, "failed to encode yaml report")
		}
		return encoder.Close()

	case FormatMarkdown:
		if result.Skipped {
			renderSkipped(w, result.SkipReason)
			return nil
		}
		return utils.RenderMarkdown(w, resume_points.FormatDependencyReport(result.Dependencies), rootDependencies.Config.Theme)

	default:
		if result.Skipped {
			renderSkipped(w, result.SkipReason)
			return nil
		}
		renderText(w, result)
		return nil
	}
}

func renderSkipped(w io.Writer, reason string) {
	fmt.Fprintln(w, lipgloss.BoxStyle.Render(lipgloss.Yellow.Render(reason)))
}

func renderText(w io.Writer, result *models.AnalysisResult) {
	if len(result.Dependencies) == 0 {
		fmt.Fprintln(w, lipgloss.Gray.Render(resume_points.NoAnalysisMessage))
		return
	}

	summary := resume_points.Summarize(result.Dependencies)
	fmt.Fprintln(w, lipgloss.HeaderStyle.Render(resume_points.ImpactSummaryLine(result.Dependencies)))
	fmt.Fprintln(w, resume_points.FormatDependencyInfo(result.Dependencies))

	fmt.Fprintf(w, "Average impact score: %s\n",
		lipgloss.ScoreStyle(int(summary.AvgImpactScore)).Render(fmt.Sprintf("%.1f", summary.AvgImpactScore)))
	fmt.Fprintln(w, lipgloss.Gray.Render(fmt.Sprintf("Cache: %d hit(s), %d miss(es)", result.Hits, result.Misses)))
}

func newAnalysisReport(projectRoot string, result *models.AnalysisResult) AnalysisReport {
	return AnalysisReport{
		ProjectRoot:  projectRoot,
		Skipped:      result.Skipped,
		SkipReason:   result.SkipReason,
		CacheHits:    result.Hits,
		CacheMisses:  result.Misses,
		Summary:      resume_points.Summarize(result.Dependencies),
		Dependencies: result.Dependencies,
	}
}

func parseFormat(raw string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(raw))
	if !isKnownFormat(format) {
		return "", zerr.With(zerr.Wrap(ErrUnknownFormat, "invalid --format"), "format", raw)
	}
	return format, nil
}

func isKnownFormat(format string) bool {
	switch format {
	case FormatText, FormatMarkdown, FormatJSON, FormatYAML:
		return true
	}
	return false
}
