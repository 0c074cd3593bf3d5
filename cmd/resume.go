package cmd

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/meysamhadeli/codai-impact/code_analyzer"
	"github.com/meysamhadeli/codai-impact/constants/lipgloss"
	"github.com/meysamhadeli/codai-impact/resume_points"
	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume-points [points...]",
	Short: "Prefix resume points with impact warnings for the current change-set",
	Long: `The 'resume-points' command takes a list of resume points (from the arguments or
--points-file, one per line) and puts impact warnings, verification hints and missing-test
suggestions for the changed modules in front of them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleResumeCommand(cmd, args)
	},
}

func init() {
	resumeCmd.Flags().String("points-file", "", "Read base resume points from a file, one per line ('-' for stdin)")
	resumeCmd.Flags().Bool("skip-deps", false, "Print the base resume points without dependency analysis")
	resumeCmd.Flags().String("diff-file", "", "Read changed files from a unified diff file ('-' for stdin)")
	resumeCmd.Flags().String("base", "HEAD", "Git revision the working tree is compared against")
	resumeCmd.Flags().Bool("no-cache", false, "Analyze without reading or writing the dependency cache")

	rootCmd.AddCommand(resumeCmd)
}

func handleResumeCommand(cmd *cobra.Command, args []string) error {
	basePoints, err := collectBasePoints(cmd, args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if skipDeps, _ := cmd.Flags().GetBool("skip-deps"); skipDeps {
		printResumePoints(out, basePoints)
		return nil
	}

	rootDependencies, err := handleRootCommand(cmd)
	if err != nil {
		return err
	}
	limit := rootDependencies.Config.ResumePointLimit

	ctx := cmd.Context()
	changedFiles, err := collectChangedFiles(ctx, cmd, rootDependencies.Cwd, nil)
	if err != nil {
		// Resume points are still useful without impact analysis
		rootDependencies.Logger.Warn("could not determine changed files", "error", err)
		printResumePoints(out, capPoints(basePoints, limit))
		return nil
	}

	result, err := runAnalysis(ctx, rootDependencies, changedFiles, true)
	switch {
	case errors.Is(err, code_analyzer.ErrEmptyChangeSet):
		printResumePoints(out, capPoints(basePoints, limit))
		return nil
	case err != nil:
		return err
	case result.Skipped:
		fmt.Fprintln(cmd.ErrOrStderr(), lipgloss.Yellow.Render(result.SkipReason))
		printResumePoints(out, capPoints(basePoints, limit))
		return nil
	}

	printResumePoints(out, resume_points.BuildResumePoints(basePoints, result.Dependencies, limit))
	return nil
}

// collectBasePoints joins the argument points with the points of --points-file
func collectBasePoints(cmd *cobra.Command, args []string) ([]string, error) {
	points := append([]string{}, args...)

	pointsFile, _ := cmd.Flags().GetString("points-file")
	if pointsFile == "" {
		return points, nil
	}

	content, err := readInput(cmd.InOrStdin(), pointsFile)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			points = append(points, line)
		}
	}
	return points, scanner.Err()
}

func printResumePoints(w io.Writer, points []string) {
	if len(points) == 0 {
		fmt.Fprintln(w, lipgloss.Gray.Render("No resume points."))
		return
	}

	n := 0
	for _, point := range points {
		switch {
		case strings.HasPrefix(point, "---"):
			fmt.Fprintln(w, lipgloss.Info.Render(point))
		case strings.HasPrefix(point, "[!]"):
			n++
			fmt.Fprintf(w, "%d. %s\n", n, lipgloss.Red.Render(point))
		case strings.HasPrefix(point, "[WARNING]"):
			n++
			fmt.Fprintf(w, "%d. %s\n", n, lipgloss.Yellow.Render(point))
		default:
			n++
			fmt.Fprintf(w, "%d. %s\n", n, point)
		}
	}
}

func capPoints(points []string, limit int) []string {
	if limit > 0 && len(points) > limit {
		return points[:limit]
	}
	return points
}
