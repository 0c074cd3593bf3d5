package resume_points

import (
	"fmt"
	"strings"

	"github.com/meysamhadeli/codai-impact/code_analyzer"
	"github.com/meysamhadeli/codai-impact/code_analyzer/models"
)

const (
	reportRuleWidth = 70

	// NoAnalysisMessage is reported when there is nothing to format
	NoAnalysisMessage = "No dependency analysis available"
)

// FormatDependencyInfo renders the analysis as plain text, highest impact first.
func FormatDependencyInfo(dependencies map[string]models.FileDependency) string {
	if len(dependencies) == 0 {
		return NoAnalysisMessage
	}

	rule := strings.Repeat("=", reportRuleWidth)

	var sb strings.Builder
	sb.WriteString(rule + "\n")
	sb.WriteString("DEPENDENCY ANALYSIS\n")
	sb.WriteString(rule + "\n")

	for _, dep := range sortedByImpact(dependencies) {
		sb.WriteString("\n" + dep.FilePath + "\n")
		if dep.ParseFailed {
			sb.WriteString("  Could not be parsed\n")
		}
		fmt.Fprintf(&sb, "  Impact Score: %d/100\n", dep.ImpactScore)
		fmt.Fprintf(&sb, "  Used by: %d file(s)\n", dep.UsedByCount)
		if len(dep.UsedBy) > 0 {
			fmt.Fprintf(&sb, "    -> %s\n", previewList(dep.UsedBy, dep.UsedByCount, verifyPreviewCount))
		}
		if len(dep.ImportsFrom) > 0 {
			fmt.Fprintf(&sb, "  Imports: %s\n", previewList(dep.ImportsFrom, len(dep.ImportsFrom), verifyPreviewCount))
		}
		fmt.Fprintf(&sb, "  Has tests: %s\n", yesNo(dep.HasTests))
	}

	return sb.String()
}

// FormatDependencyReport renders the analysis as a markdown document
func FormatDependencyReport(dependencies map[string]models.FileDependency) string {
	if len(dependencies) == 0 {
		return "# Dependency Analysis\n\n" + NoAnalysisMessage + "\n"
	}

	summary := Summarize(dependencies)

	var sb strings.Builder
	sb.WriteString("# Dependency Analysis\n\n")
	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- Files analyzed: %d\n", summary.TotalFiles)
	fmt.Fprintf(&sb, "- High-impact files: %d\n", summary.HighImpactCount)
	fmt.Fprintf(&sb, "- Files with tests: %d\n", summary.FilesWithTests)
	fmt.Fprintf(&sb, "- Average impact score: %.1f\n", summary.AvgImpactScore)

	sb.WriteString("\n## Files\n\n")
	sb.WriteString("| File | Impact | Level | Used by | Imports | Tests |\n")
	sb.WriteString("|------|--------|-------|---------|---------|-------|\n")
	for _, dep := range sortedByImpact(dependencies) {
		fmt.Fprintf(&sb, "| `%s` | %d | %s | %d | %d | %s |\n",
			dep.FilePath, dep.ImpactScore, code_analyzer.LevelForScore(dep.ImpactScore),
			dep.UsedByCount, len(dep.ImportsFrom), yesNo(dep.HasTests))
	}

	if points := BuildResumePoints(nil, dependencies, 0); len(points) > 1 {
		sb.WriteString("\n## Resume Points\n\n")
		for _, point := range points[1:] {
			sb.WriteString("- " + point + "\n")
		}
	}

	return sb.String()
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
