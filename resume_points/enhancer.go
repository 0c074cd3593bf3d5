package resume_points

import (
	"fmt"
	"sort"
	"strings"

	"github.com/meysamhadeli/codai-impact/code_analyzer"
	"github.com/meysamhadeli/codai-impact/code_analyzer/models"
)

const (
	// verifyPreviewCount is how many importers a high-impact warning names
	verifyPreviewCount = 3

	// manyImportsThreshold triggers the dependency verification hint
	manyImportsThreshold = 5

	// CodeLevelSeparator precedes the base resume points in a full resume point list
	CodeLevelSeparator = "--- Code-Level Resume Points ---"
)

// Enhance returns the base resume points preceded by impact warnings:
// high-impact entries first, then medium-impact entries, then suggestions to create
// missing test files. Base points keep their original order.
func Enhance(base []string, dependencies map[string]models.FileDependency) []string {
	entries := prioritizedEntries(dependencies)

	enhanced := make([]string, 0, len(entries.high)+len(entries.medium)+len(entries.createTests)+len(base))
	enhanced = append(enhanced, entries.high...)
	enhanced = append(enhanced, entries.medium...)
	enhanced = append(enhanced, entries.createTests...)
	enhanced = append(enhanced, base...)

	return enhanced
}

// BuildResumePoints produces the complete resume point list shown to the user: an impact
// summary line, warnings and test suggestions, then the base points after a separator.
// A positive limit caps the number of returned entries.
func BuildResumePoints(base []string, dependencies map[string]models.FileDependency, limit int) []string {
	if len(dependencies) == 0 {
		return capEntries(append([]string{}, base...), limit)
	}

	var codeLevel []string
	if len(base) > 0 {
		codeLevel = append([]string{CodeLevelSeparator}, base...)
	}
	enhanced := Enhance(codeLevel, dependencies)

	entries := prioritizedEntries(dependencies)
	checks := entries.verifyImports
	if len(entries.runTests) > 0 {
		checks = append(checks, "Run tests for: "+strings.Join(entries.runTests, ", "))
	}

	// verification hints sit between the impact warnings and the test suggestions
	split := len(entries.high) + len(entries.medium)
	points := make([]string, 0, len(enhanced)+len(checks)+1)
	points = append(points, ImpactSummaryLine(dependencies))
	points = append(points, enhanced[:split]...)
	points = append(points, checks...)
	points = append(points, enhanced[split:]...)

	return capEntries(points, limit)
}

// ImpactSummaryLine returns a one-line headline for the analyzed change-set.
func ImpactSummaryLine(dependencies map[string]models.FileDependency) string {
	var high, medium int
	for _, dep := range dependencies {
		switch code_analyzer.LevelForScore(dep.ImpactScore) {
		case code_analyzer.ImpactHigh:
			high++
		case code_analyzer.ImpactMedium:
			medium++
		}
	}

	switch {
	case high > 0:
		return fmt.Sprintf("--- Impact Analysis: %d high-impact file(s), %d medium-impact ---", high, medium)
	case medium > 0:
		return fmt.Sprintf("--- Impact Analysis: %d medium-impact file(s) ---", medium)
	default:
		return "--- Impact Analysis: Low-impact changes ---"
	}
}

// resumeEntries groups the generated entries by kind
type resumeEntries struct {
	high          []string
	medium        []string
	verifyImports []string
	runTests      []string
	createTests   []string
}

func prioritizedEntries(dependencies map[string]models.FileDependency) resumeEntries {
	var entries resumeEntries

	for _, dep := range sortedByImpact(dependencies) {
		switch code_analyzer.LevelForScore(dep.ImpactScore) {
		case code_analyzer.ImpactHigh:
			entries.high = append(entries.high, highImpactEntry(dep))
		case code_analyzer.ImpactMedium:
			entries.medium = append(entries.medium, mediumImpactEntry(dep))
		}
	}

	for _, dep := range sortedByPath(dependencies) {
		if len(dep.ImportsFrom) > manyImportsThreshold {
			entries.verifyImports = append(entries.verifyImports, fmt.Sprintf(
				"Verify %s still works with dependencies: %s",
				dep.FilePath, previewList(dep.ImportsFrom, len(dep.ImportsFrom), verifyPreviewCount)))
		}

		if dep.HasTests {
			entries.runTests = append(entries.runTests, dep.FilePath)
		} else {
			entries.createTests = append(entries.createTests, fmt.Sprintf(
				"Create %s to cover %s", code_analyzer.SuggestTestFile(dep.FilePath), dep.FilePath))
		}
	}

	return entries
}

func highImpactEntry(dep models.FileDependency) string {
	entry := fmt.Sprintf("[!] %s is used by %d file(s) - test thoroughly (impact: %d)",
		dep.FilePath, dep.UsedByCount, dep.ImpactScore)
	if len(dep.UsedBy) > 0 {
		entry += ". Verify: " + previewList(dep.UsedBy, dep.UsedByCount, verifyPreviewCount)
	}
	return entry
}

func mediumImpactEntry(dep models.FileDependency) string {
	return fmt.Sprintf("[WARNING] %s has moderate impact (score: %d, used by %d files) - run related tests",
		dep.FilePath, dep.ImpactScore, dep.UsedByCount)
}

// previewList joins the first n items and notes how many of total were left out
func previewList(items []string, total int, n int) string {
	shown := items
	if len(shown) > n {
		shown = shown[:n]
	}
	preview := strings.Join(shown, ", ")
	if total > len(shown) {
		preview += fmt.Sprintf(" (+%d more)", total-len(shown))
	}
	return preview
}

// sortedByImpact orders dependencies by score, highest first, then by path
func sortedByImpact(dependencies map[string]models.FileDependency) []models.FileDependency {
	deps := sortedByPath(dependencies)
	sort.SliceStable(deps, func(i, j int) bool {
		return deps[i].ImpactScore > deps[j].ImpactScore
	})
	return deps
}

func sortedByPath(dependencies map[string]models.FileDependency) []models.FileDependency {
	deps := make([]models.FileDependency, 0, len(dependencies))
	for path, dep := range dependencies {
		if dep.FilePath == "" {
			dep.FilePath = path
		}
		deps = append(deps, dep)
	}
	sort.Slice(deps, func(i, j int) bool {
		return deps[i].FilePath < deps[j].FilePath
	})
	return deps
}

func capEntries(entries []string, limit int) []string {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
