package resume_points

import (
	"math"

	"github.com/meysamhadeli/codai-impact/code_analyzer"
	"github.com/meysamhadeli/codai-impact/code_analyzer/models"
)

// topHighImpactFiles bounds the high-impact paths listed in a summary
const topHighImpactFiles = 5

// DependencySummary aggregates the analysis of a change-set
type DependencySummary struct {
	TotalFiles      int      `json:"total_files" yaml:"total_files"`
	HighImpactCount int      `json:"high_impact_count" yaml:"high_impact_count"`
	FilesWithTests  int      `json:"files_with_tests" yaml:"files_with_tests"`
	AvgImpactScore  float64  `json:"avg_impact_score" yaml:"avg_impact_score"`
	HighImpactFiles []string `json:"high_impact_files" yaml:"high_impact_files"`
}

// Summarize computes aggregate statistics. The average is rounded to one decimal and
// HighImpactFiles lists up to five high-impact paths, highest score first.
func Summarize(dependencies map[string]models.FileDependency) DependencySummary {
	summary := DependencySummary{
		TotalFiles:      len(dependencies),
		HighImpactFiles: []string{},
	}
	if len(dependencies) == 0 {
		return summary
	}

	var total int
	for _, dep := range sortedByImpact(dependencies) {
		total += dep.ImpactScore
		if dep.HasTests {
			summary.FilesWithTests++
		}
		if dep.ImpactScore >= code_analyzer.HighImpactThreshold {
			summary.HighImpactCount++
			if len(summary.HighImpactFiles) < topHighImpactFiles {
				summary.HighImpactFiles = append(summary.HighImpactFiles, dep.FilePath)
			}
		}
	}

	summary.AvgImpactScore = math.Round(float64(total)/float64(len(dependencies))*10) / 10
	return summary
}
