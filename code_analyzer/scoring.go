package code_analyzer

// Impact thresholds shared with the resume point enhancer
const (
	HighImpactThreshold   = 70
	MediumImpactThreshold = 50

	complexImportsThreshold = 10
)

// ImpactLevel names the risk bucket of a score
type ImpactLevel string

const (
	ImpactHigh   ImpactLevel = "high"
	ImpactMedium ImpactLevel = "medium"
	ImpactLow    ImpactLevel = "low"
)

// CalculateImpactScore maps usage, test presence and import count to a score in [0, 100].
func CalculateImpactScore(usedByCount int, hasTests bool, importsCount int) int {
	var score int
	switch {
	case usedByCount <= 0:
		score = 10
	case usedByCount <= 2:
		score = 30
	case usedByCount <= 5:
		score = 50
	case usedByCount <= 10:
		score = 70
	default:
		score = 90
	}

	if hasTests {
		score += 10
	}

	// Many imports signal a complex module
	if importsCount > complexImportsThreshold {
		score += 5
	}

	return min(max(score, 0), 100)
}

// LevelForScore returns the impact level of a score.
func LevelForScore(score int) ImpactLevel {
	switch {
	case score >= HighImpactThreshold:
		return ImpactHigh
	case score >= MediumImpactThreshold:
		return ImpactMedium
	default:
		return ImpactLow
	}
}
