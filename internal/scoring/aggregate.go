package scoring

import (
	"math"

	"candidaterank/internal/types"
)

// Signal weights. They sum to exactly 1.
const (
	DescriptionWeight = 0.60
	TitleWeight       = 0.15
	SkillWeight       = 0.15
	ExperienceWeight  = 0.10
)

// Aggregate combines a breakdown into a final score in [0, 100], rounded to
// two decimals. The project penalty multiplies the weighted sum.
func Aggregate(b types.ScoreBreakdown) float64 {
	raw := clamp01(b.DescriptionSimilarity)*DescriptionWeight +
		clamp01(b.TitleSimilarity)*TitleWeight +
		clamp01(b.SkillMatch)*SkillWeight +
		clamp01(b.ExperienceMatch)*ExperienceWeight

	final := raw * clamp01(b.ProjectPenalty) * 100
	final = math.Round(final*100) / 100
	return math.Max(0, math.Min(100, final))
}
