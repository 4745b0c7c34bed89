package scoring

import "math"

const (
	// neutralSkillScore is used when the job names no recognizable skills
	neutralSkillScore = 0.5

	// DefaultProjectPenalty multiplies the final score of candidates without projects
	DefaultProjectPenalty = 0.9

	// DefaultExperienceYears is the target when the description states none
	DefaultExperienceYears = 2
)

// SkillScore is the share of job skills the candidate declares. Candidate
// skills are canonicalized before comparison. A job without skills scores
// neutrally for everyone.
func SkillScore(jobSkills, candidateSkills []string, canon SkillCanonicalizer) float64 {
	if len(jobSkills) == 0 {
		return neutralSkillScore
	}

	have := make(map[string]struct{}, len(candidateSkills))
	for _, s := range candidateSkills {
		if canon != nil {
			s = canon.Canonical(s)
		} else {
			s = normalizeSkill(s)
		}
		if s != "" {
			have[s] = struct{}{}
		}
	}

	matched := 0
	for _, s := range jobSkills {
		if _, ok := have[s]; ok {
			matched++
		}
	}
	return clamp01(float64(matched) / float64(max(1, len(jobSkills))))
}

// ExperienceScore rewards closeness to the target in either direction:
// 1 - min(1, |years-target|/target). With a zero target any experience
// scores 1 and none scores 0.5. Negative or NaN years count as zero.
func ExperienceScore(years float64, target int) float64 {
	if math.IsNaN(years) || years < 0 {
		years = 0
	}
	if target <= 0 {
		if years > 0 {
			return 1
		}
		return 0.5
	}

	t := float64(target)
	return clamp01(1 - math.Min(1, math.Abs(years-t)/t))
}

// ProjectPenalty returns penalty for a candidate with no projects and 1 otherwise
func ProjectPenalty(projects []string, penalty float64) float64 {
	if len(projects) > 0 {
		return 1
	}
	return clamp01(penalty)
}
