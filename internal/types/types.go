package types

import "time"

// Job is the posting every candidate in a batch is ranked against
type Job struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Candidate is one applicant in a ranking batch. Candidates are read-only inputs.
type Candidate struct {
	ID              string   `json:"id"`
	Skills          []string `json:"skills,omitempty"`
	ExperienceYears float64  `json:"experience_years"`
	Projects        []string `json:"projects,omitempty"`
}

// ScoreBreakdown holds the four normalized signals, each in [0, 1], plus the
// project penalty multiplier applied after aggregation.
type ScoreBreakdown struct {
	DescriptionSimilarity float64 `json:"semantic_description_similarity"`
	TitleSimilarity       float64 `json:"semantic_title_similarity"`
	SkillMatch            float64 `json:"skill_match_score"`
	ExperienceMatch       float64 `json:"experience_match_score"`
	ProjectPenalty        float64 `json:"project_penalty"`
}

// RankedResult is one scored candidate. FinalScore is in [0, 100].
type RankedResult struct {
	CandidateID string         `json:"candidate_id"`
	FinalScore  float64        `json:"final_score"`
	Breakdown   ScoreBreakdown `json:"breakdown"`

	// Index is the candidate's position in the input batch.
	Index int `json:"-"`
}

// CandidateFailure records why a candidate was left out of a ranking
type CandidateFailure struct {
	CandidateID string `json:"candidate_id"`
	Index       int    `json:"index"`
	Code        string `json:"code"`
	Reason      string `json:"reason"`
}

// RankOutput is the outcome of ranking one batch
type RankOutput struct {
	BatchID  string             `json:"batch_id"`
	Job      Job                `json:"job"`
	Total    int                `json:"total_candidates"`
	Results  []RankedResult     `json:"results"`
	Failures []CandidateFailure `json:"failures,omitempty"`
	Partial  bool               `json:"partial"`
	Duration time.Duration      `json:"duration"`
}
