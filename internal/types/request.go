package types

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// CandidateInput is a candidate as submitted by callers. Optional fields may be absent.
type CandidateInput struct {
	ID              string   `json:"id" validate:"required"`
	Skills          []string `json:"skills,omitempty"`
	ExperienceYears *float64 `json:"experience_years,omitempty" validate:"omitempty,gte=0"`
	Projects        []string `json:"projects,omitempty"`
}

// RankRequest is the payload accepted by the HTTP API, the queue worker and the rank command
type RankRequest struct {
	JobTitle       string           `json:"job_title"`
	JobDescription string           `json:"job_description"`
	Candidates     []CandidateInput `json:"candidates" validate:"dive"`
}

// Validate checks the structural constraints of the request. An empty job is
// not a validation failure here; ranking reports it.
func (r *RankRequest) Validate() error {
	return validate.Struct(r)
}

// CheckBatchSize rejects batches larger than limit. A limit of zero or less
// means no limit.
func (r *RankRequest) CheckBatchSize(limit int) error {
	if limit > 0 && len(r.Candidates) > limit {
		return fmt.Errorf("batch has %d candidates, the limit is %d", len(r.Candidates), limit)
	}
	return nil
}

// ToDomain converts the request into the values the engine ranks
func (r *RankRequest) ToDomain() (Job, []Candidate) {
	job := Job{
		Title:       strings.TrimSpace(r.JobTitle),
		Description: strings.TrimSpace(r.JobDescription),
	}

	candidates := make([]Candidate, len(r.Candidates))
	for i, in := range r.Candidates {
		c := Candidate{
			ID:       in.ID,
			Skills:   compact(in.Skills),
			Projects: compact(in.Projects),
		}
		if in.ExperienceYears != nil && !math.IsNaN(*in.ExperienceYears) {
			c.ExperienceYears = math.Max(0, *in.ExperienceYears)
		}
		candidates[i] = c
	}
	return job, candidates
}

// compact trims entries and drops empty ones
func compact(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// RankedCandidate is a ranked result as returned to callers. Component
// scores are percentages rounded to two decimals.
type RankedCandidate struct {
	CandidateID     string  `json:"candidate_id"`
	FinalScore      float64 `json:"final_score"`
	JobDescScore    float64 `json:"job_desc_score"`
	JobTitleScore   float64 `json:"job_title_score"`
	SkillScore      float64 `json:"skill_score"`
	ExperienceScore float64 `json:"experience_score"`
	ProjectPenalty  float64 `json:"project_penalty"`
}

// RankResponse is the response body of a ranking request
type RankResponse struct {
	BatchID          string             `json:"batch_id"`
	JobTitle         string             `json:"job_title"`
	TotalCandidates  int                `json:"total_candidates"`
	RankedCandidates []RankedCandidate  `json:"ranked_candidates"`
	Failures         []CandidateFailure `json:"failures,omitempty"`
	Partial          bool               `json:"partial"`
}

// NewRankResponse builds the caller-facing response from an engine outcome
func NewRankResponse(out *RankOutput) RankResponse {
	ranked := make([]RankedCandidate, len(out.Results))
	for i, r := range out.Results {
		ranked[i] = RankedCandidate{
			CandidateID:     r.CandidateID,
			FinalScore:      r.FinalScore,
			JobDescScore:    percent(r.Breakdown.DescriptionSimilarity),
			JobTitleScore:   percent(r.Breakdown.TitleSimilarity),
			SkillScore:      percent(r.Breakdown.SkillMatch),
			ExperienceScore: percent(r.Breakdown.ExperienceMatch),
			ProjectPenalty:  r.Breakdown.ProjectPenalty,
		}
	}
	return RankResponse{
		BatchID:          out.BatchID,
		JobTitle:         out.Job.Title,
		TotalCandidates:  out.Total,
		RankedCandidates: ranked,
		Failures:         out.Failures,
		Partial:          out.Partial,
	}
}

func percent(v float64) float64 {
	return math.Round(v*100*100) / 100
}

// ErrorResponse is the body returned for failed requests
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
