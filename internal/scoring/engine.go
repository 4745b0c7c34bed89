package scoring

import (
	"cmp"
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"candidaterank/internal/embedding"
	"candidaterank/internal/errors"
	"candidaterank/internal/types"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// Batch outcomes reported to the Recorder
const (
	OutcomeComplete = "complete"
	OutcomePartial  = "partial"
	OutcomeFatal    = "fatal"
	OutcomeError    = "error"
)

// Recorder receives ranking measurements
type Recorder interface {
	RecordBatch(ctx context.Context, outcome string, candidates int, duration time.Duration)
	RecordCandidate(ctx context.Context, finalScore float64)
	RecordFailure(ctx context.Context, code string)
}

type nopRecorder struct{}

func (nopRecorder) RecordBatch(context.Context, string, int, time.Duration) {}
func (nopRecorder) RecordCandidate(context.Context, float64)                {}
func (nopRecorder) RecordFailure(context.Context, string)                   {}

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	Workers                int
	BatchTimeout           time.Duration
	DefaultExperienceYears int
	ProjectPenalty         float64

	// Extractor defaults to a KeywordExtractor over DefaultVocabulary.
	Extractor HintExtractor
	// Canonicalizer defaults to Extractor when it implements SkillCanonicalizer.
	Canonicalizer SkillCanonicalizer

	Recorder Recorder
	Logger   *errors.Logger
}

// Engine ranks candidates for a job. It holds no per-request state and is
// safe for concurrent use.
type Engine struct {
	similarity     *SimilarityScorer
	extractor      HintExtractor
	canon          SkillCanonicalizer
	mentioner      SkillMentioner
	workers        int
	batchTimeout   time.Duration
	defaultYears   int
	projectPenalty float64
	recorder       Recorder
	logger         *errors.Logger
}

// NewEngine builds an engine around a provider that was loaded once at startup
func NewEngine(provider embedding.Provider, opts Options) *Engine {
	e := &Engine{
		similarity:     NewSimilarityScorer(provider),
		extractor:      opts.Extractor,
		canon:          opts.Canonicalizer,
		workers:        opts.Workers,
		batchTimeout:   opts.BatchTimeout,
		defaultYears:   opts.DefaultExperienceYears,
		projectPenalty: opts.ProjectPenalty,
		recorder:       opts.Recorder,
		logger:         opts.Logger,
	}

	if e.extractor == nil {
		e.extractor = NewKeywordExtractor(nil)
	}
	if e.canon == nil {
		if c, ok := e.extractor.(SkillCanonicalizer); ok {
			e.canon = c
		}
	}
	if m, ok := e.extractor.(SkillMentioner); ok {
		e.mentioner = m
	}
	if e.workers <= 0 {
		e.workers = 4
	}
	if e.batchTimeout <= 0 {
		e.batchTimeout = 30 * time.Second
	}
	if e.defaultYears <= 0 {
		e.defaultYears = DefaultExperienceYears
	}
	if e.projectPenalty <= 0 || e.projectPenalty > 1 {
		e.projectPenalty = DefaultProjectPenalty
	}
	if e.recorder == nil {
		e.recorder = nopRecorder{}
	}
	if e.logger == nil {
		e.logger = errors.NewNopLogger()
	}
	return e
}

// Workers returns the per-batch parallelism
func (e *Engine) Workers() int { return e.workers }

// BatchTimeout returns the per-batch deadline
func (e *Engine) BatchTimeout() time.Duration { return e.batchTimeout }

// jobContext is computed once per batch and shared read-only by all candidates
type jobContext struct {
	description    string
	titleVec       []float32
	descriptionVec []float32
	hints          JobHints
	targetYears    int
}

// candidateOutcome holds either a result or a failure for one input slot
type candidateOutcome struct {
	result  *types.RankedResult
	failure *types.CandidateFailure
}

// Rank scores every candidate against job and returns them best first.
// Ties keep input order. Candidates that fail are reported in Failures;
// candidates not scored before the batch deadline are reported with
// BATCH_DEADLINE_EXCEEDED and mark the output Partial.
func (e *Engine) Rank(ctx context.Context, job types.Job, candidates []types.Candidate) (*types.RankOutput, error) {
	start := time.Now()
	batchID := uuid.NewString()

	ctx, span := otel.Tracer("candidaterank.scoring").Start(ctx, "engine.rank")
	defer span.End()
	span.SetAttributes(
		attribute.String("batch.id", batchID),
		attribute.Int("batch.candidates", len(candidates)),
	)

	logger := e.logger.With("batch_id", batchID)

	job.Title = strings.TrimSpace(job.Title)
	job.Description = strings.TrimSpace(job.Description)
	if job.Title == "" && job.Description == "" {
		err := errors.NewScoringError(errors.ErrCodeEmptyJob, "job has no title and no description", nil).
			WithContext("batch_id", batchID)
		span.SetStatus(codes.Error, err.Code)
		e.recorder.RecordBatch(ctx, OutcomeFatal, len(candidates), time.Since(start))
		return nil, err
	}

	out := &types.RankOutput{
		BatchID: batchID,
		Job:     job,
		Total:   len(candidates),
		Results: []types.RankedResult{},
	}
	if len(candidates) == 0 {
		out.Duration = time.Since(start)
		e.recorder.RecordBatch(ctx, OutcomeComplete, 0, out.Duration)
		return out, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.batchTimeout)
	defer cancel()

	jc, err := e.prepareJob(ctx, job)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "job embedding failed")
		logger.LogError(err, "Failed to embed job")
		e.recorder.RecordBatch(ctx, OutcomeError, len(candidates), time.Since(start))
		return nil, fmt.Errorf("embedding job: %w", err)
	}

	outcomes := make([]candidateOutcome, len(candidates))
	var g errgroup.Group
	g.SetLimit(e.workers)
	for i := range candidates {
		g.Go(func() error {
			outcomes[i] = e.scoreCandidate(ctx, i, candidates[i], jc)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		switch {
		case o.result != nil:
			out.Results = append(out.Results, *o.result)
			e.recorder.RecordCandidate(ctx, o.result.FinalScore)
		case o.failure != nil:
			out.Failures = append(out.Failures, *o.failure)
			e.recorder.RecordFailure(ctx, o.failure.Code)
			if o.failure.Code == errors.ErrCodeBatchDeadlineExceeded {
				out.Partial = true
			}
		}
	}

	slices.SortStableFunc(out.Results, func(a, b types.RankedResult) int {
		return cmp.Compare(b.FinalScore, a.FinalScore)
	})
	out.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("batch.ranked", len(out.Results)),
		attribute.Int("batch.failed", len(out.Failures)),
		attribute.Bool("batch.partial", out.Partial),
	)

	if len(out.Results) == 0 {
		err := errors.NewScoringError(errors.ErrCodeNoRankableCandidates,
			fmt.Sprintf("none of the %d candidates could be scored", len(candidates)), nil).
			WithContext("batch_id", batchID).
			WithContext("failures", out.Failures)
		span.SetStatus(codes.Error, err.Code)
		e.recorder.RecordBatch(ctx, OutcomeFatal, len(candidates), out.Duration)
		return nil, err
	}

	outcome := OutcomeComplete
	if out.Partial {
		outcome = OutcomePartial
	}
	e.recorder.RecordBatch(ctx, outcome, len(candidates), out.Duration)

	logger.Info("Ranked candidates",
		"total", out.Total,
		"ranked", len(out.Results),
		"failed", len(out.Failures),
		"partial", out.Partial,
		"duration_ms", out.Duration.Milliseconds())

	return out, nil
}

func (e *Engine) prepareJob(ctx context.Context, job types.Job) (*jobContext, error) {
	titleVec, err := e.similarity.Embed(ctx, job.Title)
	if err != nil {
		return nil, err
	}
	descriptionVec, err := e.similarity.Embed(ctx, job.Description)
	if err != nil {
		return nil, err
	}

	hints := e.extractor.Extract(job.Description)
	target := e.defaultYears
	if hints.HasTargetYears {
		target = hints.TargetYears
	}

	return &jobContext{
		description:    job.Description,
		titleVec:       titleVec,
		descriptionVec: descriptionVec,
		hints:          hints,
		targetYears:    target,
	}, nil
}

// scoreCandidate never panics past its boundary; any failure becomes a tagged outcome
func (e *Engine) scoreCandidate(ctx context.Context, index int, c types.Candidate, jc *jobContext) (outcome candidateOutcome) {
	if err := ctx.Err(); err != nil {
		return e.fail(index, c, errors.ErrCodeBatchDeadlineExceeded, "not scored before the batch deadline")
	}

	ctx, span := otel.Tracer("candidaterank.scoring").Start(ctx, "engine.score_candidate")
	defer span.End()
	span.SetAttributes(
		attribute.String("candidate.id", c.ID),
		attribute.Int("candidate.index", index),
	)

	defer func() {
		if r := recover(); r != nil {
			span.SetStatus(codes.Error, "panic")
			outcome = e.fail(index, c, errors.ErrCodeCandidateFailed, fmt.Sprintf("panic while scoring: %v", r))
		}
	}()

	breakdown, err := e.breakdown(ctx, c, jc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scoring failed")
		if ctx.Err() != nil || stderrors.Is(err, context.DeadlineExceeded) {
			return e.fail(index, c, errors.ErrCodeBatchDeadlineExceeded, "batch deadline reached while scoring")
		}
		return e.fail(index, c, errors.ErrCodeCandidateFailed, err.Error())
	}

	final := Aggregate(breakdown)
	span.SetAttributes(attribute.Float64("candidate.final_score", final))

	return candidateOutcome{result: &types.RankedResult{
		CandidateID: c.ID,
		FinalScore:  final,
		Breakdown:   breakdown,
		Index:       index,
	}}
}

// breakdown computes the four signals and the penalty for one candidate
func (e *Engine) breakdown(ctx context.Context, c types.Candidate, jc *jobContext) (types.ScoreBreakdown, error) {
	profileVec, err := e.similarity.Embed(ctx, ProfileText(c))
	if err != nil {
		return types.ScoreBreakdown{}, err
	}

	descriptionSim, err := Compare(jc.descriptionVec, profileVec)
	if err != nil {
		return types.ScoreBreakdown{}, err
	}
	titleSim, err := Compare(jc.titleVec, profileVec)
	if err != nil {
		return types.ScoreBreakdown{}, err
	}

	return types.ScoreBreakdown{
		DescriptionSimilarity: descriptionSim,
		TitleSimilarity:       titleSim,
		SkillMatch:            SkillScore(e.jobSkills(c, jc), c.Skills, e.canon),
		ExperienceMatch:       ExperienceScore(c.ExperienceYears, jc.targetYears),
		ProjectPenalty:        ProjectPenalty(c.Projects, e.projectPenalty),
	}, nil
}

// jobSkills is the batch's vocabulary skills plus any of the candidate's own
// skills that the description names. It reads only this candidate's data.
func (e *Engine) jobSkills(c types.Candidate, jc *jobContext) []string {
	if e.mentioner == nil || len(c.Skills) == 0 {
		return jc.hints.Skills
	}
	extra := e.mentioner.Mentions(jc.description, c.Skills)
	if len(extra) == 0 {
		return jc.hints.Skills
	}

	skills := slices.Clone(jc.hints.Skills)
	for _, s := range extra {
		if !slices.Contains(skills, s) {
			skills = append(skills, s)
		}
	}
	return skills
}

func (e *Engine) fail(index int, c types.Candidate, code, reason string) candidateOutcome {
	e.logger.Warn("Candidate excluded from ranking",
		"candidate_id", c.ID,
		"index", index,
		"code", code,
		"reason", reason)
	return candidateOutcome{failure: &types.CandidateFailure{
		CandidateID: c.ID,
		Index:       index,
		Code:        code,
		Reason:      reason,
	}}
}
