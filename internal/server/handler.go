package server

import (
	"net/http"

	"candidaterank/internal/errors"
	"candidaterank/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// rankCandidatesHandler ranks the posted batch and returns it best first
func (s *Server) rankCandidatesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, "Method not allowed", "use POST", http.StatusMethodNotAllowed)
		return
	}

	ctx, span := s.observability.Tracer("candidaterank.api").Start(r.Context(), "api.rank_candidates")
	defer span.End()

	var req types.RankRequest
	if err := parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "validation"))
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	if err := req.Validate(); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "validation"))
		writeErrorResponse(w, errors.ErrCodeInvalidRequest, err.Error(), http.StatusBadRequest)
		return
	}

	if err := req.CheckBatchSize(s.MaxCandidates); err != nil {
		span.SetAttributes(attribute.String("error.type", "validation"))
		writeErrorResponse(w, errors.ErrCodeInvalidRequest, err.Error(), http.StatusBadRequest)
		return
	}

	span.SetAttributes(
		attribute.Int("request.candidates", len(req.Candidates)),
		attribute.Int("request.job_length", len(req.JobDescription)),
	)

	job, candidates := req.ToDomain()
	out, err := s.ranker.Rank(ctx, job, candidates)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ranking failed")

		if errors.IsBatchFatal(err) {
			appErr, _ := errors.AsAppError(err)
			writeErrorResponse(w, appErr.Code, appErr.Message, http.StatusUnprocessableEntity)
			return
		}

		s.Logger.LogError(err, "Ranking request failed", "candidates", len(candidates))
		writeErrorResponse(w, errors.CodeOf(err), "ranking failed", http.StatusInternalServerError)
		return
	}

	span.SetAttributes(
		attribute.String("batch.id", out.BatchID),
		attribute.Bool("batch.partial", out.Partial),
	)
	writeJSON(w, http.StatusOK, types.NewRankResponse(out))
}
