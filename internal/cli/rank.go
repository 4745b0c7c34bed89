package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"candidaterank/internal/common"
	"candidaterank/internal/errors"
	"candidaterank/internal/types"

	"github.com/spf13/cobra"
)

var rankCmd = &cobra.Command{
	Use:   "rank [payload-file]",
	Short: "Rank the candidates in a request payload file",
	Long: `Rank the candidates in a JSON payload against its job posting.
The payload has the same shape as the body of POST /rank-candidates:

  {"job_title": "...", "job_description": "...",
   "candidates": [{"id": "...", "skills": [...], "experience_years": 3, "projects": [...]}]}`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if rankConfig.OutputFormat == "" {
			rankConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(rankConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runRank,
}

var rankConfig common.CommandConfig

func init() {
	rankCmd.Flags().StringVarP(&rankConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	rankCmd.Flags().StringVar(&rankConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = rankCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

func runRank(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	engine, provider, err := newEngine(cfg, nil, logger)
	if err != nil {
		return err
	}
	defer closeProvider(provider, logger)

	logDetails := func(req types.RankRequest, cc common.CommandConfig) {
		logger.Info("Starting candidate ranking",
			"job_title", req.JobTitle,
			"candidates", len(req.Candidates),
			"output_format", cc.OutputFormat)
	}

	rankOperation := func(ctx context.Context, req types.RankRequest) (types.RankResponse, error) {
		job, candidates := req.ToDomain()
		out, err := engine.Rank(ctx, job, candidates)
		if err != nil {
			return types.RankResponse{}, err
		}
		return types.NewRankResponse(out), nil
	}

	return common.RunFileCommand(
		cmd.Context(),
		logger,
		rankConfig,
		args,
		func(contents []string) (types.RankRequest, error) {
			return parseRankPayload(contents, cfg.Server.MaxCandidates)
		},
		rankOperation,
		logDetails,
	)
}

// parseRankPayload decodes and validates a single request payload
func parseRankPayload(contents []string, maxCandidates int) (types.RankRequest, error) {
	if len(contents) != 1 {
		return types.RankRequest{}, fmt.Errorf("expected 1 payload file, got %d", len(contents))
	}

	var req types.RankRequest
	if err := json.Unmarshal([]byte(contents[0]), &req); err != nil {
		return types.RankRequest{}, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			"Payload is not valid JSON", err)
	}
	if err := req.Validate(); err != nil {
		return types.RankRequest{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Payload failed validation", err)
	}
	if err := req.CheckBatchSize(maxCandidates); err != nil {
		return types.RankRequest{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Payload exceeds the batch size limit", err)
	}
	return req, nil
}
