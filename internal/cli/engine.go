package cli

import (
	"fmt"

	"candidaterank/internal/config"
	"candidaterank/internal/embedding"
	"candidaterank/internal/errors"
	"candidaterank/internal/scoring"
)

// newEngine resolves secrets, loads the embedding provider once and builds
// the ranking engine around it. The caller owns the returned provider.
func newEngine(cfg *config.Config, recorder scoring.Recorder, logger *errors.Logger) (*scoring.Engine, embedding.Provider, error) {
	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		return nil, nil, fmt.Errorf("failed to apply vault secrets: %w", err)
	}

	provider, err := embedding.NewProvider(cfg.Embedding, logger)
	if err != nil {
		return nil, nil, err
	}

	engine := scoring.NewEngine(provider, engineOptions(cfg.Scoring, recorder, logger))
	logger.Info("Ranking engine ready",
		"provider", provider.Name(),
		"dimension", provider.Dimension(),
		"workers", engine.Workers(),
		"batch_timeout", engine.BatchTimeout())
	return engine, provider, nil
}

func engineOptions(sc config.ScoringConfig, recorder scoring.Recorder, logger *errors.Logger) scoring.Options {
	var vocab []scoring.SkillTerm
	for _, term := range sc.Skills {
		vocab = append(vocab, scoring.SkillTerm{Name: term.Name, Aliases: term.Aliases, Exact: term.Exact})
	}

	return scoring.Options{
		Workers:                sc.Workers,
		BatchTimeout:           sc.BatchTimeout,
		DefaultExperienceYears: sc.DefaultExperienceYears,
		ProjectPenalty:         sc.ProjectPenalty,
		Extractor:              scoring.NewKeywordExtractor(vocab),
		Recorder:               recorder,
		Logger:                 logger,
	}
}

func closeProvider(p embedding.Provider, logger *errors.Logger) {
	if err := p.Close(); err != nil {
		logger.Warn("Failed to close embedding provider", "error", err)
	}
}
