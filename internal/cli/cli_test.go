package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"candidaterank/internal/config"
	"candidaterank/internal/errors"
	"candidaterank/internal/types"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRankPayload(t *testing.T) {
	tests := []struct {
		name     string
		contents []string
		wantCode string
	}{
		{name: "valid", contents: []string{`{"job_title":"Go Dev","job_description":"Go","candidates":[{"id":"a"}]}`}},
		{name: "not json", contents: []string{`{`}, wantCode: errors.ErrCodeInvalidFormat},
		{name: "candidate without id", contents: []string{`{"job_title":"Go","candidates":[{"skills":["go"]}]}`}, wantCode: errors.ErrCodeInvalidRequest},
		{name: "negative experience", contents: []string{`{"job_title":"Go","candidates":[{"id":"a","experience_years":-1}]}`}, wantCode: errors.ErrCodeInvalidRequest},
		{name: "batch over limit", contents: []string{`{"job_title":"Go","candidates":[{"id":"a"},{"id":"b"},{"id":"c"}]}`}, wantCode: errors.ErrCodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := parseRankPayload(tt.contents, 2)
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, "Go Dev", req.JobTitle)
				assert.Len(t, req.Candidates, 1)
				return
			}
			assert.Equal(t, tt.wantCode, errors.CodeOf(err))
		})
	}

	_, err := parseRankPayload(nil, 0)
	assert.Error(t, err)
}

func TestEngineOptions(t *testing.T) {
	sc := config.ScoringConfig{
		Workers:                3,
		BatchTimeout:           time.Second,
		DefaultExperienceYears: 5,
		ProjectPenalty:         0.8,
		Skills:                 []config.SkillTerm{{Name: "Site Reliability", Aliases: []string{"SRE"}}},
	}

	opts := engineOptions(sc, nil, errors.NewNopLogger())
	assert.Equal(t, 3, opts.Workers)
	assert.Equal(t, time.Second, opts.BatchTimeout)
	assert.Equal(t, 5, opts.DefaultExperienceYears)
	assert.Equal(t, 0.8, opts.ProjectPenalty)
	require.NotNil(t, opts.Extractor)
	assert.Equal(t, []string{"site reliability"}, opts.Extractor.Extract("SRE wanted").Skills)
}

func TestApplyServeFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "serve"}
	cmd.Flags().StringP("port", "p", "", "")
	cmd.Flags().String("host", "", "")
	cmd.Flags().String("tls-mode", "", "")
	cmd.Flags().String("cert-file", "", "")
	cmd.Flags().String("key-file", "", "")
	require.NoError(t, cmd.Flags().Parse([]string{"--port", "9090", "--tls-mode", "disabled"}))

	sc := config.ServerConfig{Host: "127.0.0.1", Port: "8080", TLS: config.TLSConfig{Mode: "server", CertFile: "c.pem"}}
	applyServeFlags(cmd, &sc)

	assert.Equal(t, "9090", sc.Port)
	assert.Equal(t, "127.0.0.1", sc.Host)
	assert.Equal(t, "disabled", sc.TLS.Mode)
	assert.Equal(t, "c.pem", sc.TLS.CertFile)
}

func TestRankCommandWithLocalProvider(t *testing.T) {
	dir := t.TempDir()
	payload := filepath.Join(dir, "batch.json")
	out := filepath.Join(dir, "ranking.json")
	require.NoError(t, os.WriteFile(payload, []byte(`{
		"job_title": "Data Scientist",
		"job_description": "Python ML engineer with 2+ years experience",
		"candidates": [
			{"id": "C2", "skills": ["Java"], "experience_years": 1},
			{"id": "C1", "skills": ["Python", "ML"], "experience_years": 3, "projects": ["Recommendation engine"]}
		]
	}`), 0600))

	cfg := &config.Config{
		Embedding: config.EmbeddingConfig{Provider: "local", Dimensions: 128, Timeout: time.Second},
		Scoring:   config.ScoringConfig{Workers: 2, BatchTimeout: 5 * time.Second, DefaultExperienceYears: 2, ProjectPenalty: 0.9},
		App:       config.AppConfig{DefaultFormat: "json", SupportedFormats: []string{"json", "text", "markdown"}},
	}

	ctx := context.WithValue(context.Background(), configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, errors.NewNopLogger())

	rankConfig.OutputFile = ""
	rankConfig.OutputFormat = ""
	t.Cleanup(func() { rankConfig.OutputFile, rankConfig.OutputFormat = "", "" })

	rootCmd.SetArgs([]string{"rank", payload, "-o", out})
	rootCmd.SetOut(&bytes.Buffer{})
	require.NoError(t, rootCmd.ExecuteContext(ctx))

	written, err := os.ReadFile(out)
	require.NoError(t, err)

	var resp types.RankResponse
	require.NoError(t, json.Unmarshal(written, &resp))
	require.Len(t, resp.RankedCandidates, 2)
	assert.Equal(t, 2, resp.TotalCandidates)
	assert.Equal(t, "C1", resp.RankedCandidates[0].CandidateID)
	assert.Equal(t, 1.0, resp.RankedCandidates[0].ProjectPenalty)
	assert.Equal(t, 0.9, resp.RankedCandidates[1].ProjectPenalty)
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, buf.String(), "candidaterank version "+Version)
}
