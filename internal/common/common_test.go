package common

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"candidaterank/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndReadFiles(t *testing.T) {
	dir := t.TempDir()
	payload := filepath.Join(dir, "batch.json")
	require.NoError(t, os.WriteFile(payload, []byte(`{"job_title":"x"}`), 0600))

	fp := NewFileProcessor(nil)

	t.Run("reads content", func(t *testing.T) {
		contents, err := fp.ValidateAndReadFiles(payload)
		require.NoError(t, err)
		assert.Equal(t, []string{`{"job_title":"x"}`}, contents)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := fp.ValidateAndReadFiles(filepath.Join(dir, "nope.json"))
		require.Error(t, err)
		assert.Equal(t, "INVALID_INPUT_FILE", errors.CodeOf(err))
	})

	t.Run("directory", func(t *testing.T) {
		_, err := fp.ValidateAndReadFiles(dir)
		assert.ErrorContains(t, err, "Invalid file")
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := fp.ValidateAndReadFiles("")
		assert.Error(t, err)
	})
}

func TestReadFileNotFound(t *testing.T) {
	_, err := NewFileProcessor(nil).ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, errors.ErrCodeFileNotFound, errors.CodeOf(err))
}

func TestIsPayloadFile(t *testing.T) {
	assert.True(t, IsPayloadFile("batch.json"))
	assert.True(t, IsPayloadFile("BATCH.JSON"))
	assert.False(t, IsPayloadFile("resume.txt"))
	assert.False(t, IsPayloadFile("noext"))
}

func TestHandleOutput(t *testing.T) {
	data := map[string]int{"ranked": 2}

	t.Run("stdout", func(t *testing.T) {
		var buf bytes.Buffer
		oh := NewOutputHandler(nil)
		oh.stdout = &buf

		require.NoError(t, oh.HandleOutput(data, CommandConfig{OutputFormat: "json"}))
		assert.Contains(t, buf.String(), `"ranked": 2`)
	})

	t.Run("file in new directory", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "nested", "ranking.json")
		require.NoError(t, NewOutputHandler(nil).HandleOutput(data, CommandConfig{OutputFile: out, OutputFormat: "json"}))

		written, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(written), `"ranked": 2`)
	})

	t.Run("unknown format", func(t *testing.T) {
		err := NewOutputHandler(nil).HandleOutput(data, CommandConfig{OutputFormat: "xml"})
		assert.Equal(t, errors.ErrCodeInvalidFormat, errors.CodeOf(err))
	})
}

func TestRunFileCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	out := filepath.Join(dir, "out.json")
	require.NoError(t, os.WriteFile(in, []byte("a b c"), 0600))

	countWords := func(_ context.Context, s string) (map[string]int, error) {
		return map[string]int{"words": len(strings.Fields(s))}, nil
	}
	first := func(contents []string) (string, error) { return contents[0], nil }

	err := RunFileCommand(context.Background(), nil, CommandConfig{OutputFile: out, OutputFormat: "json"},
		[]string{in}, first, countWords, nil)
	require.NoError(t, err)

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(written), `"words": 3`)

	t.Run("operation error is returned", func(t *testing.T) {
		failing := func(context.Context, string) (map[string]int, error) { return nil, fmt.Errorf("boom") }
		err := RunFileCommand(context.Background(), nil, CommandConfig{OutputFormat: "json"},
			[]string{in}, first, failing, nil)
		assert.EqualError(t, err, "boom")
	})
}
