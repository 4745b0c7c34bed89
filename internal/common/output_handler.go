package common

import (
	"fmt"
	"io"
	"os"
	"slices"

	"candidaterank/internal/errors"
	"candidaterank/internal/formatters"
)

// CommandConfig holds common configuration for commands
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
}

// OutputHandler handles formatting and writing output
type OutputHandler struct {
	fileProcessor *FileProcessor
	registry      *formatters.FormatterRegistry
	logger        *errors.Logger
	stdout        io.Writer
}

// NewOutputHandler creates a new output handler
func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	fp := NewFileProcessor(logger)
	return &OutputHandler{
		fileProcessor: fp,
		registry:      formatters.GlobalRegistry,
		logger:        fp.logger,
		stdout:        os.Stdout,
	}
}

// HandleOutput formats data and writes it to the specified output
func (oh *OutputHandler) HandleOutput(data any, config CommandConfig) error {
	if err := oh.fileProcessor.ValidateOutputFile(config.OutputFile); err != nil {
		return err
	}

	output, err := oh.registry.Format(data, config.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", config.OutputFormat), err)
	}

	if config.OutputFile == "" {
		_, err = io.WriteString(oh.stdout, output)
		return err
	}

	if err := oh.fileProcessor.WriteFile(config.OutputFile, output); err != nil {
		return err
	}
	oh.logger.Info("Output written successfully",
		"file", config.OutputFile, "format", config.OutputFormat)
	return nil
}

// GetSupportedFormats returns all supported output formats
func (oh *OutputHandler) GetSupportedFormats() []string {
	return oh.registry.GetSupportedFormats()
}

// ValidateOutputFormat checks format against the configured formats and the
// formats the registry can render. An empty configured list allows every
// registered format.
func ValidateOutputFormat(format string, configured []string) error {
	if len(configured) > 0 && !slices.Contains(configured, format) {
		return fmt.Errorf("unsupported output format '%s'. Supported formats: %v", format, configured)
	}
	if !slices.Contains(formatters.GlobalRegistry.GetSupportedFormats(), format) {
		return fmt.Errorf("no formatter for output format '%s'. Available formats: %v",
			format, formatters.GlobalRegistry.GetSupportedFormats())
	}
	return nil
}
