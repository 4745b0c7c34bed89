package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"candidaterank/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "RankResponse", &RankTextFormatter{})
	registry.RegisterFormatter("markdown", "RankResponse", &RankMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.RankResponse, *types.RankResponse:
		return "RankResponse"
	default:
		return "any"
	}
}

func asRankResponse(data any) (types.RankResponse, error) {
	switch r := data.(type) {
	case types.RankResponse:
		return r, nil
	case *types.RankResponse:
		return *r, nil
	default:
		return types.RankResponse{}, fmt.Errorf("expected RankResponse, got %T", data)
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// RankTextFormatter renders a ranking as an aligned plain-text table
type RankTextFormatter struct{}

func (rtf *RankTextFormatter) Format(data any) (string, error) {
	result, err := asRankResponse(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	output.WriteString("=== CANDIDATE RANKING ===\n")
	fmt.Fprintf(&output, "Job: %s\n", displayTitle(result.JobTitle))
	fmt.Fprintf(&output, "Batch: %s\n", result.BatchID)
	fmt.Fprintf(&output, "Ranked %d of %d candidates\n", len(result.RankedCandidates), result.TotalCandidates)
	if result.Partial {
		output.WriteString("WARNING: the batch deadline was reached; this ranking is partial\n")
	}
	output.WriteString("\n")

	tw := tabwriter.NewWriter(&output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tCANDIDATE\tFINAL\tDESC\tTITLE\tSKILLS\tEXPERIENCE\tPENALTY")
	for i, c := range result.RankedCandidates {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\n",
			i+1, c.CandidateID, c.FinalScore, c.JobDescScore, c.JobTitleScore,
			c.SkillScore, c.ExperienceScore, c.ProjectPenalty)
	}
	if err := tw.Flush(); err != nil {
		return "", err
	}

	if len(result.Failures) > 0 {
		output.WriteString("\n=== NOT RANKED ===\n")
		for _, f := range result.Failures {
			fmt.Fprintf(&output, "- %s (input #%d): %s: %s\n", f.CandidateID, f.Index, f.Code, f.Reason)
		}
	}

	return output.String(), nil
}

func (rtf *RankTextFormatter) SupportedType() string {
	return "RankResponse"
}

// RankMarkdownFormatter renders a ranking as a markdown table
type RankMarkdownFormatter struct{}

func (rmf *RankMarkdownFormatter) Format(data any) (string, error) {
	result, err := asRankResponse(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	fmt.Fprintf(&output, "# Candidate Ranking: %s\n\n", displayTitle(result.JobTitle))
	fmt.Fprintf(&output, "**Batch:** `%s`  \n", result.BatchID)
	fmt.Fprintf(&output, "**Ranked:** %d of %d candidates\n\n", len(result.RankedCandidates), result.TotalCandidates)
	if result.Partial {
		output.WriteString("> **Partial result:** the batch deadline was reached before every candidate was scored.\n\n")
	}

	output.WriteString("| Rank | Candidate | Final | Description | Title | Skills | Experience | Penalty |\n")
	output.WriteString("|---:|---|---:|---:|---:|---:|---:|---:|\n")
	for i, c := range result.RankedCandidates {
		fmt.Fprintf(&output, "| %d | %s | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f |\n",
			i+1, escapeCell(c.CandidateID), c.FinalScore, c.JobDescScore, c.JobTitleScore,
			c.SkillScore, c.ExperienceScore, c.ProjectPenalty)
	}

	if len(result.Failures) > 0 {
		output.WriteString("\n## Not Ranked\n\n")
		for _, f := range result.Failures {
			fmt.Fprintf(&output, "- **%s** (input #%d): `%s` %s\n", escapeCell(f.CandidateID), f.Index, f.Code, f.Reason)
		}
	}

	return output.String(), nil
}

func (rmf *RankMarkdownFormatter) SupportedType() string {
	return "RankResponse"
}

func displayTitle(title string) string {
	if title == "" {
		return "(untitled)"
	}
	return title
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

var GlobalRegistry = NewFormatterRegistry()
