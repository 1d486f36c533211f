package report

import (
	"io"
	"time"

	"github.com/nao1215/pageloader/internal/model"
)

// Writer renders load results and history to an output.
type Writer interface {
	// Write outputs one load result.
	Write(result *model.LoadResult) (int, error)

	// WriteHistory outputs a list of stored loads.
	WriteHistory(loads []model.LoadSummary) (int, error)
}

// Format selects a Writer implementation.
type Format string

const (
	// FormatText is the plain text format.
	FormatText Format = "text"
	// FormatJSON is the JSON format.
	FormatJSON Format = "json"
	// FormatMarkdown is the Markdown format.
	FormatMarkdown Format = "markdown"
)

// FormatFromFlags maps the --json and --markdown flags to a Format.
func FormatFromFlags(jsonReport, markdownReport bool) Format {
	switch {
	case jsonReport:
		return FormatJSON
	case markdownReport:
		return FormatMarkdown
	default:
		return FormatText
	}
}

// New returns the Writer for format. version is embedded in JSON output.
func New(output io.Writer, format Format, version string) Writer {
	switch format {
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint(), WithVersion(version))
	case FormatMarkdown:
		return NewMarkdownWriter(output)
	default:
		return NewSimpleWriter(output)
	}
}

// baseWriter holds the output shared by all writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusText describes the overall outcome of result.
func statusText(result *model.LoadResult) string {
	switch {
	case !result.Complete():
		return "Error - " + result.Error
	case result.HasFailures():
		return "Complete with failed resources"
	default:
		return "Complete"
	}
}

// summaryStatus is statusText for a stored load.
func summaryStatus(s model.LoadSummary) string {
	switch {
	case s.Error != "":
		return "error"
	case s.Failed > 0:
		return "partial"
	default:
		return "complete"
	}
}

// formatDuration returns the elapsed time between start and end rounded to
// milliseconds, or "-" when either is unknown.
func formatDuration(start, end time.Time) string {
	if start.IsZero() || end.IsZero() {
		return "-"
	}
	return end.Sub(start).Round(time.Millisecond).String()
}

// timeFormat is used for timestamps in text and Markdown output.
const timeFormat = "2006-01-02 15:04:05 MST"
