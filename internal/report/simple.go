package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/nao1215/pageloader/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose also lists successfully downloaded resources.
	verbose bool

	caser cases.Caser
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists every resource, not only the failed ones.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		caser:      cases.Title(language.English),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs result in human-readable format.
func (w *SimpleWriter) Write(result *model.LoadResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	w.writeSummary(&sb, result)
	w.writeResources(&sb, result)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, result *model.LoadResult) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                        PAGELOADER REPORT\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Page:       %s\n", result.URL)
	fmt.Fprintf(sb, "Load ID:    %s\n", result.ID)
	fmt.Fprintf(sb, "Started:    %s\n", result.StartedAt.Format(timeFormat))
	fmt.Fprintf(sb, "Duration:   %s\n", formatDuration(result.StartedAt, result.FinishedAt))
	if result.DocumentPath != "" {
		fmt.Fprintf(sb, "Document:   %s\n", result.DocumentPath)
	}
	if result.ResourceDir != "" {
		fmt.Fprintf(sb, "Resources:  %s\n", result.ResourceDir)
	}
	fmt.Fprintf(sb, "Status:     %s\n", statusText(result))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, result *model.LoadResult) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("RESOURCE SUMMARY\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")

	counts := map[model.ResourceStatus]int{
		model.StatusDownloaded: result.Succeeded(),
		model.StatusFailed:     result.FailedCount(),
	}
	for _, status := range []model.ResourceStatus{model.StatusDownloaded, model.StatusFailed} {
		fmt.Fprintf(sb, "  %-11s %d\n", w.caser.String(string(status))+":", counts[status])
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  %-11s %d resources, %d bytes\n", "Total:", len(result.Resources), result.TotalBytes())
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeResources(sb *strings.Builder, result *model.LoadResult) {
	if len(result.Resources) == 0 {
		return
	}
	if !w.verbose && !result.HasFailures() {
		return
	}

	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("RESOURCES\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")

	for _, res := range result.Resources {
		if res.Failed() {
			fmt.Fprintf(sb, "  [x] %s\n", res.Link)
			fmt.Fprintf(sb, "      URL:   %s\n", res.URL)
			fmt.Fprintf(sb, "      Error: %s\n", res.Error)
			continue
		}
		if w.verbose {
			fmt.Fprintf(sb, "  [+] %s -> %s (%d bytes)\n", res.Link, filepath.Base(res.LocalPath), res.Bytes)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}

// WriteHistory outputs stored loads as an aligned table.
func (w *SimpleWriter) WriteHistory(loads []model.LoadSummary) (int, error) {
	if len(loads) == 0 {
		return io.WriteString(w.output, "No loads recorded.\n")
	}

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tRESOURCES\tFAILED\tURL")
	for _, l := range loads {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			l.ID,
			l.StartedAt.Local().Format(timeFormat),
			w.caser.String(summaryStatus(l)),
			l.Resources,
			l.Failed,
			l.URL,
		)
	}
	if err := tw.Flush(); err != nil {
		return 0, err
	}

	return io.WriteString(w.output, sb.String())
}
