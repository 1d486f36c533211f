package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/pageloader/internal/model"
)

// MarkdownWriter outputs reports in Markdown format for sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs result in Markdown format.
func (w *MarkdownWriter) Write(result *model.LoadResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeSummary(md, result)
	w.writeFailed(md, result)
	w.writeDownloaded(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.LoadResult) {
	md.H1("Page Load Report")
	md.PlainText("")

	rows := [][]string{
		{"Page", "`" + result.URL + "`"},
		{"Load ID", "`" + result.ID + "`"},
		{"Started", result.StartedAt.Format(timeFormat)},
		{"Duration", formatDuration(result.StartedAt, result.FinishedAt)},
	}
	if result.DocumentPath != "" {
		rows = append(rows, []string{"Document", "`" + result.DocumentPath + "`"})
	}
	if result.ResourceDir != "" {
		rows = append(rows, []string{"Resources", "`" + result.ResourceDir + "`"})
	}
	rows = append(rows, []string{"Status", statusText(result)})

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, result *model.LoadResult) {
	md.H2("Resource Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows: [][]string{
			{"Downloaded", strconv.Itoa(result.Succeeded())},
			{"Failed", strconv.Itoa(result.FailedCount())},
			{"**Total**", "**" + strconv.Itoa(len(result.Resources)) + "**"},
		},
	})
	md.PlainText("")

	if len(result.Resources) > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Resource Outcomes"),
			piechart.WithShowData(true),
		)
		if n := result.Succeeded(); n > 0 {
			chart.LabelAndIntValue("Downloaded", uint64(n))
		}
		if n := result.FailedCount(); n > 0 {
			chart.LabelAndIntValue("Failed", uint64(n))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case !result.Complete():
		md.Cautionf("The page could not be saved: %s", result.Error)
	case result.HasFailures():
		md.Warningf("%d of %d resources could not be downloaded.", result.FailedCount(), len(result.Resources))
	case len(result.Resources) == 0:
		md.Note("The page references no local resources.")
	default:
		md.Tip("All resources were downloaded.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailed(md *markdown.Markdown, result *model.LoadResult) {
	failed := result.FailedResources()
	if len(failed) == 0 {
		return
	}

	md.H2("Failed Resources")
	md.PlainText("")

	rows := make([][]string, 0, len(failed))
	for _, res := range failed {
		code := "-"
		if res.StatusCode != 0 {
			code = strconv.Itoa(res.StatusCode)
		}
		rows = append(rows, []string{"`" + res.Link + "`", code, res.Error})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Link", "HTTP", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeDownloaded(md *markdown.Markdown, result *model.LoadResult) {
	if result.Succeeded() == 0 {
		return
	}

	md.H2("Downloaded Resources")
	md.PlainText("")

	rows := make([][]string, 0, result.Succeeded())
	for _, res := range result.Resources {
		if res.Failed() {
			continue
		}
		rows = append(rows, []string{"`" + res.Link + "`", "`" + res.LocalPath + "`", strconv.FormatInt(res.Bytes, 10)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Link", "Saved As", "Bytes"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [pageloader](https://github.com/nao1215/pageloader)*")
}

// WriteHistory outputs stored loads as a Markdown table.
func (w *MarkdownWriter) WriteHistory(loads []model.LoadSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Load History")
	md.PlainText("")

	if len(loads) == 0 {
		md.PlainText("No loads recorded.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, 0, len(loads))
	for _, l := range loads {
		rows = append(rows, []string{
			"`" + l.ID + "`",
			l.StartedAt.Local().Format(timeFormat),
			summaryStatus(l),
			strconv.Itoa(l.Resources),
			strconv.Itoa(l.Failed),
			l.URL,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Started", "Status", "Resources", "Failed", "URL"},
		Rows:   rows,
	})
	md.PlainText("")

	return len(md.String()), md.Build()
}
