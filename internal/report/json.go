package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/pageloader/internal/model"
)

// JSONWriter outputs reports in JSON format.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string

	// version is embedded in every document.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output with the given prefix and indent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion sets the pageloader version embedded in the output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport is the document written for one load.
type JSONReport struct {
	Version string            `json:"version,omitempty"`
	Summary model.LoadSummary `json:"summary"`
	Load    *model.LoadResult `json:"load"`
}

// JSONHistory is the document written for a history listing.
type JSONHistory struct {
	Version string              `json:"version,omitempty"`
	Loads   []model.LoadSummary `json:"loads"`
}

// Write outputs result wrapped with its summary.
func (w *JSONWriter) Write(result *model.LoadResult) (int, error) {
	return w.writeJSON(JSONReport{
		Version: w.version,
		Summary: result.Summary(),
		Load:    result,
	})
}

// WriteHistory outputs loads. An empty listing is written as [].
func (w *JSONWriter) WriteHistory(loads []model.LoadSummary) (int, error) {
	if loads == nil {
		loads = []model.LoadSummary{}
	}
	return w.writeJSON(JSONHistory{Version: w.version, Loads: loads})
}

// WriteValue outputs any value with the writer's formatting.
func (w *JSONWriter) WriteValue(v any) (int, error) {
	return w.writeJSON(v)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
