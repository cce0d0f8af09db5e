package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// JSONWriter emits reports as one JSON document per call, for scripts and
// CI jobs. Keys are the snake_case tags of the model package. Links are
// written verbatim: '&', '<' and '>' in URLs are not escaped.
type JSONWriter struct {
	baseWriter

	prefix string
	indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent indents nested values with indent, prefixing every line
// after the first with prefix.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.prefix = prefix
		w.indent = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter returns a compact JSONWriter unless an indent option is given.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteScan implements Writer.
func (w *JSONWriter) WriteScan(report *ScanReport) (int, error) {
	return w.encode(report)
}

// WriteScanList implements Writer.
func (w *JSONWriter) WriteScanList(list *ScanList) (int, error) {
	return w.encode(list)
}

// WriteDiff implements Writer.
func (w *JSONWriter) WriteDiff(diff *Diff) (int, error) {
	return w.encode(diff)
}

// encode writes v followed by a newline. Nothing is written if v cannot
// be encoded.
func (w *JSONWriter) encode(v any) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(w.prefix, w.indent)
	if err := enc.Encode(v); err != nil {
		return 0, fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return w.output.Write(buf.Bytes())
}
