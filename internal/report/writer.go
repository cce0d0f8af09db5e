package report

import (
	"io"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/linkscan/internal/model"
)

// Writer defines the interface for report output.
// Implementations write scan results in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// WriteScan outputs one scan and a page of its items.
	// Returns the number of bytes written and any error encountered.
	WriteScan(report *ScanReport) (int, error)

	// WriteScanList outputs a page of scans.
	WriteScanList(list *ScanList) (int, error)

	// WriteDiff outputs the comparison of two scans.
	WriteDiff(diff *Diff) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write reports, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteScan outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) WriteScan(report *ScanReport) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteScan(report) })
}

// WriteScanList outputs the list to all configured Writers.
func (m *MultiWriter) WriteScanList(list *ScanList) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteScanList(list) })
}

// WriteDiff outputs the diff to all configured Writers.
func (m *MultiWriter) WriteDiff(diff *Diff) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteDiff(diff) })
}

func (m *MultiWriter) each(write func(Writer) (int, error)) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := write(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusTitle renders a status for people: "COMPLETED" becomes "Completed".
func statusTitle(s model.ScanStatus) string {
	return cases.Title(language.English).String(string(s))
}
