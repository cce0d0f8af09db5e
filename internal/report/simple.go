package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/linkscan/internal/model"
)

// ruleWidth is the width of the separator lines.
const ruleWidth = 70

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors so that output can be piped to files or other tools.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose lists reachable links in addition to broken ones.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteScan outputs one scan and its items in human-readable format.
func (w *SimpleWriter) WriteScan(report *ScanReport) (int, error) {
	var sb strings.Builder

	w.writeBanner(&sb, "LINKSCAN REPORT")
	w.writeScanHeader(&sb, report.Scan)

	broken, ok := splitItems(report.Items)
	w.writeItems(&sb, "BROKEN LINKS", broken, "No broken links")
	if w.verbose {
		w.writeItems(&sb, "REACHABLE LINKS", ok, "No reachable links")
	}

	if report.MatchingItems > len(report.Items) {
		sb.WriteString(fmt.Sprintf("Showing %d of %d items\n", len(report.Items), report.MatchingItems))
	}
	if report.NextCursor != "" {
		sb.WriteString(fmt.Sprintf("More items available: --cursor %s\n\n", report.NextCursor))
	}

	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteScanList outputs a page of scans, one per line.
func (w *SimpleWriter) WriteScanList(list *ScanList) (int, error) {
	var sb strings.Builder

	if len(list.Scans) == 0 {
		sb.WriteString("No scans found\n")
		return w.output.Write([]byte(sb.String()))
	}

	sb.WriteString(fmt.Sprintf("%-36s  %-9s  %5s  %6s  %s\n", "ID", "STATUS", "OK", "BROKEN", "URL"))
	for _, s := range list.Scans {
		sb.WriteString(fmt.Sprintf("%-36s  %-9s  %5d  %6d  %s\n", s.ID, s.Status, s.OKCount, s.BrokenCount, s.URL))
	}

	if list.NextCursor != "" {
		sb.WriteString(fmt.Sprintf("\nMore scans available: --cursor %s\n", list.NextCursor))
	}

	return w.output.Write([]byte(sb.String()))
}

// WriteDiff outputs the change in link health between two scans.
func (w *SimpleWriter) WriteDiff(diff *Diff) (int, error) {
	var sb strings.Builder

	w.writeBanner(&sb, "LINKSCAN COMPARISON")
	sb.WriteString(fmt.Sprintf("URL:    %s\n", diff.Target.URL))
	sb.WriteString(fmt.Sprintf("Base:   %s (%s, %d broken)\n", diff.Base.ID, formatTime(diff.Base.FinishedAt), diff.Base.BrokenCount))
	sb.WriteString(fmt.Sprintf("Target: %s (%s, %d broken)\n\n", diff.Target.ID, formatTime(diff.Target.FinishedAt), diff.Target.BrokenCount))

	if !diff.HasChanges() {
		sb.WriteString("No changes between scans\n\n")
	}

	w.writeItems(&sb, "NEWLY BROKEN", diff.NewlyBroken, "None")
	w.writeItems(&sb, "FIXED", diff.Fixed, "None")
	if w.verbose {
		w.writeItems(&sb, "STILL BROKEN", diff.StillBroken, "None")
	}

	if len(diff.Removed) > 0 || w.showEmpty {
		w.writeSection(&sb, "NO LONGER LINKED")
		if len(diff.Removed) == 0 {
			sb.WriteString("  None\n")
		}
		for _, u := range diff.Removed {
			sb.WriteString(fmt.Sprintf("  [-] %s\n", u))
		}
		sb.WriteString("\n")
	}

	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeBanner writes a title framed by double rules.
func (w *SimpleWriter) writeBanner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	pad := max((ruleWidth-len(title))/2, 0)
	sb.WriteString(strings.Repeat(" ", pad) + title + "\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")
}

// writeScanHeader writes the scan properties.
func (w *SimpleWriter) writeScanHeader(sb *strings.Builder, s *model.Scan) {
	sb.WriteString(fmt.Sprintf("URL:       %s\n", s.URL))
	sb.WriteString(fmt.Sprintf("Scan ID:   %s\n", s.ID))
	sb.WriteString(fmt.Sprintf("Status:    %s\n", statusTitle(s.Status)))
	sb.WriteString(fmt.Sprintf("Started:   %s\n", formatTime(s.StartedAt)))
	sb.WriteString(fmt.Sprintf("Duration:  %s\n", formatDuration(s)))
	sb.WriteString(fmt.Sprintf("Links:     %d (%d ok, %d broken)\n", s.TotalLinks, s.OKCount, s.BrokenCount))
	sb.WriteString("\n")
}

// writeSection writes a section heading between single rules.
func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

// writeItems writes a titled list of items. Empty lists are skipped
// unless showEmpty is set.
func (w *SimpleWriter) writeItems(sb *strings.Builder, title string, items []*model.ScanItem, empty string) {
	if len(items) == 0 && !w.showEmpty {
		return
	}

	w.writeSection(sb, title)

	if len(items) == 0 {
		sb.WriteString("  " + empty + "\n\n")
		return
	}

	for _, item := range items {
		marker := "[x]"
		if item.OK {
			marker = "[+]"
		}
		sb.WriteString(fmt.Sprintf("  %s %s\n", marker, item.URL))
		sb.WriteString(fmt.Sprintf("      %s\n", itemDetail(item)))
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Report generated by linkscan\n")
	sb.WriteString("https://github.com/nao1215/linkscan\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}

// splitItems separates broken items from reachable ones, keeping order.
func splitItems(items []*model.ScanItem) (broken, ok []*model.ScanItem) {
	for _, item := range items {
		if item.OK {
			ok = append(ok, item)
		} else {
			broken = append(broken, item)
		}
	}
	return broken, ok
}
