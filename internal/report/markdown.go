package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/linkscan/internal/model"
)

// Column widths for markdown tables.
const (
	maxURLWidth    = 80
	maxDetailWidth = 60
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which gives type-safe tables, code blocks and
// GitHub-flavored markdown alerts.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteScan outputs the scan report in Markdown format.
func (w *MarkdownWriter) WriteScan(report *ScanReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report.Scan)
	w.writeSummary(md, report.Scan)

	broken, ok := splitItems(report.Items)
	w.writeItems(md, "Broken Links", broken, "No broken links.")
	w.writeItems(md, "Reachable Links", ok, "No reachable links.")

	if report.MatchingItems > len(report.Items) {
		md.PlainTextf("Showing %d of %d items.", len(report.Items), report.MatchingItems)
		md.PlainText("")
	}
	if report.NextCursor != "" {
		md.PlainTextf("More items available with cursor `%s`.", report.NextCursor)
		md.PlainText("")
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteScanList outputs a page of scans as a table.
func (w *MarkdownWriter) WriteScanList(list *ScanList) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Link Scans")
	md.PlainText("")

	if len(list.Scans) == 0 {
		md.PlainText("No scans found.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(list.Scans))
	for i, s := range list.Scans {
		rows[i] = []string{
			"`" + s.ID + "`",
			statusTitle(s.Status),
			truncateString(s.URL, maxURLWidth),
			strconv.Itoa(s.OKCount),
			strconv.Itoa(s.BrokenCount),
			formatTime(s.FinishedAt),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Status", "URL", "OK", "Broken", "Finished"},
		Rows:   rows,
	})
	md.PlainText("")

	if list.NextCursor != "" {
		md.PlainTextf("More scans available with cursor `%s`.", list.NextCursor)
	}

	return len(md.String()), md.Build()
}

// WriteDiff outputs the comparison of two scans in Markdown format.
func (w *MarkdownWriter) WriteDiff(diff *Diff) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Link Scan Comparison")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"", "Base", "Target"},
		Rows: [][]string{
			{"Scan ID", "`" + diff.Base.ID + "`", "`" + diff.Target.ID + "`"},
			{"Finished", formatTime(diff.Base.FinishedAt), formatTime(diff.Target.FinishedAt)},
			{"Links", strconv.Itoa(diff.Base.TotalLinks), strconv.Itoa(diff.Target.TotalLinks)},
			{"Broken", strconv.Itoa(diff.Base.BrokenCount), strconv.Itoa(diff.Target.BrokenCount)},
		},
	})
	md.PlainText("")

	switch {
	case len(diff.NewlyBroken) > 0:
		md.Warningf("%d link(s) broke since the previous scan.", len(diff.NewlyBroken))
	case len(diff.Fixed) > 0:
		md.Tip(fmt.Sprintf("%d link(s) were fixed and none broke.", len(diff.Fixed)))
	default:
		md.Note("No links changed state.")
	}
	md.PlainText("")

	w.writeItems(md, "Newly Broken", diff.NewlyBroken, "None.")
	w.writeItems(md, "Fixed", diff.Fixed, "None.")
	w.writeItems(md, "Still Broken", diff.StillBroken, "None.")

	md.H2("No Longer Linked")
	md.PlainText("")
	if len(diff.Removed) == 0 {
		md.PlainText("None.")
	} else {
		md.BulletList(diff.Removed...)
	}
	md.PlainText("")

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with scan information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *model.Scan) {
	md.H1("Link Scan Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"URL", "`" + s.URL + "`"},
			{"Scan ID", "`" + s.ID + "`"},
			{"Status", w.getStatusText(s.Status)},
			{"Started", formatTime(s.StartedAt)},
			{"Duration", formatDuration(s)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text with an indicator.
func (w *MarkdownWriter) getStatusText(status model.ScanStatus) string {
	switch status {
	case model.StatusCompleted:
		return "✅ " + statusTitle(status)
	case model.StatusFailed:
		return "❌ " + statusTitle(status)
	default:
		return "⏳ " + statusTitle(status)
	}
}

// writeSummary writes the link count section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s *model.Scan) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Result", "Count"},
		Rows: [][]string{
			{"🟢 OK", strconv.Itoa(s.OKCount)},
			{"🔴 Broken", strconv.Itoa(s.BrokenCount)},
			{"**Total**", "**" + strconv.Itoa(s.TotalLinks) + "**"},
		},
	})
	md.PlainText("")

	if s.TotalLinks > 0 {
		w.writePieChart(md, s)
	}

	w.writeAlert(md, s)
}

// writePieChart writes a mermaid pie chart of reachable versus broken links.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *model.Scan) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Link Health"),
		piechart.WithShowData(true),
	)

	if s.OKCount > 0 {
		chart.LabelAndIntValue("OK", uint64(s.OKCount))
	}
	if s.BrokenCount > 0 {
		chart.LabelAndIntValue("Broken", uint64(s.BrokenCount))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the scan outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *model.Scan) {
	switch {
	case s.Status == model.StatusFailed:
		md.Cautionf("The seed page %s could not be fetched.", s.URL)
	case s.Status != model.StatusCompleted:
		md.Note("The scan has not finished yet. Counts are provisional.")
	case s.BrokenCount > 0:
		md.Warningf("%d of %d link(s) are broken.", s.BrokenCount, s.TotalLinks)
	default:
		md.Tip("All links are reachable.")
	}
	md.PlainText("")
}

// writeItems writes a titled table of items.
func (w *MarkdownWriter) writeItems(md *markdown.Markdown, title string, items []*model.ScanItem, empty string) {
	md.H2(title)
	md.PlainText("")

	if len(items) == 0 {
		md.PlainText(empty)
		md.PlainText("")
		return
	}

	rows := make([][]string, len(items))
	for i, item := range items {
		result := "❌ Broken"
		if item.OK {
			result = "✅ OK"
		}
		rows[i] = []string{
			truncateString(item.URL, maxURLWidth),
			result,
			truncateString(itemDetail(item), maxDetailWidth),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Result", "Detail"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [linkscan](https://github.com/nao1215/linkscan)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
