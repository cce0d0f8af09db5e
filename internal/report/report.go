package report

import (
	"time"

	"github.com/nao1215/linkscan/internal/model"
)

// ScanReport is one scan and a page of its items.
type ScanReport struct {
	// Scan is the scan being reported.
	Scan *model.Scan `json:"scan"`

	// Items is the page of items to show, in insertion order.
	Items []*model.ScanItem `json:"items"`

	// NextCursor continues the item listing. Empty on the last page.
	NextCursor string `json:"next_cursor,omitempty"`

	// MatchingItems counts every item the listing's filter matches across
	// all pages. Zero when Items is the complete listing.
	MatchingItems int `json:"matching_items,omitempty"`
}

// ScanList is a page of scans, newest first.
type ScanList struct {
	Scans      []*model.Scan `json:"scans"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// Diff describes how the links of a seed changed between two scans.
type Diff struct {
	// Base is the older scan.
	Base *model.Scan `json:"base"`

	// Target is the newer scan.
	Target *model.Scan `json:"target"`

	// NewlyBroken are target items that are broken but were OK, or absent,
	// in the base scan.
	NewlyBroken []*model.ScanItem `json:"newly_broken"`

	// Fixed are target items that are OK but were broken in the base scan.
	Fixed []*model.ScanItem `json:"fixed"`

	// StillBroken are target items broken in both scans.
	StillBroken []*model.ScanItem `json:"still_broken"`

	// Removed are base URLs no longer linked from the seed.
	Removed []string `json:"removed"`
}

// HasChanges reports whether any link changed state.
func (d *Diff) HasChanges() bool {
	return len(d.NewlyBroken) > 0 || len(d.Fixed) > 0 || len(d.Removed) > 0
}

// CompareItems builds the Diff between two scans from their items.
// Items are matched by URL; result slices follow target order, Removed
// follows base order.
func CompareItems(base, target *model.Scan, baseItems, targetItems []*model.ScanItem) *Diff {
	d := &Diff{
		Base:        base,
		Target:      target,
		NewlyBroken: make([]*model.ScanItem, 0),
		Fixed:       make([]*model.ScanItem, 0),
		StillBroken: make([]*model.ScanItem, 0),
		Removed:     make([]string, 0),
	}

	before := make(map[string]bool, len(baseItems))
	for _, item := range baseItems {
		before[item.URL] = item.OK
	}

	seen := make(map[string]struct{}, len(targetItems))
	for _, item := range targetItems {
		seen[item.URL] = struct{}{}
		wasOK, existed := before[item.URL]
		switch {
		case !item.OK && (!existed || wasOK):
			d.NewlyBroken = append(d.NewlyBroken, item)
		case !item.OK:
			d.StillBroken = append(d.StillBroken, item)
		case existed && !wasOK:
			d.Fixed = append(d.Fixed, item)
		}
	}

	for _, item := range baseItems {
		if _, ok := seen[item.URL]; !ok {
			d.Removed = append(d.Removed, item.URL)
		}
	}

	return d
}

// formatTime formats an optional timestamp for display.
func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05 MST")
}

// formatDuration formats an optional duration for display.
func formatDuration(s *model.Scan) string {
	if s.DurationMs == nil {
		return "-"
	}
	return s.Duration().String()
}

// itemDetail describes an item's outcome in one line.
func itemDetail(item *model.ScanItem) string {
	detail := item.Reason()
	if detail == "" {
		detail = "OK"
	}
	if item.Redirected != nil && *item.Redirected {
		detail += " (redirected)"
	}
	return detail
}
