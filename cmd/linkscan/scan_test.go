package main

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/linkscan/internal/database"
	"github.com/nao1215/linkscan/internal/model"
	"github.com/nao1215/linkscan/internal/report"
)

// TestNewScanCmd tests the scan command flags.
func TestNewScanCmd(t *testing.T) {
	t.Parallel()

	cmd := NewScanCmd()

	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"max-links", "n", "800"},
		{"concurrency", "C", "16"},
		{"timeout", "t", "10s"},
		{"fetch-timeout", "", "30s"},
		{"scan-timeout", "", "0s"},
		{"proxy", "", ""},
		{"batch", "b", "4"},
		{"json", "j", "false"},
		{"markdown", "m", "false"},
		{"output", "o", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("shorthand = %q, want %q", flag.Shorthand, tt.shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("default = %q, want %q", flag.DefValue, tt.defValue)
			}
		})
	}
}

// TestScanCommand runs scans end to end against a local site.
func TestScanCommand(t *testing.T) {
	t.Parallel()

	t.Run("reports broken links", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(t)
		site.broken.Store(true)
		env := newTestEnv(t)

		rep := env.scanJSON(t, site.URL)
		if rep.Scan.Status != model.StatusCompleted {
			t.Fatalf("status = %s, want COMPLETED", rep.Scan.Status)
		}
		if rep.Scan.TotalLinks != 3 || rep.Scan.OKCount != 2 || rep.Scan.BrokenCount != 1 {
			t.Errorf("counts = %d/%d/%d, want 3/2/1", rep.Scan.TotalLinks, rep.Scan.OKCount, rep.Scan.BrokenCount)
		}
		if len(rep.Items) != 3 {
			t.Errorf("items = %d, want 3", len(rep.Items))
		}
	})

	t.Run("text report by default", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(t)
		site.broken.Store(true)
		env := newTestEnv(t)

		stdout, stderr, err := env.run(t, "scan", site.URL)
		if err != nil {
			t.Fatalf("scan failed: %v\nstderr: %s", err, stderr)
		}
		for _, want := range []string{"LINKSCAN REPORT", "Status:    Completed", "Links:     3 (2 ok, 1 broken)", "404 Not Found"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected %q in\n%s", want, stdout)
			}
		}
	})

	t.Run("link cap flag", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(t)
		env := newTestEnv(t)

		stdout, stderr, err := env.run(t, "scan", "--json", "-n", "1", site.URL)
		if err != nil {
			t.Fatalf("scan failed: %v\nstderr: %s", err, stderr)
		}
		var rep report.ScanReport
		if err := json.Unmarshal([]byte(stdout), &rep); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if rep.Scan.TotalLinks != 1 {
			t.Errorf("total = %d, want 1", rep.Scan.TotalLinks)
		}
	})

	t.Run("seed failure is reported and returned", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(t)
		env := newTestEnv(t)

		stdout, _, err := env.run(t, "scan", "--json", site.URL+"/missing")
		if err == nil || !strings.Contains(err.Error(), "1 of 1 scans") {
			t.Fatalf("expected scan error, got %v", err)
		}

		var rep report.ScanReport
		if err := json.Unmarshal([]byte(stdout), &rep); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, stdout)
		}
		if rep.Scan.Status != model.StatusFailed {
			t.Errorf("status = %s, want FAILED", rep.Scan.Status)
		}
		if len(rep.Items) != 1 || rep.Items[0].OK {
			t.Errorf("expected one broken sentinel item, got %+v", rep.Items)
		}
	})

	t.Run("several targets in one batch", func(t *testing.T) {
		t.Parallel()

		a, b := newTestSite(t), newTestSite(t)
		b.broken.Store(true)
		env := newTestEnv(t)

		stdout, stderr, err := env.run(t, "scan", "--json", "--batch", "2", a.URL, b.URL)
		if err != nil {
			t.Fatalf("scan failed: %v\nstderr: %s", err, stderr)
		}

		dec := json.NewDecoder(strings.NewReader(stdout))
		broken := map[string]int{}
		for {
			var rep report.ScanReport
			if err := dec.Decode(&rep); errors.Is(err, io.EOF) {
				break
			} else if err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			broken[rep.Scan.URL] = rep.Scan.BrokenCount
		}
		if len(broken) != 2 || broken[a.URL] != 0 || broken[b.URL] != 1 {
			t.Errorf("broken counts = %v", broken)
		}
	})

	t.Run("markdown report to file", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(t)
		env := newTestEnv(t)
		out := filepath.Join(t.TempDir(), "out", "report.md")

		if _, stderr, err := env.run(t, "scan", "--markdown", "-o", out, site.URL); err != nil {
			t.Fatalf("scan failed: %v\nstderr: %s", err, stderr)
		}
		content, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(string(content), "# Link Scan Report") {
			t.Errorf("unexpected report:\n%s", content)
		}
	})

	t.Run("no targets", func(t *testing.T) {
		t.Parallel()

		_, _, err := newTestEnv(t).run(t, "scan")
		if !errors.Is(err, errNoTargets) {
			t.Errorf("expected errNoTargets, got %v", err)
		}
	})

	t.Run("invalid target", func(t *testing.T) {
		t.Parallel()

		_, _, err := newTestEnv(t).run(t, "scan", "ftp://example.com")
		if !errors.Is(err, model.ErrInvalidSeedURL) {
			t.Errorf("expected ErrInvalidSeedURL, got %v", err)
		}
	})
}

// TestShowAndListCommands tests reading scans back.
func TestShowAndListCommands(t *testing.T) {
	t.Parallel()

	site := newTestSite(t)
	site.broken.Store(true)
	env := newTestEnv(t)
	first := env.scanJSON(t, site.URL)
	second := env.scanJSON(t, site.URL)

	t.Run("show filters broken items", func(t *testing.T) {
		t.Parallel()

		stdout, stderr, err := env.run(t, "show", "--json", "--status", "broken", first.Scan.ID)
		if err != nil {
			t.Fatalf("show failed: %v\nstderr: %s", err, stderr)
		}
		var rep report.ScanReport
		if err := json.Unmarshal([]byte(stdout), &rep); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(rep.Items) != 1 || !strings.HasSuffix(rep.Items[0].URL, "/flaky") {
			t.Errorf("items = %+v", rep.Items)
		}
	})

	t.Run("show paginates", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := env.run(t, "show", "--json", "--limit", "2", first.Scan.ID)
		if err != nil {
			t.Fatalf("show failed: %v", err)
		}
		var page report.ScanReport
		if err := json.Unmarshal([]byte(stdout), &page); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(page.Items) != 2 || page.NextCursor == "" {
			t.Fatalf("first page = %d items, cursor %q", len(page.Items), page.NextCursor)
		}
		if page.MatchingItems != 3 {
			t.Errorf("matching items = %d, want 3", page.MatchingItems)
		}

		stdout, _, err = env.run(t, "show", "--json", "--limit", "2", "--cursor", page.NextCursor, first.Scan.ID)
		if err != nil {
			t.Fatalf("show failed: %v", err)
		}
		var rest report.ScanReport
		if err := json.Unmarshal([]byte(stdout), &rest); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(rest.Items) != 1 || rest.NextCursor != "" {
			t.Errorf("second page = %d items, cursor %q", len(rest.Items), rest.NextCursor)
		}
	})

	t.Run("show text lists reachable links", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := env.run(t, "show", first.Scan.ID)
		if err != nil {
			t.Fatalf("show failed: %v", err)
		}
		if !strings.Contains(stdout, "REACHABLE LINKS") {
			t.Errorf("expected reachable links in\n%s", stdout)
		}
		if strings.Contains(stdout, "Showing") {
			t.Errorf("complete listing should not print a count\n%s", stdout)
		}
	})

	t.Run("show text counts matching items", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := env.run(t, "show", "--status", "ok", "--limit", "1", first.Scan.ID)
		if err != nil {
			t.Fatalf("show failed: %v", err)
		}
		if !strings.Contains(stdout, "Showing 1 of 2 items") {
			t.Errorf("expected item count in\n%s", stdout)
		}
	})

	t.Run("show unknown scan", func(t *testing.T) {
		t.Parallel()

		_, _, err := env.run(t, "show", "does-not-exist")
		if !errors.Is(err, database.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("show invalid status", func(t *testing.T) {
		t.Parallel()

		_, _, err := env.run(t, "show", "--status", "maybe", first.Scan.ID)
		if !errors.Is(err, database.ErrInvalidFilter) {
			t.Errorf("expected ErrInvalidFilter, got %v", err)
		}
	})

	t.Run("list newest first", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := env.run(t, "list", "--json", "--url", site.URL)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		var list report.ScanList
		if err := json.Unmarshal([]byte(stdout), &list); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(list.Scans) != 2 {
			t.Fatalf("scans = %d, want 2", len(list.Scans))
		}
		if list.Scans[0].ID != second.Scan.ID || list.Scans[1].ID != first.Scan.ID {
			t.Errorf("unexpected order: %s, %s", list.Scans[0].ID, list.Scans[1].ID)
		}
	})

	t.Run("list text", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := env.run(t, "list", "--limit", "1")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(stdout, second.Scan.ID) || !strings.Contains(stdout, "--cursor") {
			t.Errorf("unexpected listing:\n%s", stdout)
		}
	})
}
