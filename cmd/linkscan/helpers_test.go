package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/nao1215/linkscan/internal/report"
)

// testSite serves a seed page at / linking to /ok, /ok2 and /flaky.
// /flaky answers 200 until broken is set, then 404.
type testSite struct {
	*httptest.Server
	broken atomic.Bool
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()

	site := &testSite{}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, `<html><body>
<a href="/ok">ok</a>
<a href="/ok2">ok2</a>
<a href="/flaky">flaky</a>
<a href="/ok">again</a>
<a href="mailto:someone@example.com">mail</a>
</body></html>`)
	})
	mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/ok2", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		if site.broken.Load() {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	site.Server = httptest.NewServer(mux)
	t.Cleanup(site.Close)
	return site
}

// testEnv isolates a CLI run: its own database and config file.
type testEnv struct {
	dbDir      string
	configPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "linkscan.yaml")
	if err := os.WriteFile(configPath, []byte("sites: {}\n"), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return &testEnv{
		dbDir:      filepath.Join(dir, "db"),
		configPath: configPath,
	}
}

// run executes the root command with args plus the environment flags.
func (e *testEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--config", e.configPath, "--db-dir", e.dbDir))

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// scanJSON runs a scan of url and decodes its JSON report.
func (e *testEnv) scanJSON(t *testing.T, url string) *report.ScanReport {
	t.Helper()

	stdout, stderr, err := e.run(t, "scan", "--json", url)
	if err != nil {
		t.Fatalf("scan failed: %v\nstderr: %s", err, stderr)
	}

	var rep report.ScanReport
	if err := json.Unmarshal([]byte(stdout), &rep); err != nil {
		t.Fatalf("invalid JSON report: %v\n%s", err, stdout)
	}
	return &rep
}
