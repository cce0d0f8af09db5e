package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/linkscan/internal/checker"
	"github.com/nao1215/linkscan/internal/config"
	"github.com/nao1215/linkscan/internal/crawler"
	"github.com/nao1215/linkscan/internal/database"
	"github.com/nao1215/linkscan/internal/log"
	"github.com/nao1215/linkscan/internal/metrics"
	"github.com/nao1215/linkscan/internal/model"
	"github.com/nao1215/linkscan/internal/netclient"
	"github.com/nao1215/linkscan/internal/pipeline"
	"github.com/nao1215/linkscan/internal/queue"
	"github.com/nao1215/linkscan/internal/report"
)

// loadConfig builds the configuration for cmd.
//
// Sources are applied in order: defaults, the configuration file, the
// environment, then flags the user actually set. A flag's default value
// never overrides the file or the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	if err := stringFlag(cmd, "config", &cfg.ConfigFilePath); err != nil {
		return nil, err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use defaults if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(cf)
	case explicitConfigPath:
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// applyFlags copies every changed flag of cmd into cfg. Flags a command
// does not define are skipped.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	return errors.Join(
		boolFlag(cmd, "verbose", &cfg.Verbose),
		boolFlag(cmd, "log-json", &cfg.LogJSON),
		stringFlag(cmd, "db-dir", &cfg.DBDir),

		intFlag(cmd, "max-links", &cfg.MaxLinks),
		intFlag(cmd, "concurrency", &cfg.Concurrency),
		durationFlag(cmd, "timeout", &cfg.CheckTimeout),
		durationFlag(cmd, "fetch-timeout", &cfg.FetchTimeout),
		durationFlag(cmd, "scan-timeout", &cfg.ScanTimeout),
		stringFlag(cmd, "user-agent", &cfg.UserAgent),
		stringFlag(cmd, "proxy", &cfg.ProxyAddress),
		intFlag(cmd, "batch", &cfg.BatchSize),

		stringFlag(cmd, "redis-url", &cfg.RedisURL),
		stringFlag(cmd, "stream-prefix", &cfg.StreamPrefix),
		stringFlag(cmd, "group", &cfg.ConsumerGroup),
		durationFlag(cmd, "claim-min-idle", &cfg.ClaimMinIdle),
		intFlag(cmd, "max-deliveries", &cfg.MaxDeliveries),
		stringFlag(cmd, "metrics-addr", &cfg.MetricsAddr),

		boolFlag(cmd, "json", &cfg.JSONReport),
		boolFlag(cmd, "markdown", &cfg.MarkdownReport),
		stringFlag(cmd, "output", &cfg.ReportFile),
	)
}

func boolFlag(cmd *cobra.Command, name string, dst *bool) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func intFlag(cmd *cobra.Command, name string, dst *int) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func stringFlag(cmd *cobra.Command, name string, dst *string) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func durationFlag(cmd *cobra.Command, name string, dst *time.Duration) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetDuration(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// addCheckFlags registers the flags that shape how a scan fetches and checks.
func addCheckFlags(cmd *cobra.Command) {
	cmd.Flags().DurationP("timeout", "t", config.DefaultCheckTimeout,
		"Timeout for each HEAD or GET attempt of a link check")
	cmd.Flags().Duration("fetch-timeout", config.DefaultFetchTimeout,
		"Timeout for downloading the seed page")
	cmd.Flags().Duration("scan-timeout", 0,
		"Overall deadline for fetching and checking one scan (0 disables)")
	cmd.Flags().String("proxy", "",
		"Route requests through a SOCKS5 proxy (e.g., 127.0.0.1:1080)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
}

// addCapFlags registers the per-scan link cap and concurrency flags.
func addCapFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("max-links", "n", config.DefaultMaxLinks,
		"Maximum number of links checked per scan")
	cmd.Flags().IntP("concurrency", "C", config.DefaultConcurrency,
		"Number of link checks in flight per scan")
}

// addQueueFlags registers the Redis connection flags.
func addQueueFlags(cmd *cobra.Command) {
	cmd.Flags().String("redis-url", config.DefaultRedisURL,
		"Redis URL of the job queue (also REDIS_URL)")
	cmd.Flags().String("stream-prefix", queue.DefaultPrefix,
		"Prefix of the Redis stream key")
}

// addReportFlags registers the report format flags.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
}

// setupLogger creates the secure logger selected by cfg and makes it the
// default logger.
func setupLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	var logger *slog.Logger
	if cfg.LogJSON {
		logger = log.NewSecureJSONLogger(cmd.ErrOrStderr(), cfg.Verbose)
	} else {
		logger = log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	}
	slog.SetDefault(logger)
	return logger
}

// openStore opens the scan database in cfg.DBDir.
func openStore(cfg *config.Config, logger *slog.Logger) (*database.Store, error) {
	store, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("database opened", "path", store.Path())
	return store, nil
}

// newHTTPClient creates the client shared by the fetcher and the checker.
// A configured proxy is verified before use.
func newHTTPClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*http.Client, error) {
	opts := []netclient.Option{
		netclient.WithMaxConnsPerHost(model.ClampConcurrency(cfg.Concurrency)),
	}
	if sites := cfg.SiteConfigs.HTTPSites(); len(sites) > 0 {
		opts = append(opts, netclient.WithSites(sites))
	}

	if cfg.ProxyAddress != "" {
		if err := netclient.CheckProxy(ctx, cfg.ProxyAddress).Err(); err != nil {
			return nil, fmt.Errorf("proxy check failed for %s: %w", cfg.ProxyAddress, err)
		}
		logger.Info("proxy connection verified", "address", cfg.ProxyAddress)
		opts = append(opts, netclient.WithProxy(cfg.ProxyAddress))
	}

	client, err := netclient.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	return client, nil
}

// newOrchestrator wires the fetcher, checker and store into an Orchestrator.
// m may be nil.
func newOrchestrator(cfg *config.Config, store pipeline.Store, client *http.Client, m *metrics.Metrics, logger *slog.Logger) *pipeline.Orchestrator {
	fetcher := crawler.NewFetcher(client,
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithFetchTimeout(cfg.FetchTimeout),
		crawler.WithLogger(logger),
	)
	chk := checker.New(client,
		checker.WithTimeout(cfg.CheckTimeout),
		checker.WithUserAgent(cfg.UserAgent),
		checker.WithLogger(logger),
	)
	return pipeline.NewOrchestrator(store, fetcher, chk,
		pipeline.WithOrchestratorLogger(logger),
		pipeline.WithMetrics(m),
		pipeline.WithScanTimeout(cfg.ScanTimeout),
	)
}

// newStreamsClient connects to the job queue.
func newStreamsClient(ctx context.Context, cfg *config.Config) (*queue.StreamsClient, error) {
	client, err := queue.NewStreamsClient(ctx, queue.StreamsConfig{
		URL:    cfg.RedisURL,
		Prefix: cfg.StreamPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to job queue: %w", err)
	}
	return client, nil
}

// openReportOutput returns the destination for reports: cfg.ReportFile, or
// the command's stdout when none is set. The returned close function is
// always non-nil.
func openReportOutput(cmd *cobra.Command, cfg *config.Config) (io.Writer, func() error, error) {
	if cfg.ReportFile == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	// Create directories if they don't exist
	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports list internal URLs, keep them readable by the owner only
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// newReportWriter selects the report format. listAll makes the text format
// list reachable links too.
func newReportWriter(cfg *config.Config, w io.Writer, listAll bool) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(w, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(listAll || cfg.Verbose))
	}
}

// loadScanReport reads a scan and all of its items.
func loadScanReport(ctx context.Context, store *database.Store, id string) (*report.ScanReport, error) {
	scan, err := store.GetScan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load scan %s: %w", id, err)
	}
	items, err := store.AllItems(ctx, id, database.FilterAll)
	if err != nil {
		return nil, fmt.Errorf("failed to load items of scan %s: %w", id, err)
	}
	return &report.ScanReport{Scan: scan, Items: items}, nil
}
