package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/linkscan/internal/checker"
	"github.com/nao1215/linkscan/internal/crawler"
	"github.com/nao1215/linkscan/internal/model"
	"github.com/nao1215/linkscan/internal/queue"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "linkscan"

	// DefaultMaxLinks is the number of links checked per scan when the
	// request does not say otherwise.
	DefaultMaxLinks = model.DefaultMaxLinks

	// DefaultConcurrency is the number of link checks in flight per scan.
	DefaultConcurrency = model.DefaultConcurrency

	// DefaultCheckTimeout bounds each HEAD or GET attempt of a link check.
	DefaultCheckTimeout = checker.DefaultTimeout

	// DefaultFetchTimeout bounds the seed page download.
	DefaultFetchTimeout = crawler.DefaultFetchTimeout

	// DefaultMaxBodySize limits how much of the seed page is read.
	DefaultMaxBodySize = crawler.DefaultMaxBodySize

	// DefaultUserAgent identifies linkscan in HTTP requests.
	DefaultUserAgent = crawler.DefaultUserAgent

	// DefaultRedisURL is the local Redis instance, database 0.
	DefaultRedisURL = "redis://localhost:6379/0"

	// DefaultMetricsAddr is where the worker serves /metrics.
	DefaultMetricsAddr = ":9090"

	// DefaultBatchSize is the number of scans run at once by a local
	// multi-URL scan. Each scan has its own check concurrency on top.
	DefaultBatchSize = 4
)

// Config holds all configuration options for linkscan.
// It is populated from defaults, the config file, the environment and CLI
// flags, in that order, and passed through the application explicitly.
//
// Design decision: We keep a single flat struct. Queue and
// report settings are few enough that sub-structs would only add noise.
type Config struct {
	// MaxLinks is the default link cap for new scans.
	MaxLinks int

	// Concurrency is the default check concurrency for new scans.
	Concurrency int

	// CheckTimeout bounds each attempt of a link check.
	CheckTimeout time.Duration

	// FetchTimeout bounds the seed page download.
	FetchTimeout time.Duration

	// ScanTimeout bounds fetching and probing of one scan. Zero disables it.
	ScanTimeout time.Duration

	// MaxBodySize is the maximum seed page size in bytes.
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// ProxyAddress routes traffic through a SOCKS5 proxy ("host:port").
	// Empty means direct connections.
	ProxyAddress string

	// RedisURL locates the job queue. It may carry a password.
	RedisURL string

	// StreamPrefix is prepended to the Redis stream key.
	StreamPrefix string

	// ConsumerGroup is the Redis consumer group shared by workers.
	ConsumerGroup string

	// ClaimMinIdle is how long a failed job waits before it is retried.
	ClaimMinIdle time.Duration

	// MaxDeliveries is how often a job is attempted before it is dropped.
	MaxDeliveries int

	// MetricsAddr is the listen address of the worker's metrics endpoint.
	// Empty disables it.
	MetricsAddr string

	// DBDir is the directory holding the sqlite database.
	// Defaults to XDG data directory (~/.local/share/linkscan on Linux).
	DBDir string

	// BatchSize is the number of concurrent scans for local multi-URL scans.
	BatchSize int

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches log output to JSON lines.
	LogJSON bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the usual locations.
	ConfigFilePath string

	// SiteConfigs holds the loaded configuration file, if any.
	SiteConfigs *File

	// JSONReport selects JSON report output.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown report output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero.
func NewConfig() *Config {
	return &Config{
		MaxLinks:      DefaultMaxLinks,
		Concurrency:   DefaultConcurrency,
		CheckTimeout:  DefaultCheckTimeout,
		FetchTimeout:  DefaultFetchTimeout,
		MaxBodySize:   DefaultMaxBodySize,
		UserAgent:     DefaultUserAgent,
		RedisURL:      DefaultRedisURL,
		StreamPrefix:  queue.DefaultPrefix,
		ConsumerGroup: queue.DefaultConsumerGroup,
		ClaimMinIdle:  queue.DefaultClaimMinIdle,
		MaxDeliveries: queue.DefaultMaxDeliveries,
		MetricsAddr:   DefaultMetricsAddr,
		DBDir:         XDGDataDir(),
		BatchSize:     DefaultBatchSize,
	}
}

// XDGDataDir returns the XDG data directory for linkscan.
// On Linux: ~/.local/share/linkscan
// On macOS: ~/Library/Application Support/linkscan
// On Windows: %LOCALAPPDATA%\linkscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for linkscan.
// On Linux: ~/.config/linkscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ClampMaxLinks returns the link cap for a request. Zero or negative
// means the configured default; larger values are capped.
func (c *Config) ClampMaxLinks(n int) int {
	if n <= 0 {
		n = c.MaxLinks
	}
	return model.ClampMaxLinks(n)
}

// ClampConcurrency returns the check concurrency for a request. Zero or
// negative means the configured default; larger values are capped.
func (c *Config) ClampConcurrency(n int) int {
	if n <= 0 {
		n = c.Concurrency
	}
	return model.ClampConcurrency(n)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the sentinel errors.
func (c *Config) Validate() error {
	if c.MaxLinks < 0 {
		return ErrInvalidMaxLinks
	}

	if c.Concurrency < 0 {
		return ErrInvalidConcurrency
	}

	if c.CheckTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.FetchTimeout <= 0 {
		return ErrInvalidFetchTimeout
	}

	if c.ScanTimeout < 0 {
		return ErrInvalidScanTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.MaxDeliveries <= 0 {
		return ErrInvalidMaxDeliveries
	}

	if c.ClaimMinIdle <= 0 {
		return ErrInvalidClaimMinIdle
	}

	return nil
}
