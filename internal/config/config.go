package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTimeout bounds each HTTP request, body included.
	DefaultTimeout = 30 * time.Second

	// DefaultConcurrency is the number of resources downloaded at once per page.
	DefaultConcurrency = 8

	// DefaultBatchSize is the number of pages loaded at once.
	DefaultBatchSize = 1

	// DefaultMaxBodySize limits the size of a fetched page.
	// Resources are streamed to disk and are not limited.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultUserAgent identifies pageloader in HTTP requests.
	DefaultUserAgent = "pageloader/1.0 (+https://github.com/nao1215/pageloader)"

	// DefaultOutputDir is where pages are saved.
	DefaultOutputDir = "."

	// AppName is the application name used for XDG directory paths.
	AppName = "pageloader"
)

// Config holds all options for a pageloader run.
// It is populated from CLI flags and passed down explicitly.
type Config struct {
	// Targets are the page URLs to load.
	Targets []string

	// OutputDir is the directory the pages are saved into. It must exist.
	OutputDir string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// Concurrency is the number of resources downloaded at once per page.
	Concurrency int

	// BatchSize is the number of pages loaded at once.
	BatchSize int

	// MaxBodySize is the maximum page size in bytes. 0 means the default.
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// KeepQueryHash adds a short hash of the query string to local names so
	// that URLs differing only by query do not overwrite each other.
	KeepQueryHash bool

	// Verbose enables debug logging. Otherwise only warnings and errors are logged.
	Verbose bool

	// LogFile sends logs to a rotated file instead of stderr.
	LogFile string

	// ConfigFilePath is an explicit path to the config file.
	// When empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// SiteConfigs holds the loaded config file, if any.
	SiteConfigs *File

	// JSONReport selects JSON report output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown report output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// DBDir is the directory holding the history database.
	DBDir string

	// SaveToDB records each load in the history database.
	SaveToDB bool

	// Strict turns resource failures into a failed run.
	Strict bool
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		OutputDir:   DefaultOutputDir,
		Timeout:     DefaultTimeout,
		Concurrency: DefaultConcurrency,
		BatchSize:   DefaultBatchSize,
		MaxBodySize: DefaultMaxBodySize,
		UserAgent:   DefaultUserAgent,
		DBDir:       XDGDataDir(),
		SaveToDB:    true,
	}
}

// XDGDataDir returns the XDG data directory for pageloader.
// On Linux: ~/.local/share/pageloader
// On macOS: ~/Library/Application Support/pageloader
// On Windows: %LOCALAPPDATA%\pageloader
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for pageloader.
// On Linux: ~/.config/pageloader
// On macOS: ~/Library/Application Support/pageloader
// On Windows: %APPDATA%\pageloader
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	if c.OutputDir == "" {
		return ErrEmptyOutputDir
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
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

	return nil
}

// SiteConfigFor returns the effective settings for pageURL: the global
// options overlaid with the config file's defaults and the entry for the
// URL's host.
func (c *Config) SiteConfigFor(pageURL string) SiteConfig {
	result := SiteConfig{
		UserAgent:     c.UserAgent,
		Concurrency:   c.Concurrency,
		KeepQueryHash: c.KeepQueryHash,
	}
	if c.SiteConfigs == nil {
		return result
	}

	var host string
	if u, err := url.Parse(pageURL); err == nil {
		host = u.Host
	}

	site := c.SiteConfigs.GetSiteConfig(host)
	result.Headers = site.Headers
	if site.UserAgent != "" {
		result.UserAgent = site.UserAgent
	}
	if site.Concurrency > 0 {
		result.Concurrency = site.Concurrency
	}
	result.KeepQueryHash = result.KeepQueryHash || site.KeepQueryHash

	return result
}
