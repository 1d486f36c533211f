package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/pageloader/internal/config"
	"github.com/nao1215/pageloader/internal/database"
	"github.com/nao1215/pageloader/internal/fetch"
	"github.com/nao1215/pageloader/internal/loader"
	"github.com/nao1215/pageloader/internal/log"
	"github.com/nao1215/pageloader/internal/model"
	"github.com/nao1215/pageloader/internal/naming"
	"github.com/nao1215/pageloader/internal/report"
	"github.com/spf13/cobra"
)

// errResourcesFailed is returned in strict mode when a saved page is missing
// some of its resources.
var errResourcesFailed = errors.New("some resources could not be downloaded")

// NewLoadCmd creates the load command.
func NewLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load [url...]",
		Short: "Save web pages together with their local resources",
		Long: `Load downloads each page, saves its same-origin stylesheets, images and
scripts into a "<name>-resources" directory and rewrites the page to use them.

For http://example.com/blog/about the output directory receives:
  example-com-blog-about.html
  example-com-blog-about-resources/

A resource that cannot be downloaded is reported but does not fail the
page. Use --strict to exit with an error in that case.

Examples:
  # Save a page into the current directory
  pageloader load https://example.com/blog/about

  # Save several pages into ./mirror, two at a time
  pageloader load -o ./mirror -b 2 https://example.com/ https://example.com/docs

  # Route requests through a SOCKS5 proxy
  pageloader load --proxy 127.0.0.1:9050 https://example.com/

  # Write a Markdown report to a file
  pageloader load --markdown --report reports/about.md https://example.com/about

Configuration file (.pageloader) example:
  defaults:
    concurrency: 4
  sites:
    example.com:
      headers:
        Authorization: "Bearer token"`,
		Args: cobra.ArbitraryArgs,
		RunE: runLoadCmd,
	}

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Existing directory to save pages into")

	// Fetch behavior flags
	cmd.Flags().IntP("concurrency", "c", config.DefaultConcurrency,
		"Number of resources downloaded at once per page")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of pages loaded at once")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().String("proxy", "",
		"Route requests through a SOCKS5 proxy (host:port)")
	cmd.Flags().Bool("keep-query-hash", false,
		"Add a hash of the query string to local file names")

	// Configuration file
	cmd.Flags().String("config", "",
		"Configuration file path (default: .pageloader in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().String("report", "",
		"Write report to specified file path (creates directories if needed)")

	cmd.Flags().Bool("no-history", false,
		"Do not record loads in the history database")
	cmd.Flags().Bool("strict", false,
		"Exit with an error when any resource fails to download")

	return cmd
}

// runLoadCmd executes the load command.
func runLoadCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closer := setupLogger(cfg.Verbose, cfg.LogFile)
	defer closer.Close()
	slog.SetDefault(logger)

	// In-flight downloads are aborted on interrupt and reported as failed.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runLoad(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.OutputDir, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.ProxyAddress, err = cmd.Flags().GetString("proxy")
	if err != nil {
		return nil, err
	}

	cfg.KeepQueryHash, err = cmd.Flags().GetBool("keep-query-hash")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit --config path must exist; the default locations are optional.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("report")
	if err != nil {
		return nil, err
	}

	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory

	cfg.Strict, err = cmd.Flags().GetBool("strict")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.LogFile = getLogFileFlag(cmd)
	cfg.Targets = args

	return cfg, nil
}

// runLoad loads every target and writes one report per page to stdout or
// the report file. Progress lines go to progress.
func runLoad(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, progress io.Writer) error {
	logger.Info("starting load",
		"targets", cfg.Targets,
		"output_dir", cfg.OutputDir,
		"batch_size", cfg.BatchSize,
		"save_to_db", cfg.SaveToDB,
	)

	var db *database.HistoryDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	output := stdout
	if cfg.ReportFile != "" {
		f, err := createReportFile(cfg.ReportFile)
		if err != nil {
			return err
		}
		defer f.Close()
		output = f
	}
	writer := newReportWriter(cfg, output)

	bp := loader.NewBatchProcessor(
		newLoaderFactory(cfg, logger),
		loader.WithBatchSize(cfg.BatchSize),
		loader.WithBatchLogger(logger),
	)

	var (
		mu      sync.Mutex
		done    int
		fatal   int
		partial int
	)
	startTime := time.Now()

	err := bp.ProcessBatchWithCallback(ctx, cfg.Targets, cfg.OutputDir, func(result *model.LoadResult, _ int) {
		mu.Lock()
		defer mu.Unlock()

		done++
		switch {
		case !result.Complete():
			fatal++
			fmt.Fprintf(progress, "[%d/%d] failed: %s: %s\n", done, len(cfg.Targets), result.URL, result.Error)
		case result.HasFailures():
			partial++
			fmt.Fprintf(progress, "[%d/%d] saved with %d failed resources: %s\n",
				done, len(cfg.Targets), result.FailedCount(), result.DocumentPath)
		default:
			fmt.Fprintf(progress, "[%d/%d] saved: %s\n", done, len(cfg.Targets), result.DocumentPath)
		}

		if _, err := writer.Write(result); err != nil {
			logger.Error("report failed", "url", result.URL, "error", err)
		}

		// Interrupted loads are still recorded.
		if err := saveLoadResult(context.WithoutCancel(ctx), db, result, logger); err != nil {
			logger.Error("failed to save load result", "url", result.URL, "error", err)
		}
	})

	logger.Info("load finished",
		"pages", len(cfg.Targets),
		"failed_pages", fatal,
		"partial_pages", partial,
		"elapsed", time.Since(startTime).Round(time.Millisecond),
	)

	if err != nil {
		return fmt.Errorf("load interrupted: %w", err)
	}
	if fatal > 0 {
		return fmt.Errorf("%d of %d pages could not be saved", fatal, len(cfg.Targets))
	}
	if cfg.Strict && partial > 0 {
		return fmt.Errorf("%w: %d of %d pages are incomplete", errResourcesFailed, partial, len(cfg.Targets))
	}

	return nil
}

// newLoaderFactory returns a factory that builds a Loader with the
// per-site settings of each page.
func newLoaderFactory(cfg *config.Config, logger *slog.Logger) loader.Factory {
	return func(pageURL string) (*loader.Loader, error) {
		site := cfg.SiteConfigFor(pageURL)

		logger.Debug("site settings",
			"url", pageURL,
			"user_agent", site.UserAgent,
			"concurrency", site.Concurrency,
			"keep_query_hash", site.KeepQueryHash,
			log.HeaderAttr(site.Headers),
		)

		opts := []fetch.Option{
			fetch.WithTimeout(cfg.Timeout),
			fetch.WithUserAgent(site.UserAgent),
			fetch.WithMaxBodySize(cfg.MaxBodySize),
		}
		if len(site.Headers) > 0 {
			opts = append(opts, fetch.WithHeaders(site.Headers))
		}
		if cfg.ProxyAddress != "" {
			opts = append(opts, fetch.WithProxy(cfg.ProxyAddress))
		}

		client, err := fetch.NewClient(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create http client: %w", err)
		}

		return loader.New(client,
			loader.WithLogger(logger.With("page", pageURL)),
			loader.WithConcurrency(site.Concurrency),
			loader.WithDeriver(naming.NewDeriver(naming.WithQueryHash(site.KeepQueryHash))),
		), nil
	}
}

// newReportWriter returns the report writer selected by the config.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	format := report.FormatFromFlags(cfg.JSONReport, cfg.MarkdownReport)
	if format == report.FormatText {
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
	return report.New(output, format, getVersion())
}

// createReportFile creates or truncates path, creating parent directories.
func createReportFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	// Reports list request URLs, so keep them private to the owner.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided report path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}
	return f, nil
}

// saveLoadResult records result in db. A nil db is a no-op.
func saveLoadResult(ctx context.Context, db *database.HistoryDB, result *model.LoadResult, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	if err := db.SaveLoadResult(ctx, result); err != nil {
		return fmt.Errorf("failed to save load result: %w", err)
	}

	logger.Info("load result saved to database", "url", result.URL, "id", result.ID)
	return nil
}
