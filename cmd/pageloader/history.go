package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/pageloader/internal/config"
	"github.com/nao1215/pageloader/internal/database"
	"github.com/nao1215/pageloader/internal/report"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of loads listed when --limit is not set.
const defaultHistoryLimit = 20

// historyOptions holds the history command flags.
type historyOptions struct {
	url      string
	id       string
	listURLs bool
	limit    int
	format   report.Format
}

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Show previously loaded pages",
		Long: `History lists the loads recorded in the history database, newest first.

Every 'pageloader load' run is recorded unless --no-history is given.

Examples:
  # List recent loads
  pageloader history

  # List loads of one page
  pageloader history https://example.com/blog/about

  # Show one load with all its resources
  pageloader history --id 0b6f6f5e-3c0c-4d2c-9a57-8f6f0f1f9c3e

  # List every page that was ever loaded
  pageloader history --list-urls`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("id", "i", "",
		"Show the load with this ID and its resources")
	cmd.Flags().BoolP("list-urls", "L", false,
		"List every loaded page URL")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of loads to list (0 for all)")

	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output in Markdown format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := buildHistoryOptions(cmd, args)
	if err != nil {
		return err
	}

	return runHistory(cmd.Context(), config.XDGDataDir(), opts, cmd.OutOrStdout())
}

// buildHistoryOptions reads and validates the history flags before the
// database is opened.
func buildHistoryOptions(cmd *cobra.Command, args []string) (historyOptions, error) {
	var (
		opts historyOptions
		err  error
	)

	if len(args) > 0 {
		opts.url = args[0]
	}

	opts.id, err = cmd.Flags().GetString("id")
	if err != nil {
		return opts, err
	}

	opts.listURLs, err = cmd.Flags().GetBool("list-urls")
	if err != nil {
		return opts, err
	}

	opts.limit, err = cmd.Flags().GetInt("limit")
	if err != nil {
		return opts, err
	}
	if opts.limit < 0 {
		return opts, errors.New("invalid limit: must not be negative")
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return opts, err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return opts, err
	}
	if jsonOutput && markdownOutput {
		return opts, config.ErrConflictingReportFormats
	}
	opts.format = report.FormatFromFlags(jsonOutput, markdownOutput)

	return opts, nil
}

// runHistory prints the requested history from the database in dbDir.
func runHistory(ctx context.Context, dbDir string, opts historyOptions, out io.Writer) error {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	switch {
	case opts.listURLs:
		return listLoadedURLs(ctx, db, opts.format, out)
	case opts.id != "":
		result, err := db.GetLoad(ctx, opts.id)
		if err != nil {
			return err
		}
		_, err = newHistoryWriter(opts.format, out).Write(result)
		return err
	default:
		loads, err := db.ListLoads(ctx, opts.url, opts.limit)
		if err != nil {
			return err
		}
		_, err = newHistoryWriter(opts.format, out).WriteHistory(loads)
		return err
	}
}

// newHistoryWriter returns the writer for format. Stored loads are shown
// with every resource.
func newHistoryWriter(format report.Format, out io.Writer) report.Writer {
	if format == report.FormatText {
		return report.NewSimpleWriter(out, report.WithVerbose(true))
	}
	return report.New(out, format, getVersion())
}

// listLoadedURLs prints every loaded URL.
func listLoadedURLs(ctx context.Context, db *database.HistoryDB, format report.Format, out io.Writer) error {
	urls, err := db.ListURLs(ctx)
	if err != nil {
		return err
	}

	if format == report.FormatJSON {
		_, err := report.NewJSONWriter(out, report.WithPrettyPrint()).WriteValue(map[string][]string{"urls": urls})
		return err
	}

	if len(urls) == 0 {
		fmt.Fprintln(out, "No pages loaded yet.")
		fmt.Fprintln(out, "\nUse 'pageloader load <url>' to save a page.")
		return nil
	}

	fmt.Fprintf(out, "Loaded pages (%d):\n\n", len(urls))
	for _, u := range urls {
		fmt.Fprintf(out, "  - %s\n", u)
	}
	return nil
}
