package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nao1215/pageloader/internal/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for pageloader.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pageloader",
		Short: "Save web pages with their local resources for offline viewing",
		Long: `pageloader downloads a web page, saves every same-origin stylesheet,
image and script it references into a sibling directory, and rewrites the
page so those references point at the saved copies.

Cross-origin references are left untouched. A failed resource does not fail
the page; it is listed in the load report instead.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-file", "", "Write logs to a rotated file instead of stderr")

	cmd.AddCommand(NewLoadCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getLogFileFlag retrieves the log-file flag from the command or its parent.
func getLogFileFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("log-file")
	if err != nil {
		path, err = cmd.Root().PersistentFlags().GetString("log-file")
		if err != nil {
			return ""
		}
	}
	return path
}

// setupLogger creates the structured logger. Logs go to stderr unless
// logFile is set, in which case they are appended to a rotated file.
// The returned closer must be closed when the command ends.
func setupLogger(verbose bool, logFile string) (*slog.Logger, io.Closer) {
	if logFile == "" {
		return log.NewSecureLogger(os.Stderr, verbose), io.NopCloser(nil)
	}

	w := log.NewRotatingWriter(logFile)
	return log.NewSecureJSONLogger(w, verbose), w
}
