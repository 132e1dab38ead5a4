// Package cli implements the command-line interface for dockertree: a
// multi-worktree CLI where most operations take a branch name instead of
// operating on a single fixed checkout.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/griffithind/dockertree/internal/dtlog"
	"github.com/griffithind/dockertree/internal/output"
	"github.com/griffithind/dockertree/internal/version"
)

// Global flags, set by persistent flags on rootCmd.
var (
	workspacePath string
	configPath    string
	jsonOutput    bool
	noColor       bool
	quiet         bool
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:     "dockertree",
	Short:   "Isolated per-branch Docker development environments",
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		format := output.FormatText
		if jsonOutput {
			format = output.FormatJSON
		}
		verbosity := output.VerbosityNormal
		switch {
		case quiet:
			verbosity = output.VerbosityQuiet
		case verbose:
			verbosity = output.VerbosityVerbose
		}
		output.Configure(output.Config{
			Format:    format,
			Verbosity: verbosity,
			NoColor:   noColor,
			Writer:    os.Stdout,
			ErrWriter: os.Stderr,
		})
		dtlog.SetVerbose(verbose)
		dtlog.Configure(os.Stderr, jsonOutput)

		if workspacePath == "" {
			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to determine working directory: %w", err)
			}
			workspacePath = wd
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&workspacePath, "workspace", "", "project root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to .dockertree/config.yml (default: resolved from workspace)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit structured JSON output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// Execute runs the command tree and returns the process exit code per
// spec §6.1's exit code convention (0 success, 1 expected failure, 2
// misuse, 3 external failure, 4 cancelled, 5 integrity failure).
//
// Every leaf command reports its own outcome through runOp (which writes
// the --json envelope or the text success/error line and records
// lastExitCode) and then returns nil, so cobra never double-prints. An
// error surfacing here instead means cobra itself rejected the invocation
// (unknown command, bad flags) before any RunE ran: that is a misuse, exit
// code 2.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	return lastExitCode
}

var lastExitCode int
