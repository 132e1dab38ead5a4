package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/griffithind/dockertree/internal/cli/rpcserver"
	"github.com/griffithind/dockertree/internal/dterrors"
)

// serveCmd exposes the programmatic surface (spec §6.5): newline-delimited
// JSON-RPC requests on stdin, newline-delimited JSON responses on stdout.
// Kept separate from the --json flag, which only changes how a single
// invocation's own result is printed; serve is a different process mode
// entirely, a long-lived loop instead of a one-shot command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the programmatic JSON-RPC surface over stdin/stdout",
	Long: `Reads newline-delimited JSON requests from stdin and writes a
newline-delimited JSON response to stdout for each one. Every request's
params must include working_directory (an absolute path to a dockertree
project); the request fails if that path has no .dockertree/config.yml.

Intended for callers embedding dockertree rather than shelling out to its
text/--json CLI output per invocation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server := rpcserver.New()
		err := server.Serve(cmd.Context(), os.Stdin, os.Stdout)
		if err != nil {
			err = dterrors.Wrap(err, dterrors.CategoryInternal, "RPC_SERVE_FAILED", "rpc server exited with an error")
		}
		lastExitCode = dterrors.ExitCode(err)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
