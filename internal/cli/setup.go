package cli

import (
	"github.com/spf13/cobra"

	"github.com/griffithind/dockertree/internal/output"
	"github.com/griffithind/dockertree/internal/pathresolve"
)

var (
	setupProjectName string
	setupForce       bool
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Scaffold .dockertree/ in the current project",
	Long: `Scaffold .dockertree/config.yml, a derived compose overlay placeholder,
and a proxy configuration template in the project root.

Idempotent: re-running setup without --monkey-patch (--force) reports the
existing state and makes no changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp("setup", func() (interface{}, error) {
			result, err := pathresolve.Setup(workspacePath, pathresolve.SetupOptions{
				ProjectName: setupProjectName,
				Force:       setupForce,
			})
			if err != nil {
				return nil, err
			}
			if result.AlreadyPresent {
				output.Info(".dockertree/ already present at %s", result.Context.DockertreeDir)
			} else {
				output.Success("scaffolded .dockertree/ at %s", result.Context.DockertreeDir)
			}
			return result, nil
		})
	},
}

func init() {
	setupCmd.Flags().StringVar(&setupProjectName, "project-name", "", "project name (default: directory name)")
	setupCmd.Flags().BoolVar(&setupForce, "monkey-patch", false, "overwrite existing .dockertree/ contents")
	setupCmd.Flags().BoolVar(&setupForce, "force", false, "alias for --monkey-patch")
	rootCmd.AddCommand(setupCmd)
}
