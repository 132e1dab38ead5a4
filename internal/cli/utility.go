package cli

import (
	"github.com/spf13/cobra"

	"github.com/griffithind/dockertree/internal/envgen"
	"github.com/griffithind/dockertree/internal/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List worktrees and their state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return runOp("list", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			entries, err := p.repo.WorktreeList(ctx)
			if err != nil {
				return nil, err
			}

			type row struct {
				Branch string `json:"branch"`
				Path   string `json:"path"`
				State  string `json:"state"`
			}
			var rows []row
			for _, e := range entries {
				if e.Branch == "" {
					continue
				}
				state, _ := p.orch.State(ctx, e.Branch)
				rows = append(rows, row{Branch: e.Branch, Path: e.Path, State: string(state)})
			}

			if !output.IsJSON() {
				tableRows := make([][]string, 0, len(rows))
				for _, r := range rows {
					tableRows = append(tableRows, []string{r.Branch, r.State, r.Path})
				}
				_ = output.RenderTable([]string{"BRANCH", "STATE", "PATH"}, tableRows)
			}
			return rows, nil
		})
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove stale git worktree administrative files",
	Long: `Remove administrative files for worktrees whose checkout directory no
longer exists on disk (e.g. removed manually instead of via 'remove').`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return runOp("prune", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			if err := p.repo.WorktreePrune(ctx); err != nil {
				return nil, err
			}
			output.Success("pruned stale worktree records")
			return nil, nil
		})
	},
}

// legacyPortKeys are the host-port-triple keys current env.dockertree files
// always carry; their absence marks a worktree created before that scheme
// existed, per SPEC_FULL.md §9 item 4.
var legacyPortKeys = []string{"DOCKERTREE_DB_HOST_PORT", "DOCKERTREE_REDIS_HOST_PORT", "DOCKERTREE_WEB_HOST_PORT"}

var cleanLegacyCmd = &cobra.Command{
	Use:   "clean-legacy",
	Short: "Remove runtime objects left by pre-host-port-triple worktrees",
	Long: `Scans every worktree's env.dockertree for the host-port-triple keys
current worktrees always carry. Worktrees whose env file predates that
scheme are stopped, their containers and volumes removed, and the
checkout detached — the git branch itself is left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return runOp("clean-legacy", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()

			entries, err := p.repo.WorktreeList(ctx)
			if err != nil {
				return nil, err
			}

			var legacy []string
			for _, e := range entries {
				if e.Branch == "" {
					continue
				}
				lines, err := envgen.ReadLines(p.orch.EnvFilePath(e.Branch))
				if err != nil {
					continue
				}
				isLegacy := false
				for _, key := range legacyPortKeys {
					if _, ok := lines[key]; !ok {
						isLegacy = true
						break
					}
				}
				if isLegacy {
					legacy = append(legacy, e.Branch)
				}
			}

			results := bulkApply(p, ctx, legacy, func(b string) error { return p.orch.Remove(ctx, b) })
			output.Success("cleaned %d legacy worktree(s)", len(results))
			return results, nil
		})
	},
}

func init() {
	rootCmd.AddCommand(listCmd, pruneCmd, cleanLegacyCmd)
}
