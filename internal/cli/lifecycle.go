package cli

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/griffithind/dockertree/internal/dterrors"
	"github.com/griffithind/dockertree/internal/output"
)

var createCmd = &cobra.Command{
	Use:   "create <branch>",
	Short: "Create a worktree and environment for a branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		branch := args[0]
		ctx := cmd.Context()
		return runOp("create", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			return p.withBranchLock(branch, func() (interface{}, error) {
				if err := p.orch.Create(ctx, branch); err != nil {
					return nil, err
				}
				output.Success("created worktree for %s", branch)
				return map[string]string{"branch": branch}, nil
			})
		})
	},
}

var upDetach bool

var upCmd = &cobra.Command{
	Use:   "up <branch>",
	Short: "Start a branch's environment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		branch := args[0]
		ctx := cmd.Context()
		return runOp("up", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			return p.withBranchLock(branch, func() (interface{}, error) {
				if err := p.orch.Start(ctx, branch); err != nil {
					return nil, err
				}
				output.Success("%s is up", branch)
				return map[string]string{"branch": branch}, nil
			})
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down <branch>",
	Short: "Stop a branch's environment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		branch := args[0]
		ctx := cmd.Context()
		return runOp("down", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			return p.withBranchLock(branch, func() (interface{}, error) {
				if err := p.orch.Stop(ctx, branch); err != nil {
					return nil, err
				}
				output.Success("%s is down", branch)
				return map[string]string{"branch": branch}, nil
			})
		})
	},
}

// branchResult is one branch's outcome within a bulk remove/delete
// operation, surfaced under --json per the "partial-failure exit code"
// design decision (SPEC_FULL.md §9 item 3).
type branchResult struct {
	Branch  string `json:"branch"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func matchBranches(p *project, ctx context.Context, patternOrBranch string, all bool) ([]string, error) {
	entries, err := p.repo.WorktreeList(ctx)
	if err != nil {
		return nil, err
	}
	var matched []string
	for _, e := range entries {
		if e.Branch == "" {
			continue
		}
		if all {
			matched = append(matched, e.Branch)
			continue
		}
		if e.Branch == patternOrBranch {
			return []string{e.Branch}, nil
		}
		if ok, _ := filepath.Match(patternOrBranch, e.Branch); ok {
			matched = append(matched, e.Branch)
		}
	}
	if len(matched) == 0 && !all {
		return nil, dterrors.Newf(dterrors.CategoryNotFound, dterrors.CodeWorktreeNotFound,
			"no worktree matches %q", patternOrBranch)
	}
	return matched, nil
}

func bulkApply(p *project, ctx context.Context, branches []string, op func(branch string) error) []branchResult {
	results := make([]branchResult, 0, len(branches))
	for _, b := range branches {
		res := branchResult{Branch: b, Success: true}
		if _, err := p.withBranchLock(b, func() (interface{}, error) { return nil, op(b) }); err != nil {
			res.Success = false
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results
}

func anyFailed(results []branchResult) bool {
	for _, r := range results {
		if !r.Success {
			return true
		}
	}
	return false
}

var removeForce bool

var removeCmd = &cobra.Command{
	Use:     "remove <branch|pattern>",
	Aliases: []string{"-r"},
	Short:   "Remove a branch's worktree and containers, keeping the git branch",
	Long: `Remove a branch's worktree and containers, keeping the git branch.

Accepts a literal branch name or a glob pattern matched against existing
worktrees.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]
		ctx := cmd.Context()
		return runOp("remove", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			branches, err := matchBranches(p, ctx, target, false)
			if err != nil {
				return nil, err
			}
			results := bulkApply(p, ctx, branches, func(b string) error { return p.orch.Remove(ctx, b) })
			if anyFailed(results) {
				return results, dterrors.Newf(dterrors.CategoryPrecond, "BULK_PARTIAL_FAILURE",
					"one or more branches failed to remove")
			}
			output.Success("removed %d worktree(s)", len(results))
			return results, nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <branch|pattern>",
	Aliases: []string{"-D"},
	Short:   "Remove a branch's worktree/containers and delete the git branch",
	Long: `Remove a branch's worktree/containers and delete the git branch.

Accepts a literal branch name or a glob pattern matched against existing
worktrees.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]
		ctx := cmd.Context()
		return runOp("delete", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			branches, err := matchBranches(p, ctx, target, false)
			if err != nil {
				return nil, err
			}
			results := bulkApply(p, ctx, branches, func(b string) error { return p.orch.Delete(ctx, b, removeForce) })
			if anyFailed(results) {
				return results, dterrors.Newf(dterrors.CategoryPrecond, "BULK_PARTIAL_FAILURE",
					"one or more branches failed to delete")
			}
			output.Success("deleted %d branch(es)", len(results))
			return results, nil
		})
	},
}

var removeAllCmd = &cobra.Command{
	Use:   "remove-all",
	Short: "Remove every worktree and its containers, keeping git branches",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return runOp("remove-all", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			branches, err := matchBranches(p, ctx, "", true)
			if err != nil {
				return nil, err
			}
			results := bulkApply(p, ctx, branches, func(b string) error { return p.orch.Remove(ctx, b) })
			if anyFailed(results) {
				return results, dterrors.Newf(dterrors.CategoryPrecond, "BULK_PARTIAL_FAILURE",
					"one or more branches failed to remove")
			}
			output.Success("removed %d worktree(s)", len(results))
			return results, nil
		})
	},
}

var deleteAllCmd = &cobra.Command{
	Use:   "delete-all",
	Short: "Remove every worktree and delete its git branch",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return runOp("delete-all", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			branches, err := matchBranches(p, ctx, "", true)
			if err != nil {
				return nil, err
			}
			results := bulkApply(p, ctx, branches, func(b string) error { return p.orch.Delete(ctx, b, removeForce) })
			if anyFailed(results) {
				return results, dterrors.Newf(dterrors.CategoryPrecond, "BULK_PARTIAL_FAILURE",
					"one or more branches failed to delete")
			}
			output.Success("deleted %d branch(es)", len(results))
			return results, nil
		})
	},
}

func init() {
	upCmd.Flags().BoolVarP(&upDetach, "detach", "d", true, "run in the background (always true; accepted for familiarity)")
	removeCmd.Flags().BoolVar(&removeForce, "force", false, "no effect: remove keeps the git branch, so there is no unmerged-branch check to bypass")
	deleteCmd.Flags().BoolVar(&removeForce, "force", false, "bypass the unmerged-branch safety check")
	deleteAllCmd.Flags().BoolVar(&removeForce, "force", false, "bypass the unmerged-branch safety check")
	rootCmd.AddCommand(createCmd, upCmd, downCmd, removeCmd, deleteCmd, removeAllCmd, deleteAllCmd)
}
