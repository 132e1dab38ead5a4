package orchestrator

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/griffithind/dockertree/internal/dterrors"
	"github.com/griffithind/dockertree/internal/pathresolve"
)

// ItemResult is one branch's outcome within a bulk remove/delete, per spec
// §4.4's best-effort partial-failure semantics: each transition is total
// for its own branch, independent of any other branch in the batch.
type ItemResult struct {
	Branch string
	Err    error
}

// ListBranches returns the branch names of every worktree checkout under
// the project's worktree directory. Branch names may contain "/" (spec §3),
// so a checkout can sit several directories deep (worktrees/feature/auth);
// the scan walks the tree and identifies a leaf checkout by the presence of
// its own .dockertree metadata directory, rather than assuming one path
// segment per branch.
func (o *Orchestrator) ListBranches() ([]string, error) {
	dir := filepath.Join(o.pctx.ProjectRoot, o.cfg.WorktreeDirOrDefault())
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, dterrors.Wrapf(err, dterrors.CategoryInternal, "WORKTREE_LIST", "failed to stat %s", dir)
	}

	var branches []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir || !d.IsDir() {
			return nil
		}
		if _, statErr := os.Stat(filepath.Join(path, pathresolve.DockertreeDirName)); statErr == nil {
			rel, relErr := filepath.Rel(dir, path)
			if relErr != nil {
				return relErr
			}
			branches = append(branches, filepath.ToSlash(rel))
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, dterrors.Wrapf(err, dterrors.CategoryInternal, "WORKTREE_LIST", "failed to list %s", dir)
	}
	return branches, nil
}

// MatchBranches returns every existing branch whose name matches pattern,
// a shell-style glob (`*`, `?`, `[...]`) compared case-insensitively, per
// spec §4.4's "Wildcards and bulk".
func (o *Orchestrator) MatchBranches(pattern string) ([]string, error) {
	branches, err := o.ListBranches()
	if err != nil {
		return nil, err
	}
	lowerPattern := strings.ToLower(pattern)

	var matched []string
	for _, b := range branches {
		ok, err := filepath.Match(lowerPattern, strings.ToLower(b))
		if err != nil {
			return nil, dterrors.Wrapf(err, dterrors.CategoryValidation, "INVALID_GLOB", "invalid glob pattern %q", pattern)
		}
		if ok {
			matched = append(matched, b)
		}
	}
	return matched, nil
}

// RemoveAll removes every branch matching pattern, independently: one
// branch's failure does not stop or roll back another's. Callers are
// expected to have already confirmed the match set with the user unless
// force was given; RemoveAll itself never prompts.
func (o *Orchestrator) RemoveAll(ctx context.Context, pattern string) ([]ItemResult, error) {
	branches, err := o.MatchBranches(pattern)
	if err != nil {
		return nil, err
	}
	results := make([]ItemResult, 0, len(branches))
	for _, b := range branches {
		results = append(results, ItemResult{Branch: b, Err: o.Remove(ctx, b)})
	}
	return results, nil
}

// DeleteAll deletes every branch matching pattern, independently, per
// RemoveAll's semantics plus the git branch_delete step.
func (o *Orchestrator) DeleteAll(ctx context.Context, pattern string, force bool) ([]ItemResult, error) {
	branches, err := o.MatchBranches(pattern)
	if err != nil {
		return nil, err
	}
	results := make([]ItemResult, 0, len(branches))
	for _, b := range branches {
		results = append(results, ItemResult{Branch: b, Err: o.Delete(ctx, b, force)})
	}
	return results, nil
}
