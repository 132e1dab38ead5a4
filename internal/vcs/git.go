// Package vcs implements the VCS Adapter (spec §4.3, C4): git worktree
// lifecycle and branch-archival operations. Like the reference worktree
// tooling in the example pack, it shells out to the `git` binary via
// os/exec rather than a Go git library — no example repo in the corpus uses
// one for worktree management (see DESIGN.md).
package vcs

import (
	"context"
	"os/exec"
	"strings"

	"github.com/griffithind/dockertree/internal/dterrors"
)

// Repo is a git repository rooted at Root.
type Repo struct {
	Root string
}

// Open resolves the top level of the git working tree containing dir (for a
// linked worktree, that worktree's own checkout).
func Open(ctx context.Context, dir string) (*Repo, error) {
	out, err := runGit(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, dterrors.Wrap(err, dterrors.CategoryVCS, dterrors.CodeExternalToolFailed,
			"not inside a git repository")
	}
	return &Repo{Root: strings.TrimSpace(out)}, nil
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), dterrors.Wrapf(err, dterrors.CategoryVCS, dterrors.CodeExternalToolFailed,
			"git %s failed: %s", strings.Join(args, " "), strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

func (r *Repo) git(ctx context.Context, args ...string) (string, error) {
	return runGit(ctx, r.Root, args...)
}

// BranchExists reports whether a local branch with the given name exists.
func (r *Repo) BranchExists(ctx context.Context, branch string) bool {
	_, err := r.git(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}

// WorktreeAdd creates a linked worktree at path for branch, creating the
// branch from HEAD if it does not already exist, per spec §4.3's
// worktree_add.
func (r *Repo) WorktreeAdd(ctx context.Context, branch, path string) error {
	args := []string{"worktree", "add"}
	if !r.BranchExists(ctx, branch) {
		args = append(args, "-b", branch, path)
	} else {
		args = append(args, path, branch)
	}
	if _, err := r.git(ctx, args...); err != nil {
		return dterrors.Wrapf(err, dterrors.CategoryVCS, dterrors.CodeExternalToolFailed,
			"failed to create worktree for branch %q at %s", branch, path)
	}
	return nil
}

// WorktreeRemove removes a worktree checkout, leaving its branch intact.
func (r *Repo) WorktreeRemove(ctx context.Context, path string) error {
	if _, err := r.git(ctx, "worktree", "remove", "--force", path); err != nil {
		return dterrors.Wrapf(err, dterrors.CategoryVCS, dterrors.CodeExternalToolFailed,
			"failed to remove worktree at %s", path)
	}
	return nil
}

// WorktreeEntry is one line of `git worktree list`.
type WorktreeEntry struct {
	Path   string
	Branch string
	HEAD   string
}

// WorktreeList lists all linked worktrees of the repository.
func (r *Repo) WorktreeList(ctx context.Context) ([]WorktreeEntry, error) {
	out, err := r.git(ctx, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}

	var entries []WorktreeEntry
	var cur WorktreeEntry
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			if cur.Path != "" {
				entries = append(entries, cur)
			}
			cur = WorktreeEntry{Path: strings.TrimPrefix(line, "worktree ")}
		case strings.HasPrefix(line, "HEAD "):
			cur.HEAD = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			cur.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
		}
	}
	if cur.Path != "" {
		entries = append(entries, cur)
	}
	return entries, nil
}

// WorktreePrune removes administrative files for worktrees whose checkout
// directory has been deleted out-of-band.
func (r *Repo) WorktreePrune(ctx context.Context) error {
	if _, err := r.git(ctx, "worktree", "prune"); err != nil {
		return dterrors.Wrap(err, dterrors.CategoryVCS, dterrors.CodeExternalToolFailed,
			"failed to prune worktree metadata")
	}
	return nil
}

// BranchDelete deletes a local branch, per spec §4.3's branch_delete.
// Protected branches are always refused; in safe mode, branches with
// unmerged commits are also refused unless the caller has already removed
// the worktree intentionally (safe=false is the explicit override).
func (r *Repo) BranchDelete(ctx context.Context, branch string, safe bool, protected []string) error {
	for _, p := range protected {
		if branch == p {
			return dterrors.Newf(dterrors.CategoryValidation, dterrors.CodeProtectedBranch,
				"refusing to delete protected branch %q", branch)
		}
	}

	flag := "-D"
	if safe {
		flag = "-d"
	}
	if _, err := r.git(ctx, "branch", flag, branch); err != nil {
		if safe {
			return dterrors.Wrapf(err, dterrors.CategoryPrecond, dterrors.CodeExternalToolFailed,
				"branch %q has unmerged commits; delete with an explicit override to proceed", branch)
		}
		return dterrors.Wrapf(err, dterrors.CategoryVCS, dterrors.CodeExternalToolFailed,
			"failed to delete branch %q", branch)
	}
	return nil
}

// HeadCommit returns the full commit SHA that branch currently points at.
func (r *Repo) HeadCommit(ctx context.Context, branch string) (string, error) {
	out, err := r.git(ctx, "rev-parse", branch)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CurrentBranch returns the branch HEAD points at in the project root,
// for commands that default an optional branch argument to "whatever
// branch I'm standing in" (e.g. droplet push).
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Branches lists every local branch, independent of whether it has a
// worktree checked out, for shell completion's branch-name candidates.
func (r *Repo) Branches(ctx context.Context) ([]string, error) {
	out, err := r.git(ctx, "for-each-ref", "--format=%(refname:short)", "refs/heads/")
	if err != nil {
		return nil, err
	}
	var branches []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			branches = append(branches, line)
		}
	}
	return branches, nil
}

// Archive writes a reproducible tar archive of branch's tree to outPath,
// per spec §4.3's archive operation.
func (r *Repo) Archive(ctx context.Context, branch, outPath string) error {
	if _, err := r.git(ctx, "archive", "--format=tar", "-o", outPath, branch); err != nil {
		return dterrors.Wrapf(err, dterrors.CategoryVCS, dterrors.CodeExternalToolFailed,
			"failed to archive branch %q", branch)
	}
	return nil
}
