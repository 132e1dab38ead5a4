package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func initRepo(t *testing.T, dir string) {
	t.Helper()
	run := func(args ...string) {
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "Test")
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	run("add", ".")
	run("commit", "-m", "initial")
}

func TestWorktreeAddListRemove(t *testing.T) {
	if err := exec.Command("git", "--version").Run(); err != nil {
		t.Skip("git not available")
	}

	root := t.TempDir()
	initRepo(t, root)

	ctx := context.Background()
	repo, err := Open(ctx, root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	worktreePath := filepath.Join(t.TempDir(), "feature-x")
	if err := repo.WorktreeAdd(ctx, "feature-x", worktreePath); err != nil {
		t.Fatalf("WorktreeAdd: %v", err)
	}

	entries, err := repo.WorktreeList(ctx)
	if err != nil {
		t.Fatalf("WorktreeList: %v", err)
	}
	found := false
	for _, e := range entries {
		if e.Branch == "feature-x" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected feature-x worktree in list, got %+v", entries)
	}

	if err := repo.WorktreeRemove(ctx, worktreePath); err != nil {
		t.Fatalf("WorktreeRemove: %v", err)
	}
}

func TestBranchDeleteRefusesProtected(t *testing.T) {
	if err := exec.Command("git", "--version").Run(); err != nil {
		t.Skip("git not available")
	}

	root := t.TempDir()
	initRepo(t, root)

	ctx := context.Background()
	repo, err := Open(ctx, root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	branch, err := repo.git(ctx, "branch", "--show-current")
	if err != nil {
		t.Fatalf("branch --show-current: %v", err)
	}
	current := trimmed(branch)

	if err := repo.BranchDelete(ctx, current, true, []string{current}); err == nil {
		t.Error("expected error deleting protected branch")
	}
}

func TestCurrentBranchAndBranches(t *testing.T) {
	if err := exec.Command("git", "--version").Run(); err != nil {
		t.Skip("git not available")
	}

	root := t.TempDir()
	initRepo(t, root)

	ctx := context.Background()
	repo, err := Open(ctx, root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	current, err := repo.CurrentBranch(ctx)
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if current == "" {
		t.Error("expected a non-empty current branch")
	}

	worktreePath := filepath.Join(t.TempDir(), "feature-y")
	if err := repo.WorktreeAdd(ctx, "feature-y", worktreePath); err != nil {
		t.Fatalf("WorktreeAdd: %v", err)
	}

	branches, err := repo.Branches(ctx)
	if err != nil {
		t.Fatalf("Branches: %v", err)
	}
	found := false
	for _, b := range branches {
		if b == "feature-y" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected feature-y in Branches(), got %v", branches)
	}
}

func trimmed(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
