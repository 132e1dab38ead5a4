package orchestrator

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/griffithind/dockertree/internal/dtconfig"
	"github.com/griffithind/dockertree/internal/pathresolve"
)

func newTestOrchestrator(t *testing.T, branches ...string) *Orchestrator {
	t.Helper()
	root := t.TempDir()
	worktreesDir := filepath.Join(root, dtconfig.DefaultWorktreeDir)
	for _, b := range branches {
		if err := os.MkdirAll(filepath.Join(worktreesDir, b, pathresolve.DockertreeDirName), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	pctx := &pathresolve.Context{
		ProjectRoot:   root,
		DockertreeDir: filepath.Join(root, pathresolve.DockertreeDirName),
		ConfigPath:    filepath.Join(root, pathresolve.DockertreeDirName, pathresolve.ConfigFileName),
	}
	cfg := &dtconfig.Config{ProjectName: "myapp"}

	return New(pctx, cfg, nil, nil, nil)
}

func TestListBranches(t *testing.T) {
	o := newTestOrchestrator(t, "feature-a", "feature-b", "bugfix-1")

	branches, err := o.ListBranches()
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}
	sort.Strings(branches)
	want := []string{"bugfix-1", "feature-a", "feature-b"}
	if len(branches) != len(want) {
		t.Fatalf("branches = %v, want %v", branches, want)
	}
	for i := range want {
		if branches[i] != want[i] {
			t.Errorf("branches[%d] = %q, want %q", i, branches[i], want[i])
		}
	}
}

func TestListBranchesNested(t *testing.T) {
	o := newTestOrchestrator(t, "feature/auth", "feature/billing", "bugfix-1")

	branches, err := o.ListBranches()
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}
	sort.Strings(branches)
	want := []string{"bugfix-1", "feature/auth", "feature/billing"}
	if len(branches) != len(want) {
		t.Fatalf("branches = %v, want %v", branches, want)
	}
	for i := range want {
		if branches[i] != want[i] {
			t.Errorf("branches[%d] = %q, want %q", i, branches[i], want[i])
		}
	}
}

func TestListBranchesNoWorktreeDir(t *testing.T) {
	o := newTestOrchestrator(t)
	branches, err := o.ListBranches()
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}
	if len(branches) != 0 {
		t.Errorf("expected no branches, got %v", branches)
	}
}

func TestMatchBranchesGlobCaseInsensitive(t *testing.T) {
	o := newTestOrchestrator(t, "feature-auth", "feature-billing", "hotfix-1")

	matched, err := o.MatchBranches("Feature-*")
	if err != nil {
		t.Fatalf("MatchBranches: %v", err)
	}
	sort.Strings(matched)
	want := []string{"feature-auth", "feature-billing"}
	if len(matched) != len(want) {
		t.Fatalf("matched = %v, want %v", matched, want)
	}
	for i := range want {
		if matched[i] != want[i] {
			t.Errorf("matched[%d] = %q, want %q", i, matched[i], want[i])
		}
	}
}

func TestMatchBranchesInvalidGlob(t *testing.T) {
	o := newTestOrchestrator(t, "feature-a")
	if _, err := o.MatchBranches("[invalid"); err == nil {
		t.Error("expected an error for an invalid glob pattern")
	}
}

func TestWorktreePath(t *testing.T) {
	o := newTestOrchestrator(t)
	got := o.WorktreePath("feature-a")
	want := filepath.Join(o.pctx.ProjectRoot, dtconfig.DefaultWorktreeDir, "feature-a")
	if got != want {
		t.Errorf("WorktreePath = %q, want %q", got, want)
	}
}
