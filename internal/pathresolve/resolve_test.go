package pathresolve

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetupThenResolve(t *testing.T) {
	dir := t.TempDir()

	result, err := Setup(dir, SetupOptions{ProjectName: "myapp"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if result.AlreadyPresent {
		t.Fatal("expected fresh setup, not AlreadyPresent")
	}
	if len(result.Created) == 0 {
		t.Fatal("expected Setup to create files")
	}

	sub := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	ctx, err := Resolve(sub)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	realDir, _ := filepath.EvalSymlinks(dir)
	if ctx.ProjectRoot != realDir {
		t.Errorf("ProjectRoot = %q, want %q", ctx.ProjectRoot, realDir)
	}
}

func TestSetupIdempotent(t *testing.T) {
	dir := t.TempDir()

	if _, err := Setup(dir, SetupOptions{ProjectName: "myapp"}); err != nil {
		t.Fatalf("first Setup: %v", err)
	}

	result, err := Setup(dir, SetupOptions{ProjectName: "myapp"})
	if err != nil {
		t.Fatalf("second Setup: %v", err)
	}
	if !result.AlreadyPresent {
		t.Error("expected second Setup to report AlreadyPresent")
	}
	if len(result.Created) != 0 {
		t.Errorf("expected no files created on idempotent re-run, got %v", result.Created)
	}
}

func TestResolveNotFound(t *testing.T) {
	dir := t.TempDir()
	if _, err := Resolve(dir); err == nil {
		t.Error("expected error when no .dockertree/ exists")
	}
}

func TestFindComposeFilePrefersYml(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "docker-compose.yaml"), []byte("services: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "docker-compose.yml"), []byte("services: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got := FindComposeFile(dir)
	if filepath.Base(got) != "docker-compose.yml" {
		t.Errorf("FindComposeFile = %q, want docker-compose.yml", got)
	}
}
