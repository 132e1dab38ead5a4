package pkgmanager

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/griffithind/dockertree/internal/pathresolve"
)

func TestSha256FileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("hello dockertree"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := sha256File(path)
	if err != nil {
		t.Fatal(err)
	}
	// sha256("hello dockertree")
	want := "b44e2ea90223d5144c20651719ff8f591ce1abeed8aac937d50f81e305fa8e71"
	if got != want {
		t.Errorf("sha256File = %s, want %s", got, want)
	}
}

func TestWriteReadMetadataRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.json")

	meta := NewMetadata("acme", "feature-x", "deadbeef", true,
		[]string{"db_data"}, map[string]string{"environment/env.dockertree": "abc123"},
		ModeHintNormal, time.Unix(1700000000, 0).UTC())

	if err := writeMetadata(path, meta); err != nil {
		t.Fatal(err)
	}

	got, err := readMetadata(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.BranchName != meta.BranchName || got.ProjectName != meta.ProjectName {
		t.Errorf("round-tripped metadata mismatch: got %+v, want %+v", got, meta)
	}
	if got.PackageVersion != PackageVersion {
		t.Errorf("PackageVersion = %d, want %d", got.PackageVersion, PackageVersion)
	}
	if got.Checksums["environment/env.dockertree"] != "abc123" {
		t.Errorf("checksum not preserved: %+v", got.Checksums)
	}
}

func TestVerifyChecksumsDetectsMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "environment", "env.dockertree")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("SITE_DOMAIN=http://x.localhost\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sum, err := sha256File(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := verifyChecksums(dir, map[string]string{"environment/env.dockertree": sum}); err != nil {
		t.Errorf("verifyChecksums should pass with a correct checksum: %v", err)
	}

	if err := verifyChecksums(dir, map[string]string{"environment/env.dockertree": "wrong"}); err == nil {
		t.Error("verifyChecksums should fail on a mismatched checksum")
	}

	if err := verifyChecksums(dir, map[string]string{"environment/missing.txt": sum}); err == nil {
		t.Error("verifyChecksums should fail on a missing file")
	}
}

func TestDetectMode(t *testing.T) {
	if got := DetectMode(nil); got != ModeHintStandalone {
		t.Errorf("DetectMode(nil) = %s, want %s", got, ModeHintStandalone)
	}

	withRoot := &pathresolve.Context{VCSRoot: "/repo"}
	if got := DetectMode(withRoot); got != ModeHintNormal {
		t.Errorf("DetectMode(with VCS root) = %s, want %s", got, ModeHintNormal)
	}

	withoutRoot := &pathresolve.Context{}
	if got := DetectMode(withoutRoot); got != ModeHintStandalone {
		t.Errorf("DetectMode(without VCS root) = %s, want %s", got, ModeHintStandalone)
	}
}

func TestBundleAndExtractArchiveRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(srcDir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "metadata.json"), []byte(`{"a":1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "sub", "file.txt"), []byte("nested"), 0o644); err != nil {
		t.Fatal(err)
	}

	archivePath := filepath.Join(t.TempDir(), "bundle.tar.gz")
	if err := bundleDir(srcDir, archivePath); err != nil {
		t.Fatal(err)
	}

	dstDir := t.TempDir()
	if err := extractArchive(archivePath, dstDir); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(filepath.Join(dstDir, "sub", "file.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "nested" {
		t.Errorf("extracted content = %q, want %q", got, "nested")
	}
	if _, err := os.Stat(filepath.Join(dstDir, "metadata.json")); err != nil {
		t.Errorf("expected metadata.json to be extracted: %v", err)
	}
}
