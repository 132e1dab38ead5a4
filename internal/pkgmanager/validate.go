package pkgmanager

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/griffithind/dockertree/internal/dterrors"
)

// PackageExtension is the suffix `packages export` writes and `packages
// list`/`validate` look for.
const PackageExtension = ".dockertree-package.tar.gz"

// Validate extracts path to a temporary directory, parses metadata.json,
// and recomputes every recorded checksum, without importing anything.
// Used by `packages validate` to check a package's integrity in isolation.
func Validate(path string) (Metadata, error) {
	tmpDir, err := os.MkdirTemp("", "dockertree-validate-")
	if err != nil {
		return Metadata{}, dterrors.Wrap(err, dterrors.CategoryPackage, "PACKAGE_TMPDIR", "failed to create a temporary extraction directory")
	}
	defer os.RemoveAll(tmpDir)

	if err := extractArchive(path, tmpDir); err != nil {
		return Metadata{}, err
	}
	meta, err := readMetadata(filepath.Join(tmpDir, "metadata.json"))
	if err != nil {
		return Metadata{}, err
	}
	if err := verifyChecksums(tmpDir, meta.Checksums); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

// List finds every package file in dir and reports its metadata, skipping
// (rather than failing on) any file that fails to parse or checksum, so a
// single corrupt package does not hide the rest of the directory.
func List(dir string) ([]Metadata, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, dterrors.Wrapf(err, dterrors.CategoryPackage, "PACKAGE_DIR_READ", "failed to read %s", dir)
	}
	var packages []Metadata
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), PackageExtension) {
			continue
		}
		meta, err := Validate(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		packages = append(packages, meta)
	}
	return packages, nil
}
