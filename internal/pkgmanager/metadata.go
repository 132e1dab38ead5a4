// Package pkgmanager implements the Package Manager (spec §4.9, C10):
// exporting a worktree's environment, declared volumes, and optional code
// into a single `.dockertree-package.tar.gz`, and importing one back,
// either into a fresh worktree ("normal mode") or onto bare disk
// ("standalone mode"), with checksum verification before any side effect.
package pkgmanager

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/griffithind/dockertree/internal/dterrors"
	"github.com/griffithind/dockertree/internal/version"
)

// PackageVersion is the on-disk package format version, bumped whenever
// metadata.json's shape changes in a way that breaks older import code.
const PackageVersion = 1

// ModeHint records which import path produced a worktree (or is expected
// to consume one), surfaced for diagnostics and `packages validate`.
const (
	ModeHintNormal     = "normal"
	ModeHintStandalone = "standalone"
)

// Metadata is the exact field set of metadata.json, per spec §4.9 step 6.
type Metadata struct {
	PackageVersion int               `json:"package_version"`
	ToolVersion    string            `json:"tool_version"`
	CreatedAt      time.Time         `json:"created_at"`
	BranchName     string            `json:"branch_name"`
	ProjectName    string            `json:"project_name"`
	GitCommit      string            `json:"git_commit"`
	IncludeCode    bool              `json:"include_code"`
	Volumes        []string          `json:"volumes"`
	Checksums      map[string]string `json:"checksums"`
	ModeHint       string            `json:"mode_hint"`
}

// NewMetadata builds a Metadata record with the current tool version and
// timestamp filled in.
func NewMetadata(projectName, branchName, gitCommit string, includeCode bool, volumes []string, checksums map[string]string, modeHint string, createdAt time.Time) Metadata {
	return Metadata{
		PackageVersion: PackageVersion,
		ToolVersion:    version.Version,
		CreatedAt:      createdAt,
		BranchName:     branchName,
		ProjectName:    projectName,
		GitCommit:      gitCommit,
		IncludeCode:    includeCode,
		Volumes:        volumes,
		Checksums:      checksums,
		ModeHint:       modeHint,
	}
}

// sha256File returns the lowercase hex SHA-256 digest of a file's raw
// bytes, per spec §4.9 step 6 / §6.2's "Checksums are SHA-256 over the raw
// file bytes."
func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", dterrors.Wrapf(err, dterrors.CategoryPackage, "CHECKSUM_READ", "failed to open %s for checksumming", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", dterrors.Wrapf(err, dterrors.CategoryPackage, "CHECKSUM_READ", "failed to read %s for checksumming", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeMetadata serializes meta to path as indented JSON.
func writeMetadata(path string, meta Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return dterrors.Wrap(err, dterrors.CategoryPackage, "METADATA_MARSHAL", "failed to marshal metadata.json")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return dterrors.Wrapf(err, dterrors.CategoryPackage, "METADATA_WRITE", "failed to write %s", path)
	}
	return nil
}

// readMetadata parses metadata.json at path.
func readMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, dterrors.Wrapf(err, dterrors.CategoryIntegrity, dterrors.CodeCorruptMetadata,
			"failed to read %s", path)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, dterrors.Wrapf(err, dterrors.CategoryIntegrity, dterrors.CodeCorruptMetadata,
			"failed to parse %s", path)
	}
	return meta, nil
}
