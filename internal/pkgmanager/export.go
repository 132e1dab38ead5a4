package pkgmanager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/griffithind/dockertree/internal/dtconfig"
	"github.com/griffithind/dockertree/internal/dterrors"
	"github.com/griffithind/dockertree/internal/dtio"
	"github.com/griffithind/dockertree/internal/orchestrator"
	"github.com/griffithind/dockertree/internal/pathresolve"
	"github.com/griffithind/dockertree/internal/runtimeadapter"
	"github.com/griffithind/dockertree/internal/vcs"
)

const volumeCopierImage = "alpine:3.20"

// ExportOptions controls `packages export`, per spec §4.9.
type ExportOptions struct {
	IncludeCode bool
	IncludeData bool // back up declared volumes; false produces an environment-only package
	OutputDir   string
}

// ExportResult reports where the finished package landed.
type ExportResult struct {
	PackagePath string
	Metadata    Metadata
}

// Exporter drives `packages export`.
type Exporter struct {
	pctx *pathresolve.Context
	cfg  *dtconfig.Config
	repo *vcs.Repo
	rt   *runtimeadapter.Adapter
	orch *orchestrator.Orchestrator
}

// NewExporter builds an Exporter bound to a resolved project.
func NewExporter(pctx *pathresolve.Context, cfg *dtconfig.Config, repo *vcs.Repo, rt *runtimeadapter.Adapter, orch *orchestrator.Orchestrator) *Exporter {
	return &Exporter{pctx: pctx, cfg: cfg, repo: repo, rt: rt, orch: orch}
}

// Export implements spec §4.9's export steps: stop-if-running, bundle
// environment + volumes + optional code, checksum, compress, restart if
// it had been running.
func (e *Exporter) Export(ctx context.Context, branch string, opts ExportOptions) (*ExportResult, error) {
	wasRunning, err := e.stopIfRunning(ctx, branch)
	if err != nil {
		return nil, err
	}
	defer func() {
		if wasRunning {
			_ = e.orch.Start(ctx, branch)
		}
	}()

	tmpDir, err := os.MkdirTemp("", "dockertree-package-")
	if err != nil {
		return nil, dterrors.Wrap(err, dterrors.CategoryPackage, "PACKAGE_TMPDIR", "failed to create a temporary bundle directory")
	}
	defer os.RemoveAll(tmpDir)

	envDir := filepath.Join(tmpDir, "environment")
	worktreePath := e.orch.WorktreePath(branch)
	worktreeDockertreeDir := filepath.Join(worktreePath, pathresolve.DockertreeDirName)
	if err := dtio.CopyDirExcluding(worktreeDockertreeDir, filepath.Join(envDir, pathresolve.DockertreeDirName), map[string]bool{}); err != nil {
		return nil, dterrors.Wrapf(err, dterrors.CategoryPackage, "PACKAGE_ENV_COPY", "failed to copy %s", worktreeDockertreeDir)
	}
	// env.dockertree also appears as a top-level sibling of environment/.dockertree/,
	// per spec §6.2's package layout, alongside its canonical location inside
	// .dockertree/ (spec §6.3).
	envFileBytes, err := os.ReadFile(filepath.Join(worktreeDockertreeDir, orchestrator.EnvFileName))
	if err != nil {
		return nil, dterrors.Wrapf(err, dterrors.CategoryPackage, "PACKAGE_ENV_COPY", "failed to read %s", orchestrator.EnvFileName)
	}
	if err := os.WriteFile(filepath.Join(envDir, orchestrator.EnvFileName), envFileBytes, 0o644); err != nil {
		return nil, dterrors.Wrapf(err, dterrors.CategoryPackage, "PACKAGE_ENV_COPY", "failed to write %s", orchestrator.EnvFileName)
	}

	checksums := make(map[string]string)
	if err := addChecksums(envDir, checksums); err != nil {
		return nil, err
	}

	volumesDir := filepath.Join(tmpDir, "volumes")
	identity, ierr := dtconfig.NewIdentity(e.cfg, branch)
	if ierr != nil {
		return nil, ierr
	}

	if opts.IncludeData {
		if err := os.MkdirAll(volumesDir, 0o755); err != nil {
			return nil, dterrors.Wrap(err, dterrors.CategoryPackage, "PACKAGE_TMPDIR", "failed to create volumes/")
		}
		for _, v := range e.cfg.Volumes {
			volName := identity.StackName + "_" + v
			archivePath := filepath.Join(volumesDir, v+".tar.gz")
			if err := e.backupVolume(ctx, volName, archivePath); err != nil {
				return nil, err
			}
			if err := addChecksum(archivePath, tmpDir, checksums); err != nil {
				return nil, err
			}
		}
	}

	if opts.IncludeCode {
		codeDir := filepath.Join(tmpDir, "code")
		if err := os.MkdirAll(codeDir, 0o755); err != nil {
			return nil, dterrors.Wrap(err, dterrors.CategoryPackage, "PACKAGE_TMPDIR", "failed to create code/")
		}
		codePath := filepath.Join(codeDir, branch+".tar")
		if err := e.repo.Archive(ctx, branch, codePath); err != nil {
			return nil, err
		}
		if err := addChecksum(codePath, tmpDir, checksums); err != nil {
			return nil, err
		}
	}

	gitCommit, _ := e.repo.HeadCommit(ctx, branch)
	createdAt := time.Now()
	meta := NewMetadata(e.cfg.ProjectName, branch, gitCommit, opts.IncludeCode, e.cfg.Volumes, checksums, ModeHintNormal, createdAt)
	if err := writeMetadata(filepath.Join(tmpDir, "metadata.json"), meta); err != nil {
		return nil, err
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	if err := dtio.EnsureDir(outputDir, 0o755); err != nil {
		return nil, dterrors.Wrapf(err, dterrors.CategoryPackage, "PACKAGE_OUTPUT_DIR", "failed to create %s", outputDir)
	}
	packageName := fmt.Sprintf("%s-%s-%d.dockertree-package.tar.gz", e.cfg.ProjectName, branch, createdAt.Unix())
	packagePath := filepath.Join(outputDir, packageName)
	if err := bundleDir(tmpDir, packagePath); err != nil {
		return nil, dterrors.Wrapf(err, dterrors.CategoryPackage, "PACKAGE_BUNDLE", "failed to write %s", packagePath)
	}

	return &ExportResult{PackagePath: packagePath, Metadata: meta}, nil
}

func (e *Exporter) stopIfRunning(ctx context.Context, branch string) (wasRunning bool, err error) {
	state, err := e.orch.State(ctx, branch)
	if err != nil {
		return false, err
	}
	if state != orchestrator.StateRunning {
		return false, nil
	}
	if err := e.orch.Stop(ctx, branch); err != nil {
		return false, err
	}
	return true, nil
}

// backupVolume streams a volume's file tree into a gzip-compressed tar
// file using a throwaway container that mounts the volume read-only, per
// spec §4.9 step 4.
func (e *Exporter) backupVolume(ctx context.Context, volName, dstArchive string) error {
	hostDir := filepath.Dir(dstArchive)
	archiveName := filepath.Base(dstArchive)
	return e.rt.RunOneShot(ctx, volumeCopierImage,
		[]string{"sh", "-c", "tar czf /out/" + archiveName + " -C /src ."},
		[]string{volName + ":/src:ro", hostDir + ":/out"})
}

func addChecksums(dir string, checksums map[string]string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(filepath.Dir(dir), path)
		if rerr != nil {
			return rerr
		}
		sum, serr := sha256File(path)
		if serr != nil {
			return serr
		}
		checksums[filepath.ToSlash(rel)] = sum
		return nil
	})
}

func addChecksum(path, baseDir string, checksums map[string]string) error {
	rel, err := filepath.Rel(baseDir, path)
	if err != nil {
		return err
	}
	sum, err := sha256File(path)
	if err != nil {
		return err
	}
	checksums[filepath.ToSlash(rel)] = sum
	return nil
}
