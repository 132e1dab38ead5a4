package pkgmanager

import (
	"context"
	"os"
	"path/filepath"

	"github.com/griffithind/dockertree/internal/dtconfig"
	"github.com/griffithind/dockertree/internal/dterrors"
	"github.com/griffithind/dockertree/internal/dtio"
	"github.com/griffithind/dockertree/internal/envgen"
	"github.com/griffithind/dockertree/internal/orchestrator"
	"github.com/griffithind/dockertree/internal/pathresolve"
	"github.com/griffithind/dockertree/internal/runtimeadapter"
)

// ImportOptions controls `packages import`, per spec §4.9.
type ImportOptions struct {
	TargetBranch string // normal mode only; defaults to metadata.branch_name
	TargetDir    string // standalone mode only
	RestoreData  bool
	Standalone   bool
	Domain       string // mutually exclusive with IP
	IP           string
}

// ImportResult reports what Import produced.
type ImportResult struct {
	Mode       string
	TargetPath string
	Metadata   Metadata
}

// Importer drives `packages import`. A nil Orchestrator is valid only for
// standalone-mode imports (normal mode needs it to create a worktree).
type Importer struct {
	pctx *pathresolve.Context
	cfg  *dtconfig.Config
	rt   *runtimeadapter.Adapter
	orch *orchestrator.Orchestrator
}

// NewImporter builds an Importer. pctx/cfg/orch may be nil for a
// standalone-only importer invoked outside any dockertree project.
func NewImporter(pctx *pathresolve.Context, cfg *dtconfig.Config, rt *runtimeadapter.Adapter, orch *orchestrator.Orchestrator) *Importer {
	return &Importer{pctx: pctx, cfg: cfg, rt: rt, orch: orch}
}

// DetectMode applies spec §4.9's auto-detection: "normal mode" when the
// current project has a resolved `.dockertree/config.yml` and a VCS root;
// "standalone mode" otherwise.
func DetectMode(pctx *pathresolve.Context) string {
	if pctx != nil && pctx.VCSRoot != "" {
		return ModeHintNormal
	}
	return ModeHintStandalone
}

// Import validates the package's checksums, then dispatches to normal or
// standalone import per opts.Standalone (or auto-detection when the
// caller has not forced a mode).
func (im *Importer) Import(ctx context.Context, packagePath string, opts ImportOptions) (*ImportResult, error) {
	if opts.Domain != "" && opts.IP != "" {
		return nil, dterrors.New(dterrors.CategoryValidation, dterrors.CodeMutuallyExclusive,
			"--domain and --ip are mutually exclusive")
	}

	tmpDir, err := os.MkdirTemp("", "dockertree-import-")
	if err != nil {
		return nil, dterrors.Wrap(err, dterrors.CategoryPackage, "PACKAGE_TMPDIR", "failed to create a temporary extraction directory")
	}
	defer os.RemoveAll(tmpDir)

	if err := extractArchive(packagePath, tmpDir); err != nil {
		return nil, err
	}

	meta, err := readMetadata(filepath.Join(tmpDir, "metadata.json"))
	if err != nil {
		return nil, err
	}
	if err := verifyChecksums(tmpDir, meta.Checksums); err != nil {
		return nil, err
	}

	standalone := opts.Standalone || DetectMode(im.pctx) == ModeHintStandalone
	if standalone {
		return im.importStandalone(ctx, tmpDir, meta, opts)
	}
	return im.importNormal(ctx, tmpDir, meta, opts)
}

// verifyChecksums recomputes and compares every payload file's SHA-256
// before any side effect, per spec §4.9's integrity contract: "verify
// every checksum before any side effect, refuse on mismatch."
func verifyChecksums(tmpDir string, checksums map[string]string) error {
	for rel, want := range checksums {
		path := filepath.Join(tmpDir, filepath.FromSlash(rel))
		got, err := sha256File(path)
		if err != nil {
			return dterrors.Wrapf(err, dterrors.CategoryIntegrity, dterrors.CodeTruncatedArchive,
				"package is missing expected file %s", rel)
		}
		if got != want {
			return dterrors.Newf(dterrors.CategoryIntegrity, dterrors.CodeChecksumMismatch,
				"checksum mismatch for %s", rel).
				WithDetail("file", rel).WithDetail("expected", want).WithDetail("actual", got)
		}
	}
	return nil
}

// importNormal implements "normal mode": create a new worktree from the
// package's environment, volumes, and optional code overlay.
func (im *Importer) importNormal(ctx context.Context, tmpDir string, meta Metadata, opts ImportOptions) (*ImportResult, error) {
	if im.orch == nil {
		return nil, dterrors.New(dterrors.CategoryPrecond, "NORMAL_IMPORT_REQUIRES_PROJECT",
			"normal-mode import requires running inside a dockertree project")
	}

	branch := opts.TargetBranch
	if branch == "" {
		branch = meta.BranchName
	}

	if err := im.orch.Create(ctx, branch); err != nil {
		return nil, err
	}

	worktreeDockertreeDir := filepath.Join(im.orch.WorktreePath(branch), pathresolve.DockertreeDirName)
	if err := dtio.CopyDirExcluding(filepath.Join(tmpDir, "environment", pathresolve.DockertreeDirName), worktreeDockertreeDir, map[string]bool{}); err != nil {
		return nil, dterrors.Wrap(err, dterrors.CategoryPackage, "PACKAGE_ENV_RESTORE", "failed to restore .dockertree/ into the new worktree")
	}

	if err := im.applyOverrides(worktreeDockertreeDir, opts); err != nil {
		return nil, err
	}

	identity, err := dtconfig.NewIdentity(im.cfg, branch)
	if err != nil {
		return nil, err
	}
	if opts.RestoreData {
		if err := im.restoreVolumes(ctx, tmpDir, identity.StackName, meta.Volumes); err != nil {
			return nil, err
		}
	}

	codeTar := filepath.Join(tmpDir, "code", meta.BranchName+".tar")
	if meta.IncludeCode && dtio.IsFile(codeTar) {
		if err := extractTarOverlay(codeTar, im.orch.WorktreePath(branch)); err != nil {
			return nil, err
		}
	}

	return &ImportResult{Mode: ModeHintNormal, TargetPath: im.orch.WorktreePath(branch), Metadata: meta}, nil
}

// importStandalone implements "standalone mode": extract the full tree to
// --target-dir with no git worktree involved. Requires include_code, per
// spec §4.9.
func (im *Importer) importStandalone(ctx context.Context, tmpDir string, meta Metadata, opts ImportOptions) (*ImportResult, error) {
	if !meta.IncludeCode {
		return nil, dterrors.New(dterrors.CategoryPrecond, dterrors.CodeCodeRequired,
			"standalone-mode import requires a package built with --include-code")
	}
	if opts.TargetDir == "" {
		return nil, dterrors.New(dterrors.CategoryValidation, "TARGET_DIR_REQUIRED",
			"standalone-mode import requires --target-dir")
	}

	if err := dtio.EnsureDir(opts.TargetDir, 0o755); err != nil {
		return nil, dterrors.Wrapf(err, dterrors.CategoryPackage, "PACKAGE_TARGET_DIR", "failed to create %s", opts.TargetDir)
	}

	codeTar := filepath.Join(tmpDir, "code", meta.BranchName+".tar")
	if err := extractTarOverlay(codeTar, opts.TargetDir); err != nil {
		return nil, err
	}

	dockertreeDir := filepath.Join(opts.TargetDir, pathresolve.DockertreeDirName)
	if err := dtio.CopyDirExcluding(filepath.Join(tmpDir, "environment", pathresolve.DockertreeDirName), dockertreeDir, map[string]bool{}); err != nil {
		return nil, dterrors.Wrap(err, dterrors.CategoryPackage, "PACKAGE_ENV_RESTORE", "failed to restore .dockertree/ into the target directory")
	}
	if err := im.applyOverrides(dockertreeDir, opts); err != nil {
		return nil, err
	}

	if opts.RestoreData && im.rt != nil {
		stackName := meta.ProjectName + "-" + meta.BranchName
		if err := im.restoreVolumes(ctx, tmpDir, stackName, meta.Volumes); err != nil {
			return nil, err
		}
	}

	return &ImportResult{Mode: ModeHintStandalone, TargetPath: opts.TargetDir, Metadata: meta}, nil
}

// applyOverrides rewrites env.dockertree's SITE_DOMAIN/ALLOWED_HOSTS/
// VITE_ALLOWED_HOSTS for a --domain or --ip override, per spec §4.9's
// "Overrides at import time".
func (im *Importer) applyOverrides(dockertreeDir string, opts ImportOptions) error {
	if opts.Domain == "" && opts.IP == "" {
		return nil
	}

	envPath := filepath.Join(dockertreeDir, orchestrator.EnvFileName)
	existing, err := envgen.ReadLines(envPath)
	if err != nil {
		return err
	}

	stackName := existing["COMPOSE_PROJECT_NAME"]
	hostPorts := map[string]int{}
	for _, name := range envgen.HostPortVars {
		if v, ok := existing[name]; ok {
			hostPorts[name] = envgen.AtoiOrZero(v)
		}
	}

	lines := envgen.Generate(envgen.Options{
		StackName: stackName,
		Domain:    opts.Domain,
		IP:        opts.IP,
		HostPorts: hostPorts,
	})
	return envgen.Write(envPath, lines)
}

// restoreVolumes extracts each volumes/<V>.tar.gz payload into a fresh
// named volume via a throwaway container, the inverse of export's
// backupVolume.
func (im *Importer) restoreVolumes(ctx context.Context, tmpDir, stackName string, volumes []string) error {
	for _, v := range volumes {
		archivePath := filepath.Join(tmpDir, "volumes", v+".tar.gz")
		if !dtio.IsFile(archivePath) {
			continue
		}
		volName := stackName + "_" + v
		if _, err := im.rt.VolumeCreate(ctx, volName); err != nil {
			return err
		}
		hostDir := filepath.Dir(archivePath)
		archiveName := filepath.Base(archivePath)
		if err := im.rt.RunOneShot(ctx, volumeCopierImage,
			[]string{"sh", "-c", "tar xzf /in/" + archiveName + " -C /dst"},
			[]string{hostDir + ":/in:ro", volName + ":/dst"}); err != nil {
			return err
		}
	}
	return nil
}
