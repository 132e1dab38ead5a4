// Package orchestrator implements the Worktree Orchestrator (spec §4.4,
// C8): the per-branch state machine driving git worktree creation, env
// generation, and volume cloning into a coherent create/start/stop/remove/
// delete lifecycle, with rollback on partial failure. It composes every
// adapter built so far (vcs, runtimeadapter, envgen, transform, volume)
// behind typed operations, per the "polymorphic over the capability set"
// principle: this package never shells out or talks to Docker directly.
package orchestrator

import (
	"context"
	"os"
	"path/filepath"

	"github.com/compose-spec/compose-go/v2/types"

	"github.com/griffithind/dockertree/internal/dterrors"
	"github.com/griffithind/dockertree/internal/dtconfig"
	"github.com/griffithind/dockertree/internal/dtio"
	"github.com/griffithind/dockertree/internal/dtlog"
	"github.com/griffithind/dockertree/internal/envgen"
	"github.com/griffithind/dockertree/internal/pathresolve"
	"github.com/griffithind/dockertree/internal/runtimeadapter"
	"github.com/griffithind/dockertree/internal/transform"
	"github.com/griffithind/dockertree/internal/vcs"
	"github.com/griffithind/dockertree/internal/volume"
)

// State is a worktree's position in the spec §4.4 state machine.
type State string

// States per worktree, per spec §4.4: Absent → Created → Running ⇄
// Stopped → Absent, with Error as an additional terminal.
const (
	StateAbsent  State = "absent"
	StateCreated State = "created"
	StateRunning State = "running"
	StateStopped State = "stopped"
	StateError   State = "error"
)

// EnvFileName is the per-worktree env file name, stored under the
// worktree's own .dockertree/, per spec §6.3.
const EnvFileName = "env.dockertree"

// Orchestrator drives the lifecycle of branch worktrees for one project.
type Orchestrator struct {
	pctx   *pathresolve.Context
	cfg    *dtconfig.Config
	repo   *vcs.Repo
	rt     *runtimeadapter.Adapter
	cloner *volume.Cloner
}

// New builds an Orchestrator bound to a resolved project, its config, its
// git repository, the runtime adapter, and a volume cloner.
func New(pctx *pathresolve.Context, cfg *dtconfig.Config, repo *vcs.Repo, rt *runtimeadapter.Adapter, cloner *volume.Cloner) *Orchestrator {
	return &Orchestrator{pctx: pctx, cfg: cfg, repo: repo, rt: rt, cloner: cloner}
}

// WorktreePath returns the filesystem path a branch's checkout lives (or
// would live) at.
func (o *Orchestrator) WorktreePath(branch string) string {
	return filepath.Join(o.pctx.ProjectRoot, o.cfg.WorktreeDirOrDefault(), branch)
}

func (o *Orchestrator) dockertreeDir(branch string) string {
	return filepath.Join(o.WorktreePath(branch), pathresolve.DockertreeDirName)
}

func (o *Orchestrator) envFilePath(branch string) string {
	return filepath.Join(o.dockertreeDir(branch), EnvFileName)
}

// composeFiles returns the ordered compose file list stack operations use
// for branch: the project's source stack file(s) followed by the derived
// worktree overlay, per spec §4.5's "sibling file ... used in conjunction
// with the original".
func (o *Orchestrator) composeFiles(branch string) []string {
	files := []string{}
	if src := pathresolve.FindComposeFile(o.WorktreePath(branch)); src != "" {
		files = append(files, src)
	}
	files = append(files, filepath.Join(o.dockertreeDir(branch), "docker-compose.worktree.yml"))
	return files
}

// State reports a branch's current position in the lifecycle state
// machine by checking the filesystem for a checkout and, if one exists,
// querying the runtime for running containers.
func (o *Orchestrator) State(ctx context.Context, branch string) (State, error) {
	path := o.WorktreePath(branch)
	if !dtio.IsDir(path) {
		return StateAbsent, nil
	}

	identity, err := dtconfig.NewIdentity(o.cfg, branch)
	if err != nil {
		return StateError, err
	}

	summaries, err := o.rt.StackPs(ctx, identity.StackName)
	if err != nil {
		// A checkout with no resolvable stack (e.g. runtime down) is still
		// "created", not an error condition for the checkout itself.
		return StateCreated, nil
	}
	for _, s := range summaries {
		if s.State == "running" {
			return StateRunning, nil
		}
	}
	if len(summaries) > 0 {
		return StateStopped, nil
	}
	return StateCreated, nil
}

// Create brings branch from Absent to Created, per spec §4.4's create(B)
// ordered steps with rollback to the pre-state on any failed step.
func (o *Orchestrator) Create(ctx context.Context, branch string) (err error) {
	identity, verr := dtconfig.NewIdentity(o.cfg, branch)
	if verr != nil {
		return verr
	}

	path := o.WorktreePath(branch)
	completed := 0
	var createdVolumes []string
	defer func() {
		if err != nil {
			dtlog.With("branch", branch, "step", completed).Error("create failed, rolling back", "err", err)
			o.rollbackCreate(ctx, branch, identity, completed, createdVolumes)
		} else {
			dtlog.With("branch", branch, "stack", identity.StackName).Info("worktree created")
		}
	}()

	// Step 1: no existing checkout.
	if dtio.Exists(path) {
		err = dterrors.Newf(dterrors.CategoryExists, dterrors.CodeWorktreeExists,
			"a worktree already exists at %s", path)
		return err
	}

	// Step 2: worktree_add.
	if err = o.repo.WorktreeAdd(ctx, branch, path); err != nil {
		return err
	}
	completed = 2

	// Step 3: regenerate the compose overlay against the project's current
	// source stack file, then copy .dockertree/ (excluding worktrees/) into
	// the new checkout.
	if err = o.regenerateOverlay(ctx); err != nil {
		return err
	}
	if err = dtio.CopyDirExcluding(o.pctx.DockertreeDir, o.dockertreeDir(branch), map[string]bool{o.cfg.WorktreeDirOrDefault(): true}); err != nil {
		err = dterrors.Wrapf(err, dterrors.CategoryInternal, "METADATA_COPY", "failed to copy %s into %s", o.pctx.DockertreeDir, path)
		return err
	}
	completed = 3

	// Steps 4-5: allocate a host-port triple and write env.dockertree.
	hostPorts, perr := o.allocateHostPorts(branch)
	if perr != nil {
		err = perr
		return err
	}
	envLines := envgen.Generate(envgen.Options{StackName: identity.StackName, HostPorts: hostPorts})
	if err = envgen.Write(o.envFilePath(branch), envLines); err != nil {
		return err
	}
	completed = 5

	// Step 6: clone every declared named volume from the project's base
	// set into the branch-scoped set. Each volume is recorded as soon as
	// it's created so a failure partway through the list only rolls back
	// the volumes that actually exist, not the whole declared set.
	tags := volume.DiscoverTags(o.cfg.Volumes, o.liveSnapshotVolumes())
	for _, v := range o.cfg.Volumes {
		srcVol := o.cfg.ProjectName + "_" + v
		dstVol := identity.StackName + "_" + v
		if _, err = o.rt.VolumeCreate(ctx, dstVol); err != nil {
			return err
		}
		createdVolumes = append(createdVolumes, dstVol)
		if err = o.cloner.Clone(ctx, srcVol, dstVol, tags[v]); err != nil {
			return err
		}
	}
	completed = 6

	return nil
}

// rollbackCreate undoes steps 1..completed in reverse, per spec §4.4's
// "on failure at step k, undo steps 1..k-1 in reverse". createdVolumes holds
// exactly the branch-scoped volumes that were actually created before the
// failure, independent of whether the step-6 loop ran to completion.
func (o *Orchestrator) rollbackCreate(ctx context.Context, branch string, identity dtconfig.Identity, completed int, createdVolumes []string) {
	for _, dstVol := range createdVolumes {
		_ = o.rt.VolumeRemove(ctx, dstVol, true)
	}
	if completed >= 2 {
		_ = o.repo.WorktreeRemove(ctx, o.WorktreePath(branch))
	}
}

// regenerateOverlay reruns the compose transform against the project's
// current source stack file and declared volumes, writing the result to
// the project root's .dockertree/docker-compose.worktree.yml so step 3's
// copy picks up a fresh overlay.
func (o *Orchestrator) regenerateOverlay(ctx context.Context) error {
	srcFile := pathresolve.FindComposeFile(o.pctx.ProjectRoot)
	if srcFile == "" {
		return dterrors.New(dterrors.CategoryCompose, dterrors.CodeComposeNoFile,
			"no declarative stack file found in the project root")
	}

	project, err := runtimeadapter.LoadProject(ctx, []string{srcFile}, o.cfg.ProjectName, "")
	if err != nil {
		return err
	}

	result, err := transform.Transform(project, o.cfg.Volumes, transform.Options{
		ProxyNetwork: o.cfg.CaddyNetworkOrDefault(),
	})
	if err != nil {
		return err
	}

	overlayPath := filepath.Join(o.pctx.DockertreeDir, "docker-compose.worktree.yml")
	if err := os.WriteFile(overlayPath, result.YAML, 0o644); err != nil {
		return dterrors.Wrapf(err, dterrors.CategoryConfig, "CONFIG_WRITE", "failed to write %s", overlayPath)
	}
	return nil
}

// allocateHostPorts scans every existing worktree's env.dockertree for
// used ports and allocates a fresh, distinct triple for branch, per spec
// §4.6.
func (o *Orchestrator) allocateHostPorts(branch string) (map[string]int, error) {
	worktreesDir := filepath.Join(o.pctx.ProjectRoot, o.cfg.WorktreeDirOrDefault())
	used, err := envgen.ScanUsedPorts(worktreesDir, filepath.Join(pathresolve.DockertreeDirName, EnvFileName))
	if err != nil {
		return nil, err
	}

	ports, err := envgen.AllocatePorts(used, len(envgen.HostPortVars))
	if err != nil {
		return nil, err
	}

	hostPorts := make(map[string]int, len(envgen.HostPortVars))
	for i, name := range envgen.HostPortVars {
		hostPorts[name] = ports[i]
	}
	return hostPorts, nil
}

// liveSnapshotVolumes reports which of config.yml's declared volumes are
// tagged as requiring a live (dump/replay) snapshot rather than a fast
// file copy. Only the database-backed volume is tagged by convention; a
// real deployment would read this from a config.yml extension field.
func (o *Orchestrator) liveSnapshotVolumes() map[string]bool {
	tagged := make(map[string]bool, len(o.cfg.Volumes))
	for _, v := range o.cfg.Volumes {
		if v == "db_data" {
			tagged[v] = true
		}
	}
	return tagged
}

// Start brings branch from Created or Stopped to Running, per spec §4.4's
// start(B).
func (o *Orchestrator) Start(ctx context.Context, branch string) error {
	identity, err := dtconfig.NewIdentity(o.cfg, branch)
	if err != nil {
		return err
	}
	project, err := o.loadBranchProject(ctx, branch, identity)
	if err != nil {
		return err
	}
	if err := o.rt.StackUp(ctx, project, true); err != nil {
		return err
	}
	dtlog.With("branch", branch, "stack", identity.StackName).Info("worktree started")
	return nil
}

// Stop brings branch from Running to Stopped, per spec §4.4's stop(B):
// stack_down without volume removal.
func (o *Orchestrator) Stop(ctx context.Context, branch string) error {
	identity, err := dtconfig.NewIdentity(o.cfg, branch)
	if err != nil {
		return err
	}
	if err := o.rt.StackDown(ctx, identity.StackName); err != nil {
		return err
	}
	dtlog.With("branch", branch, "stack", identity.StackName).Info("worktree stopped")
	return nil
}

// Remove brings branch from any state to Absent, preserving the git
// branch, per spec §4.4's remove(B).
func (o *Orchestrator) Remove(ctx context.Context, branch string) error {
	identity, err := dtconfig.NewIdentity(o.cfg, branch)
	if err != nil {
		return err
	}

	state, err := o.State(ctx, branch)
	if err != nil {
		return err
	}
	if state == StateAbsent {
		return nil
	}
	if state == StateRunning {
		if err := o.rt.StackDown(ctx, identity.StackName); err != nil {
			return err
		}
	}
	if err := o.rt.StackRemove(ctx, identity.StackName); err != nil {
		return err
	}
	for _, v := range o.cfg.Volumes {
		if err := o.rt.VolumeRemove(ctx, identity.StackName+"_"+v, true); err != nil {
			return err
		}
	}
	if err := o.repo.WorktreeRemove(ctx, o.WorktreePath(branch)); err != nil {
		return err
	}
	dtlog.With("branch", branch, "stack", identity.StackName).Info("worktree removed")
	return nil
}

// Delete removes branch's worktree exactly as Remove does, then deletes
// the git branch itself, per spec §4.4's delete(B). force bypasses the
// "refuse unmerged" safety check.
func (o *Orchestrator) Delete(ctx context.Context, branch string, force bool) error {
	if err := o.Remove(ctx, branch); err != nil {
		return err
	}
	if err := o.repo.BranchDelete(ctx, branch, !force, o.cfg.ProtectedBranchesOrDefault()); err != nil {
		return err
	}
	dtlog.With("branch", branch).Info("branch deleted")
	return nil
}

func (o *Orchestrator) loadBranchProject(ctx context.Context, branch string, identity dtconfig.Identity) (*types.Project, error) {
	return runtimeadapter.LoadProject(ctx, o.composeFiles(branch), identity.StackName, o.envFilePath(branch))
}

// LoadBranchProject builds the compose *types.Project for branch, for CLI
// passthrough commands (exec, run, build) that need a loaded project
// rather than just a stack name.
func (o *Orchestrator) LoadBranchProject(ctx context.Context, branch string) (*types.Project, error) {
	identity, err := dtconfig.NewIdentity(o.cfg, branch)
	if err != nil {
		return nil, err
	}
	return o.loadBranchProject(ctx, branch, identity)
}

// Identity derives branch's Identity (project name, branch name, stack
// name), for CLI commands that need the stack name without a full project
// load (e.g. logs, restart, ps).
func (o *Orchestrator) Identity(branch string) (dtconfig.Identity, error) {
	return dtconfig.NewIdentity(o.cfg, branch)
}

// EnvFilePath returns the path to a branch's env.dockertree, for CLI
// commands that need to inspect it directly (e.g. clean-legacy).
func (o *Orchestrator) EnvFilePath(branch string) string {
	return o.envFilePath(branch)
}
