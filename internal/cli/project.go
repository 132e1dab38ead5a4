package cli

import (
	"context"
	"time"

	"github.com/griffithind/dockertree/internal/dtconfig"
	"github.com/griffithind/dockertree/internal/lock"
	"github.com/griffithind/dockertree/internal/orchestrator"
	"github.com/griffithind/dockertree/internal/output"
	"github.com/griffithind/dockertree/internal/pathresolve"
	"github.com/griffithind/dockertree/internal/runtimeadapter"
	"github.com/griffithind/dockertree/internal/vcs"
	"github.com/griffithind/dockertree/internal/volume"
)

// project bundles every adapter a mutating command needs, built once per
// invocation from the resolved workspace.
type project struct {
	pctx *pathresolve.Context
	cfg  *dtconfig.Config
	repo *vcs.Repo
	rt   *runtimeadapter.Adapter
	orch *orchestrator.Orchestrator
	lock *lock.Manager
}

// loadProject resolves .dockertree/config.yml from workspacePath, opens
// the git repository, connects to the runtime, and assembles an
// Orchestrator.
func loadProject(ctx context.Context) (*project, func(), error) {
	pctx, err := pathresolve.Resolve(workspacePath)
	if err != nil {
		return nil, func() {}, err
	}
	cfgPath := configPath
	if cfgPath == "" {
		cfgPath = pctx.ConfigPath
	}
	cfg, err := dtconfig.Load(cfgPath)
	if err != nil {
		return nil, func() {}, err
	}
	repo, err := vcs.Open(ctx, pctx.ProjectRoot)
	if err != nil {
		return nil, func() {}, err
	}
	rt, err := runtimeadapter.New()
	if err != nil {
		return nil, func() {}, err
	}
	cloner := volume.New(rt)
	orch := orchestrator.New(pctx, cfg, repo, rt, cloner)
	lockMgr := lock.New(pctx.DockertreeDir + "/locks")

	p := &project{pctx: pctx, cfg: cfg, repo: repo, rt: rt, orch: orch, lock: lockMgr}
	return p, func() { rt.Close() }, nil
}

// withBranchLock serializes fn against concurrent invocations targeting
// the same branch, per spec §5's per-branch ordering guarantee.
func (p *project) withBranchLock(branch string, fn func() (interface{}, error)) (interface{}, error) {
	unlock, err := p.lock.Lock(branch)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return fn()
}

// runOp executes fn, reports its outcome through the output layer (--json
// envelope or text success/error), records the process exit code, and
// returns nil so cobra never re-prints the error itself.
func runOp(operation string, fn func() (interface{}, error)) error {
	data, err := fn()
	lastExitCode = output.WriteResult(operation, data, err, time.Now())
	return nil
}
