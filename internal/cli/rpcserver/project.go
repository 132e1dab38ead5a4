package rpcserver

import (
	"context"
	"encoding/json"

	"github.com/griffithind/dockertree/internal/dtconfig"
	"github.com/griffithind/dockertree/internal/dterrors"
	"github.com/griffithind/dockertree/internal/lock"
	"github.com/griffithind/dockertree/internal/orchestrator"
	"github.com/griffithind/dockertree/internal/pathresolve"
	"github.com/griffithind/dockertree/internal/runtimeadapter"
	"github.com/griffithind/dockertree/internal/vcs"
	"github.com/griffithind/dockertree/internal/volume"
)

// baseParams is embedded by every request's params struct, per spec
// §6.5's mandatory `working_directory` field.
type baseParams struct {
	WorkingDirectory string `json:"working_directory"`
}

// project bundles the adapters one RPC call needs, loaded fresh per call
// since the server is long-lived but a call's working_directory can name
// any project on disk.
type project struct {
	pctx *pathresolve.Context
	cfg  *dtconfig.Config
	repo *vcs.Repo
	rt   *runtimeadapter.Adapter
	orch *orchestrator.Orchestrator
	lock *lock.Manager
}

// loadProject resolves workingDir's `.dockertree/config.yml`, failing with
// CategoryNotFound if absent, before any mutating operation can proceed.
func loadProject(ctx context.Context, workingDir string) (*project, func(), error) {
	if workingDir == "" {
		return nil, func() {}, dterrors.New(dterrors.CategoryValidation, "WORKING_DIRECTORY_REQUIRED",
			"working_directory is required")
	}
	pctx, err := pathresolve.Resolve(workingDir)
	if err != nil {
		return nil, func() {}, err
	}
	cfg, err := dtconfig.Load(pctx.ConfigPath)
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

func (p *project) withBranchLock(branch string, fn func() (any, error)) (any, error) {
	unlock, err := p.lock.Lock(branch)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return fn()
}

func unmarshalParams[T any](raw json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero, dterrors.Wrap(err, dterrors.CategoryValidation, "MALFORMED_PARAMS", "failed to parse params")
	}
	return v, nil
}
