package rpcserver

import (
	"context"
	"encoding/json"
)

// worktreeStatus is the per-branch row both `list` and the lifecycle
// methods' return values use, mirroring internal/cli/utility.go's list
// command row shape.
type worktreeStatus struct {
	Branch string `json:"branch"`
	Path   string `json:"path"`
	State  string `json:"state"`
}

// registerInspectionMethods wires the read-only operations: list and
// status. Neither takes a branch lock, since reads never need to
// serialize against each other.
func (s *Server) registerInspectionMethods() {
	s.handlers["list"] = s.handleList
	s.handlers["status"] = s.handleStatus
}

func (s *Server) handleList(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := unmarshalParams[baseParams](raw)
	if err != nil {
		return nil, err
	}
	p, cleanup, err := loadProject(ctx, params.WorkingDirectory)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	entries, err := p.repo.WorktreeList(ctx)
	if err != nil {
		return nil, err
	}
	var rows []worktreeStatus
	for _, e := range entries {
		if e.Branch == "" {
			continue
		}
		state, _ := p.orch.State(ctx, e.Branch)
		rows = append(rows, worktreeStatus{Branch: e.Branch, Path: e.Path, State: string(state)})
	}
	return rows, nil
}

func (s *Server) handleStatus(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := unmarshalParams[branchParams](raw)
	if err != nil {
		return nil, err
	}
	p, cleanup, err := loadProject(ctx, params.WorkingDirectory)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return branchStatus(ctx, p, params.Branch)
}

// branchStatus reports a single branch's current state, used both by
// `status` and as the return value of the mutating lifecycle methods so
// a caller never needs a second round trip to see the result of create/up/
// down.
func branchStatus(ctx context.Context, p *project, branch string) (any, error) {
	state, err := p.orch.State(ctx, branch)
	if err != nil {
		return nil, err
	}
	return worktreeStatus{Branch: branch, Path: p.orch.WorktreePath(branch), State: string(state)}, nil
}
