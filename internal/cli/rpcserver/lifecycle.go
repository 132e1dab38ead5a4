package rpcserver

import (
	"context"
	"encoding/json"
)

// branchParams is the common shape of every lifecycle method: a branch
// name plus the mandatory working_directory.
type branchParams struct {
	baseParams
	Branch string `json:"branch"`
}

type deleteParams struct {
	baseParams
	Branch string `json:"branch"`
	Force  bool   `json:"force"`
}

// registerLifecycleMethods wires the mutating operations: create, up,
// down, remove, delete. Each serializes on its branch lock the same way
// the CLI's bulk commands do (project.withBranchLock), since two RPC
// callers racing the same branch need the same ordering guarantee a
// terminal user gets from two shell invocations.
func (s *Server) registerLifecycleMethods() {
	s.handlers["create"] = s.handleCreate
	s.handlers["up"] = s.handleUp
	s.handlers["down"] = s.handleDown
	s.handlers["remove"] = s.handleRemove
	s.handlers["delete"] = s.handleDelete
}

func (s *Server) handleCreate(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := unmarshalParams[branchParams](raw)
	if err != nil {
		return nil, err
	}
	p, cleanup, err := loadProject(ctx, params.WorkingDirectory)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return p.withBranchLock(params.Branch, func() (any, error) {
		if err := p.orch.Create(ctx, params.Branch); err != nil {
			return nil, err
		}
		return branchStatus(ctx, p, params.Branch)
	})
}

func (s *Server) handleUp(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := unmarshalParams[branchParams](raw)
	if err != nil {
		return nil, err
	}
	p, cleanup, err := loadProject(ctx, params.WorkingDirectory)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return p.withBranchLock(params.Branch, func() (any, error) {
		if err := p.orch.Start(ctx, params.Branch); err != nil {
			return nil, err
		}
		return branchStatus(ctx, p, params.Branch)
	})
}

func (s *Server) handleDown(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := unmarshalParams[branchParams](raw)
	if err != nil {
		return nil, err
	}
	p, cleanup, err := loadProject(ctx, params.WorkingDirectory)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return p.withBranchLock(params.Branch, func() (any, error) {
		if err := p.orch.Stop(ctx, params.Branch); err != nil {
			return nil, err
		}
		return branchStatus(ctx, p, params.Branch)
	})
}

func (s *Server) handleRemove(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := unmarshalParams[branchParams](raw)
	if err != nil {
		return nil, err
	}
	p, cleanup, err := loadProject(ctx, params.WorkingDirectory)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return p.withBranchLock(params.Branch, func() (any, error) {
		if err := p.orch.Remove(ctx, params.Branch); err != nil {
			return nil, err
		}
		return map[string]string{"branch": params.Branch}, nil
	})
}

func (s *Server) handleDelete(ctx context.Context, raw json.RawMessage) (any, error) {
	params, err := unmarshalParams[deleteParams](raw)
	if err != nil {
		return nil, err
	}
	p, cleanup, err := loadProject(ctx, params.WorkingDirectory)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return p.withBranchLock(params.Branch, func() (any, error) {
		if err := p.orch.Delete(ctx, params.Branch, params.Force); err != nil {
			return nil, err
		}
		return map[string]string{"branch": params.Branch}, nil
	})
}
