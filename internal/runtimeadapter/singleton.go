package runtimeadapter

import (
	"context"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"

	"github.com/griffithind/dockertree/internal/dterrors"
)

// DetachedContainerOptions describes a long-lived, named singleton
// container, as opposed to RunOneShot's throwaway containers. Used for the
// global proxy container, per spec §4.8.
type DetachedContainerOptions struct {
	Name        string
	Image       string
	Cmd         []string
	Labels      map[string]string
	Binds       []string
	PortSpecs   []string // e.g. "80:80", "443:443", "2019:2019"
	NetworkName string
}

// EnsureDetachedContainer starts opts.Name if it does not already exist,
// or (re)starts it if it exists but is stopped. It is idempotent: calling
// it against an already-running container is a no-op.
func (a *Adapter) EnsureDetachedContainer(ctx context.Context, opts DetachedContainerOptions) (string, error) {
	existing, err := a.engine.ContainerInspect(ctx, opts.Name)
	if err == nil {
		if !existing.State.Running {
			if serr := a.engine.ContainerStart(ctx, existing.ID, container.StartOptions{}); serr != nil {
				return "", wrapRuntimeErr(serr, "start "+opts.Name)
			}
		}
		return existing.ID, nil
	}
	if !errdefs.IsNotFound(err) {
		return "", wrapRuntimeErr(err, "inspect "+opts.Name)
	}

	if err := a.ensureImage(ctx, opts.Image); err != nil {
		return "", err
	}

	exposedPorts, portBindings, err := nat.ParsePortSpecs(opts.PortSpecs)
	if err != nil {
		return "", dterrors.Wrap(err, dterrors.CategoryProxy, dterrors.CodeExternalToolFailed,
			"invalid port specification for "+opts.Name)
	}

	resp, err := a.engine.ContainerCreate(ctx, &container.Config{
		Image:        opts.Image,
		Cmd:          opts.Cmd,
		Labels:       opts.Labels,
		ExposedPorts: exposedPorts,
	}, &container.HostConfig{
		Binds:         opts.Binds,
		PortBindings:  portBindings,
		RestartPolicy: container.RestartPolicy{Name: "unless-stopped"},
	}, nil, nil, opts.Name)
	if err != nil {
		return "", dterrors.Wrapf(err, dterrors.CategoryProxy, dterrors.CodeExternalToolFailed,
			"failed to create %s", opts.Name)
	}

	if err := a.engine.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", wrapRuntimeErr(err, "start "+opts.Name)
	}
	if opts.NetworkName != "" {
		if err := a.engine.NetworkConnect(ctx, opts.NetworkName, resp.ID, &network.EndpointSettings{}); err != nil {
			return "", wrapRuntimeErr(err, "connect "+opts.Name+" to "+opts.NetworkName)
		}
	}
	return resp.ID, nil
}

// StopContainer stops and removes a named container, treating an already
// absent container as success.
func (a *Adapter) StopContainer(ctx context.Context, name string) error {
	timeout := 10
	if err := a.engine.ContainerStop(ctx, name, container.StopOptions{Timeout: &timeout}); err != nil && !errdefs.IsNotFound(err) {
		return wrapRuntimeErr(err, "stop "+name)
	}
	if err := a.engine.ContainerRemove(ctx, name, container.RemoveOptions{Force: true}); err != nil && !errdefs.IsNotFound(err) {
		return wrapRuntimeErr(err, "remove "+name)
	}
	return nil
}

// ContainerIsRunning reports whether a named container exists and is
// currently running.
func (a *Adapter) ContainerIsRunning(ctx context.Context, name string) (bool, error) {
	info, err := a.engine.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, wrapRuntimeErr(err, "inspect "+name)
	}
	return info.State.Running, nil
}
