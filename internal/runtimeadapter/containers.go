package runtimeadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"

	"github.com/griffithind/dockertree/internal/dterrors"
)

// ContainerSummary is a normalized view of a Docker container, used by the
// proxy coordinator's label watcher and by `dockertree ps`.
type ContainerSummary struct {
	ID      string
	Name    string
	Image   string
	State   string
	Labels  map[string]string
	Created time.Time
	Running bool
}

// ListContainersByLabel returns containers matching the given label filters
// (exact key=value), across running and stopped containers, for the proxy
// coordinator's container watcher, which needs to discover every container
// carrying `caddy.*` labels regardless of state.
func (a *Adapter) ListContainersByLabel(ctx context.Context, labels map[string]string) ([]ContainerSummary, error) {
	filterArgs := filters.NewArgs()
	for k, v := range labels {
		filterArgs.Add("label", fmt.Sprintf("%s=%s", k, v))
	}

	containers, err := a.engine.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return nil, wrapRuntimeErr(err, "list containers")
	}

	out := make([]ContainerSummary, 0, len(containers))
	for _, c := range containers {
		name := ""
		if len(c.Names) > 0 {
			name = c.Names[0]
			if len(name) > 0 && name[0] == '/' {
				name = name[1:]
			}
		}
		out = append(out, ContainerSummary{
			ID:      c.ID,
			Name:    name,
			Image:   c.Image,
			State:   c.State,
			Labels:  c.Labels,
			Created: time.Unix(c.Created, 0),
			Running: c.State == "running",
		})
	}
	return out, nil
}

// ContainerNetworks returns the names of every Docker network the container
// is attached to, used to find a network the live-snapshot dumper can join
// to reach a running database container by name.
func (a *Adapter) ContainerNetworks(ctx context.Context, id string) ([]string, error) {
	info, err := a.engine.ContainerInspect(ctx, id)
	if err != nil {
		return nil, dterrors.Wrapf(err, dterrors.CategoryNotFound, dterrors.CodeWorktreeNotFound,
			"container %s not found", id)
	}
	if info.NetworkSettings == nil {
		return nil, nil
	}
	names := make([]string, 0, len(info.NetworkSettings.Networks))
	for name := range info.NetworkSettings.Networks {
		names = append(names, name)
	}
	return names, nil
}

// InspectContainer returns a single container's details by ID or name.
func (a *Adapter) InspectContainer(ctx context.Context, id string) (ContainerSummary, error) {
	info, err := a.engine.ContainerInspect(ctx, id)
	if err != nil {
		return ContainerSummary{}, dterrors.Wrapf(err, dterrors.CategoryNotFound, dterrors.CodeWorktreeNotFound,
			"container %s not found", id)
	}
	name := info.Name
	if len(name) > 0 && name[0] == '/' {
		name = name[1:]
	}
	created, _ := time.Parse(time.RFC3339Nano, info.Created)
	return ContainerSummary{
		ID:      info.ID,
		Name:    name,
		Image:   info.Config.Image,
		State:   info.State.Status,
		Labels:  info.Config.Labels,
		Created: created,
		Running: info.State.Running,
	}, nil
}
