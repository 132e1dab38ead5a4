package runtimeadapter

import (
	"context"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/errdefs"

	"github.com/griffithind/dockertree/internal/dterrors"
)

// Volume describes a Docker named volume.
type Volume struct {
	Name       string
	Driver     string
	Mountpoint string
	Labels     map[string]string
}

// VolumeCreate creates a named volume, idempotently (Docker's API already
// treats volume create as get-or-create for an existing name with compatible
// options).
func (a *Adapter) VolumeCreate(ctx context.Context, name string) (Volume, error) {
	v, err := a.engine.VolumeCreate(ctx, volume.CreateOptions{Name: name})
	if err != nil {
		return Volume{}, wrapRuntimeErr(err, "create volume "+name)
	}
	return Volume{Name: v.Name, Driver: v.Driver, Mountpoint: v.Mountpoint, Labels: v.Labels}, nil
}

// VolumeRemove removes a named volume. force removes it even if Docker
// believes something still references it.
func (a *Adapter) VolumeRemove(ctx context.Context, name string, force bool) error {
	if err := a.engine.VolumeRemove(ctx, name, force); err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return wrapRuntimeErr(err, "remove volume "+name)
	}
	return nil
}

// VolumeList returns all volumes whose name has the given prefix.
func (a *Adapter) VolumeList(ctx context.Context, prefix string) ([]Volume, error) {
	resp, err := a.engine.VolumeList(ctx, volume.ListOptions{})
	if err != nil {
		return nil, wrapRuntimeErr(err, "list volumes")
	}

	var out []Volume
	for _, v := range resp.Volumes {
		if prefix != "" && !strings.HasPrefix(v.Name, prefix) {
			continue
		}
		out = append(out, Volume{Name: v.Name, Driver: v.Driver, Mountpoint: v.Mountpoint, Labels: v.Labels})
	}
	return out, nil
}

// VolumeInspect returns a single volume's details, or a NotFound error.
func (a *Adapter) VolumeInspect(ctx context.Context, name string) (Volume, error) {
	v, err := a.engine.VolumeInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return Volume{}, dterrors.Newf(dterrors.CategoryNotFound, dterrors.CodeVolumeNotFound,
				"volume %q not found", name)
		}
		return Volume{}, wrapRuntimeErr(err, "inspect volume "+name)
	}
	return Volume{Name: v.Name, Driver: v.Driver, Mountpoint: v.Mountpoint, Labels: v.Labels}, nil
}

// ContainersUsingVolume lists the IDs of containers (running or stopped)
// that mount the given named volume.
func (a *Adapter) ContainersUsingVolume(ctx context.Context, name string) ([]string, error) {
	containers, err := a.engine.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, wrapRuntimeErr(err, "list containers")
	}

	var ids []string
	for _, c := range containers {
		info, err := a.engine.ContainerInspect(ctx, c.ID)
		if err != nil {
			continue
		}
		for _, m := range info.Mounts {
			if m.Type == "volume" && m.Name == name {
				ids = append(ids, c.ID)
				break
			}
		}
	}
	return ids, nil
}

// ContainersAreRunning reports whether any of the given container IDs are
// currently running.
func (a *Adapter) ContainersAreRunning(ctx context.Context, ids []string) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}
	filterArgs := filters.NewArgs()
	for _, id := range ids {
		filterArgs.Add("id", id)
	}
	containers, err := a.engine.ContainerList(ctx, container.ListOptions{Filters: filterArgs})
	if err != nil {
		return false, wrapRuntimeErr(err, "list containers")
	}
	for _, c := range containers {
		if c.State == "running" {
			return true, nil
		}
	}
	return false, nil
}
