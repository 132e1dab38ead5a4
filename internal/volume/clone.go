// Package volume implements the Volume Cloner (spec §4.7, C7): deciding
// between a FastCopy (throwaway-container file copy) and a LiveSnapshot
// (database dump/replay) policy for cloning a named volume into a fresh
// worktree's volumes, and dispatching to the runtime adapter accordingly.
package volume

import (
	"context"

	"github.com/griffithind/dockertree/internal/dterrors"
	"github.com/griffithind/dockertree/internal/runtimeadapter"
)

// Policy selects how a volume is cloned.
type Policy int

const (
	// FastCopy copies the file tree verbatim via a throwaway container.
	FastCopy Policy = iota
	// LiveSnapshot dumps and replays a running database's contents.
	LiveSnapshot
)

// Tag marks a volume's cloning requirements, set by config.yml's service
// declarations (spec §4.7's "tagged RequiresLiveSnapshot").
type Tag struct {
	Name                 string
	RequiresLiveSnapshot bool
	// DumpImage and DumpCommand describe the one-shot dump utility used for
	// LiveSnapshot (e.g. postgres:16-alpine / "pg_dumpall -U postgres").
	DumpImage   string
	DumpCommand []string
	// ReplayImage is the fresh database image bound to dst during replay.
	ReplayImage string
}

// Cloner dispatches volume_copy calls to the runtime adapter per spec
// §4.7's routing rule.
type Cloner struct {
	rt *runtimeadapter.Adapter
}

// New creates a Cloner bound to rt.
func New(rt *runtimeadapter.Adapter) *Cloner {
	return &Cloner{rt: rt}
}

// Clone copies src into dst, selecting FastCopy or LiveSnapshot per spec
// §4.7: LiveSnapshot only when src is tagged RequiresLiveSnapshot and a
// container currently using src is running; FastCopy otherwise. If src does
// not exist, dst is left as a fresh empty volume.
func (c *Cloner) Clone(ctx context.Context, src, dst string, tag Tag) error {
	exists, err := c.volumeExists(ctx, src)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	if tag.RequiresLiveSnapshot {
		usingIDs, err := c.rt.ContainersUsingVolume(ctx, src)
		if err != nil {
			return err
		}
		running, err := c.rt.ContainersAreRunning(ctx, usingIDs)
		if err != nil {
			return err
		}
		if running {
			return c.liveSnapshot(ctx, src, dst, tag, usingIDs)
		}
	}

	return c.rt.VolumeCopy(ctx, src, dst)
}

func (c *Cloner) volumeExists(ctx context.Context, name string) (bool, error) {
	_, err := c.rt.VolumeInspect(ctx, name)
	if err != nil {
		if dterrors.Is(err, dterrors.CodeVolumeNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// liveSnapshot implements spec §4.7's LiveSnapshot policy: dump the live
// database to an intermediate file inside dst, then replay it into a fresh
// database container bound to dst. The dump step joins the live container's
// own network and targets it by container name, since pg_dumpall (and
// friends) need a running server to talk to, not just the raw data
// directory. dst is removed on any sub-step failure.
func (c *Cloner) liveSnapshot(ctx context.Context, src, dst string, tag Tag, usingIDs []string) (err error) {
	defer func() {
		if err != nil {
			_ = c.rt.VolumeRemove(ctx, dst, true)
			err = dterrors.Wrap(err, dterrors.CategoryVolume, dterrors.CodeSnapshotFailed,
				"live snapshot of "+src+" failed").WithDetail("src", src).WithDetail("dst", dst)
		}
	}()

	host, network, err := c.liveTarget(ctx, usingIDs)
	if err != nil {
		return err
	}

	dumpFile := "/snapshot/dump.sql"
	dumpCmd := append([]string{}, tag.DumpCommand...)
	dumpCmd = append(dumpCmd, "-h", host)
	dumpCmd = append(dumpCmd, ">", dumpFile)

	if err = c.runOneShotOnNetwork(ctx, tag.DumpImage, []string{"sh", "-c", joinShell(dumpCmd)}, map[string]string{
		src: "/snapshot_src",
		dst: "/snapshot",
	}, network); err != nil {
		return err
	}

	replayCmd := []string{"sh", "-c", "docker-entrypoint.sh postgres & sleep 5; psql -U postgres -f " + dumpFile + "; wait"}
	if err = c.runOneShot(ctx, tag.ReplayImage, replayCmd, map[string]string{
		dst: "/var/lib/postgresql/data",
	}); err != nil {
		return err
	}
	return nil
}

// liveTarget resolves the running container from usingIDs that actually owns
// src, returning its name (the dump container's -h target) and a network
// it's attached to (so the dump container can resolve that name via Docker's
// embedded DNS).
func (c *Cloner) liveTarget(ctx context.Context, usingIDs []string) (host, network string, err error) {
	for _, id := range usingIDs {
		info, err := c.rt.InspectContainer(ctx, id)
		if err != nil {
			continue
		}
		if !info.Running {
			continue
		}
		networks, err := c.rt.ContainerNetworks(ctx, id)
		if err != nil || len(networks) == 0 {
			continue
		}
		return info.Name, networks[0], nil
	}
	return "", "", dterrors.New(dterrors.CategoryVolume, dterrors.CodeSnapshotFailed,
		"no running container with a network to snapshot from")
}

func (c *Cloner) runOneShot(ctx context.Context, image string, cmd []string, binds map[string]string) error {
	bindArgs := make([]string, 0, len(binds))
	for vol, target := range binds {
		bindArgs = append(bindArgs, vol+":"+target)
	}
	return c.rt.RunOneShot(ctx, image, cmd, bindArgs)
}

func (c *Cloner) runOneShotOnNetwork(ctx context.Context, image string, cmd []string, binds map[string]string, network string) error {
	bindArgs := make([]string, 0, len(binds))
	for vol, target := range binds {
		bindArgs = append(bindArgs, vol+":"+target)
	}
	return c.rt.RunOneShotOnNetwork(ctx, image, cmd, bindArgs, network)
}

func joinShell(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}

// DiscoverTags reads config.yml-declared service tags into Cloner tags,
// keyed by the declared (unprefixed) volume name as listed in config.yml.
func DiscoverTags(declaredVolumes []string, liveSnapshotVolumes map[string]bool) map[string]Tag {
	tags := make(map[string]Tag, len(declaredVolumes))
	for _, v := range declaredVolumes {
		tags[v] = Tag{
			Name:                 v,
			RequiresLiveSnapshot: liveSnapshotVolumes[v],
			DumpImage:            "postgres:16-alpine",
			DumpCommand:          []string{"pg_dumpall", "-U", "postgres"},
			ReplayImage:          "postgres:16-alpine",
		}
	}
	return tags
}
