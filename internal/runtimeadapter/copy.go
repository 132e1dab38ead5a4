package runtimeadapter

import (
	"bufio"
	"context"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"

	"github.com/griffithind/dockertree/internal/dterrors"
)

// copierImage is the throwaway image used to move data between two named
// volumes. It needs nothing but a shell and `cp`.
const copierImage = "alpine:3.20"

// VolumeCopy copies the contents of src into dst using a throwaway
// container that mounts both volumes, per spec §4.2's volume_copy operation.
// Policy selection (fast-copy vs. live-snapshot) happens one layer up, in
// the volume cloner; this method only performs the mechanical filesystem
// copy that backs the fast-copy policy. An empty src is not an error: dst is
// simply left empty, matching spec §4.7's empty-source fallback.
func (a *Adapter) VolumeCopy(ctx context.Context, src, dst string) error {
	return a.RunOneShot(ctx, copierImage,
		[]string{"sh", "-c", "cp -a /src/. /dst/ 2>/dev/null || true"},
		[]string{src + ":/src", dst + ":/dst"})
}

// RunOneShot runs imageRef with cmd and the given bind mounts to completion,
// removing the container afterward. Used for the volume cloner's FastCopy
// and LiveSnapshot replay steps, and anywhere else a disposable
// container is the simplest way to move data between volumes.
func (a *Adapter) RunOneShot(ctx context.Context, imageRef string, cmd []string, binds []string) error {
	if err := a.ensureImage(ctx, imageRef); err != nil {
		return err
	}

	resp, err := a.engine.ContainerCreate(ctx, &container.Config{
		Image: imageRef,
		Cmd:   cmd,
	}, &container.HostConfig{
		Binds: binds,
	}, nil, nil, "")
	if err != nil {
		return dterrors.Wrap(err, dterrors.CategoryVolume, dterrors.CodeSnapshotFailed,
			"failed to create one-shot container").WithDetail("image", imageRef)
	}
	defer a.engine.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})

	if err := a.engine.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return dterrors.Wrap(err, dterrors.CategoryVolume, dterrors.CodeSnapshotFailed,
			"failed to start one-shot container")
	}

	statusCh, errCh := a.engine.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return dterrors.Wrap(err, dterrors.CategoryVolume, dterrors.CodeSnapshotFailed,
				"one-shot container failed")
		}
	case status := <-statusCh:
		if status.StatusCode != 0 {
			return dterrors.Newf(dterrors.CategoryVolume, dterrors.CodeSnapshotFailed,
				"one-shot container exited with status %d", status.StatusCode).
				WithDetail("image", imageRef)
		}
	case <-ctx.Done():
		return dterrors.Wrap(ctx.Err(), dterrors.CategoryCancelled, dterrors.CodeOperationCancelled,
			"one-shot container run cancelled")
	}
	return nil
}

// RunOneShotOnNetwork behaves like RunOneShot but additionally joins
// networkName, so the one-shot container can reach another running
// container by name through Docker's embedded DNS. Used by the volume
// cloner's live-snapshot dump step to target the database container that
// actually owns the source volume.
func (a *Adapter) RunOneShotOnNetwork(ctx context.Context, imageRef string, cmd []string, binds []string, networkName string) error {
	if err := a.ensureImage(ctx, imageRef); err != nil {
		return err
	}

	var netConfig *network.NetworkingConfig
	if networkName != "" {
		netConfig = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				networkName: {},
			},
		}
	}

	resp, err := a.engine.ContainerCreate(ctx, &container.Config{
		Image: imageRef,
		Cmd:   cmd,
	}, &container.HostConfig{
		Binds: binds,
	}, netConfig, nil, "")
	if err != nil {
		return dterrors.Wrap(err, dterrors.CategoryVolume, dterrors.CodeSnapshotFailed,
			"failed to create one-shot container").WithDetail("image", imageRef)
	}
	defer a.engine.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})

	if err := a.engine.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return dterrors.Wrap(err, dterrors.CategoryVolume, dterrors.CodeSnapshotFailed,
			"failed to start one-shot container")
	}

	statusCh, errCh := a.engine.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return dterrors.Wrap(err, dterrors.CategoryVolume, dterrors.CodeSnapshotFailed,
				"one-shot container failed")
		}
	case status := <-statusCh:
		if status.StatusCode != 0 {
			return dterrors.Newf(dterrors.CategoryVolume, dterrors.CodeSnapshotFailed,
				"one-shot container exited with status %d", status.StatusCode).
				WithDetail("image", imageRef)
		}
	case <-ctx.Done():
		return dterrors.Wrap(ctx.Err(), dterrors.CategoryCancelled, dterrors.CodeOperationCancelled,
			"one-shot container run cancelled")
	}
	return nil
}

// RunOneShotCapture behaves like RunOneShot but additionally streams the
// container's stdout back to the caller line by line, for one-shot
// commands whose output is the point (e.g. `du`, `wc`).
func (a *Adapter) RunOneShotCapture(ctx context.Context, imageRef string, cmd []string, binds []string, onLine func(string)) error {
	if err := a.ensureImage(ctx, imageRef); err != nil {
		return err
	}

	resp, err := a.engine.ContainerCreate(ctx, &container.Config{
		Image: imageRef,
		Cmd:   cmd,
	}, &container.HostConfig{
		Binds: binds,
	}, nil, nil, "")
	if err != nil {
		return dterrors.Wrap(err, dterrors.CategoryVolume, dterrors.CodeSnapshotFailed,
			"failed to create one-shot container").WithDetail("image", imageRef)
	}
	defer a.engine.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})

	if err := a.engine.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return dterrors.Wrap(err, dterrors.CategoryVolume, dterrors.CodeSnapshotFailed,
			"failed to start one-shot container")
	}

	statusCh, errCh := a.engine.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return dterrors.Wrap(err, dterrors.CategoryVolume, dterrors.CodeSnapshotFailed,
				"one-shot container failed")
		}
	case <-statusCh:
	case <-ctx.Done():
		return dterrors.Wrap(ctx.Err(), dterrors.CategoryCancelled, dterrors.CodeOperationCancelled,
			"one-shot container run cancelled")
	}

	out, err := a.engine.ContainerLogs(ctx, resp.ID, container.LogsOptions{ShowStdout: true})
	if err != nil {
		return dterrors.Wrap(err, dterrors.CategoryVolume, dterrors.CodeSnapshotFailed,
			"failed to read one-shot container output")
	}
	defer out.Close()

	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		onLine(scanner.Text())
	}
	return nil
}

func (a *Adapter) ensureImage(ctx context.Context, ref string) error {
	if _, _, err := a.engine.ImageInspectWithRaw(ctx, ref); err == nil {
		return nil
	}
	reader, err := a.engine.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return wrapRuntimeErr(err, "pull "+ref)
	}
	defer reader.Close()
	_, err = io.Copy(io.Discard, reader)
	return err
}
