package runtimeadapter

import (
	"context"

	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/errdefs"
)

// EnsureNetwork creates an external, host-local bridge network for proxy
// routing if it does not already exist. A no-op when the network is present,
// per spec §4.2.
func (a *Adapter) EnsureNetwork(ctx context.Context, name string) error {
	_, err := a.engine.NetworkInspect(ctx, name, network.InspectOptions{})
	if err == nil {
		return nil
	}
	if !errdefs.IsNotFound(err) {
		return wrapRuntimeErr(err, "inspect network "+name)
	}

	_, err = a.engine.NetworkCreate(ctx, name, network.CreateOptions{
		Driver: "bridge",
	})
	if err != nil {
		return wrapRuntimeErr(err, "create network "+name)
	}
	return nil
}
