// Package runtimeadapter implements the Runtime Adapter (spec §4.2, C3): the
// only component that talks to the Docker Engine and to the declarative
// stack tool. Every other component reasons in typed Go values; runtimeadapter
// is where those values become Engine API calls or compose-service
// invocations.
//
// Engine access negotiates the API version on connect
// (client.FromEnv + WithAPIVersionNegotiation). Stack operations
// (stack_up/stack_down/stack_exec/...) use the docker/compose/v2 library
// rather than shelling out to the `docker compose` CLI, so they can be
// driven with typed options instead of parsed CLI output.
package runtimeadapter

import (
	"context"
	"fmt"

	"github.com/docker/cli/cli/command"
	"github.com/docker/cli/cli/flags"
	"github.com/docker/compose/v2/pkg/api"
	"github.com/docker/compose/v2/pkg/compose"
	"github.com/docker/docker/client"

	"github.com/griffithind/dockertree/internal/dterrors"
)

// Adapter wraps the Docker Engine client and the compose service used to
// drive declarative stacks.
type Adapter struct {
	engine  *client.Client
	dockerCLI command.Cli
	compose api.Service
}

// New creates a Runtime Adapter, negotiating the Engine API version on
// connect.
func New() (*Adapter, error) {
	engine, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, dterrors.Wrap(err, dterrors.CategoryRuntime, dterrors.CodeRuntimeUnavailable,
			"failed to create Docker client")
	}

	dockerCLI, err := command.NewDockerCli()
	if err != nil {
		return nil, dterrors.Wrap(err, dterrors.CategoryRuntime, dterrors.CodeRuntimeUnavailable,
			"failed to create Docker CLI context")
	}
	if err := dockerCLI.Initialize(flags.NewClientOptions()); err != nil {
		return nil, dterrors.Wrap(err, dterrors.CategoryRuntime, dterrors.CodeRuntimeUnavailable,
			"failed to initialize Docker CLI context")
	}

	return &Adapter{
		engine:  engine,
		dockerCLI: dockerCLI,
		compose: compose.NewComposeService(dockerCLI),
	}, nil
}

// Close releases the underlying Engine client connection.
func (a *Adapter) Close() error {
	return a.engine.Close()
}

// Ping verifies the Engine daemon is reachable, surfaced by commands that
// need a clear "Docker isn't running" error rather than a deep stack trace.
func (a *Adapter) Ping(ctx context.Context) error {
	if _, err := a.engine.Ping(ctx); err != nil {
		return dterrors.Wrap(err, dterrors.CategoryRuntime, dterrors.CodeRuntimeUnavailable,
			"Docker daemon is not reachable").
			WithHint("make sure Docker is running and accessible from this shell")
	}
	return nil
}

func wrapRuntimeErr(err error, verb string) error {
	if err == nil {
		return nil
	}
	return dterrors.Wrap(err, dterrors.CategoryRuntime, dterrors.CodeExternalToolFailed,
		fmt.Sprintf("failed to %s", verb))
}
