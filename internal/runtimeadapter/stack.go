package runtimeadapter

import (
	"context"
	"io"

	"github.com/compose-spec/compose-go/v2/cli"
	"github.com/compose-spec/compose-go/v2/types"
	"github.com/docker/compose/v2/pkg/api"

	"github.com/griffithind/dockertree/internal/dterrors"
)

// LoadProject parses the given compose files (in override order) into a
// compose-go Project bound to stackName, with env resolved from envFile.
func LoadProject(ctx context.Context, files []string, stackName, envFile string) (*types.Project, error) {
	opts := []cli.ProjectOptionsFn{
		cli.WithWorkingDirectory("."),
		cli.WithOsEnv,
		cli.WithInterpolation(true),
		cli.WithResolvedPaths(true),
		cli.WithName(stackName),
	}
	if envFile != "" {
		opts = append(opts, cli.WithEnvFiles(envFile), cli.WithDotEnv)
	} else {
		opts = append(opts, cli.WithDiscardEnvFile)
	}

	options, err := cli.NewProjectOptions(files, opts...)
	if err != nil {
		return nil, dterrors.Wrap(err, dterrors.CategoryCompose, dterrors.CodeComposeNoFile,
			"failed to build compose project options")
	}

	project, err := options.LoadProject(ctx)
	if err != nil {
		return nil, dterrors.Wrap(err, dterrors.CategoryCompose, dterrors.CodeComposeMissingServices,
			"failed to load compose project")
	}
	return project, nil
}

// StackUp brings a stack up in detached mode, per spec §4.2's stack_up.
func (a *Adapter) StackUp(ctx context.Context, project *types.Project, detach bool) error {
	err := a.compose.Up(ctx, project, api.UpOptions{
		Create: api.CreateOptions{RemoveOrphans: false},
		Start:  api.StartOptions{Project: project, Wait: !detach},
	})
	if err != nil {
		return dterrors.Wrap(err, dterrors.CategoryRuntime, dterrors.CodeExternalToolFailed,
			"failed to bring up stack "+project.Name)
	}
	return nil
}

// StackDown tears a stack down without removing its named volumes, per spec
// §4.2's stack_down.
func (a *Adapter) StackDown(ctx context.Context, stackName string) error {
	if err := a.compose.Down(ctx, stackName, api.DownOptions{Volumes: false}); err != nil {
		return dterrors.Wrap(err, dterrors.CategoryRuntime, dterrors.CodeExternalToolFailed,
			"failed to bring down stack "+stackName)
	}
	return nil
}

// StackPs lists the containers for a stack, running or stopped.
func (a *Adapter) StackPs(ctx context.Context, stackName string) ([]api.ContainerSummary, error) {
	summaries, err := a.compose.Ps(ctx, stackName, api.PsOptions{All: true})
	if err != nil {
		return nil, dterrors.Wrap(err, dterrors.CategoryRuntime, dterrors.CodeExternalToolFailed,
			"failed to list stack containers")
	}
	return summaries, nil
}

// StackLogs streams logs for the given services (or all, if empty) in a
// stack to w.
func (a *Adapter) StackLogs(ctx context.Context, stackName string, services []string, follow bool, w io.Writer) error {
	consumer := api.NewLogConsumer(ctx, w, w, false, true, false)
	err := a.compose.Logs(ctx, stackName, consumer, api.LogOptions{
		Services: services,
		Follow:   follow,
	})
	if err != nil {
		return dterrors.Wrap(err, dterrors.CategoryRuntime, dterrors.CodeExternalToolFailed,
			"failed to fetch stack logs")
	}
	return nil
}

// StackExec runs a command inside a running service container, per spec
// §6's exec pass-through.
func (a *Adapter) StackExec(ctx context.Context, project *types.Project, service string, cmd []string, tty bool, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	code, err := a.compose.Exec(ctx, project.Name, api.RunOptions{
		Service: service,
		Command: cmd,
		Tty:     tty,
		Stdin:   stdin,
		Stdout:  stdout,
		Stderr:  stderr,
	})
	if err != nil {
		return code, dterrors.Wrap(err, dterrors.CategoryRuntime, dterrors.CodeExternalToolFailed,
			"exec failed in service "+service)
	}
	return code, nil
}

// StackRun runs a one-off command against a service definition (not an
// already-running container), per spec §6's run pass-through.
func (a *Adapter) StackRun(ctx context.Context, project *types.Project, service string, cmd []string, tty bool, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	code, err := a.compose.RunOneOffContainer(ctx, project, api.RunOptions{
		Service: service,
		Command: cmd,
		Tty:     tty,
		Stdin:   stdin,
		Stdout:  stdout,
		Stderr:  stderr,
		Remove:  true,
	})
	if err != nil {
		return code, dterrors.Wrap(err, dterrors.CategoryRuntime, dterrors.CodeExternalToolFailed,
			"run failed for service "+service)
	}
	return code, nil
}

// StackBuild builds the buildable services in a project.
func (a *Adapter) StackBuild(ctx context.Context, project *types.Project, services []string, progress io.Writer) error {
	err := a.compose.Build(ctx, project, api.BuildOptions{
		Services: services,
	})
	if err != nil {
		return dterrors.Wrap(err, dterrors.CategoryRuntime, dterrors.CodeExternalToolFailed,
			"failed to build stack images")
	}
	return nil
}

// StackRestart restarts one or more services (or all, if empty).
func (a *Adapter) StackRestart(ctx context.Context, stackName string, services []string) error {
	if err := a.compose.Restart(ctx, stackName, api.RestartOptions{Services: services}); err != nil {
		return dterrors.Wrap(err, dterrors.CategoryRuntime, dterrors.CodeExternalToolFailed,
			"failed to restart stack "+stackName)
	}
	return nil
}

// StackRemove removes a stack's containers and non-anonymous resources,
// leaving named volumes untouched (the orchestrator removes those
// explicitly by name, per spec §4.4's remove transition).
func (a *Adapter) StackRemove(ctx context.Context, stackName string) error {
	if err := a.compose.Remove(ctx, stackName, api.RemoveOptions{Force: true}); err != nil {
		return dterrors.Wrap(err, dterrors.CategoryRuntime, dterrors.CodeExternalToolFailed,
			"failed to remove stack containers for "+stackName)
	}
	return nil
}
