package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/griffithind/dockertree/internal/output"
)

var psCmd = &cobra.Command{
	Use:   "ps <branch>",
	Short: "List a branch's containers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		branch := args[0]
		ctx := cmd.Context()
		return runOp("ps", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			identity, err := p.orch.Identity(branch)
			if err != nil {
				return nil, err
			}
			summaries, err := p.rt.StackPs(ctx, identity.StackName)
			if err != nil {
				return nil, err
			}
			if !output.IsJSON() {
				rows := make([][]string, 0, len(summaries))
				for _, s := range summaries {
					rows = append(rows, []string{s.Name, s.Service, s.State})
				}
				_ = output.RenderTable([]string{"NAME", "SERVICE", "STATE"}, rows)
			}
			return summaries, nil
		})
	},
}

var logsFollow bool

var logsCmd = &cobra.Command{
	Use:   "logs <branch> [service]",
	Short: "Tail a branch's container logs",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		branch := args[0]
		var services []string
		if len(args) == 2 {
			services = []string{args[1]}
		}
		ctx := cmd.Context()
		return runOp("logs", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			identity, err := p.orch.Identity(branch)
			if err != nil {
				return nil, err
			}
			if err := p.rt.StackLogs(ctx, identity.StackName, services, logsFollow, output.Writer()); err != nil {
				return nil, err
			}
			return nil, nil
		})
	},
}

var execCmd = &cobra.Command{
	Use:   "exec <branch> <service> -- <cmd...>",
	Short: "Run a command in a running service container",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		branch, service, rest := args[0], args[1], args[2:]
		ctx := cmd.Context()
		return runOp("exec", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			proj, err := p.orch.LoadBranchProject(ctx, branch)
			if err != nil {
				return nil, err
			}
			code, err := p.rt.StackExec(ctx, proj, service, rest, true, os.Stdin, output.Writer(), output.ErrWriter())
			if err != nil {
				return nil, err
			}
			return map[string]int{"exit_code": code}, nil
		})
	},
}

var runRM bool

var runCmd = &cobra.Command{
	Use:   "run <branch> <service> -- <cmd...>",
	Short: "Run a one-off command against a service, starting a fresh container",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		branch, service, rest := args[0], args[1], args[2:]
		ctx := cmd.Context()
		return runOp("run", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			proj, err := p.orch.LoadBranchProject(ctx, branch)
			if err != nil {
				return nil, err
			}
			code, err := p.rt.StackRun(ctx, proj, service, rest, true, os.Stdin, output.Writer(), output.ErrWriter())
			if err != nil {
				return nil, err
			}
			return map[string]int{"exit_code": code}, nil
		})
	},
}

var buildCmd = &cobra.Command{
	Use:   "build <branch> [service...]",
	Short: "Build a branch's service images",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		branch, services := args[0], args[1:]
		ctx := cmd.Context()
		return runOp("build", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			proj, err := p.orch.LoadBranchProject(ctx, branch)
			if err != nil {
				return nil, err
			}
			if err := p.rt.StackBuild(ctx, proj, services, output.Writer()); err != nil {
				return nil, err
			}
			output.Success("built %s", branch)
			return nil, nil
		})
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart <branch> [service...]",
	Short: "Restart a branch's containers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		branch, services := args[0], args[1:]
		ctx := cmd.Context()
		return runOp("restart", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			identity, err := p.orch.Identity(branch)
			if err != nil {
				return nil, err
			}
			if err := p.rt.StackRestart(ctx, identity.StackName, services); err != nil {
				return nil, err
			}
			output.Success("restarted %s", branch)
			return nil, nil
		})
	},
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "follow log output")
	runCmd.Flags().BoolVar(&runRM, "rm", true, "remove the container after it exits (always true; accepted for familiarity)")
	rootCmd.AddCommand(psCmd, logsCmd, execCmd, runCmd, buildCmd, restartCmd)
}
