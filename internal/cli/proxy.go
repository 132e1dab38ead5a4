package cli

import (
	"github.com/spf13/cobra"

	"github.com/griffithind/dockertree/internal/output"
	"github.com/griffithind/dockertree/internal/proxy"
)

var startProxyCmd = &cobra.Command{
	Use:     "start-proxy",
	Aliases: []string{"start"},
	Short:   "Start the global Caddy reverse proxy",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return runOp("start-proxy", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			coord := proxy.New(p.rt, p.cfg.CaddyNetworkOrDefault())
			if err := coord.Start(ctx); err != nil {
				return nil, err
			}
			output.Success("proxy started")
			return nil, nil
		})
	},
}

var stopProxyCmd = &cobra.Command{
	Use:     "stop-proxy",
	Aliases: []string{"stop"},
	Short:   "Stop the global Caddy reverse proxy",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return runOp("stop-proxy", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			coord := proxy.New(p.rt, p.cfg.CaddyNetworkOrDefault())
			if err := coord.Stop(ctx); err != nil {
				return nil, err
			}
			output.Success("proxy stopped")
			return nil, nil
		})
	},
}

func init() {
	rootCmd.AddCommand(startProxyCmd, stopProxyCmd)
}
