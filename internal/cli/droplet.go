package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/griffithind/dockertree/internal/dterrors"
	"github.com/griffithind/dockertree/internal/dtconfig"
	"github.com/griffithind/dockertree/internal/output"
	"github.com/griffithind/dockertree/internal/pkgmanager"
	"github.com/griffithind/dockertree/internal/push"
)

var dropletCmd = &cobra.Command{
	Use:   "droplet",
	Short: "Provision and deploy to a cloud droplet",
}

var (
	pushScpTarget          string
	pushDomain             string
	pushIP                 string
	pushPrepareServer      bool
	pushNoAutoImport       bool
	pushCentralDropletName string
	pushRegion             string
	pushSize               string
	pushImage              string
	pushSSHKeys            string
	pushAPIToken           string
	pushDNSToken           string
	pushCreateOnly         bool
	pushCodeOnly           bool
	pushPrivateKeyPath     string
)

// dropletToken resolves the DigitalOcean API token the same way
// push.Pusher.Push does internally, for the create-only path that talks to
// DropletClient directly instead of going through Pusher.
func dropletToken(cfg *dtconfig.Config, projectRoot string) string {
	global, _ := dtconfig.LoadGlobal()
	return push.ResolveToken(pushAPIToken, []string{"DIGITALOCEAN_API_TOKEN"}, projectRoot, cfg, global["DIGITALOCEAN_API_TOKEN"])
}

var dropletCreateCmd = &cobra.Command{
	Use:   "create [branch]",
	Short: "Provision a droplet, optionally pushing a branch onto it",
	Long: `Provision a droplet via the configured cloud provider.

With --create-only, only the droplet is created: no package is exported or
transferred. Otherwise this behaves like 'droplet push' with a freshly
created host as the target.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return runOp("droplet-create", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()

			client := push.NewDropletClient(dropletToken(p.cfg, p.pctx.ProjectRoot))

			if pushCreateOnly {
				name := p.cfg.ProjectName
				if len(args) == 1 {
					name += "-" + args[0]
				}
				created, err := client.Create(ctx, push.CreateDropletRequest{
					Name:    name,
					Region:  pushRegion,
					Size:    pushSize,
					Image:   pushImage,
					SSHKeys: splitCSV(pushSSHKeys),
				})
				if err != nil {
					return nil, err
				}
				droplet, err := client.WaitUntilActive(ctx, created.ID)
				if err != nil {
					return nil, err
				}
				output.Success("created droplet %s (%d) at %s", droplet.Name, droplet.ID, droplet.PublicIP)
				return droplet, nil
			}

			if len(args) != 1 {
				return nil, dterrors.New(dterrors.CategoryValidation, "BRANCH_REQUIRED",
					"a branch is required unless --create-only is set")
			}
			branch := args[0]
			exporter := pkgmanager.NewExporter(p.pctx, p.cfg, p.repo, p.rt, p.orch)
			pusher := push.NewPusher(p.pctx, p.cfg, p.orch, exporter)

			result, err := p.withBranchLock(branch, func() (interface{}, error) {
				return pusher.Push(ctx, branch, pushOptionsFromFlags(true))
			})
			if err != nil {
				return nil, err
			}
			res := result.(*push.Result)
			output.Success("pushed %s to %s", branch, res.Target.String())
			return res, nil
		})
	},
}

var dropletPushCmd = &cobra.Command{
	Use:   "push [branch] <target>",
	Short: "Export a branch and deploy it to an existing host",
	Long: `Export a branch's package and deploy it to target, an SCP-style
destination (user@host:path), a bare IP, or a known droplet name/id.

branch defaults to the current worktree's branch when omitted.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return runOp("droplet-push", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()

			var branch, target string
			if len(args) == 2 {
				branch, target = args[0], args[1]
			} else {
				branch, target = "", args[0]
			}
			if branch == "" {
				branch, err = p.repo.CurrentBranch(ctx)
				if err != nil {
					return nil, err
				}
			}

			exporter := pkgmanager.NewExporter(p.pctx, p.cfg, p.repo, p.rt, p.orch)
			pusher := push.NewPusher(p.pctx, p.cfg, p.orch, exporter)
			opts := pushOptionsFromFlags(false)
			opts.RawTarget = target

			result, err := p.withBranchLock(branch, func() (interface{}, error) {
				return pusher.Push(ctx, branch, opts)
			})
			if err != nil {
				return nil, err
			}
			res := result.(*push.Result)
			output.Success("pushed %s to %s", branch, res.Target.String())
			return res, nil
		})
	},
}

var dropletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List droplets owned by the configured account",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return runOp("droplet-list", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			client := push.NewDropletClient(dropletToken(p.cfg, p.pctx.ProjectRoot))
			droplets, err := client.List(ctx)
			if err != nil {
				return nil, err
			}
			if !output.IsJSON() {
				rows := make([][]string, 0, len(droplets))
				for _, d := range droplets {
					rows = append(rows, []string{strconv.FormatInt(d.ID, 10), d.Name, d.Status, d.PublicIP})
				}
				_ = output.RenderTable([]string{"ID", "NAME", "STATUS", "IP"}, rows)
			}
			return droplets, nil
		})
	},
}

var dropletInfoCmd = &cobra.Command{
	Use:   "info <id>",
	Short: "Show a droplet's details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return runOp("droplet-info", func() (interface{}, error) {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return nil, dterrors.Wrapf(err, dterrors.CategoryValidation, "INVALID_DROPLET_ID", "invalid droplet id %q", args[0])
			}
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			client := push.NewDropletClient(dropletToken(p.cfg, p.pctx.ProjectRoot))
			return client.Get(ctx, id)
		})
	},
}

var dropletDestroyCmd = &cobra.Command{
	Use:   "destroy <id1,id2,...>",
	Short: "Destroy one or more droplets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return runOp("droplet-destroy", func() (interface{}, error) {
			var ids []int64
			for _, s := range strings.Split(args[0], ",") {
				id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
				if err != nil {
					return nil, dterrors.Wrapf(err, dterrors.CategoryValidation, "INVALID_DROPLET_ID", "invalid droplet id %q", s)
				}
				ids = append(ids, id)
			}
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			client := push.NewDropletClient(dropletToken(p.cfg, p.pctx.ProjectRoot))
			if err := client.Destroy(ctx, ids); err != nil {
				return nil, err
			}
			output.Success("destroyed %d droplet(s)", len(ids))
			return map[string]int{"destroyed": len(ids)}, nil
		})
	},
}

var dropletRegionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "List available droplet regions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return runOp("droplet-regions", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			client := push.NewDropletClient(dropletToken(p.cfg, p.pctx.ProjectRoot))
			regions, err := client.Regions(ctx)
			if err != nil {
				return nil, err
			}
			if !output.IsJSON() {
				rows := make([][]string, 0, len(regions))
				for _, r := range regions {
					rows = append(rows, []string{r.Slug, r.Name})
				}
				_ = output.RenderTable([]string{"SLUG", "NAME"}, rows)
			}
			return regions, nil
		})
	},
}

func pushOptionsFromFlags(createDroplet bool) push.Options {
	return push.Options{
		RawTarget:          pushScpTarget,
		CodeOnly:           pushCodeOnly,
		Domain:             pushDomain,
		IP:                 pushIP,
		PrepareServer:      pushPrepareServer,
		AutoImport:         !pushNoAutoImport,
		PrivateKeyPath:     pushPrivateKeyPath,
		CreateDroplet:      createDroplet,
		Region:             pushRegion,
		Size:               pushSize,
		Image:              pushImage,
		SSHKeyIDs:          splitCSV(pushSSHKeys),
		APIToken:           pushAPIToken,
		DNSToken:           pushDNSToken,
		CentralDropletName: pushCentralDropletName,
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func init() {
	dropletCreateCmd.Flags().BoolVar(&pushCreateOnly, "create-only", false, "only provision the droplet, skip export/transfer/import")
	dropletCreateCmd.Flags().StringVar(&pushScpTarget, "scp-target", "", "override the created droplet's target path (default root@<ip>:/root)")

	for _, c := range []*cobra.Command{dropletCreateCmd, dropletPushCmd} {
		c.Flags().StringVar(&pushDomain, "domain", "", "domain to point at the deployed stack (mutually exclusive with --ip)")
		c.Flags().StringVar(&pushIP, "ip", "", "static IP to bind the deployed stack to (mutually exclusive with --domain)")
		c.Flags().BoolVar(&pushPrepareServer, "prepare-server", false, "install the container runtime and open firewall ports on the target first")
		c.Flags().BoolVar(&pushNoAutoImport, "no-auto-import", false, "transfer the package without running the remote import")
		c.Flags().StringVar(&pushPrivateKeyPath, "ssh-key", "", "path to the SSH private key used to reach the target")
	}
	dropletPushCmd.Flags().BoolVar(&pushCodeOnly, "code-only", false, "skip volume backups, bundle code only")

	dropletCreateCmd.Flags().StringVar(&pushCentralDropletName, "central-droplet-name", "", "reuse this droplet's VPC for the new one")
	dropletCreateCmd.Flags().StringVar(&pushRegion, "region", "", "droplet region slug")
	dropletCreateCmd.Flags().StringVar(&pushSize, "size", "", "droplet size slug")
	dropletCreateCmd.Flags().StringVar(&pushImage, "image", "", "droplet base image slug")
	dropletCreateCmd.Flags().StringVar(&pushSSHKeys, "ssh-keys", "", "comma-separated SSH key IDs/fingerprints to install")
	dropletCreateCmd.Flags().StringVar(&pushAPIToken, "api-token", "", "droplet provider API token (overrides env/config resolution)")
	dropletCreateCmd.Flags().StringVar(&pushDNSToken, "dns-token", "", "DNS provider API token (overrides env/config resolution)")
	dropletCreateCmd.Flags().Bool("wait", true, "wait for the droplet to become active (always true; accepted for familiarity)")

	dropletCmd.AddCommand(dropletCreateCmd, dropletPushCmd, dropletListCmd, dropletInfoCmd, dropletDestroyCmd, dropletRegionsCmd)
	rootCmd.AddCommand(dropletCmd)
}
