package push

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/griffithind/dockertree/internal/dtconfig"
	"github.com/griffithind/dockertree/internal/dterrors"
	"github.com/griffithind/dockertree/internal/envgen"
	"github.com/griffithind/dockertree/internal/orchestrator"
	"github.com/griffithind/dockertree/internal/pathresolve"
	"github.com/griffithind/dockertree/internal/pkgmanager"
)

// Options configures one `droplet push` invocation, per spec §4.10.
type Options struct {
	RawTarget string // progressive SCP target, or "" when CreateDroplet fills it in

	CodeOnly bool

	Domain string // mutually exclusive with IP
	IP     string

	PrepareServer  bool
	AutoImport     bool
	PrivateKeyPath string

	// Droplet creation (optional).
	CreateDroplet    bool
	Region, Size, Image string
	SSHKeyIDs        []string
	APIToken         string

	// DNS management (optional, implied by Domain != "").
	DNSToken string

	// VPC worker mode (optional).
	CentralDropletName string
}

// Result reports what Push accomplished.
type Result struct {
	Target       Target
	DropletID    int64 // 0 if no droplet was created
	PackagePath  string
	RemoteOutput string
}

// Pusher drives `droplet push`/`droplet create`.
type Pusher struct {
	pctx *pathresolve.Context
	cfg  *dtconfig.Config
	orch *orchestrator.Orchestrator
	exp  *pkgmanager.Exporter
}

// NewPusher builds a Pusher bound to a resolved project.
func NewPusher(pctx *pathresolve.Context, cfg *dtconfig.Config, orch *orchestrator.Orchestrator, exp *pkgmanager.Exporter) *Pusher {
	return &Pusher{pctx: pctx, cfg: cfg, orch: orch, exp: exp}
}

// Push implements spec §4.10's end-to-end deployment pipeline.
func (p *Pusher) Push(ctx context.Context, branch string, opts Options) (*Result, error) {
	if opts.Domain != "" && opts.IP != "" {
		return nil, dterrors.New(dterrors.CategoryValidation, dterrors.CodeMutuallyExclusive,
			"--domain and --ip are mutually exclusive")
	}

	result := &Result{}

	global, _ := dtconfig.LoadGlobal()
	dropletClient := NewDropletClient(ResolveToken(opts.APIToken,
		[]string{"DIGITALOCEAN_API_TOKEN"}, p.pctx.ProjectRoot, p.cfg, global["DIGITALOCEAN_API_TOKEN"]))

	rawTarget := opts.RawTarget
	if opts.CreateDroplet {
		droplet, err := p.createDroplet(ctx, branch, opts, dropletClient)
		if err != nil {
			return nil, err
		}
		result.DropletID = droplet.ID
		rawTarget = fmt.Sprintf("root@%s:/root", droplet.PublicIP)
	}

	target, err := ResolveTarget(ctx, rawTarget, DefaultHostResolver, dropletLookupFunc(dropletClient))
	if err != nil {
		return nil, err
	}
	result.Target = target

	resolvedIP := target.Host
	if opts.Domain != "" {
		if err := p.manageDNS(ctx, opts, resolvedIP); err != nil {
			return nil, err
		}
	}

	ssh := NewSSHClient(target, opts.PrivateKeyPath)

	if opts.PrepareServer {
		var out bytes.Buffer
		if _, err := ssh.Run(ctx, prepareScript, &out); err != nil {
			return nil, err
		}
		result.RemoteOutput += out.String()
	}

	exportOpts := pkgmanager.ExportOptions{
		IncludeCode: true,
		IncludeData: !opts.CodeOnly,
		OutputDir:   os.TempDir(),
	}
	exportResult, err := p.exp.Export(ctx, branch, exportOpts)
	if err != nil {
		return nil, err
	}
	result.PackagePath = exportResult.PackagePath
	defer os.Remove(exportResult.PackagePath)

	remotePath := "/root/" + filepath.Base(exportResult.PackagePath)
	if err := ssh.Upload(ctx, exportResult.PackagePath, remotePath); err != nil {
		return nil, err
	}

	if opts.AutoImport {
		importCmd := buildRemoteImportCommand(remotePath, opts)
		var out bytes.Buffer
		code, err := ssh.Run(ctx, importCmd, &out)
		result.RemoteOutput += out.String()
		if err != nil {
			return nil, err
		}
		if code != 0 {
			return nil, dterrors.Newf(dterrors.CategoryPush, "REMOTE_IMPORT_FAILED",
				"remote import exited with status %d", code)
		}
	}

	if err := p.persistPushState(branch, target, opts); err != nil {
		return nil, err
	}

	return result, nil
}

func dropletLookupFunc(c *DropletClient) DropletLookup {
	return func(ctx context.Context, idOrName string) (string, error) {
		if id, perr := strconv.ParseInt(idOrName, 10, 64); perr == nil {
			d, err := c.Get(ctx, id)
			if err != nil {
				return "", err
			}
			return d.PublicIP, nil
		}
		d, err := c.FindByName(ctx, idOrName)
		if err != nil {
			return "", err
		}
		return d.PublicIP, nil
	}
}

func (p *Pusher) createDroplet(ctx context.Context, branch string, opts Options, client *DropletClient) (*Droplet, error) {
	name := p.cfg.ProjectName + "-" + branch

	req := CreateDropletRequest{
		Name:    name,
		Region:  opts.Region,
		Size:    opts.Size,
		Image:   opts.Image,
		SSHKeys: opts.SSHKeyIDs,
	}

	if opts.CentralDropletName != "" {
		central, err := client.FindByName(ctx, opts.CentralDropletName)
		if err != nil {
			return nil, err
		}
		req.VPCUUID = central.VPCUUID
	}

	created, err := client.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	return client.WaitUntilActive(ctx, created.ID)
}

func (p *Pusher) manageDNS(ctx context.Context, opts Options, ip string) error {
	global, _ := dtconfig.LoadGlobal()
	globalToken := global["DIGITALOCEAN_API_TOKEN"]
	if globalToken == "" {
		globalToken = global["DNS_API_TOKEN"]
	}
	token := ResolveToken(opts.DNSToken, []string{"DIGITALOCEAN_API_TOKEN", "DNS_API_TOKEN"}, p.pctx.ProjectRoot, p.cfg, globalToken)
	if token == "" {
		return dterrors.New(dterrors.CategoryValidation, "DNS_TOKEN_REQUIRED",
			"a DNS provider token is required to manage --domain's A record")
	}
	sub, root := SplitDomain(opts.Domain)
	return NewDNSClient(token).EnsureARecord(ctx, root, sub, ip)
}

// persistPushState writes PUSH_SCP_TARGET/PUSH_BRANCH_NAME/PUSH_DOMAIN|
// PUSH_IP into the worktree's env file, per spec §4.10 step 8.
func (p *Pusher) persistPushState(branch string, target Target, opts Options) error {
	envPath := filepath.Join(p.orch.WorktreePath(branch), pathresolve.DockertreeDirName, orchestrator.EnvFileName)
	lines, err := envgen.ReadLines(envPath)
	if err != nil {
		return err
	}

	lines["PUSH_SCP_TARGET"] = target.String()
	lines["PUSH_BRANCH_NAME"] = branch
	delete(lines, "PUSH_DOMAIN")
	delete(lines, "PUSH_IP")
	if opts.Domain != "" {
		lines["PUSH_DOMAIN"] = opts.Domain
	} else if opts.IP != "" {
		lines["PUSH_IP"] = opts.IP
	}

	return writeRawEnvLines(envPath, lines)
}

func writeRawEnvLines(path string, lines map[string]string) error {
	ordered := make([]envgen.EnvLine, 0, len(lines))
	for k, v := range lines {
		ordered = append(ordered, envgen.EnvLine{Key: k, Value: v})
	}
	return envgen.Write(path, ordered)
}

// prepareScript installs the container runtime, the dockertree binary, and
// opens the HTTP/HTTPS/SSH firewall ports on a fresh remote host. Opaque to
// the core beyond its exit-zero-on-success contract, per spec §4.10 step 4.
const prepareScript = `#!/bin/sh
set -e
if ! command -v docker >/dev/null 2>&1; then
  curl -fsSL https://get.docker.com | sh
fi
if command -v ufw >/dev/null 2>&1; then
  ufw allow 22/tcp || true
  ufw allow 80/tcp || true
  ufw allow 443/tcp || true
fi
`

// buildRemoteImportCommand builds the remote import script invocation of
// spec §4.10 step 7: find or bootstrap the tool binary, detect normal vs.
// standalone mode, import non-interactively with the domain/IP override,
// start the proxy and stack.
func buildRemoteImportCommand(remotePackagePath string, opts Options) string {
	override := ""
	switch {
	case opts.Domain != "":
		override = "--domain " + opts.Domain
	case opts.IP != "":
		override = "--ip " + opts.IP
	}

	return fmt.Sprintf(`set -e
if ! command -v dockertree >/dev/null 2>&1; then
  curl -fsSL https://get.dockertree.dev | sh
fi
dockertree packages import %s %s --restore-data --yes
dockertree start-proxy
dockertree up
`, remotePackagePath, override)
}
