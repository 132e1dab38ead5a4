// Package dtconfig implements the Config Store (spec §4.1, C1): loading and
// writing the project's `.dockertree/config.yml`, and computing the derived
// identifiers (ProjectName, BranchName, StackName) described in spec §3.
package dtconfig

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/griffithind/dockertree/internal/dterrors"
)

// DefaultWorktreeDir is used when config.yml omits worktree_dir.
const DefaultWorktreeDir = "worktrees"

// DefaultCaddyNetwork is used when config.yml omits caddy_network.
const DefaultCaddyNetwork = "dockertree_caddy_proxy"

// DefaultProtectedBranches is the default protected-branch set, per spec §3.
var DefaultProtectedBranches = []string{"main", "master", "develop", "production", "staging"}

// ServiceConfig describes one entry in config.yml's `services:` mapping.
type ServiceConfig struct {
	ContainerNameTemplate string `yaml:"container_name_template,omitempty"`
}

// VPCConfig mirrors the `vpc:` block of config.yml.
type VPCConfig struct {
	AutoBindPorts        bool `yaml:"auto_bind_ports"`
	BindToPrivateIP      bool `yaml:"bind_to_private_ip"`
	AutoConfigureFirewall bool `yaml:"auto_configure_firewall"`
}

// DeploymentConfig mirrors the `deployment:` block of config.yml.
type DeploymentConfig struct {
	DefaultServer string `yaml:"default_server,omitempty"`
	DefaultDomain string `yaml:"default_domain,omitempty"`
	DefaultIP     string `yaml:"default_ip,omitempty"`
	SSHKey        string `yaml:"ssh_key,omitempty"`
}

// DNSConfig mirrors the `dns:` block of config.yml.
type DNSConfig struct {
	Provider      string `yaml:"provider,omitempty"`
	APIToken      string `yaml:"api_token,omitempty"`
	DefaultDomain string `yaml:"default_domain,omitempty"`
}

// Config is the parsed representation of `.dockertree/config.yml`.
type Config struct {
	ProjectName       string                   `yaml:"project_name"`
	WorktreeDir       string                   `yaml:"worktree_dir,omitempty"`
	CaddyNetwork      string                   `yaml:"caddy_network,omitempty"`
	Services          map[string]ServiceConfig `yaml:"services,omitempty"`
	Volumes           []string                 `yaml:"volumes,omitempty"`
	Environment       map[string]string        `yaml:"environment,omitempty"`
	VPC               VPCConfig                `yaml:"vpc,omitempty"`
	Deployment        DeploymentConfig         `yaml:"deployment,omitempty"`
	DNS               DNSConfig                `yaml:"dns,omitempty"`
	ProtectedBranches []string                 `yaml:"protected_branches,omitempty"`

	// path is the absolute path this Config was loaded from (or will be
	// written to); not serialized.
	path string `yaml:"-"`
}

// Path returns the filesystem location this Config was loaded from.
func (c *Config) Path() string {
	return c.path
}

// WorktreeDirOrDefault returns worktree_dir, defaulting per spec §3.
func (c *Config) WorktreeDirOrDefault() string {
	if c.WorktreeDir == "" {
		return DefaultWorktreeDir
	}
	return c.WorktreeDir
}

// CaddyNetworkOrDefault returns caddy_network, defaulting per spec §3.
func (c *Config) CaddyNetworkOrDefault() string {
	if c.CaddyNetwork == "" {
		return DefaultCaddyNetwork
	}
	return c.CaddyNetwork
}

// ProtectedBranchesOrDefault returns protected_branches, defaulting per
// spec §3's "Branch name rules".
func (c *Config) ProtectedBranchesOrDefault() []string {
	if len(c.ProtectedBranches) == 0 {
		return DefaultProtectedBranches
	}
	return c.ProtectedBranches
}

// Load reads and parses `.dockertree/config.yml` at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dterrors.Wrapf(err, dterrors.CategoryNotFound, dterrors.CodeWorktreeNotFound,
				"config.yml not found at %s", path)
		}
		return nil, dterrors.Wrapf(err, dterrors.CategoryConfig, "CONFIG_READ", "failed to read %s", path)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, dterrors.Wrapf(err, dterrors.CategoryConfig, "CONFIG_PARSE", "failed to parse %s", path)
	}
	cfg.path = path
	return cfg, nil
}

// Save writes the Config back to its Path (or to path, if given and the
// Config has none yet). Writes to the outermost project root are the
// caller's responsibility — dtconfig only serializes.
func (c *Config) Save(path string) error {
	if path == "" {
		path = c.path
	}
	if path == "" {
		return dterrors.New(dterrors.CategoryConfig, "CONFIG_NO_PATH", "config has no path to save to")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return dterrors.Wrap(err, dterrors.CategoryConfig, "CONFIG_MARSHAL", "failed to marshal config.yml")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return dterrors.Wrapf(err, dterrors.CategoryConfig, "CONFIG_WRITE", "failed to write %s", path)
	}
	c.path = path
	return nil
}

// branchNameRE enforces spec §3's branch name rules: lowercase letters,
// digits, -, _, /, length 1..64.
var branchNameRE = regexp.MustCompile(`^[a-z0-9_/-]{1,64}$`)

// ValidateBranchName checks a branch name against spec §3's rules,
// including the protected-branch set.
func ValidateBranchName(name string, protected []string) error {
	if !branchNameRE.MatchString(name) {
		return dterrors.Newf(dterrors.CategoryValidation, dterrors.CodeInvalidBranchName,
			"invalid branch name %q: must be 1-64 chars of lowercase letters, digits, -, _, /", name).
			WithHint("branch names must match [a-z0-9_/-]{1,64}")
	}
	for _, p := range protected {
		if name == p {
			return dterrors.Newf(dterrors.CategoryValidation, dterrors.CodeProtectedBranch,
				"branch %q is protected", name)
		}
	}
	return nil
}

// Identity holds the derived identifiers from spec §3: ProjectName,
// BranchName, and StackName = ProjectName + "-" + BranchName.
type Identity struct {
	ProjectName string
	BranchName  string
	StackName   string
}

// NewIdentity validates branchName against cfg's protected-branch set and
// branch-name rules, then derives the StackName.
func NewIdentity(cfg *Config, branchName string) (Identity, error) {
	if err := ValidateBranchName(branchName, cfg.ProtectedBranchesOrDefault()); err != nil {
		return Identity{}, err
	}
	if cfg.ProjectName == "" {
		return Identity{}, dterrors.New(dterrors.CategoryConfig, "CONFIG_MISSING_PROJECT_NAME",
			"config.yml is missing project_name")
	}
	return Identity{
		ProjectName: cfg.ProjectName,
		BranchName:  branchName,
		StackName:   fmt.Sprintf("%s-%s", cfg.ProjectName, branchName),
	}, nil
}
