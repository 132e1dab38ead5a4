package pathresolve

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/griffithind/dockertree/internal/dterrors"
	"github.com/griffithind/dockertree/internal/dtconfig"
	"github.com/griffithind/dockertree/internal/dtio"
)

// composeCandidates lists the declarative-stack filenames setup looks for in
// the project root, in preference order (.yml before .yaml, matching the
// majority of the convention in the wild).
var composeCandidates = []string{
	"docker-compose.yml",
	"docker-compose.yaml",
	"compose.yml",
	"compose.yaml",
}

// SetupOptions controls setup's behavior.
type SetupOptions struct {
	ProjectName string
	Force       bool // overwrite existing .dockertree/ contents
}

// SetupResult reports what setup did.
type SetupResult struct {
	Context        *Context
	Created        []string
	AlreadyPresent bool
}

// FindComposeFile returns the first declarative-stack file found directly in
// dir, or "" if none exists.
func FindComposeFile(dir string) string {
	for _, name := range composeCandidates {
		p := filepath.Join(dir, name)
		if dtio.IsFile(p) {
			return p
		}
	}
	return ""
}

// Setup idempotently scaffolds `.dockertree/` under projectRoot: config.yml,
// a placeholder docker-compose.worktree.yml (populated properly once a
// transform has run against a real stack file), a proxy configuration
// template, and an agent-facing README.md. When the project has no
// declarative stack file of its own, Setup also writes a minimal
// web+db+cache skeleton so there is something to transform.
//
// Re-running Setup without Force reports the existing state and makes no
// changes.
func Setup(projectRoot string, opts SetupOptions) (*SetupResult, error) {
	root, err := dtio.RealPath(projectRoot)
	if err != nil {
		return nil, dterrors.Wrapf(err, dterrors.CategoryInternal, "PATH_RESOLVE", "failed to resolve %s", projectRoot)
	}

	dtDir := filepath.Join(root, DockertreeDirName)
	cfgPath := filepath.Join(dtDir, ConfigFileName)

	if dtio.IsFile(cfgPath) && !opts.Force {
		vcsRoot, isWorktree := findVCSRoot(root)
		return &SetupResult{
			Context: &Context{
				ProjectRoot:   root,
				DockertreeDir: dtDir,
				ConfigPath:    cfgPath,
				VCSRoot:       vcsRoot,
				WorktreeLocal: isWorktree,
			},
			AlreadyPresent: true,
		}, nil
	}

	if err := dtio.EnsureDir(dtDir, 0o755); err != nil {
		return nil, dterrors.Wrapf(err, dterrors.CategoryConfig, "CONFIG_WRITE", "failed to create %s", dtDir)
	}

	var created []string

	projectName := opts.ProjectName
	if projectName == "" {
		projectName = filepath.Base(root)
	}

	cfg := &dtconfig.Config{
		ProjectName:  projectName,
		WorktreeDir:  dtconfig.DefaultWorktreeDir,
		CaddyNetwork: dtconfig.DefaultCaddyNetwork,
		Volumes:      []string{},
	}
	if !dtio.IsFile(cfgPath) || opts.Force {
		if err := cfg.Save(cfgPath); err != nil {
			return nil, err
		}
		created = append(created, cfgPath)
	}

	composeFile := FindComposeFile(root)
	if composeFile == "" {
		skeletonPath := filepath.Join(root, "docker-compose.yml")
		if !dtio.IsFile(skeletonPath) {
			if err := os.WriteFile(skeletonPath, []byte(skeletonCompose), 0o644); err != nil {
				return nil, dterrors.Wrapf(err, dterrors.CategoryConfig, "CONFIG_WRITE", "failed to write %s", skeletonPath)
			}
			created = append(created, skeletonPath)
			composeFile = skeletonPath
		}
	}

	worktreeComposePath := filepath.Join(dtDir, "docker-compose.worktree.yml")
	if !dtio.IsFile(worktreeComposePath) || opts.Force {
		if err := os.WriteFile(worktreeComposePath, []byte(placeholderWorktreeCompose), 0o644); err != nil {
			return nil, dterrors.Wrapf(err, dterrors.CategoryConfig, "CONFIG_WRITE", "failed to write %s", worktreeComposePath)
		}
		created = append(created, worktreeComposePath)
	}

	proxyTemplatePath := filepath.Join(dtDir, "proxy.template.json")
	if !dtio.IsFile(proxyTemplatePath) || opts.Force {
		if err := os.WriteFile(proxyTemplatePath, []byte(proxyTemplate), 0o644); err != nil {
			return nil, dterrors.Wrapf(err, dterrors.CategoryConfig, "CONFIG_WRITE", "failed to write %s", proxyTemplatePath)
		}
		created = append(created, proxyTemplatePath)
	}

	readmePath := filepath.Join(dtDir, "README.md")
	if !dtio.IsFile(readmePath) || opts.Force {
		if err := os.WriteFile(readmePath, []byte(fmt.Sprintf(readmeTemplate, projectName)), 0o644); err != nil {
			return nil, dterrors.Wrapf(err, dterrors.CategoryConfig, "CONFIG_WRITE", "failed to write %s", readmePath)
		}
		created = append(created, readmePath)
	}

	vcsRoot, isWorktree := findVCSRoot(root)
	return &SetupResult{
		Context: &Context{
			ProjectRoot:   root,
			DockertreeDir: dtDir,
			ConfigPath:    cfgPath,
			VCSRoot:       vcsRoot,
			WorktreeLocal: isWorktree,
		},
		Created: created,
	}, nil
}

const skeletonCompose = `services:
  web:
    build: .
    ports:
      - "3000:3000"
    environment:
      - DATABASE_URL=postgres://postgres:postgres@db:5432/app
      - REDIS_URL=redis://cache:6379
    depends_on:
      - db
      - cache

  db:
    image: postgres:16-alpine
    environment:
      - POSTGRES_PASSWORD=postgres
      - POSTGRES_DB=app
    volumes:
      - db_data:/var/lib/postgresql/data

  cache:
    image: redis:7-alpine
    volumes:
      - cache_data:/data

volumes:
  db_data:
  cache_data:
`

const placeholderWorktreeCompose = `# Generated by dockertree. Do not edit by hand; re-run the transform with
# ` + "`dockertree create`" + ` to regenerate.
services: {}
`

const proxyTemplate = `{
  "apps": {
    "http": {
      "servers": {
        "dockertree": {
          "listen": [":80", ":443"],
          "routes": []
        }
      }
    }
  }
}
`

const readmeTemplate = `# %s — dockertree metadata

This directory is managed by dockertree. It is committed so every branch
checkout carries its own isolated environment definition.

- ` + "`config.yml`" + ` — project identity, volumes, and deployment defaults.
- ` + "`docker-compose.worktree.yml`" + ` — derived compose overlay; regenerated
  by ` + "`dockertree create`" + `, never edited by hand.
- ` + "`proxy.template.json`" + ` — seed config pushed to the shared proxy
  container's admin API.

Run ` + "`dockertree create <branch>`" + ` to bring up an isolated environment for a
new branch, or ` + "`dockertree list`" + ` to see what already exists.
`
