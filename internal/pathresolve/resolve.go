// Package pathresolve implements the Path Resolver (spec §4.1, C2): locating
// the nearest `.dockertree/config.yml` by walking from the current directory
// toward the filesystem root, and distinguishing a "worktree-local" context
// (running inside a branch checkout created by dockertree) from the project
// root, and resolving the enclosing VCS root alongside it.
package pathresolve

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/griffithind/dockertree/internal/dterrors"
	"github.com/griffithind/dockertree/internal/dtio"
)

// DockertreeDirName is the per-project metadata directory name.
const DockertreeDirName = ".dockertree"

// ConfigFileName is the config file name within DockertreeDirName.
const ConfigFileName = "config.yml"

// Context describes a resolved project location.
type Context struct {
	// ProjectRoot is the directory containing .dockertree/.
	ProjectRoot string
	// DockertreeDir is ProjectRoot/.dockertree.
	DockertreeDir string
	// ConfigPath is DockertreeDir/config.yml.
	ConfigPath string
	// VCSRoot is the nearest enclosing directory with a .git entry, or ""
	// if none was found.
	VCSRoot string
	// WorktreeLocal is true when VCSRoot is a linked worktree checkout
	// (as opposed to the repository's primary working tree).
	WorktreeLocal bool
}

// Resolve walks upward from startDir looking for `.dockertree/config.yml`
// and returns the nearest directory that has one. The VCS root is then
// looked up from that directory; it does not affect which directory is
// chosen. It returns dterrors.CategoryNotFound when no .dockertree/ is found before
// reaching the filesystem root.
func Resolve(startDir string) (*Context, error) {
	dir, err := dtio.RealPath(startDir)
	if err != nil {
		return nil, dterrors.Wrapf(err, dterrors.CategoryInternal, "PATH_RESOLVE", "failed to resolve %s", startDir)
	}

	for {
		dtDir := filepath.Join(dir, DockertreeDirName)
		cfgPath := filepath.Join(dtDir, ConfigFileName)
		if dtio.IsFile(cfgPath) {
			vcsRoot, isWorktree := findVCSRoot(dir)
			return &Context{
				ProjectRoot:   dir,
				DockertreeDir: dtDir,
				ConfigPath:    cfgPath,
				VCSRoot:       vcsRoot,
				WorktreeLocal: isWorktree,
			}, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return nil, dterrors.Newf(dterrors.CategoryNotFound, dterrors.CodeWorktreeNotFound,
		"no %s/%s found above %s", DockertreeDirName, ConfigFileName, startDir).
		WithHint("run `dockertree setup` to initialize this project")
}

// findVCSRoot walks upward from dir looking for a `.git` entry, returning its
// containing directory and whether that entry marks a linked worktree
// checkout (a `.git` file, as opposed to the primary repository's `.git`
// directory).
func findVCSRoot(dir string) (root string, isWorktree bool) {
	for {
		gitPath := filepath.Join(dir, ".git")
		info, err := os.Lstat(gitPath)
		if err == nil {
			if info.IsDir() {
				return dir, false
			}
			// A `.git` file means this is a linked worktree; its content is
			// `gitdir: <path-to-worktrees/NAME>`.
			data, rerr := os.ReadFile(gitPath)
			if rerr == nil && strings.Contains(string(data), "worktrees"+string(filepath.Separator)) {
				return dir, true
			}
			return dir, false
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
