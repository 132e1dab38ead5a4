// Package dtio provides filesystem path helpers shared across dockertree's
// components (project-root discovery, worktree paths, cache/state dirs).
package dtio

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// RealPath returns the absolute path with symlinks resolved.
func RealPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir reports whether path is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// IsFile reports whether path is a regular file.
func IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// EnsureDir creates a directory (and parents) with the given permissions
// if it does not already exist.
func EnsureDir(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// GlobalConfigDir returns the per-user global config directory used for
// storing provider tokens and default deployment settings
// (`<home>/.dockertree`), per §6.3 of the specification.
func GlobalConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".dockertree"), nil
}

// CacheDir returns the platform-appropriate cache directory for dockertree.
func CacheDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Caches", "dockertree"), nil
	default:
		if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
			return filepath.Join(cacheHome, "dockertree"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".cache", "dockertree"), nil
	}
}

// CopyDirExcluding recursively copies src into dst, skipping any entry whose
// path relative to src matches one of the exclude names at the top level.
// Used by the fractal-structure copy (.dockertree/ minus worktrees/) and by
// package export/import (environment bundling).
func CopyDirExcluding(src, dst string, exclude map[string]bool) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return os.MkdirAll(dst, 0o755)
		}
		top := rel
		if idx := indexOfSeparator(rel); idx >= 0 {
			top = rel[:idx]
		}
		if exclude[top] {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		return copyFile(path, target, info.Mode())
	})
}

func indexOfSeparator(rel string) int {
	for i, r := range rel {
		if r == filepath.Separator {
			return i
		}
	}
	return -1
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
