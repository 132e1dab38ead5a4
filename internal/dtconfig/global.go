package dtconfig

import (
	"os"
	"path/filepath"

	"github.com/griffithind/dockertree/internal/dterrors"
	"github.com/griffithind/dockertree/internal/dtio"
	"github.com/griffithind/dockertree/internal/envgen"
)

// GlobalFileName is the per-user global store's file name under
// dtio.GlobalConfigDir(), per spec §6.3: provider tokens and default
// deployment settings, in the same KEY=VALUE shape as env.dockertree.
const GlobalFileName = "env.dockertree"

// LoadGlobal reads the per-user global store, returning an empty map (not
// an error) if it does not exist yet — a fresh machine has no global
// config until the user sets one.
func LoadGlobal() (map[string]string, error) {
	dir, err := dtio.GlobalConfigDir()
	if err != nil {
		return nil, dterrors.Wrap(err, dterrors.CategoryInternal, "HOME_DIR", "failed to resolve home directory")
	}
	path := filepath.Join(dir, GlobalFileName)
	if !dtio.IsFile(path) {
		return map[string]string{}, nil
	}
	return envgen.ReadLines(path)
}

// SaveGlobal writes values to the per-user global store, merging with
// whatever is already present.
func SaveGlobal(values map[string]string) error {
	dir, err := dtio.GlobalConfigDir()
	if err != nil {
		return dterrors.Wrap(err, dterrors.CategoryInternal, "HOME_DIR", "failed to resolve home directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return dterrors.Wrapf(err, dterrors.CategoryConfig, "CONFIG_WRITE", "failed to create %s", dir)
	}

	existing, err := LoadGlobal()
	if err != nil {
		return err
	}
	for k, v := range values {
		existing[k] = v
	}

	lines := make([]envgen.EnvLine, 0, len(existing))
	for k, v := range existing {
		lines = append(lines, envgen.EnvLine{Key: k, Value: v})
	}
	return envgen.Write(filepath.Join(dir, GlobalFileName), lines)
}
