package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/griffithind/dockertree/internal/dterrors"
	"github.com/griffithind/dockertree/internal/output"
)

var completionCmd = &cobra.Command{
	Use:   "completion",
	Short: "Manage shell completion for dockertree",
}

const (
	completionMarkerBegin = "# >>> dockertree completion >>>"
	completionMarkerEnd   = "# <<< dockertree completion <<<"
)

func completionScriptPath(shell string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", dterrors.Wrap(err, dterrors.CategoryInternal, "HOME_DIR", "failed to resolve home directory")
	}
	return filepath.Join(home, ".dockertree", "completion."+shell), nil
}

func rcFilePath(shell string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", dterrors.Wrap(err, dterrors.CategoryInternal, "HOME_DIR", "failed to resolve home directory")
	}
	switch shell {
	case "bash":
		return filepath.Join(home, ".bashrc"), nil
	case "zsh":
		return filepath.Join(home, ".zshrc"), nil
	case "fish":
		return filepath.Join(home, ".config", "fish", "config.fish"), nil
	default:
		return "", dterrors.Newf(dterrors.CategoryValidation, "UNSUPPORTED_SHELL", "unsupported shell %q (expected bash, zsh, or fish)", shell)
	}
}

func detectShell() string {
	shellPath := os.Getenv("SHELL")
	if shellPath == "" {
		return "bash"
	}
	return filepath.Base(shellPath)
}

func generateCompletionScript(shell string) (string, error) {
	var buf bytes.Buffer
	var err error
	switch shell {
	case "bash":
		err = rootCmd.GenBashCompletionV2(&buf, true)
	case "zsh":
		err = rootCmd.GenZshCompletion(&buf)
	case "fish":
		err = rootCmd.GenFishCompletion(&buf, true)
	default:
		return "", dterrors.Newf(dterrors.CategoryValidation, "UNSUPPORTED_SHELL", "unsupported shell %q (expected bash, zsh, or fish)", shell)
	}
	if err != nil {
		return "", dterrors.Wrap(err, dterrors.CategoryInternal, "COMPLETION_GENERATE", "failed to generate completion script")
	}
	return buf.String(), nil
}

var completionInstallCmd = &cobra.Command{
	Use:   "install [shell]",
	Short: "Install shell completion for the current user",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp("completion-install", func() (interface{}, error) {
			shell := detectShell()
			if len(args) == 1 {
				shell = args[0]
			}

			script, err := generateCompletionScript(shell)
			if err != nil {
				return nil, err
			}
			scriptPath, err := completionScriptPath(shell)
			if err != nil {
				return nil, err
			}
			if err := os.MkdirAll(filepath.Dir(scriptPath), 0o755); err != nil {
				return nil, dterrors.Wrapf(err, dterrors.CategoryInternal, "COMPLETION_WRITE", "failed to create %s", filepath.Dir(scriptPath))
			}
			if err := os.WriteFile(scriptPath, []byte(script), 0o644); err != nil {
				return nil, dterrors.Wrapf(err, dterrors.CategoryInternal, "COMPLETION_WRITE", "failed to write %s", scriptPath)
			}

			rcPath, err := rcFilePath(shell)
			if err != nil {
				return nil, err
			}
			sourceLine := fmt.Sprintf("%s\nsource %s\n%s\n", completionMarkerBegin, scriptPath, completionMarkerEnd)
			if err := appendBlockIfAbsent(rcPath, sourceLine); err != nil {
				return nil, err
			}

			output.Success("installed %s completion at %s", shell, scriptPath)
			output.Info("restart your shell, or run: source %s", rcPath)
			return map[string]string{"shell": shell, "script_path": scriptPath, "rc_path": rcPath}, nil
		})
	},
}

var completionUninstallCmd = &cobra.Command{
	Use:   "uninstall [shell]",
	Short: "Remove shell completion for the current user",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp("completion-uninstall", func() (interface{}, error) {
			shell := detectShell()
			if len(args) == 1 {
				shell = args[0]
			}
			rcPath, err := rcFilePath(shell)
			if err != nil {
				return nil, err
			}
			if err := removeBlock(rcPath); err != nil {
				return nil, err
			}
			scriptPath, err := completionScriptPath(shell)
			if err != nil {
				return nil, err
			}
			_ = os.Remove(scriptPath)
			output.Success("removed %s completion", shell)
			return map[string]string{"shell": shell}, nil
		})
	},
}

var completionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether shell completion is installed",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp("completion-status", func() (interface{}, error) {
			shell := detectShell()
			scriptPath, err := completionScriptPath(shell)
			if err != nil {
				return nil, err
			}
			_, statErr := os.Stat(scriptPath)
			installed := statErr == nil
			if installed {
				output.Success("%s completion is installed at %s", shell, scriptPath)
			} else {
				output.Info("%s completion is not installed", shell)
			}
			return map[string]interface{}{"shell": shell, "installed": installed, "script_path": scriptPath}, nil
		})
	},
}

func appendBlockIfAbsent(path, block string) error {
	existing, _ := os.ReadFile(path)
	if strings.Contains(string(existing), completionMarkerBegin) {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return dterrors.Wrapf(err, dterrors.CategoryInternal, "RC_FILE_WRITE", "failed to open %s", path)
	}
	defer f.Close()
	if _, err := f.WriteString("\n" + block); err != nil {
		return dterrors.Wrapf(err, dterrors.CategoryInternal, "RC_FILE_WRITE", "failed to write %s", path)
	}
	return nil
}

func removeBlock(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return dterrors.Wrapf(err, dterrors.CategoryInternal, "RC_FILE_READ", "failed to read %s", path)
	}
	lines := strings.Split(string(data), "\n")
	var out []string
	inBlock := false
	for _, line := range lines {
		switch {
		case strings.TrimSpace(line) == completionMarkerBegin:
			inBlock = true
		case strings.TrimSpace(line) == completionMarkerEnd:
			inBlock = false
		case !inBlock:
			out = append(out, line)
		}
	}
	return os.WriteFile(path, []byte(strings.Join(out, "\n")), 0o644)
}

// hiddenCompletionCmd implements `_completion {worktrees|git|services}`:
// plain newline-separated candidate lists consumed by the installed shell
// scripts' dynamic completion functions, not meant for interactive use.
var hiddenCompletionCmd = &cobra.Command{
	Use:    "_completion",
	Hidden: true,
}

var completionWorktreesCmd = &cobra.Command{
	Use:   "worktrees",
	Short: "List branches with a worktree checked out",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, cleanup, err := loadProject(ctx)
		if err != nil {
			return nil
		}
		defer cleanup()
		entries, err := p.repo.WorktreeList(ctx)
		if err != nil {
			return nil
		}
		for _, e := range entries {
			if e.Branch != "" {
				fmt.Println(e.Branch)
			}
		}
		return nil
	},
}

var completionGitCmd = &cobra.Command{
	Use:   "git",
	Short: "List every local git branch",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, cleanup, err := loadProject(ctx)
		if err != nil {
			return nil
		}
		defer cleanup()
		branches, err := p.repo.Branches(ctx)
		if err != nil {
			return nil
		}
		for _, b := range branches {
			fmt.Println(b)
		}
		return nil
	},
}

var completionServicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List services declared in config.yml",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, cleanup, err := loadProject(ctx)
		if err != nil {
			return nil
		}
		defer cleanup()
		for name := range p.cfg.Services {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	completionCmd.AddCommand(completionInstallCmd, completionUninstallCmd, completionStatusCmd)
	hiddenCompletionCmd.AddCommand(completionWorktreesCmd, completionGitCmd, completionServicesCmd)
	rootCmd.AddCommand(completionCmd, hiddenCompletionCmd)
}
