package cli

import (
	"context"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/griffithind/dockertree/internal/dterrors"
	"github.com/griffithind/dockertree/internal/output"
	"github.com/griffithind/dockertree/internal/proxy"
	"github.com/griffithind/dockertree/internal/runtimeadapter"
)

// checkResult is a single diagnostic check's outcome (name/ok/message/
// hint), kept small since dockertree only checks three subsystems.
type checkResult struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the container runtime, git, and proxy are reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return runOp("doctor", func() (interface{}, error) {
			results := []checkResult{checkGit(ctx)}

			rt, err := runtimeadapter.New()
			if err != nil {
				results = append(results, checkResult{
					Name:    "Docker",
					OK:      false,
					Message: err.Error(),
					Hint:    "start the Docker daemon (or Docker Desktop) and retry",
				})
			} else {
				defer rt.Close()
				results = append(results, checkDocker(ctx, rt))
				results = append(results, checkProxy(ctx, rt))
			}

			allOK := true
			for _, r := range results {
				allOK = allOK && r.OK
				if output.IsJSON() {
					continue
				}
				if r.OK {
					output.Success("%s: %s", r.Name, r.Message)
				} else {
					output.Error("%s: %s", r.Name, r.Message)
					if r.Hint != "" {
						output.Info("  %s", r.Hint)
					}
				}
			}
			if !allOK {
				return results, dterrors.New(dterrors.CategoryPrecond, "DOCTOR_CHECKS_FAILED", "some checks failed")
			}
			return results, nil
		})
	},
}

func checkGit(ctx context.Context) checkResult {
	if _, err := exec.LookPath("git"); err != nil {
		return checkResult{Name: "git", OK: false, Message: "not found on PATH", Hint: "install git"}
	}
	out, err := exec.CommandContext(ctx, "git", "--version").Output()
	if err != nil {
		return checkResult{Name: "git", OK: false, Message: err.Error()}
	}
	return checkResult{Name: "git", OK: true, Message: string(out[:len(out)-1])}
}

func checkDocker(ctx context.Context, rt *runtimeadapter.Adapter) checkResult {
	if err := rt.Ping(ctx); err != nil {
		return checkResult{
			Name:    "Docker",
			OK:      false,
			Message: err.Error(),
			Hint:    "ensure the Docker daemon is running and reachable",
		}
	}
	return checkResult{Name: "Docker", OK: true, Message: "daemon reachable"}
}

func checkProxy(ctx context.Context, rt *runtimeadapter.Adapter) checkResult {
	p, cleanup, err := loadProject(ctx)
	if err != nil {
		return checkResult{Name: "Proxy", OK: true, Message: "no project in scope, skipped"}
	}
	defer cleanup()
	coord := proxy.New(rt, p.cfg.CaddyNetworkOrDefault())
	running, err := coord.IsRunning(ctx)
	if err != nil {
		return checkResult{Name: "Proxy", OK: false, Message: err.Error()}
	}
	if !running {
		return checkResult{
			Name:    "Proxy",
			OK:      false,
			Message: "not running",
			Hint:    "run 'dockertree start-proxy'",
		}
	}
	return checkResult{Name: "Proxy", OK: true, Message: "running"}
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
