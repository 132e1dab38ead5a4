package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/griffithind/dockertree/internal/output"
	"github.com/griffithind/dockertree/internal/volume"
)

var volumesCmd = &cobra.Command{
	Use:   "volumes",
	Short: "Inspect and manage a branch's cloned volumes",
}

var volumesListCmd = &cobra.Command{
	Use:   "list <branch>",
	Short: "List a branch's volumes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		branch := args[0]
		ctx := cmd.Context()
		return runOp("volumes-list", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			identity, err := p.orch.Identity(branch)
			if err != nil {
				return nil, err
			}
			vols, err := p.rt.VolumeList(ctx, identity.StackName+"_")
			if err != nil {
				return nil, err
			}
			if !output.IsJSON() {
				rows := make([][]string, 0, len(vols))
				for _, v := range vols {
					rows = append(rows, []string{v.Name, v.Driver})
				}
				_ = output.RenderTable([]string{"NAME", "DRIVER"}, rows)
			}
			return vols, nil
		})
	},
}

var volumesSizeCmd = &cobra.Command{
	Use:   "size <branch> <volume>",
	Short: "Report a volume's on-disk size",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		branch, name := args[0], args[1]
		ctx := cmd.Context()
		return runOp("volumes-size", func() (interface{}, error) {
			cloner, cleanup, err := volumeCloner(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			nBytes, err := cloner.Size(ctx, name)
			if err != nil {
				return nil, err
			}
			result := map[string]interface{}{"branch": branch, "volume": name, "bytes": nBytes}
			output.Info("%s: %d bytes", name, nBytes)
			return result, nil
		})
	},
}

var volumesBackupCmd = &cobra.Command{
	Use:   "backup <branch> <volume> <archive-path>",
	Short: "Archive a volume's contents to a tar.gz file",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, name, archivePath := args[0], args[1], args[2]
		ctx := cmd.Context()
		return runOp("volumes-backup", func() (interface{}, error) {
			cloner, cleanup, err := volumeCloner(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			if err := cloner.Backup(ctx, name, archivePath); err != nil {
				return nil, err
			}
			output.Success("backed up %s to %s", name, archivePath)
			return map[string]string{"volume": name, "archive": archivePath}, nil
		})
	},
}

var volumesRestoreCmd = &cobra.Command{
	Use:   "restore <branch> <volume> <archive-path>",
	Short: "Restore a volume's contents from a tar.gz file",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, name, archivePath := args[0], args[1], args[2]
		ctx := cmd.Context()
		return runOp("volumes-restore", func() (interface{}, error) {
			cloner, cleanup, err := volumeCloner(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			if err := cloner.Restore(ctx, name, archivePath); err != nil {
				return nil, err
			}
			output.Success("restored %s from %s", name, archivePath)
			return map[string]string{"volume": name, "archive": archivePath}, nil
		})
	},
}

var volumesCleanCmd = &cobra.Command{
	Use:   "clean <branch> <volume>",
	Short: "Empty a volume's contents without removing it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, name := args[0], args[1]
		ctx := cmd.Context()
		return runOp("volumes-clean", func() (interface{}, error) {
			cloner, cleanup, err := volumeCloner(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			if err := cloner.Clean(ctx, name); err != nil {
				return nil, err
			}
			output.Success("cleaned %s", name)
			return map[string]string{"volume": name}, nil
		})
	},
}

// volumeCloner loads a project and hands back a Cloner bound to its runtime
// adapter, for the volumes subcommands that need no orchestrator state.
func volumeCloner(ctx context.Context) (*volume.Cloner, func(), error) {
	p, cleanup, err := loadProject(ctx)
	if err != nil {
		return nil, nil, err
	}
	return volume.New(p.rt), cleanup, nil
}

func init() {
	volumesCmd.AddCommand(volumesListCmd, volumesSizeCmd, volumesBackupCmd, volumesRestoreCmd, volumesCleanCmd)
	rootCmd.AddCommand(volumesCmd)
}
