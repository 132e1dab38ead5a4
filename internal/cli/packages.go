package cli

import (
	"github.com/spf13/cobra"

	"github.com/griffithind/dockertree/internal/output"
	"github.com/griffithind/dockertree/internal/pkgmanager"
)

var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "Export and import portable branch packages",
}

var (
	exportOutputDir   string
	exportIncludeCode bool
	exportIncludeData bool
)

var packagesExportCmd = &cobra.Command{
	Use:   "export <branch>",
	Short: "Bundle a branch's environment, volumes, and optionally its code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		branch := args[0]
		ctx := cmd.Context()
		return runOp("packages-export", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			if err != nil {
				return nil, err
			}
			defer cleanup()
			exporter := pkgmanager.NewExporter(p.pctx, p.cfg, p.repo, p.rt, p.orch)
			result, err := p.withBranchLock(branch, func() (interface{}, error) {
				return exporter.Export(ctx, branch, pkgmanager.ExportOptions{
					IncludeCode: exportIncludeCode,
					IncludeData: exportIncludeData,
					OutputDir:   exportOutputDir,
				})
			})
			if err != nil {
				return nil, err
			}
			res := result.(*pkgmanager.ExportResult)
			output.Success("exported %s to %s", branch, res.PackagePath)
			return res, nil
		})
	},
}

var (
	importTargetBranch string
	importTargetDir    string
	importRestoreData  bool
	importStandalone   bool
	importDomain       string
	importIP           string
)

var packagesImportCmd = &cobra.Command{
	Use:   "import <package-path>",
	Short: "Unpack a branch package into a new worktree or standalone directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		packagePath := args[0]
		ctx := cmd.Context()
		return runOp("packages-import", func() (interface{}, error) {
			p, cleanup, err := loadProject(ctx)
			var importer *pkgmanager.Importer
			if err != nil {
				// A resolvable project is optional: standalone-mode imports run
				// outside any dockertree project, per spec §4.9's auto-detection.
				importer = pkgmanager.NewImporter(nil, nil, nil, nil)
			} else {
				defer cleanup()
				importer = pkgmanager.NewImporter(p.pctx, p.cfg, p.rt, p.orch)
			}
			result, err := importer.Import(ctx, packagePath, pkgmanager.ImportOptions{
				TargetBranch: importTargetBranch,
				TargetDir:    importTargetDir,
				RestoreData:  importRestoreData,
				Standalone:   importStandalone,
				Domain:       importDomain,
				IP:           importIP,
			})
			if err != nil {
				return nil, err
			}
			output.Success("imported into %s (%s mode)", result.TargetPath, result.Mode)
			return result, nil
		})
	},
}

var packagesListDir string

var packagesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List packages in a directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp("packages-list", func() (interface{}, error) {
			dir := packagesListDir
			if dir == "" {
				dir = "."
			}
			packages, err := pkgmanager.List(dir)
			if err != nil {
				return nil, err
			}
			if !output.IsJSON() {
				rows := make([][]string, 0, len(packages))
				for _, m := range packages {
					rows = append(rows, []string{m.ProjectName, m.BranchName, m.ModeHint, m.CreatedAt.Format("2006-01-02 15:04:05")})
				}
				_ = output.RenderTable([]string{"PROJECT", "BRANCH", "MODE", "CREATED"}, rows)
			}
			return packages, nil
		})
	},
}

var packagesValidateCmd = &cobra.Command{
	Use:   "validate <package-path>",
	Short: "Verify a package's checksums without importing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		return runOp("packages-validate", func() (interface{}, error) {
			meta, err := pkgmanager.Validate(path)
			if err != nil {
				return nil, err
			}
			output.Success("%s is valid", path)
			return meta, nil
		})
	},
}

func init() {
	packagesExportCmd.Flags().StringVar(&exportOutputDir, "output-dir", "", "directory to write the package into (default: current directory)")
	packagesExportCmd.Flags().BoolVar(&exportIncludeCode, "include-code", false, "bundle the worktree's source tree into the package")
	packagesExportCmd.Flags().BoolVar(&exportIncludeCode, "code", false, "alias for --include-code")
	packagesExportCmd.Flags().BoolVar(&exportIncludeData, "include-data", true, "back up declared volumes into the package")
	packagesExportCmd.Flags().BoolVar(&exportIncludeData, "compressed", true, "alias for --include-data (kept for the package's compressed volume archives)")

	packagesImportCmd.Flags().StringVar(&importTargetBranch, "branch", "", "branch name to import into (normal mode; default: the package's recorded branch)")
	packagesImportCmd.Flags().StringVar(&importTargetDir, "target-dir", "", "directory to unpack into (standalone mode)")
	packagesImportCmd.Flags().BoolVar(&importRestoreData, "restore-data", true, "restore the package's volume archives")
	packagesImportCmd.Flags().BoolVar(&importStandalone, "standalone", false, "force standalone mode regardless of auto-detection")
	packagesImportCmd.Flags().StringVar(&importDomain, "domain", "", "domain to register for the imported stack (mutually exclusive with --ip)")
	packagesImportCmd.Flags().StringVar(&importIP, "ip", "", "static IP to bind the imported stack to (mutually exclusive with --domain)")

	packagesListCmd.Flags().StringVar(&packagesListDir, "package-dir", "", "directory to scan for packages (default: current directory)")

	packagesCmd.AddCommand(packagesExportCmd, packagesImportCmd, packagesListCmd, packagesValidateCmd)
	rootCmd.AddCommand(packagesCmd)
}
