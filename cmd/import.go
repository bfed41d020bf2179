package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-casebook/cmd/config"
	"github.com/mattsolo1/grove-casebook/pkg/importer"
)

func NewImportCmd(app **config.App) *cobra.Command {
	var opts importer.Options

	cmd := &cobra.Command{
		Use:   "import <export.json>",
		Short: "Import a JSON test case export as case folders",
		Long: `Convert a JSON export of test suites into folders under the root directory.
Every suite becomes a folder (with README.md when it has a description) and
every case becomes NNNN/case.mdx with YAML frontmatter.

Existing case files are left alone unless --overwrite is given.

Examples:
  cb import -R ./cases export.json --dry-run --verbose
  cb import -R ./cases export.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open export: %w", err)
			}
			defer f.Close()
			exp, err := importer.Decode(f)
			if err != nil {
				return err
			}

			if err := a.Open(ctx); err != nil {
				return err
			}
			root := a.Session.Snapshot().Root

			out := cmd.OutOrStdout()
			im := importer.New(opts, out, a.Logger)
			report, err := im.Import(ctx, root, exp)
			if err != nil {
				return err
			}

			verb := "Imported"
			if opts.DryRun {
				verb = "Would import"
			}
			fmt.Fprintf(out, "%s %d cases in %d suites (%d files written, %d skipped, %d failed) in %s\n",
				verb, report.Cases, report.Suites, len(report.WrittenFiles),
				report.SkippedFiles, report.FailedFiles, report.Duration().Round(time.Millisecond))
			for p, err := range report.ProcessingErrors {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %v\n", p, err)
			}
			if report.FailedFiles > 0 {
				return fmt.Errorf("%d files failed to import", report.FailedFiles)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show what would be written without writing")
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "Replace existing case files")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "List every file")

	return cmd
}
