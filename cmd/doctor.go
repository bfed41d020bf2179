package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-casebook/cmd/config"
	"github.com/mattsolo1/grove-casebook/pkg/registry"
)

func NewDoctorCmd(app **config.App) *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the recent roots registry for stale entries",
		Long: `The doctor command checks the recently opened roots for problems
and can remove them.

Issues it can detect and fix:
- Local roots that no longer exist or are not directories
- Roots that can never be reopened (in-memory roots)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			out := cmd.OutOrStdout()
			if a.Registry == nil {
				return fmt.Errorf("recent roots registry is not available")
			}

			roots, err := a.Registry.List(0)
			if err != nil {
				return fmt.Errorf("list roots: %w", err)
			}

			issues, fixed := 0, 0
			for _, r := range roots {
				problem := rootProblem(r)
				if problem == "" {
					continue
				}
				issues++
				fmt.Fprintf(out, "❗ %s: %s\n", r.Location, problem)
				if !fix {
					continue
				}
				if err := a.Registry.Remove(r.Location); err != nil {
					fmt.Fprintf(out, "   failed to remove: %v\n", err)
					continue
				}
				fixed++
				fmt.Fprintln(out, "   ✅ Removed")
			}

			if issues == 0 {
				fmt.Fprintf(out, "✨ No issues found in %d root(s).\n", len(roots))
				return nil
			}
			fmt.Fprintf(out, "\n📊 Summary: Found %d issue(s)", issues)
			if fix {
				fmt.Fprintf(out, ", fixed %d", fixed)
			}
			fmt.Fprintln(out)
			if !fix {
				fmt.Fprintln(out, "\n💡 Run 'cb doctor --fix' to remove them")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "Remove stale entries")

	return cmd
}

// rootProblem describes why r cannot be reopened, or returns "".
func rootProblem(r *registry.Root) string {
	switch r.Backend {
	case registry.BackendMem:
		return "in-memory root"
	case registry.BackendOS:
		info, err := os.Stat(r.Location)
		if err != nil {
			return "directory does not exist"
		}
		if !info.IsDir() {
			return "not a directory"
		}
	}
	return ""
}
