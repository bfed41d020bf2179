package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-casebook/cmd/config"
)

func NewRecentCmd(app **config.App) *cobra.Command {
	var (
		recentLimit  int
		recentRemove string
		recentJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently opened roots",
		Long: `List the root directories opened recently, most recent first. The most
recent local root is offered as the default when cb asks for a directory.

Examples:
  cb recent
  cb recent --remove /old/cases`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			if a.Registry == nil {
				return fmt.Errorf("recent roots are unavailable")
			}

			if recentRemove != "" {
				return a.Registry.Remove(recentRemove)
			}

			roots, err := a.Registry.List(recentLimit)
			if err != nil {
				return fmt.Errorf("list recent roots: %w", err)
			}
			out := cmd.OutOrStdout()
			if recentJSON {
				return outputJSON(out, roots)
			}
			if len(roots) == 0 {
				fmt.Fprintln(out, "No roots opened yet")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "LAST USED\tOPENED\tBACKEND\tLOCATION")
			for _, r := range roots {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
					r.LastUsed.Local().Format("2006-01-02 15:04"), r.OpenedCount, r.Backend, r.Location)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&recentLimit, "limit", 20, "Maximum roots to list (0 for all)")
	cmd.Flags().StringVar(&recentRemove, "remove", "", "Forget a root by location")
	cmd.Flags().BoolVar(&recentJSON, "json", false, "Output as JSON")

	return cmd
}
