package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-casebook/cmd/config"
)

func NewCatCmd(app **config.App) *cobra.Command {
	var catImages bool

	cmd := &cobra.Command{
		Use:   "cat <path>",
		Short: "Print a document",
		Long: `Print a document of the root directory. A case folder prints its case.mdx.

Examples:
  cb cat auth/0001               # Same as auth/0001/case.mdx
  cb cat guide.md --images       # Also list referenced images`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			ctx := cmd.Context()
			if err := a.Open(ctx); err != nil {
				return err
			}
			if err := a.Session.Activate(ctx, args[0]); err != nil {
				return err
			}

			st := a.Session.Snapshot()
			if st.OpenFile == nil {
				return fmt.Errorf("%s is a folder without a case document", args[0])
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, st.OpenFile.Content)

			if catImages {
				images, err := a.Session.ResolveImages(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out)
				for _, img := range images {
					fmt.Fprintf(out, "%s\t%s\t%d bytes\n", img.Path, img.Type, len(img.Data))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&catImages, "images", false, "List the images the document references")

	return cmd
}
