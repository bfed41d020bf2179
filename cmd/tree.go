package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-casebook/cmd/config"
	"github.com/mattsolo1/grove-casebook/pkg/tree"
)

func NewTreeCmd(app **config.App) *cobra.Command {
	var (
		treeJSON        bool
		treeFlat        bool
		treeAttachments bool
		treeRaw         bool
	)

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the case tree of the root directory",
		Long: `Show the documents and folders of the root directory.

Case folders (0001, 0002, ...) hide their case.mdx unless --raw is given.

Examples:
  cb tree -R ./cases             # Draw the tree
  cb tree --attachments          # Include images next to documents
  cb tree --flat                 # One path per line
  cb tree --json                 # Machine readable`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			ctx := cmd.Context()
			if err := a.Open(ctx); err != nil {
				return err
			}

			st := a.Session.Snapshot()
			out := cmd.OutOrStdout()
			switch {
			case treeJSON:
				return outputJSON(out, toJSON(st.Tree))
			case treeFlat:
				return tree.Walk(st.Tree, func(n *tree.Node) error {
					fmt.Fprintln(out, n.Path)
					return nil
				})
			default:
				fmt.Fprintf(out, "%s/\n", st.RootName)
				printTree(out, st.Tree, a.Session.Rules(), treeOptions{attachments: treeAttachments, raw: treeRaw})
				if treeAttachments {
					for _, att := range st.Attachments {
						fmt.Fprintf(out, "%s [%s]\n", att.Name, tree.AttachmentKind(att.Name))
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&treeJSON, "json", false, "Output the tree as JSON")
	cmd.Flags().BoolVar(&treeFlat, "flat", false, "Print one path per line")
	cmd.Flags().BoolVarP(&treeAttachments, "attachments", "a", false, "Show image attachments")
	cmd.Flags().BoolVar(&treeRaw, "raw", false, "Ignore case folder presentation rules")

	return cmd
}
