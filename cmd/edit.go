package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-casebook/cmd/config"
	"github.com/mattsolo1/grove-casebook/pkg/editor"
)

func NewEditCmd(app **config.App) *cobra.Command {
	var noStamp bool

	cmd := &cobra.Command{
		Use:   "edit <path>",
		Short: "Edit a document in $EDITOR",
		Long: `Open a document in the configured editor and save it back when it changed.
The modified timestamp in the frontmatter is updated unless --no-stamp is given.

Examples:
  cb edit auth/0001
  cb edit guide.md --no-stamp`,
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
			of := a.Session.Snapshot().OpenFile
			if of == nil {
				return fmt.Errorf("%s is a folder without a case document", args[0])
			}

			content, changed, err := editor.Edit(ctx, a.Editor, of.Path, of.Content, os.Stdin, os.Stdout, os.Stderr)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintln(cmd.ErrOrStderr(), "No changes")
				return nil
			}
			if !noStamp {
				content = editor.Stamp(content, time.Now())
			}
			if err := a.Session.SaveFile(ctx, content); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s\n", of.Path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noStamp, "no-stamp", false, "Do not update the modified timestamp")

	return cmd
}
