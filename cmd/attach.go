package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-casebook/cmd/config"
)

func NewAttachCmd(app **config.App) *cobra.Command {
	var (
		attachName   string
		attachAppend bool
	)

	cmd := &cobra.Command{
		Use:   "attach <document> <file>",
		Short: "Store a file next to a document",
		Long: `Copy a local file into the folder of a document and print the markdown
that embeds it.

Examples:
  cb attach auth/0001 ~/shots/login.png
  cb attach auth/0001 /tmp/x.png --name error-dialog.png --append`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			ctx := cmd.Context()

			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read attachment: %w", err)
			}
			name := attachName
			if name == "" {
				name = filepath.Base(args[1])
			}

			if err := a.Open(ctx); err != nil {
				return err
			}
			if err := a.Session.Activate(ctx, args[0]); err != nil {
				return err
			}
			if a.Session.Snapshot().OpenFile == nil {
				return fmt.Errorf("%s is a folder without a case document", args[0])
			}

			markdown, err := a.Session.AddAttachment(ctx, name, data)
			if err != nil {
				return err
			}

			if attachAppend {
				content := a.Session.Snapshot().OpenFile.Content
				if !strings.HasSuffix(content, "\n") {
					content += "\n"
				}
				if err := a.Session.SaveFile(ctx, content+"\n"+markdown+"\n"); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), markdown)
			return nil
		},
	}

	cmd.Flags().StringVar(&attachName, "name", "", "Name to store the file under (default: its base name)")
	cmd.Flags().BoolVar(&attachAppend, "append", false, "Append the embed markdown to the document")

	return cmd
}
