package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-casebook/cmd/config"
)

func NewInitCmd() *cobra.Command {
	var (
		root   string
		editor string
		watch  bool
		force  bool
		path   string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file for cb",
		Long: `Write ~/.config/cb/config.yaml with the default settings.

With --root the given directory is opened by every command without asking.

Examples:
  cb init --root ~/qa/cases --watch
  cb init --editor "code --wait" --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				p, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = p
			}

			f := config.DefaultFile()
			if root != "" {
				abs, err := filepath.Abs(root)
				if err != nil {
					return err
				}
				f.Root = abs
			}
			f.Editor = editor
			f.Watch = watch

			if err := config.WriteFile(path, f, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			if f.Root == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "\nReady to use! Try 'cb tui --root <dir>' to browse your cases.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "Directory to open by default")
	cmd.Flags().StringVar(&editor, "editor", "", "Editor command (defaults to $EDITOR)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Refresh the TUI when files change on disk")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing config file")
	cmd.Flags().StringVar(&path, "path", "", "Where to write the config (default $HOME/.config/cb/config.yaml)")

	return cmd
}
