package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-casebook/cmd/config"
	"github.com/mattsolo1/grove-casebook/pkg/cases"
	"github.com/mattsolo1/grove-casebook/pkg/editor"
)

func NewNewCmd(app **config.App) *cobra.Command {
	var (
		dir       string
		opts      cases.Options
		edit      bool
		fromStdin bool
	)

	cmd := &cobra.Command{
		Use:   "new [title]",
		Short: "Create a new numbered case folder",
		Long: `Create the next numbered case folder (NNNN/case.mdx) in a suite directory.
The document starts with frontmatter: id, title, suite, tags derived from the
suite path, and timestamps.

Examples:
  cb new "Login with expired password"          # Case at the root
  cb new -d auth/login "Lockout after 5 tries"  # Case in a suite
  cb new -d auth -p high -t smoke "Logout"      # With priority and tags
  cb new -e "Password reset"                    # Open in $EDITOR afterwards

  # Body from stdin (auto-detected):
  cat steps.md | cb new -d auth "Imported steps"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := *app
			ctx := cmd.Context()

			// Auto-detect stdin if not explicitly set
			if !cmd.Flags().Changed("stdin") {
				stat, err := os.Stdin.Stat()
				if err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
					fromStdin = true
				}
			}
			if fromStdin {
				body, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				opts.Body = string(body)
			}
			if len(args) > 0 {
				opts.Title = args[0]
			}

			if err := a.Open(ctx); err != nil {
				return err
			}
			p, err := cases.Create(ctx, a.Session.Snapshot().Root, dir, opts)
			if err != nil {
				return err
			}
			if err := a.Session.RefreshFiles(ctx); err != nil {
				return err
			}
			a.Logger.WithFields(logrus.Fields{"path": p, "suite": dir}).Info("Case created")
			fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", p)

			if !edit || fromStdin {
				return nil
			}
			if err := a.Session.OpenFile(ctx, p); err != nil {
				return err
			}
			of := a.Session.Snapshot().OpenFile
			content, changed, err := editor.Edit(ctx, a.Editor, of.Path, of.Content, os.Stdin, os.Stdout, os.Stderr)
			if err != nil || !changed {
				return err
			}
			return a.Session.SaveFile(ctx, editor.Stamp(content, time.Now()))
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Suite directory, relative to the root")
	cmd.Flags().StringVarP(&opts.Priority, "priority", "p", "", "Priority to record in the frontmatter")
	cmd.Flags().StringVar(&opts.Severity, "severity", "", "Severity to record in the frontmatter")
	cmd.Flags().StringSliceVarP(&opts.Tags, "tag", "t", nil, "Extra tags (repeatable)")
	cmd.Flags().BoolVarP(&edit, "edit", "e", false, "Open the new case in the editor")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the body from stdin (auto-detected when piped)")

	return cmd
}
