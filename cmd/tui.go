package cmd

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mattsolo1/grove-casebook/cmd/config"
	"github.com/mattsolo1/grove-casebook/internal/tui/browser"
	"github.com/mattsolo1/grove-casebook/pkg/handle/osfs"
	"github.com/mattsolo1/grove-casebook/pkg/watch"
)

// NewTuiCmd creates the `cb tui` command.
func NewTuiCmd(app **config.App) *cobra.Command {
	var watchFlag bool

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse, search and edit cases interactively",
		Long: `Launch an interactive Terminal User Interface over the root directory.
The left pane shows the tree (case.mdx is opened by selecting its folder),
the right pane previews the open document. Press / to search names and
content, e to edit, a to attach a file and ? for all keys.

With --watch (or watch: true in the config) changes made by other programs
to a local root are picked up automatically.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Check for TTY
			if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				return fmt.Errorf("TUI mode requires an interactive terminal")
			}

			a := *app
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if err := a.Open(ctx); err != nil {
				return err
			}

			opts := []browser.Option{
				browser.WithContext(ctx),
				browser.WithEditor(a.Editor),
			}
			if watchFlag || viper.GetBool("watch") {
				changes, err := startWatcher(ctx, a)
				if err != nil {
					return err
				}
				if changes != nil {
					opts = append(opts, browser.WithExternalChanges(changes))
				}
			}

			p := tea.NewProgram(browser.New(a.Session, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("error running TUI: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Refresh when files change on disk")

	return cmd
}

// startWatcher watches a local root and returns a channel that fires after
// each burst of changes. Other backends are not watched.
func startWatcher(ctx context.Context, a *config.App) (<-chan struct{}, error) {
	root, ok := a.Session.Snapshot().Root.(*osfs.Dir)
	if !ok {
		a.Logger.Info("Watching is only available for local directories")
		return nil, nil
	}

	w, err := watch.New(ctx, root, watch.WithLogger(a.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", root.Location(), err)
	}

	changes := make(chan struct{}, 1)
	go func() {
		defer close(changes)
		err := w.Run(ctx, func() {
			select {
			case changes <- struct{}{}:
			default:
			}
		})
		if err != nil && ctx.Err() == nil {
			a.Logger.WithError(err).Warn("Watcher stopped")
		}
	}()
	return changes, nil
}
