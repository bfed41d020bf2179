package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-casebook/cmd"
	"github.com/mattsolo1/grove-casebook/cmd/config"
)

// Commands that must not prompt for a root or open the registry.
var standalone = map[string]bool{
	"version":    true,
	"init":       true,
	"help":       true,
	"completion": true,
}

func main() {
	var app *config.App

	rootCmd := &cobra.Command{
		Use:   "cb",
		Short: "Browse, search and edit test case folders",
		Long: `cb works on a directory tree of test cases: numbered folders holding a
case.mdx document with YAML frontmatter, plus attachments. The root can be a
local directory or an S3 bucket prefix.`,
		SilenceUsage: true,
	}
	config.AddGlobalFlags(rootCmd)
	cobra.OnInitialize(config.InitConfig)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// This runs once before any subcommand
		if standalone[cmd.Name()] {
			return nil
		}
		a, err := config.InitApp(cmd.Context())
		if err != nil {
			return err
		}
		app = a
		return nil
	}

	// Add subcommands
	rootCmd.AddCommand(cmd.NewTuiCmd(&app))
	rootCmd.AddCommand(cmd.NewTreeCmd(&app))
	rootCmd.AddCommand(cmd.NewSearchCmd(&app))
	rootCmd.AddCommand(cmd.NewCatCmd(&app))
	rootCmd.AddCommand(cmd.NewEditCmd(&app))
	rootCmd.AddCommand(cmd.NewNewCmd(&app))
	rootCmd.AddCommand(cmd.NewAttachCmd(&app))
	rootCmd.AddCommand(cmd.NewImportCmd(&app))
	rootCmd.AddCommand(cmd.NewRecentCmd(&app))
	rootCmd.AddCommand(cmd.NewDoctorCmd(&app))
	rootCmd.AddCommand(cmd.NewInitCmd())
	rootCmd.AddCommand(cmd.NewVersionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	if app != nil {
		if cerr := app.Close(); cerr != nil {
			app.Logger.WithError(cerr).Warn("Failed to shut down cleanly")
		}
	}
	stop()
	if err != nil {
		os.Exit(1)
	}
}
