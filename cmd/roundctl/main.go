package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vncsmyrnk/rushvote/internal/app"
	"github.com/vncsmyrnk/rushvote/internal/config"
	"github.com/vncsmyrnk/rushvote/internal/logging"
)

var rootFlags struct {
	output string
}

// application is opened before any subcommand runs and closed after.
var application *app.App

var rootCmd = &cobra.Command{
	Use:   "roundctl",
	Short: "Administer recruitment rounds",
	Long:  "roundctl opens, closes and inspects rounds and deliberation results\ndirectly against the configured store.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:      true,
	PersistentPreRunE: openApp,
	PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
		if application == nil {
			return nil
		}
		return application.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootFlags.output, "output", "o", "table", "Output format: table, json or yaml")

	rootCmd.AddCommand(roundsCmd)
	rootCmd.AddCommand(tallyCmd)
	rootCmd.AddCommand(sealCmd)
	rootCmd.AddCommand(unsealCmd)
	rootCmd.AddCommand(controlCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(standingsCmd)
}

func openApp(cmd *cobra.Command, _ []string) error {
	if _, err := parseOutput(rootFlags.output); err != nil {
		return err
	}

	cfg, err := config.Load("roundctl", nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Init(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, cmd.ErrOrStderr())

	application, err = app.New(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
