// Package cli provides the command-line interface for the LifeOS chat client.
package cli

import (
	"github.com/spf13/cobra"

	"lifeos/internal/client"
	"lifeos/internal/config"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	serverURL string

	// Global config and API client
	cfg       config.Config
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "lifeos",
	Short: "LifeOS assistant chat client",
	Long: `LifeOS is a personal assistant for journaling, habits, and planning.

This client talks to a LifeOS server: chat interactively in the terminal,
or dump recent conversation history.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if serverURL != "" {
			cfg.ServerURL = serverURL
		}
		apiClient = client.New(cfg.ServerURL)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "LifeOS server URL")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(historyCmd)
}
