package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"lifeos/internal/config"
	"lifeos/internal/tui"
)

var chatPageSize int

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session with the LifeOS assistant.

The session loads the most recent page of history first; scroll up (PgUp)
to pull in older messages. Failed sends show up inline in the transcript
and never end the session.

Examples:
  lifeos chat
  lifeos chat --page-size 20
  lifeos chat -s http://lifeos.local:8170`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().IntVar(&chatPageSize, "page-size", 0, "history messages per page (default from config)")
}

func runChat(cmd *cobra.Command, args []string) error {
	if err := apiClient.Health(cmd.Context()); err != nil {
		return fmt.Errorf("server unreachable at %s: %w", cfg.ServerURL, err)
	}

	pageSize := cfg.PageSize
	if chatPageSize > 0 {
		pageSize = chatPageSize
	}

	// Log to file only: the TUI owns the terminal.
	logger, cleanup := config.SetupFileLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	return tui.Run(apiClient, pageSize, logger)
}
