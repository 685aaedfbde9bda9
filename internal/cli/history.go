package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"lifeos/internal/models"
	"lifeos/internal/transcript"
)

var (
	historyPages    int
	historyPageSize int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print recent conversation history",
	Long: `Print recent conversation history without starting a session.

Fetches up to --pages pages of history (newest pages first) and prints the
result oldest first, the same order the chat view shows.

Examples:
  lifeos history
  lifeos history --pages 3 --page-size 20`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyPages, "pages", 1, "max pages to fetch")
	historyCmd.Flags().IntVar(&historyPageSize, "page-size", 20, "messages per page")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store := transcript.NewStore(nil)
	fetch := transcript.FetcherFunc(func(ctx context.Context, page, size int) ([]models.Message, error) {
		return apiClient.GetMessages(ctx, page, size)
	})
	pager := transcript.NewPager(store, fetch, historyPageSize, nil)

	for i := 0; i < historyPages && pager.HasMore(); i++ {
		if _, err := pager.LoadNextPage(ctx); err != nil {
			return fmt.Errorf("load history: %w", err)
		}
	}

	msgs := store.Messages()
	if len(msgs) == 0 {
		fmt.Println("No messages yet.")
		return nil
	}

	dim := lipgloss.NewStyle().Faint(true)
	for _, m := range msgs {
		label := "You"
		if m.Role == models.RoleAssistant {
			label = "LifeOS"
		}
		fmt.Printf("%s %s\n%s\n\n", label, dim.Render(m.CreatedAt.Local().Format("2006-01-02 15:04")), m.Content)
	}

	if pager.HasMore() {
		fmt.Println(dim.Render("(older messages not shown; raise --pages to fetch more)"))
	}
	return nil
}
