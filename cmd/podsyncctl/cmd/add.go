package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amiyamandal-dev/podsync/internal/domain"
)

var addCmd = &cobra.Command{
	Use:   "add <feed-url>",
	Short: "Subscribe to a podcast feed",
	Long: `Save a feed configuration and optionally import it right away.

Examples:
  podsyncctl add https://example.com/rss
  podsyncctl add https://example.com/rss --since 2024-01-01 --category Podcasts --import
  podsyncctl add https://example.com/rss --ongoing --auto-update --interval 30`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().String("since", "", "only import episodes published on or after this date (YYYY-MM-DD)")
	addCmd.Flags().String("status", domain.StatusPublish, "status of imported episodes (publish, draft)")
	addCmd.Flags().String("category", "", "category added to every episode")
	addCmd.Flags().String("author", "", "author of imported episodes (default: token principal)")
	addCmd.Flags().Bool("ongoing", false, "import new episodes automatically")
	addCmd.Flags().Bool("auto-update", false, "update imported episodes when the feed changes")
	addCmd.Flags().Int("interval", 0, "minutes between automatic runs (default: server setting)")
	addCmd.Flags().Bool("import", false, "run the interactive import after saving")
}

func runAdd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	since, _ := flags.GetString("since")
	status, _ := flags.GetString("status")
	category, _ := flags.GetString("category")
	author, _ := flags.GetString("author")
	ongoing, _ := flags.GetBool("ongoing")
	autoUpdate, _ := flags.GetBool("auto-update")
	interval, _ := flags.GetInt("interval")
	runNow, _ := flags.GetBool("import")

	client := newClient()
	feed, err := client.CreateFeed(cmd.Context(), &domain.FeedCreateRequest{
		FeedURL:         args[0],
		CutoffDate:      since,
		PostStatus:      status,
		DefaultCategory: category,
		Author:          author,
		OngoingImport:   ongoing,
		AutoFetch:       interval,
		AutoUpdate:      autoUpdate,
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Feed saved: %s\n", feed.ID)

	if !runNow {
		return nil
	}
	return importFeed(cmd.Context(), w, client, feed.ID, defaultChunkLimit)
}
