package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/amiyamandal-dev/podsync/internal/domain"
)

var feedsCmd = &cobra.Command{
	Use:     "feeds",
	Aliases: []string{"ls"},
	Short:   "List subscribed feeds",
	Long: `List subscribed feeds with their schedule and import statistics.

Examples:
  podsyncctl feeds
  podsyncctl feeds --json`,
	Args: cobra.NoArgs,
	RunE: runFeeds,
}

func init() {
	rootCmd.AddCommand(feedsCmd)

	feedsCmd.Flags().Bool("json", false, "output as JSON")
}

func runFeeds(cmd *cobra.Command, args []string) error {
	feeds, err := newClient().ListFeeds(cmd.Context())
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(feeds)
	}

	return outputFeedTable(cmd.OutOrStdout(), feeds)
}

func outputFeedTable(w io.Writer, feeds []*domain.FeedConfig) error {
	if len(feeds) == 0 {
		fmt.Fprintln(w, "No feeds")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tURL\tSTATUS\tSCHEDULE\tFIRST IMPORT\tAUTO-FETCHED")
	for _, f := range feeds {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			f.ID, f.FeedURL, f.PostStatus, schedule(f), f.Stats.FirstImportCount, f.Stats.AutoFetchedCount)
	}
	return tw.Flush()
}

func schedule(f *domain.FeedConfig) string {
	if !f.Scheduled() {
		return "manual"
	}
	mode := "import"
	switch {
	case f.OngoingImport && f.AutoUpdate:
		mode = "import+update"
	case f.AutoUpdate:
		mode = "update"
	}
	return fmt.Sprintf("%s every %dm", mode, f.AutoFetchMinutes)
}
