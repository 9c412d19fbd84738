package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/amiyamandal-dev/podsync/internal/domain"
)

const defaultChunkLimit = 10

var importCmd = &cobra.Command{
	Use:   "import <feed-id>",
	Short: "Import every eligible episode of a feed",
	Long: `Import the eligible episodes of a feed chunk by chunk and print progress.

Episodes already imported are skipped, so an interrupted import can be rerun.

Examples:
  podsyncctl import 5d41402abc4b2a76b9719d911017c592
  podsyncctl import 5d41402abc4b2a76b9719d911017c592 --limit 25`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().Int("limit", defaultChunkLimit, "episodes per chunk")
}

func runImport(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit < 1 {
		return fmt.Errorf("--limit must be at least 1, got %d", limit)
	}

	return importFeed(cmd.Context(), cmd.OutOrStdout(), newClient(), args[0], limit)
}

// importFeed requests chunks until the server reports done, then prints a summary
func importFeed(ctx context.Context, w io.Writer, client *apiClient, feedID string, limit int) error {
	if ctx == nil {
		ctx = context.Background()
	}

	feed, err := client.GetFeed(ctx, feedID)
	if err != nil {
		return err
	}

	var (
		offset   int
		imported int
		total    int
	)
	for {
		res, err := client.ImportChunk(ctx, feedID, offset, limit)
		if err != nil {
			return fmt.Errorf("importing chunk at offset %d: %w", offset, err)
		}

		imported += domain.SuccessCount(res.Results)
		total = res.Total
		for _, r := range res.Results {
			if r.Status != domain.ResultSuccess {
				fmt.Fprintf(w, "  failed: %s: %s\n", r.Title, r.Status)
			}
		}

		fmt.Fprintf(w, "Imported %d of %d\n", min(res.NewOffset, res.Total), res.Total)
		if res.Done {
			break
		}
		offset = res.NewOffset
	}

	fmt.Fprintln(w, domain.ImportSummary(feed, imported, total))
	return nil
}
