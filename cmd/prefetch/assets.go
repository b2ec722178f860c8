package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "List assets in the local cache",
	RunE:  runAssetsCmd,
}

func init() {
	rootCmd.AddCommand(assetsCmd)
	assetsCmd.Flags().IntP("limit", "n", 50, "Number of assets to show")
}

func runAssetsCmd(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	client := NewClient(serverURL)
	assets, err := client.Assets(limit)
	if err != nil {
		return fmt.Errorf("failed to fetch assets: %w", err)
	}

	if jsonOutput {
		printJSON(assets)
		return nil
	}

	if len(assets.Items) == 0 {
		fmt.Println("No cached assets")
		return nil
	}

	var total int64
	for _, a := range assets.Items {
		total += a.SizeBytes
	}

	fmt.Printf("Cached Assets (%d, %s shown):\n\n", assets.Total, humanize.Bytes(uint64(total)))
	fmt.Printf("  %-50s %-10s %s\n", "ASSET", "SIZE", "FETCHED")
	fmt.Println("  " + strings.Repeat("-", 80))

	for _, a := range assets.Items {
		fmt.Printf("  %-50s %-10s %s\n",
			truncate(a.ID, 50), humanize.Bytes(uint64(a.SizeBytes)), formatTimeAgo(a.FetchedAt))
	}
	return nil
}
