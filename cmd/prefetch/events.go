package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent events",
	Long: `Show recent events from the daemon's event log.

Examples:
  prefetch events                         # Last 20 events
  prefetch events --asset https://cdn/a   # History of one asset
  prefetch events -f                      # Follow live events`,
	RunE: runEventsCmd,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	eventsCmd.Flags().String("asset", "", "Only events for this asset")
	eventsCmd.Flags().BoolP("follow", "f", false, "Stream events as they happen")
}

func runEventsCmd(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	asset, _ := cmd.Flags().GetString("asset")
	follow, _ := cmd.Flags().GetBool("follow")

	client := NewClient(serverURL)
	if follow {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return followEvents(ctx, client, asset)
	}

	events, err := client.Events(limit, asset)
	if err != nil {
		return fmt.Errorf("failed to fetch events: %w", err)
	}

	if jsonOutput {
		printJSON(events)
		return nil
	}

	if len(events.Items) == 0 {
		fmt.Println("No events")
		return nil
	}

	fmt.Printf("Recent Events (%d):\n\n", events.Total)
	printEventHeader()
	for _, e := range events.Items {
		printEvent(e)
	}
	return nil
}

func followEvents(ctx context.Context, client *Client, asset string) error {
	if !jsonOutput {
		fmt.Println("Following events (Ctrl-C to stop)...")
		printEventHeader()
	}
	err := client.StreamEvents(ctx, asset, func(e EventResponse) {
		if jsonOutput {
			printJSON(e)
			return
		}
		printEvent(e)
	})
	if err != nil {
		return fmt.Errorf("event stream failed: %w", err)
	}
	return nil
}

func printEventHeader() {
	fmt.Printf("  %-16s %-22s %-42s %s\n", "TIME", "TYPE", "ENTITY", "DETAIL")
	fmt.Println("  " + strings.Repeat("-", 100))
}

func printEvent(e EventResponse) {
	t, _ := time.Parse(time.RFC3339, e.OccurredAt)
	entity := e.EntityType
	if e.EntityID != "" && e.EntityID != e.EntityType {
		entity += "/" + truncate(e.EntityID, 34)
	}
	fmt.Printf("  %-16s %-22s %-42s %s\n", formatTimeAgo(t), e.EventType, entity, e.Detail)
}
