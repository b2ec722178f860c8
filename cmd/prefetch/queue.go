package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue [asset-url]",
	Short: "List tracked download tasks",
	Long: `List tracked download tasks in insertion order, or show one task.

Examples:
  prefetch queue                # All tasks
  prefetch queue -s pending     # Only tasks waiting to download
  prefetch queue -s failed      # Tasks that failed, with their error
  prefetch queue https://cdn.example.com/a.png   # One task`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQueueCmd,
}

var addCmd = &cobra.Command{
	Use:   "add <asset-url>",
	Short: "Enqueue an asset for download",
	Long: `Enqueue an asset for download. Assets already tracked are left alone.

Priority is one of high, medium or idle (or 1-3). User requests default
to high, ahead of anything discovery has queued.`,
	Args: cobra.ExactArgs(1),
	RunE: runAddCmd,
}

func init() {
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(addCmd)
	queueCmd.Flags().StringP("status", "s", "", "Filter by status (pending, downloading, completed, failed)")
	addCmd.Flags().StringP("priority", "p", "high", "Priority (high, medium, idle)")
}

func runQueueCmd(cmd *cobra.Command, args []string) error {
	status, _ := cmd.Flags().GetString("status")

	client := NewClient(serverURL)
	if len(args) == 1 {
		task, err := client.Task(args[0])
		if err != nil {
			return fmt.Errorf("failed to fetch task: %w", err)
		}
		if jsonOutput {
			printJSON(task)
			return nil
		}
		printTask(task)
		return nil
	}

	queue, err := client.Queue(status)
	if err != nil {
		return fmt.Errorf("failed to fetch queue: %w", err)
	}

	if jsonOutput {
		printJSON(queue)
		return nil
	}

	printQueue(queue)
	return nil
}

func printQueue(q *ListQueueResponse) {
	if len(q.Items) == 0 {
		fmt.Println("Queue is empty")
		return
	}

	fmt.Printf("Tasks (%d):\n\n", q.Total)
	fmt.Printf("  %-50s %-8s %-12s %s\n", "ASSET", "PRIORITY", "STATUS", "UPDATED")
	fmt.Println("  " + strings.Repeat("-", 90))

	for _, t := range q.Items {
		fmt.Printf("  %-50s %-8s %-12s %s\n",
			truncate(t.ID, 50), priorityName(t.Priority), t.Status, formatTimeAgo(t.UpdatedAt))
		if t.Error != "" {
			fmt.Printf("    error: %s\n", t.Error)
		}
	}
}

func printTask(t *TaskResponse) {
	fmt.Printf("Asset:     %s\n", t.ID)
	fmt.Printf("Priority:  %s\n", priorityName(t.Priority))
	fmt.Printf("Status:    %s\n", t.Status)
	if t.LocalPath != "" {
		fmt.Printf("Path:      %s\n", t.LocalPath)
	}
	if t.Error != "" {
		fmt.Printf("Error:     %s\n", t.Error)
	}
	fmt.Printf("Added:     %s\n", formatTimeAgo(t.AddedAt))
	fmt.Printf("Updated:   %s\n", formatTimeAgo(t.UpdatedAt))
}

func runAddCmd(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetString("priority")
	priority, ok := parsePriority(raw)
	if !ok {
		return fmt.Errorf("invalid priority %q (use high, medium or idle)", raw)
	}

	client := NewClient(serverURL)
	resp, err := client.Enqueue(args[0], priority)
	if err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}

	if jsonOutput {
		printJSON(resp)
		return nil
	}

	if resp.Enqueued {
		fmt.Printf("Queued %s (%s)\n", resp.ID, priorityName(resp.Priority))
	} else {
		fmt.Printf("Already tracked: %s\n", resp.ID)
	}
	return nil
}
