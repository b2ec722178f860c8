package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show scheduler status",
	Long: `Show whether downloading is admitted, whether a download cycle is
running, and how many tasks are in each state.`,
	Args: cobra.NoArgs,
	RunE: runStatusCmd,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatusCmd(_ *cobra.Command, _ []string) error {
	client := NewClient(serverURL)
	status, err := client.Status()
	if err != nil {
		return fmt.Errorf("status check failed: %w", err)
	}

	if jsonOutput {
		printJSON(status)
		return nil
	}

	printStatus(serverURL, status)
	return nil
}

func printStatus(server string, s *StatusResponse) {
	admission := "paused"
	if s.Admitted {
		admission = "admitted"
	}
	activity := "idle"
	if s.Busy {
		activity = "downloading"
	}

	fmt.Printf("prefetch | Server: %s | Downloads: %s | Executor: %s\n\n", server, admission, activity)

	fmt.Printf("Queue (%d tasks)\n", s.Total)
	fmt.Printf("  Pending:      %d\n", s.Counts["pending"])
	fmt.Printf("  Downloading:  %d\n", s.Counts["downloading"])
	fmt.Printf("  Completed:    %d\n", s.Counts["completed"])
	fmt.Printf("  Failed:       %d\n", s.Counts["failed"])

	if s.Counts["failed"] > 0 {
		fmt.Printf("\nFailed: %d tasks (use 'prefetch queue -s failed' to see)\n", s.Counts["failed"])
	}
}
