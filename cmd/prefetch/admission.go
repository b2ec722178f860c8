package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Admit downloading",
	Long: `Admit downloading and kick off a cycle if tasks are pending.

When a network probe is configured, its next measurement overrides this.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		resp, err := NewClient(serverURL).Start()
		if err != nil {
			return fmt.Errorf("start failed: %w", err)
		}
		return printAdmission(resp)
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Stop admitting downloads",
	Long:  "Stop admitting downloads. A download already in progress runs to completion.",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		resp, err := NewClient(serverURL).Pause()
		if err != nil {
			return fmt.Errorf("pause failed: %w", err)
		}
		return printAdmission(resp)
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(pauseCmd)
}

func printAdmission(a *AdmissionResponse) error {
	if jsonOutput {
		printJSON(a)
		return nil
	}
	if a.Admitted {
		fmt.Println("Downloads admitted")
	} else {
		fmt.Println("Downloads paused")
	}
	if a.Busy {
		fmt.Println("A download cycle is in progress")
	}
	return nil
}
