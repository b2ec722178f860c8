package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/vmunix/prefetch/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configTestCmd = &cobra.Command{
	Use:   "test [path]",
	Short: "Validate configuration file",
	Long:  "Validates config.toml syntax, required fields, and environment variable substitution without starting the daemon.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigTest,
}

var configResolveCmd = &cobra.Command{
	Use:   "resolve <path> <output>",
	Short: "Write the effective configuration",
	Long: `Loads and validates a config file, then writes it back out with
environment variables substituted and defaults filled in.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigResolve,
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write an example config file",
	Long:  "Writes the example configuration to path, or to the default user config location.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(initCmd)
	configCmd.AddCommand(configTestCmd)
	configCmd.AddCommand(configResolveCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
}

func runConfigTest(_ *cobra.Command, args []string) error {
	path, err := resolveConfigPath(args)
	if err != nil {
		return err
	}

	fmt.Printf("Validating %s...\n\n", path)

	cfg, err := config.Load(path)
	if err != nil {
		var configErr *config.ConfigError
		if errors.As(err, &configErr) && configErr.HasErrors() {
			printConfigErrors(configErr)
			// show what was read when only validation failed
			if len(configErr.Missing) == 0 {
				if parsed, perr := config.LoadWithoutValidation(path); perr == nil {
					printConfigSummary(parsed)
				}
			}
			return fmt.Errorf("configuration invalid")
		}
		return fmt.Errorf("failed to load config: %w", err)
	}

	printConfigSummary(cfg)
	fmt.Println("\nConfiguration valid!")
	return nil
}

func resolveConfigPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return config.Discover()
}

func printConfigErrors(e *config.ConfigError) {
	if len(e.Missing) > 0 {
		fmt.Println("Missing environment variables:")
		for _, m := range e.Missing {
			fmt.Printf("  - %s\n", m)
		}
		fmt.Println()
	}

	if len(e.Errors) > 0 {
		fmt.Println("Validation errors:")
		for _, err := range e.Errors {
			fmt.Printf("  - %s\n", err)
		}
		fmt.Println()
	}
}

func printConfigSummary(cfg *config.Config) {
	fmt.Println("Configuration Summary:")
	fmt.Printf("  Server:     %s:%d (log: %s)\n", cfg.Server.Host, cfg.Server.Port, cfg.Server.LogLevel)
	fmt.Printf("  Database:   %s (events kept %s)\n", cfg.Database.Path, cfg.Database.EventRetention)
	fmt.Printf("  Storage:    %s (max %s per asset)\n", cfg.Storage.Dir, humanize.Bytes(uint64(cfg.Storage.MaxSizeBytes)))
	fmt.Printf("  Catalog:    %s\n", cfg.Catalog.URL)
	if cfg.Probe.Enabled {
		fmt.Printf("  Probe:      %s (threshold %.2f)\n", cfg.Probe.URL, cfg.Probe.Threshold)
	} else {
		fmt.Println("  Probe:      disabled")
	}
	fmt.Printf("  Discovery:  every %s, batch %d\n", cfg.Discovery.Interval, cfg.Discovery.BatchSize)
}

func runConfigResolve(_ *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Write(args[1]); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Printf("Wrote %s\n", args[1])
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	path := config.DefaultPath()
	if len(args) > 0 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}

	if err := config.WriteDefault(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Wrote %s\n", path)
	fmt.Println("Set PREFETCH_CATALOG_URL (or edit catalog.url) before starting prefetchd.")
	return nil
}
