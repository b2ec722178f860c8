package main

import (
	"flag"
	"fmt"
	"os"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to config file (default: search PREFETCH_CONFIG, ./config.toml, XDG, /etc)")
	envFile := flag.String("env", ".env", "Optional .env file loaded before the config")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("prefetchd %s\n", version)
		os.Exit(0)
	}

	if err := runServer(*configPath, *envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
