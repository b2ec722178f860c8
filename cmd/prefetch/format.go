package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dustin/go-humanize"
)

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// truncate keeps the tail of s, which is where URLs and paths differ.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[len(s)-maxLen:]
	}
	return "..." + s[len(s)-(maxLen-3):]
}

func priorityName(p int) string {
	switch p {
	case 1:
		return "high"
	case 2:
		return "medium"
	case 3:
		return "idle"
	default:
		return "unknown"
	}
}

// parsePriority accepts a level name or its number.
func parsePriority(s string) (int, bool) {
	switch s {
	case "high", "1":
		return 1, true
	case "medium", "2":
		return 2, true
	case "idle", "3":
		return 3, true
	default:
		return 0, false
	}
}
