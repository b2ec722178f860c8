package config

import (
	"fmt"
	"net/url"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	// Server validation
	if c.Server.Port != 0 && (c.Server.Port < 1 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path: required")
	}
	if c.Database.EventRetention < 0 {
		errs = append(errs, "database.event_retention: must not be negative")
	}
	if c.Storage.Dir == "" {
		errs = append(errs, "storage.dir: required")
	}

	// Catalog validation
	if c.Catalog.URL == "" {
		errs = append(errs, "catalog.url: required")
	} else if !isHTTPURL(c.Catalog.URL) {
		errs = append(errs, fmt.Sprintf("catalog.url: must be an http(s) URL, got %q", c.Catalog.URL))
	}
	if c.Catalog.Timeout < 0 {
		errs = append(errs, "catalog.timeout: must not be negative")
	}

	// Probe validation
	if c.Probe.Enabled {
		if c.Probe.URL != "" && !isHTTPURL(c.Probe.URL) {
			errs = append(errs, fmt.Sprintf("probe.url: must be an http(s) URL, got %q", c.Probe.URL))
		}
		if c.Probe.Threshold < 0 {
			errs = append(errs, fmt.Sprintf("probe.threshold: must be positive, got %g", c.Probe.Threshold))
		}
		if c.Probe.Timeout < 0 {
			errs = append(errs, "probe.timeout: must not be negative")
		}
	}

	// Discovery validation
	if c.Discovery.Interval < 0 {
		errs = append(errs, "discovery.interval: must not be negative")
	}
	if c.Discovery.BatchSize < 0 {
		errs = append(errs, fmt.Sprintf("discovery.batch_size: must be positive, got %d", c.Discovery.BatchSize))
	}

	if c.Download.Timeout < 0 {
		errs = append(errs, "download.timeout: must not be negative")
	}
	if c.Queue.Retention < 0 {
		errs = append(errs, "queue.retention: must not be negative")
	}

	return errs
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
