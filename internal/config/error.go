package config

import (
	"fmt"
	"strings"
)

// ConfigError reports everything wrong with a config file in one go:
// environment references that did not resolve and failed validation rules.
type ConfigError struct {
	Path    string
	Missing []UnsetVar
	Errors  []string
}

func (e *ConfigError) Error() string {
	if !e.HasErrors() {
		return ""
	}

	var b strings.Builder
	if e.Path != "" {
		b.WriteString(e.Path + ": ")
	}

	if len(e.Missing) > 0 {
		names := make([]string, len(e.Missing))
		for i, v := range e.Missing {
			names[i] = v.Name
		}
		fmt.Fprintf(&b, "missing environment variables: %s", strings.Join(names, ", "))
		for _, v := range e.Required() {
			fmt.Fprintf(&b, "\n  - %s", v)
		}
	}

	if len(e.Errors) > 0 {
		if len(e.Missing) > 0 {
			b.WriteString("\n")
		}
		b.WriteString("validation failed:")
		for _, msg := range e.Errors {
			fmt.Fprintf(&b, "\n  - %s", msg)
		}
	}
	return b.String()
}

// Required returns the unresolved ${VAR:?message} references, the ones the
// config author explained.
func (e *ConfigError) Required() []UnsetVar {
	var out []UnsetVar
	for _, v := range e.Missing {
		if v.Message != "" {
			out = append(out, v)
		}
	}
	return out
}

// HasErrors reports whether anything was recorded.
func (e *ConfigError) HasErrors() bool {
	return len(e.Missing) > 0 || len(e.Errors) > 0
}
