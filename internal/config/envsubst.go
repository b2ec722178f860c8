package config

import (
	"os"
	"regexp"
	"strings"
)

// envVarPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:[-?])([^}]*))?\}`)

// UnsetVar is an environment reference that could not be resolved.
type UnsetVar struct {
	Name    string
	Message string // from ${NAME:?message}; empty for a bare ${NAME}
}

func (v UnsetVar) String() string {
	if v.Message == "" {
		return v.Name
	}
	return v.Name + ": " + v.Message
}

// substituteEnvVars replaces variable references with environment values,
// one line at a time. Text after a TOML comment marker is copied unchanged.
// Unresolved references are left in place and reported once each. Empty
// values count as unset for the :- and :? forms.
func substituteEnvVars(content string) (string, []UnsetVar) {
	var (
		missing []UnsetVar
		seen    = make(map[UnsetVar]bool)
	)
	report := func(v UnsetVar) {
		if !seen[v] {
			seen[v] = true
			missing = append(missing, v)
		}
	}

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		code, comment := line, ""
		if at := commentStart(line); at >= 0 {
			code, comment = line[:at], line[at:]
		}
		lines[i] = envVarPattern.ReplaceAllStringFunc(code, func(match string) string {
			return resolve(match, report)
		}) + comment
	}
	return strings.Join(lines, "\n"), missing
}

func resolve(match string, report func(UnsetVar)) string {
	parts := envVarPattern.FindStringSubmatch(match)
	name, op, arg := parts[1], parts[2], parts[3]
	value, ok := os.LookupEnv(name)

	switch op {
	case ":-":
		if !ok || value == "" {
			return arg
		}
		return value
	case ":?":
		if !ok || value == "" {
			report(UnsetVar{Name: name, Message: strings.TrimSpace(arg)})
			return match
		}
		return value
	default:
		if !ok {
			report(UnsetVar{Name: name})
			return match
		}
		return value
	}
}

// commentStart returns the index of the '#' that opens a comment on line,
// or -1. A '#' inside a basic or literal string does not count.
func commentStart(line string) int {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote == '"' && c == '\\':
			i++ // skip the escaped byte
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '#':
			return i
		}
	}
	return -1
}
