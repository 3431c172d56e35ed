// Package commands holds one constructor per rulesweep subcommand.
package commands

import (
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// parseIDList parses a comma-separated id list flag.
func parseIDList(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, errors.Errorf("invalid id %q", p)
		}
		out = append(out, id)
	}
	return out, nil
}

// parseID parses a single positional id argument.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid id %q", arg)
	}
	return id, nil
}
