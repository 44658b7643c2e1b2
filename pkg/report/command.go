package report

import (
	"fmt"
	"strings"

	"github.com/itohio/golcm/pkg/keys"
)

// Key commands sent from the host, one per line.
const (
	CommandShort  = "S"
	CommandLong   = "L"
	CommandDouble = "D"
)

// FormatCommand returns the command line, with newline, for a key outcome.
func FormatCommand(o keys.Outcome) (string, error) {
	switch o {
	case keys.Short:
		return CommandShort + "\n", nil
	case keys.Long:
		return CommandLong + "\n", nil
	case keys.Double:
		return CommandDouble + "\n", nil
	}
	return "", fmt.Errorf("no command for key %s", o)
}

// ParseCommand parses a key command line. Matching is case-insensitive.
func ParseCommand(line string) (keys.Outcome, error) {
	switch strings.ToUpper(strings.TrimSpace(line)) {
	case CommandShort:
		return keys.Short, nil
	case CommandLong:
		return keys.Long, nil
	case CommandDouble:
		return keys.Double, nil
	}
	return keys.None, fmt.Errorf("unknown command %q", line)
}
