package tui

import (
	"fmt"
	"strings"
)

// Command represents a parsed command.
type Command struct {
	Name string
	Args []string
}

// Arg returns the i-th argument or "".
func (c Command) Arg(i int) string {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return ""
}

// Rest joins the arguments from i on.
func (c Command) Rest(i int) string {
	if i >= len(c.Args) {
		return ""
	}
	return strings.Join(c.Args[i:], " ")
}

var aliases = map[string]string{
	"q":    "quit",
	"p":    "propose",
	"o":    "open",
	"f":    "filter",
	"h":    "help",
	"exit": "quit",
}

var arity = map[string][2]int{
	"propose": {1, 2},
	"open":    {1, 1},
	"token":   {1, 1},
	"filter":  {0, -1},
	"logout":  {0, 0},
	"quit":    {0, 0},
	"help":    {0, 0},
	"inbox":   {0, 0},
}

// ParseCommand parses a command string (without the leading ':') and checks
// its argument count.
func ParseCommand(input string) (Command, error) {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(input), ":"))
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}
	cmd := Command{Name: strings.ToLower(fields[0]), Args: fields[1:]}
	if full, ok := aliases[cmd.Name]; ok {
		cmd.Name = full
	}

	n, ok := arity[cmd.Name]
	if !ok {
		return cmd, fmt.Errorf("unknown command %q", cmd.Name)
	}
	if len(cmd.Args) < n[0] || (n[1] >= 0 && len(cmd.Args) > n[1]) {
		return cmd, fmt.Errorf("%s: wrong number of arguments", cmd.Name)
	}
	return cmd, nil
}
