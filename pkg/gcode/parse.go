package gcode

import (
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// Command is one parsed line of a script.
type Command struct {
	Name   string
	Params Params
	Raw    string
}

// ParseLine parses `NAME KEY=value KEY2="quoted value"`. Blank lines and
// comment-only lines yield a nil command.
func ParseLine(line string) (*Command, error) {
	raw := strings.TrimSpace(stripComment(line))
	if raw == "" {
		return nil, nil
	}
	fields, err := shlex.Split(raw)
	if err != nil {
		return nil, fmt.Errorf("malformed command %q: %w", raw, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	cmd := &Command{
		Name:   strings.ToUpper(fields[0]),
		Params: Params{},
		Raw:    raw,
	}
	for _, field := range fields[1:] {
		key, value, ok := strings.Cut(field, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed command parameter %q in %q", field, raw)
		}
		cmd.Params[strings.ToUpper(key)] = value
	}
	return cmd, nil
}

// stripComment drops everything after an unquoted ';'.
func stripComment(line string) string {
	var quote rune
	for i, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == ';':
			return line[:i]
		}
	}
	return line
}
