// Package mode parses the trailing ":ro"/":rw" modifier off a bind-mount
// argument shaped like docker's volume flag: "source:dest[:ro|rw]".
package mode

import (
	"fmt"
	"strings"
)

// Mode is the parsed modifier token of a bind spec.
type Mode struct {
	token string
}

var valid = map[string]bool{
	"":   true,
	"rw": true,
	"ro": true,
}

// Parse validates a mode token (the empty string defaults to read-write).
func Parse(token string) (Mode, error) {
	lower := strings.ToLower(token)
	if !valid[lower] {
		return Mode{}, fmt.Errorf("invalid bind mode %q: want rw or ro", token)
	}
	return Mode{token: lower}, nil
}

// Rdonly reports whether this mode mounts the target read-only.
func (m Mode) Rdonly() bool {
	return m.token == "ro"
}

func ReadOnly() Mode  { return Mode{token: "ro"} }
func ReadWrite() Mode { return Mode{token: "rw"} }

// ParseBindSpec splits a "source:dest[:mode]" command-line argument into its
// three parts.
func ParseBindSpec(spec string) (source, dest string, m Mode, err error) {
	parts := strings.Split(spec, ":")
	switch len(parts) {
	case 2:
		source, dest = parts[0], parts[1]
		m, _ = Parse("")
		return source, dest, m, nil
	case 3:
		source, dest = parts[0], parts[1]
		m, err = Parse(parts[2])
		if err != nil {
			return "", "", Mode{}, err
		}
		return source, dest, m, nil
	default:
		return "", "", Mode{}, fmt.Errorf("invalid bind spec %q: want source:dest[:mode]", spec)
	}
}
