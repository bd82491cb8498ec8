package proc

import (
	"errors"
	"strings"
)

var ErrEmptyInput = errors.New("no song specified")

// NormalizeRequest turns raw command input into the query handed to the engine.
// A <url> wrapper (Discord's embed suppression) loses one layer of brackets;
// empty input falls back to the first attachment URL.
func NormalizeRequest(args string, attachments []string) (string, error) {
	args = strings.TrimSpace(args)
	switch {
	case len(args) >= 2 && strings.HasPrefix(args, "<") && strings.HasSuffix(args, ">"):
		if inner := args[1 : len(args)-1]; strings.TrimSpace(inner) != "" {
			return inner, nil
		}
		return "", ErrEmptyInput
	case args == "":
		for _, a := range attachments {
			if a != "" {
				return a, nil
			}
		}
		return "", ErrEmptyInput
	default:
		return args, nil
	}
}
