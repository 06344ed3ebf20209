// Package bot wires the Telegram transport to the application services. It
// parses operator commands and buyer actions, enforces the admin gate,
// renders replies, and routes free text through the support relay with a
// catalog-search fallback.
//
// This file implements quote-aware argument splitting for commands such as
//
//	/add_product "Elden Ring" KEY-123 60 5 "Action RPG" EU
//
// where a quoted token may contain spaces.
package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// SplitArgs splits a command tail into tokens. Double and single quotes
// group words into one token; the quotes themselves are stripped. An
// unterminated quote is an error so a malformed command fails loudly
// instead of silently mangling its arguments.
func SplitArgs(s string) ([]string, error) {
	var (
		out   []string
		cur   strings.Builder
		quote rune
		open  bool
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case open:
			if r == quote {
				open = false
				out = append(out, cur.String())
				cur.Reset()
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			flush()
			open = true
			quote = r
		case r == ' ' || r == '\t' || r == '\n':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	if open {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	flush()
	return out, nil
}

// argInt64 parses args[i] as an int64, or returns an error naming the field.
func argInt64(args []string, i int, field string) (int64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("%s is required", field)
	}
	n, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", field)
	}
	return n, nil
}

// argInt parses args[i] as an int, or returns an error naming the field.
func argInt(args []string, i int, field string) (int, error) {
	n, err := argInt64(args, i, field)
	return int(n), err
}

// optArg returns args[i] or "" when absent.
func optArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
