package vcs

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// joinArgs renders args as one argument line. The CI runner splits the line
// on whitespace honoring shell quotes, so arguments with spaces or quote
// characters are quoted for a POSIX shell.
func joinArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = quoteArg(arg)
	}
	return strings.Join(quoted, " ")
}

func quoteArg(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t\n'\"\\$`;&|<>()*?[]{}~#!") {
		return arg
	}
	q, err := syntax.Quote(arg, syntax.LangPOSIX)
	if err != nil {
		// Quote only rejects bytes a shell cannot carry (NUL); drop them.
		q, _ = syntax.Quote(strings.ReplaceAll(arg, "\x00", ""), syntax.LangPOSIX)
	}
	return q
}
