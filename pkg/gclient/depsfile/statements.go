package depsfile

import (
	"strings"

	gerrors "github.com/tapcart/gclient/pkg/errors"
)

// knownBindings are the only top-level names a DEPS (or .gclient)
// script may assign; anything else is an unknown construct per spec §4.2.
var knownBindings = map[string]bool{
	"vars":                 true,
	"deps":                 true,
	"recursedeps":          true,
	"use_relative_paths":   true,
	"gclient_gn_args":      true,
	"gclient_gn_args_file": true,
	"deps_os":              true, // accepted, ignored: legacy OS-keyed deps map
	"hooks":                true, // accepted, ignored: build-system integration is out of scope
	"hooks_os":             true,
	"solutions":            true,
	"target_os":            true,
	"target_os_only":       true,
	"target_cpu":           true,
	"target_cpu_only":      true,
	"cache_dir":            true,
}

// parseTopLevel splits a script's text into top-level "name = <value>"
// bindings, tracking bracket depth so multi-line dict/list literals are
// captured whole, and parses each value with literalParser.
func parseTopLevel(text string) (map[string]value, error) {
	bindings := map[string]value{}

	lines := splitStatements(text)
	for _, stmt := range lines {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		eq := topLevelEquals(stmt)
		if eq < 0 {
			return nil, gerrors.New(gerrors.CodeConfig, "expected top-level assignment, found %q", stmt)
		}
		name := strings.TrimSpace(stmt[:eq])
		if !knownBindings[name] {
			return nil, gerrors.New(gerrors.CodeConfig, "unknown top-level construct %q", name)
		}
		rhs := strings.TrimSpace(stmt[eq+1:])
		lp := newLiteralParser(rhs)
		v, err := lp.parseValue()
		if err != nil {
			return nil, gerrors.Wrap(gerrors.CodeConfig, err, "parsing %s", name)
		}
		bindings[name] = v
	}

	return bindings, nil
}

// topLevelEquals finds the position of the assignment '=' that is not
// part of "==" and is not nested inside brackets/strings.
func topLevelEquals(stmt string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(stmt); i++ {
		c := stmt[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
		case '=':
			if depth == 0 && (i == 0 || stmt[i-1] != '=') && (i+1 >= len(stmt) || stmt[i+1] != '=') {
				return i
			}
		}
	}
	return -1
}

// splitStatements splits script text into top-level statements,
// keeping multi-line dict/list literals intact by tracking bracket
// depth and string-quote state across lines.
func splitStatements(text string) []string {
	var stmts []string
	var cur strings.Builder
	depth := 0
	var quote byte

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			cur.WriteByte(c)
			if c == '\\' && i+1 < len(text) {
				i++
				cur.WriteByte(text[i])
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
			cur.WriteByte(c)
		case '{', '[', '(':
			depth++
			cur.WriteByte(c)
		case '}', ']', ')':
			depth--
			cur.WriteByte(c)
		case '#':
			if depth == 0 {
				for i < len(text) && text[i] != '\n' {
					i++
				}
				if i < len(text) {
					cur.WriteByte('\n')
				}
			} else {
				cur.WriteByte(c)
			}
		case '\n':
			cur.WriteByte(c)
			if depth == 0 {
				flush()
			}
		default:
			cur.WriteByte(c)
		}
	}
	flush()

	return stmts
}
