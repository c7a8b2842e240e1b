// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug implements the reversible caption-line codec used in image
// URLs. Caption lines are joined with "/" and each line is rewritten with a
// fixed escape table so the result is path-safe, lowercase, and editable by
// hand. Decode(Encode(lines)) == lines for the supported character set, and
// Encode(Decode(s)) is a fixed point once s is canonical — the normalizer
// relies on that fixed point to detect URLs that need a redirect.
package slug

import "strings"

// blank is the sentinel for an empty caption line.
const blank = "_"

// escapes maps reserved characters to their path-safe form. Applied in
// order after the underscore/hyphen doubling and the space rewrite, and in
// reverse on decode.
var escapes = [][2]string{
	{"?", "~q"},
	{"&", "~a"},
	{"%", "~p"},
	{"#", "~h"},
	{"/", "~s"},
	{"\\", "~b"},
	{"<", "~l"},
	{">", "~g"},
	{"\"", "''"},
	{"\n", "~n"},
}

// typographic maps smart quotes and dashes to their ASCII equivalents
// before escaping, so pasted captions produce stable slugs.
var typographic = strings.NewReplacer(
	"‘", "'", "’", "'",
	"“", "\"", "”", "\"",
	"–", "-", "—", "-", "−", "-",
)

// Encode turns caption lines into a URL-path slug. It never fails: any
// string outside the escape table passes through as opaque text.
func Encode(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	encoded := make([]string, len(lines))
	for i, line := range lines {
		encoded[i] = encodeLine(line)
	}
	return strings.ToLower(strings.Join(encoded, "/"))
}

// Decode reverses Encode. The result is lowercase; per-box case transforms
// are applied later by the renderer.
func Decode(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "/")
	lines := make([]string, len(parts))
	for i, part := range parts {
		lines[i] = decodeLine(strings.ToLower(part))
	}
	return lines
}

// Canonical returns the canonical form of a slug. A slug already in
// canonical form maps to itself.
func Canonical(s string) string {
	return Encode(Decode(s))
}

func encodeLine(line string) string {
	line = typographic.Replace(line)
	line = collapseSpaces(line)
	if line == "" || line == "/" {
		return blank
	}

	// Literal underscores and hyphens double so the single forms stay
	// reserved as structural markers.
	line = strings.ReplaceAll(line, "_", "__")
	line = strings.ReplaceAll(line, "-", "--")
	line = strings.ReplaceAll(line, " ", "_")

	for _, e := range escapes {
		line = strings.ReplaceAll(line, e[0], e[1])
	}

	// A line ending in "_ " leaves a trailing run of exactly three
	// underscores, which a naive decode would mis-split. Double it.
	if trailingUnderscores(line) == 3 {
		line += "___"
	}
	return line
}

// decodeLine reverses encodeLine with an ordered sequence of substring
// replacements. Doubled markers are protected with placeholder bytes first
// so the single-character substitutions cannot mis-split runs such as
// "_--" or "_----".
func decodeLine(line string) string {
	if line == blank {
		return ""
	}

	// Counterpart of the trailing-triple doubling in encodeLine.
	if trailingUnderscores(line) == 6 {
		line = line[:len(line)-6] + "\x00 "
	}

	line = strings.ReplaceAll(line, "__", "\x00")
	line = strings.ReplaceAll(line, "--", "\x01")
	line = strings.ReplaceAll(line, "_", " ")
	line = strings.ReplaceAll(line, "-", " ")
	line = strings.ReplaceAll(line, "\x00", "_")
	line = strings.ReplaceAll(line, "\x01", "-")

	for _, e := range escapes {
		line = strings.ReplaceAll(line, e[1], e[0])
	}
	return line
}

// collapseSpaces squeezes runs of spaces to one. Runs of spaces would
// otherwise collide with the doubled-underscore escape on decode.
func collapseSpaces(s string) string {
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return s
}

// trailingUnderscores counts the length of the underscore run at the end
// of s.
func trailingUnderscores(s string) int {
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == '_'; i-- {
		n++
	}
	return n
}
