// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package render

import (
	"image/color"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"memeforge/internal/template"
)

// maxLineBytes is the per-line caption ceiling. Longer lines truncate with
// an ellipsis and flag the TooLong status instead of failing the request.
const maxLineBytes = 200

var titleCaser = cases.Title(language.English)

// applyTransform restores display case to a slug-decoded (lowercase) line.
func applyTransform(tr template.Transform, s string) string {
	switch tr {
	case template.TransformUpper:
		return strings.ToUpper(s)
	case template.TransformLower:
		return strings.ToLower(s)
	case template.TransformTitle:
		return titleCaser.String(s)
	case template.TransformSentence:
		return sentenceCase(s)
	case template.TransformMock:
		return mockCase(s)
	default:
		return s
	}
}

func sentenceCase(s string) string {
	for i, r := range s {
		if unicode.IsLetter(r) {
			return s[:i] + string(unicode.ToUpper(r)) + s[i+len(string(r)):]
		}
	}
	return s
}

// mockCase alternates letter case, starting lowercase, skipping
// non-letters so spacing does not break the rhythm.
func mockCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	upper := false
	for _, r := range s {
		if !unicode.IsLetter(r) {
			b.WriteRune(r)
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
		upper = !upper
	}
	return b.String()
}

// truncateLine enforces the byte ceiling at a rune boundary, marking the
// cut with an ellipsis.
func truncateLine(s string) (string, bool) {
	if len(s) <= maxLineBytes {
		return s, false
	}
	cut := maxLineBytes
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…", true
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// namedColors covers the palette template authors actually use; anything
// else goes through the hex parser.
var namedColors = map[string]color.RGBA{
	"white":  {255, 255, 255, 255},
	"black":  {0, 0, 0, 255},
	"red":    {220, 30, 30, 255},
	"yellow": {245, 210, 20, 255},
	"blue":   {40, 90, 220, 255},
	"green":  {40, 160, 60, 255},
	"orange": {245, 140, 20, 255},
	"purple": {130, 50, 180, 255},
	"gray":   {128, 128, 128, 255},
	"grey":   {128, 128, 128, 255},
	"silver": {192, 192, 192, 255},
}

// parseColor resolves a named color or #rgb/#rrggbb hex. Unknown values
// fall back to white, the dominant caption color.
func parseColor(s string) color.RGBA {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c
	}
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) == 6 {
			var v [3]uint8
			ok := true
			for i := 0; i < 3; i++ {
				hi, ok1 := hexVal(hex[2*i])
				lo, ok2 := hexVal(hex[2*i+1])
				if !ok1 || !ok2 {
					ok = false
					break
				}
				v[i] = hi<<4 | lo
			}
			if ok {
				return color.RGBA{v[0], v[1], v[2], 255}
			}
		}
	}
	return namedColors["white"]
}

func hexVal(b byte) (uint8, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	default:
		return 0, false
	}
}

// strokeFor picks the outline color for contrast against the fill: a dark
// stroke on light fills, a light stroke on dark fills.
func strokeFor(fill color.RGBA) color.RGBA {
	luma := 0.299*float64(fill.R) + 0.587*float64(fill.G) + 0.114*float64(fill.B)
	if luma > 140 {
		return namedColors["black"]
	}
	return namedColors["white"]
}
