// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package slug

import (
	"reflect"
	"testing"
)

// TestEncode covers the escape table, the doubling rules, and the blank
// sentinel across typical and boundary caption lines.
func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		// --- Plain captions ---
		{
			name:  "single line with space",
			lines: []string{"hello world"},
			want:  "hello_world",
		},
		{
			name:  "two lines",
			lines: []string{"does testing", "in production"},
			want:  "does_testing/in_production",
		},
		{
			name:  "uppercase input is lowercased",
			lines: []string{"Hello World"},
			want:  "hello_world",
		},

		// --- Escape table ---
		{
			name:  "slash inside a line",
			lines: []string{"a/b", "c"},
			want:  "a~sb/c",
		},
		{
			name:  "question mark and ampersand",
			lines: []string{"why? because & so"},
			want:  "why~q_because_~a_so",
		},
		{
			name:  "percent and hash",
			lines: []string{"100% #1"},
			want:  "100~p_~h1",
		},
		{
			name:  "angle brackets and backslash",
			lines: []string{`<a\b>`},
			want:  "~la~bb~g",
		},
		{
			name:  "double quote becomes two single quotes",
			lines: []string{`say "cheese"`},
			want:  "say_''cheese''",
		},
		{
			name:  "embedded newline",
			lines: []string{"first\nsecond"},
			want:  "first~nsecond",
		},

		// --- Doubling rules ---
		{
			name:  "literal underscore doubles",
			lines: []string{"variable_name"},
			want:  "variable__name",
		},
		{
			name:  "literal hyphen doubles",
			lines: []string{"so-called"},
			want:  "so--called",
		},
		{
			name:  "underscore then space",
			lines: []string{"x_ y"},
			want:  "x___y",
		},
		{
			name:  "line ending in underscore space doubles the triple",
			lines: []string{"tail_ "},
			want:  "tail______",
		},

		// --- Blank sentinel ---
		{
			name:  "empty line",
			lines: []string{""},
			want:  "_",
		},
		{
			name:  "lone slash line",
			lines: []string{"/"},
			want:  "_",
		},
		{
			name:  "blank middle line",
			lines: []string{"top", "", "bottom"},
			want:  "top/_/bottom",
		},
		{
			name:  "no lines",
			lines: nil,
			want:  "",
		},

		// --- Normalization ---
		{
			name:  "typographic quotes and dashes",
			lines: []string{"it’s “fine” – really"},
			want:  "it's_''fine''_--_really",
		},
		{
			name:  "runs of spaces collapse",
			lines: []string{"a  lot   of space"},
			want:  "a_lot_of_space",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.lines); got != tt.want {
				t.Errorf("Encode(%q) = %q, want %q", tt.lines, got, tt.want)
			}
		})
	}
}

// TestDecode covers structural-marker disambiguation and the reverse
// escape table.
func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		slug string
		want []string
	}{
		{
			name: "underscores become spaces",
			slug: "hello_world",
			want: []string{"hello world"},
		},
		{
			name: "hyphens also decode to spaces",
			slug: "hello-world",
			want: []string{"hello world"},
		},
		{
			name: "two lines",
			slug: "does_testing/in_production",
			want: []string{"does testing", "in production"},
		},
		{
			name: "doubled underscore is literal",
			slug: "variable__name",
			want: []string{"variable_name"},
		},
		{
			name: "doubled hyphen is literal",
			slug: "so--called",
			want: []string{"so-called"},
		},
		{
			name: "escaped slash",
			slug: "a~sb/c",
			want: []string{"a/b", "c"},
		},
		{
			name: "blank sentinel",
			slug: "_",
			want: []string{""},
		},
		{
			name: "mixed marker run underscore before doubled hyphen",
			slug: "x_--y",
			want: []string{"x -y"},
		},
		{
			name: "mixed marker run with two doubled hyphens",
			slug: "x_----y",
			want: []string{"x --y"},
		},
		{
			name: "interior triple underscore",
			slug: "x___y",
			want: []string{"x_ y"},
		},
		{
			name: "trailing six underscores",
			slug: "tail______",
			want: []string{"tail_ "},
		},
		{
			name: "uppercase slug decodes lowercased",
			slug: "Hello_World",
			want: []string{"hello world"},
		},
		{
			name: "unknown tilde escape passes through",
			slug: "x~zy",
			want: []string{"x~zy"},
		},
		{
			name: "empty slug",
			slug: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decode(tt.slug); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode(%q) = %q, want %q", tt.slug, got, tt.want)
			}
		})
	}
}

// TestRoundTrip verifies Decode(Encode(lines)) == lines for lines drawn
// from the supported character set.
func TestRoundTrip(t *testing.T) {
	cases := [][]string{
		{"hello world"},
		{"does testing", "in production"},
		{"variable_name"},
		{"so-called 'best' practice"},
		{"a/b", "c"},
		{"why? because & so"},
		{"100% #1 <ok> \\o/"},
		{`say "cheese"`},
		{"first\nsecond", "third"},
		{"", "only bottom"},
		{"tail_ "},
		{"x_ y"},
		{"a- b", "a -b"},
		{"__", "--"},
		{"1 + 1 = 2"},
	}

	for _, lines := range cases {
		slug := Encode(lines)
		got := Decode(slug)
		if !reflect.DeepEqual(got, lines) {
			t.Errorf("Decode(Encode(%q)) = %q via %q", lines, got, slug)
		}
	}
}

// TestCanonicalFixedPoint verifies that canonicalization converges: once a
// slug is canonical, re-encoding it changes nothing. Non-canonical inputs
// reach a fixed point after one application.
func TestCanonicalFixedPoint(t *testing.T) {
	slugs := []string{
		"hello_world",
		"hello-world",
		"Hello_World",
		"does_testing/in_production",
		"variable__name",
		"a~sb/c",
		"_",
		"x___y",
		"tail______",
		"raw text with spaces",
		"",
	}

	for _, s := range slugs {
		once := Canonical(s)
		twice := Canonical(once)
		if once != twice {
			t.Errorf("Canonical(%q): first %q, second %q — not a fixed point", s, once, twice)
		}
	}
}

// TestCanonicalDetectsRedirects pins the canonical forms the normalizer
// uses to decide between redirecting and rendering.
func TestCanonicalDetectsRedirects(t *testing.T) {
	tests := []struct {
		slug      string
		canonical string
	}{
		{"hello_world", "hello_world"},  // already canonical
		{"hello-world", "hello_world"},  // hyphen form redirects
		{"Hello_World", "hello_world"},  // case redirects
		{"raw text", "raw_text"},        // unencoded spaces redirect
		{"does_testing/in_production", "does_testing/in_production"},
	}

	for _, tt := range tests {
		if got := Canonical(tt.slug); got != tt.canonical {
			t.Errorf("Canonical(%q) = %q, want %q", tt.slug, got, tt.canonical)
		}
	}
}
