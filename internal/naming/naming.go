package naming

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func isLower(b byte) bool { return b >= 'a' && b <= 'z' }
func isUpper(b byte) bool { return b >= 'A' && b <= 'Z' }
func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Words splits s into lowercase ASCII words. Anything other than an ASCII
// letter or digit separates words, as do camelCase boundaries
// ("listEvents" -> list, events) and acronym boundaries ("HTTPServer" ->
// http, server). Digits stay attached to the word they follow.
func Words(s string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isLower(c) && !isUpper(c) && !isDigit(c) {
			flush()
			continue
		}
		if isUpper(c) && i > 0 {
			prev := s[i-1]
			switch {
			case isLower(prev) || isDigit(prev):
				flush()
			case isUpper(prev) && i+1 < len(s) && isLower(s[i+1]):
				flush()
			}
		}
		cur.WriteByte(c)
	}
	flush()
	return words
}

// Canonical converts s to the canonical form. Words that start with a digit
// are joined to the word before them; a leading digit word gets an "op"
// prefix. Canonical returns "" when s has no letters or digits.
func Canonical(s string) string {
	var out []string
	for _, w := range Words(s) {
		if isDigit(w[0]) {
			if len(out) == 0 {
				out = append(out, "op"+w)
				continue
			}
			out[len(out)-1] += w
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, "_")
}

// Display converts a canonical id to its display form: "list_events" ->
// "ListEvents". The input must already be canonical.
func Display(canonical string) string {
	var b strings.Builder
	for _, w := range strings.Split(canonical, "_") {
		if w == "" {
			continue
		}
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(w[1:])
	}
	return b.String()
}

// FromDisplay reverses Display: "ListEvents" -> "list_events".
func FromDisplay(display string) string {
	var b strings.Builder
	for i := 0; i < len(display); i++ {
		c := display[i]
		if isUpper(c) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteByte(c + ('a' - 'A'))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Exported returns the display form of any raw identifier, for Go type and
// method names.
func Exported(s string) string {
	return Display(Canonical(s))
}

// PackageName returns a Go package name built from the words of the parts:
// ("slack", "web_api") -> "slackwebapi".
func PackageName(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		for _, w := range Words(p) {
			b.WriteString(w)
		}
	}
	name := b.String()
	if name != "" && isDigit(name[0]) {
		name = "pkg" + name
	}
	return name
}

// EnvName returns an upper snake case environment variable name:
// ("slack", "web_api", "token") -> "SLACK_WEB_API_TOKEN".
func EnvName(parts ...string) string {
	var words []string
	for _, p := range parts {
		words = append(words, Words(p)...)
	}
	return strings.ToUpper(strings.Join(words, "_"))
}

// Title returns a human-readable title: "web_api" -> "Web Api".
func Title(s string) string {
	return cases.Title(language.English).String(strings.Join(Words(s), " "))
}
