// Package attrs builds document attribute tables and resolves attribute
// references inside resource locators.
//
// An attribute definition is a line of the form ":name: value". The builder
// scans the whole document per call and returns a name→value table; the
// resolver substitutes "{name}" placeholders in a locator against such a
// table. Both are explicit byte scanners rather than regular expressions so
// boundary behavior is identical across platforms.
package attrs

import (
	"strings"

	"github.com/inlaymedia/inlay/internal/document"
)

// Table maps attribute names to their values. Names are case-sensitive.
type Table map[string]string

// Build scans every line of the document for attribute definitions and
// returns the resulting table. When the same name is defined more than once,
// the last definition wins. The document is never mutated.
//
// This is a full-document scan invoked once per resolution request; resolution
// only happens when a reference is displayed, not on every keystroke, so the
// linear cost is acceptable.
func Build(doc *document.Document) Table {
	table := make(Table)
	doc.Lines(func(line document.Span) bool {
		if name, value, ok := parseDefinition(doc.Slice(line)); ok {
			table[name] = value
		}
		return true
	})
	return table
}

// parseDefinition matches a single line against the definition syntax:
// ':' key ':' whitespace value-to-end-of-line. The key starts with an
// alphanumeric byte, continues with alphanumerics and underscores, and may
// carry one dotted qualifier.
func parseDefinition(line string) (name, value string, ok bool) {
	if len(line) < 3 || line[0] != ':' {
		return "", "", false
	}
	pos := 1
	if !isAlnum(line[pos]) {
		return "", "", false
	}
	pos++
	for pos < len(line) && isWord(line[pos]) {
		pos++
	}
	if pos < len(line) && line[pos] == '.' {
		pos++
		start := pos
		for pos < len(line) && isWord(line[pos]) {
			pos++
		}
		if pos == start {
			return "", "", false
		}
	}
	if pos >= len(line) || line[pos] != ':' {
		return "", "", false
	}
	name = line[1:pos]
	pos++

	rest := line[pos:]
	trimmed := strings.TrimLeft(rest, " \t")
	if trimmed == rest && trimmed != "" {
		// The colon must be followed by whitespace before any value.
		return "", "", false
	}
	return name, trimmed, true
}

// Resolve substitutes each "{name}" occurrence in locator with the table's
// value for name. Undefined names are left as literal text, including the
// braces. Substituted values are not re-expanded.
func Resolve(locator string, table Table) string {
	// Fast path: nothing to substitute.
	if !strings.ContainsRune(locator, '{') {
		return locator
	}

	var out strings.Builder
	out.Grow(len(locator))
	pos := 0
	for pos < len(locator) {
		open := strings.IndexByte(locator[pos:], '{')
		if open < 0 {
			out.WriteString(locator[pos:])
			break
		}
		open += pos
		closing := strings.IndexByte(locator[open:], '}')
		if closing < 0 {
			out.WriteString(locator[pos:])
			break
		}
		closing += open

		out.WriteString(locator[pos:open])
		name := locator[open+1 : closing]
		if value, defined := table[name]; defined {
			out.WriteString(value)
		} else {
			out.WriteString(locator[open : closing+1])
		}
		pos = closing + 1
	}
	return out.String()
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

func isWord(b byte) bool {
	return isAlnum(b) || b == '_'
}
