// Package scanner locates inline media references in a document.
//
// A reference is a three-part macro: a marker token ("image" by default),
// one or two colons (inline vs. block form), a locator running up to the
// opening bracket, and a bracketed attribute list. The scanner is an explicit
// byte-level matcher rather than a regular expression so that boundary
// behavior at the locator/attribute seam is identical everywhere.
//
// Two query forms exist: Scan walks the whole document eagerly and returns
// every reference in document order, and ReferenceAt answers a point query
// for the reference surrounding a given offset.
package scanner

import (
	"strings"

	"github.com/inlaymedia/inlay/internal/document"
)

// DefaultMarker is the marker token used when none is configured.
const DefaultMarker = "image"

// MediaReference is an immutable description of one media reference found in
// a document. All spans are byte offsets into the scanned document.
type MediaReference struct {
	// Span covers the whole reference including markup.
	Span document.Span
	// LocatorSpan covers the raw locator text between the colon(s) and the
	// opening bracket.
	LocatorSpan document.Span
	// AttributesSpan covers the attribute text between the brackets.
	AttributesSpan document.Span
	// Block reports whether the reference used the double-colon block form.
	Block bool
}

// Locator returns the raw locator text of the reference.
func (r MediaReference) Locator(doc *document.Document) string {
	return doc.Slice(r.LocatorSpan)
}

// Attributes returns the raw attribute-list text of the reference.
func (r MediaReference) Attributes(doc *document.Document) string {
	return doc.Slice(r.AttributesSpan)
}

// Scanner finds media references for a fixed marker token.
type Scanner struct {
	marker string
}

// New creates a scanner for the given marker token. An empty marker selects
// DefaultMarker.
func New(marker string) *Scanner {
	if marker == "" {
		marker = DefaultMarker
	}
	return &Scanner{marker: marker}
}

// Marker returns the marker token this scanner matches.
func (s *Scanner) Marker() string {
	return s.marker
}

// Scan returns every media reference in the document, in document order. The
// result is materialized eagerly: registry rebuilds need the full set before
// they start mutating state.
func (s *Scanner) Scan(doc *document.Document) []MediaReference {
	var refs []MediaReference
	content := doc.Content()
	pos := 0
	for pos < len(content) {
		idx := strings.Index(content[pos:], s.marker)
		if idx < 0 {
			break
		}
		at := pos + idx
		if ref, ok := s.matchAt(content, at); ok {
			refs = append(refs, ref)
			pos = ref.Span.End
		} else {
			pos = at + 1
		}
	}
	return refs
}

// ReferenceAt answers a point query: the reference whose markup surrounds the
// given offset, if any. Callers pass the offset explicitly; the scanner never
// consults ambient cursor state, so an event bound to a position other than
// the current cursor works the same way.
//
// The anchor is found in two steps. If the bytes immediately before offset
// are alphabetic, the run is skipped backward so a query inside the marker
// word lands on its start; the skip itself is not line-bounded. Failing a
// match there, the marker token is searched backward within the current line
// only, which covers queries placed inside the locator or attribute text.
func (s *Scanner) ReferenceAt(doc *document.Document, offset int) (MediaReference, bool) {
	content := doc.Content()
	if offset < 0 || offset > len(content) {
		return MediaReference{}, false
	}

	anchor := offset
	for anchor > 0 && isAlpha(content[anchor-1]) {
		anchor--
	}
	if ref, ok := s.matchAt(content, anchor); ok && ref.Span.End >= offset {
		return ref, true
	}

	line := doc.LineBounds(offset)
	searchEnd := offset
	if searchEnd > line.End {
		searchEnd = line.End
	}
	idx := strings.LastIndex(content[line.Start:searchEnd], s.marker)
	if idx < 0 {
		return MediaReference{}, false
	}
	ref, ok := s.matchAt(content, line.Start+idx)
	if !ok || ref.Span.End < offset {
		return MediaReference{}, false
	}
	return ref, true
}

// matchAt matches the full reference pattern anchored at start: marker, one
// or two colons, locator (no ']', '[' or newline), '[', attribute text (no
// ']' or newline), ']'.
func (s *Scanner) matchAt(content string, start int) (MediaReference, bool) {
	pos := start
	if !strings.HasPrefix(content[pos:], s.marker) {
		return MediaReference{}, false
	}
	pos += len(s.marker)

	if pos >= len(content) || content[pos] != ':' {
		return MediaReference{}, false
	}
	pos++
	block := false
	if pos < len(content) && content[pos] == ':' {
		block = true
		pos++
	}

	locStart := pos
	for pos < len(content) && content[pos] != '[' {
		if content[pos] == ']' || content[pos] == '\n' {
			return MediaReference{}, false
		}
		pos++
	}
	if pos >= len(content) {
		return MediaReference{}, false
	}
	locEnd := pos
	pos++ // consume '['

	attrStart := pos
	for pos < len(content) && content[pos] != ']' {
		if content[pos] == '\n' {
			return MediaReference{}, false
		}
		pos++
	}
	if pos >= len(content) {
		return MediaReference{}, false
	}
	attrEnd := pos
	pos++ // consume ']'

	return MediaReference{
		Span:           document.Span{Start: start, End: pos},
		LocatorSpan:    document.Span{Start: locStart, End: locEnd},
		AttributesSpan: document.Span{Start: attrStart, End: attrEnd},
		Block:          block,
	}, true
}

func isAlpha(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
