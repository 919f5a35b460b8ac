// Package document provides the text snapshot and span primitives the
// annotation engine operates on.
//
// A Document is an immutable view of a text buffer identified by byte
// offsets. The engine never mutates a document; hosts hand the engine a fresh
// snapshot whenever the underlying buffer changes. Spans are half-open byte
// ranges [Start, End) over the snapshot's content.
package document

import (
	"os"
	"strings"
)

// Span is a half-open byte range [Start, End) over a document's content.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Contains reports whether offset falls inside the span.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End
}

// Intersects reports whether the two spans share at least one byte.
func (s Span) Intersects(other Span) bool {
	return s.Start < other.End && other.Start < s.End
}

// Document is an immutable text snapshot.
type Document struct {
	content string
}

// New creates a document from the given content.
func New(content string) *Document {
	return &Document{content: content}
}

// Load reads a file from disk into a document.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(string(data)), nil
}

// Content returns the full document text.
func (d *Document) Content() string {
	return d.content
}

// Len returns the document length in bytes.
func (d *Document) Len() int {
	return len(d.content)
}

// Slice returns the text covered by span, clamped to the document bounds.
func (d *Document) Slice(span Span) string {
	start, end := span.Start, span.End
	if start < 0 {
		start = 0
	}
	if end > len(d.content) {
		end = len(d.content)
	}
	if start >= end {
		return ""
	}
	return d.content[start:end]
}

// LineBounds returns the span of the line containing offset, excluding the
// trailing newline. An offset past the end of the document yields the bounds
// of the final line.
func (d *Document) LineBounds(offset int) Span {
	if offset > len(d.content) {
		offset = len(d.content)
	}
	if offset < 0 {
		offset = 0
	}
	start := strings.LastIndexByte(d.content[:offset], '\n') + 1
	end := strings.IndexByte(d.content[offset:], '\n')
	if end < 0 {
		end = len(d.content)
	} else {
		end += offset
	}
	return Span{Start: start, End: end}
}

// Lines iterates the document line by line, calling fn with the span of each
// line (newline excluded). Iteration stops early when fn returns false.
func (d *Document) Lines(fn func(line Span) bool) {
	start := 0
	for start <= len(d.content) {
		end := strings.IndexByte(d.content[start:], '\n')
		if end < 0 {
			if !fn(Span{Start: start, End: len(d.content)}) {
				return
			}
			return
		}
		if !fn(Span{Start: start, End: start + end}) {
			return
		}
		start += end + 1
	}
}
